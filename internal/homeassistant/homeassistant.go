package homeassistant

import (
	"encoding/json"
	"fmt"
	"sync"

	"github.com/akerman/sector2mqtt/internal/config"
	"github.com/akerman/sector2mqtt/internal/coordinator"
	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/mqtt"
	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/util"
)

type HomeAssistant struct {
	config   *config.HomeAssistantConfig
	mqtt     mqtt.MQTTClient
	registry *registry.Registry
	log      *log.Logger

	mu        sync.Mutex
	published map[string]string
}

func New(cfg *config.HomeAssistantConfig, mqttClient mqtt.MQTTClient, reg *registry.Registry, logger *log.Logger) *HomeAssistant {
	return &HomeAssistant{
		config:    cfg,
		mqtt:      mqttClient,
		registry:  reg,
		log:       logger,
		published: make(map[string]string),
	}
}

func (ha *HomeAssistant) Start() {
	ha.log.Info("Starting Home Assistant integration")
	ha.publishDiscoveryConfig()
}

// Refresh re-announces discovery configs from the current registry. Wired
// as a coordinator listener so devices that only resolve after startup
// still get announced. Unchanged configs are not republished.
func (ha *HomeAssistant) Refresh() {
	ha.publishDiscoveryConfig()
}

func (ha *HomeAssistant) publishDiscoveryConfig() {
	for serialNo, device := range ha.registry.FetchDevices() {
		for _, entity := range device.Entities {
			ha.publishEntityConfig(serialNo, device, entity)
		}
	}
}

func (ha *HomeAssistant) publishEntityConfig(serialNo string, device registry.Device, entity registry.Entity) {
	switch entity.Model {
	case coordinator.ModelAlarmPanel:
		ha.publishAlarmConfig(serialNo, device, entity)
	case coordinator.ModelSmartLock:
		ha.publishLockConfig(serialNo, device, entity)
	case coordinator.ModelSmartPlug:
		ha.publishSwitchConfig(serialNo, device, entity)
	}
	ha.publishSensorConfigs(serialNo, device, entity)
}

func (ha *HomeAssistant) publishAlarmConfig(serialNo string, device registry.Device, entity registry.Entity) {
	config := map[string]interface{}{
		"name":               entity.Name,
		"unique_id":          ha.uniqueID(serialNo, "alarm"),
		"state_topic":        ha.mqtt.Topics().Alarm(),
		"value_template":     "{{ value_json.state }}",
		"command_topic":      ha.mqtt.Topics().AlarmCommand(),
		"payload_disarm":     "disarm",
		"payload_arm_home":   "partial_arm",
		"payload_arm_away":   "full_arm",
		"availability_topic": ha.mqtt.Topics().Status(),
		"device":             deviceInfo(serialNo, device),
	}

	ha.publishConfig("alarm_control_panel", objectID(serialNo, "alarm"), config)
}

func (ha *HomeAssistant) publishLockConfig(serialNo string, device registry.Device, entity registry.Entity) {
	config := map[string]interface{}{
		"name":               entity.Name,
		"unique_id":          ha.uniqueID(serialNo, "lock"),
		"state_topic":        ha.mqtt.Topics().DeviceEntity(serialNo, entity.Model),
		"value_template":     "{{ value_json.sensors.lock_status }}",
		"state_locked":       "lock",
		"state_unlocked":     "unlock",
		"command_topic":      ha.mqtt.Topics().LockCommand(serialNo),
		"payload_lock":       "lock",
		"payload_unlock":     "unlock",
		"availability_topic": ha.mqtt.Topics().Status(),
		"device":             deviceInfo(serialNo, device),
	}

	ha.publishConfig("lock", objectID(serialNo, "lock"), config)
}

func (ha *HomeAssistant) publishSwitchConfig(serialNo string, device registry.Device, entity registry.Entity) {
	config := map[string]interface{}{
		"name":               entity.Name,
		"unique_id":          ha.uniqueID(serialNo, "switch"),
		"state_topic":        ha.mqtt.Topics().DeviceEntity(serialNo, entity.Model),
		"value_template":     "{{ value_json.sensors.plug_status }}",
		"state_on":           "On",
		"state_off":          "Off",
		"command_topic":      ha.mqtt.Topics().SwitchCommand(serialNo),
		"payload_on":         "on",
		"payload_off":        "off",
		"availability_topic": ha.mqtt.Topics().Status(),
		"device":             deviceInfo(serialNo, device),
	}

	ha.publishConfig("switch", objectID(serialNo, "switch"), config)
}

func (ha *HomeAssistant) publishSensorConfigs(serialNo string, device registry.Device, entity registry.Entity) {
	for key := range entity.Sensors {
		switch key {
		case "lock_status", "plug_status", "alarm_status":
			// Exposed through the lock, switch and alarm panel entities.
			continue
		case "temperature", "humidity":
			ha.publishReadingConfig(serialNo, device, entity, key)
		default:
			ha.publishBinarySensorConfig(serialNo, device, entity, key)
		}
	}
}

func (ha *HomeAssistant) publishReadingConfig(serialNo string, device registry.Device, entity registry.Entity, key string) {
	config := map[string]interface{}{
		"name":                fmt.Sprintf("%s %s", entity.Name, key),
		"unique_id":           ha.uniqueID(serialNo, key),
		"state_topic":         ha.mqtt.Topics().DeviceEntity(serialNo, entity.Model),
		"value_template":      fmt.Sprintf("{{ value_json.sensors.%s }}", key),
		"device_class":        getDeviceClass(entity, key),
		"unit_of_measurement": unitOfMeasurement(key),
		"availability_topic":  ha.mqtt.Topics().Status(),
		"device":              deviceInfo(serialNo, device),
	}

	ha.publishConfig("sensor", objectID(serialNo, key), config)
}

func (ha *HomeAssistant) publishBinarySensorConfig(serialNo string, device registry.Device, entity registry.Entity, key string) {
	config := map[string]interface{}{
		"name":               fmt.Sprintf("%s %s", entity.Name, key),
		"unique_id":          ha.uniqueID(serialNo, key),
		"state_topic":        ha.mqtt.Topics().DeviceEntity(serialNo, entity.Model),
		"value_template":     fmt.Sprintf("{{ value_json.sensors.%s }}", key),
		"payload_on":         "True",
		"payload_off":        "False",
		"availability_topic": ha.mqtt.Topics().Status(),
		"device":             deviceInfo(serialNo, device),
	}
	if key == "closed" {
		// The API reports closed, Home Assistant models openings as ON.
		config["payload_on"] = "False"
		config["payload_off"] = "True"
	}
	if deviceClass := getDeviceClass(entity, key); deviceClass != "" {
		config["device_class"] = deviceClass
	}

	ha.publishConfig("binary_sensor", objectID(serialNo, key), config)
}

func (ha *HomeAssistant) publishConfig(component, objectId string, config map[string]interface{}) {
	topic := fmt.Sprintf("%s/%s/%s/%s/config", ha.config.Prefix, component, ha.mqtt.GetPrefix(), objectId)

	payload, err := json.Marshal(config)
	if err != nil {
		ha.log.Warning("Failed to marshal discovery config for %s: %v", topic, err)
		return
	}
	ha.mu.Lock()
	unchanged := ha.published[topic] == string(payload)
	if !unchanged {
		ha.published[topic] = string(payload)
	}
	ha.mu.Unlock()
	if unchanged {
		return
	}

	ha.mqtt.Publish(topic, config, true)
	ha.log.Debug("Published discovery config: %s", topic)
}

func (ha *HomeAssistant) uniqueID(serialNo, key string) string {
	return fmt.Sprintf("%s_%s", ha.mqtt.GetPrefix(), objectID(serialNo, key))
}

func objectID(serialNo, key string) string {
	return util.Slugify(fmt.Sprintf("%s_%s", serialNo, key))
}

func deviceInfo(serialNo string, device registry.Device) map[string]interface{} {
	return map[string]interface{}{
		"identifiers":  []string{serialNo},
		"name":         device.Name,
		"model":        device.Model,
		"manufacturer": "Sector Alarm",
	}
}
