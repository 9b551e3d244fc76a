package mqtt

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	mqtt "github.com/eclipse/paho.mqtt.golang"

	"github.com/akerman/sector2mqtt/internal/command"
	"github.com/akerman/sector2mqtt/internal/config"
	"github.com/akerman/sector2mqtt/internal/coordinator"
	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/registry"
)

const (
	offlinePayload = "offline"
	onlinePayload  = "online"

	commandTimeout = 30 * time.Second
)

// MQTT bridges the device registry onto the broker: retained state topics
// per entity, an alarm topic for the panel, and command topics feeding the
// command executor.
type MQTT struct {
	config   *config.MQTTConfig
	sector   *config.SectorConfig
	registry *registry.Registry
	executor *command.Executor
	action   *coordinator.DeviceCoordinator
	sensors  *coordinator.DeviceCoordinator
	log      *log.Logger
	client   mqtt.Client
	topics   *Topics
	mu       sync.Mutex
}

func NewMQTT(
	cfg *config.MQTTConfig,
	sectorCfg *config.SectorConfig,
	reg *registry.Registry,
	executor *command.Executor,
	action, sensors *coordinator.DeviceCoordinator,
	logger *log.Logger,
) *MQTT {
	return &MQTT{
		config:   cfg,
		sector:   sectorCfg,
		registry: reg,
		executor: executor,
		action:   action,
		sensors:  sensors,
		log:      logger.Component("mqtt"),
		topics:   NewTopics(cfg.Prefix),
	}
}

func (m *MQTT) GetPrefix() string {
	return m.config.Prefix
}

func (m *MQTT) Topics() *Topics {
	return m.topics
}

func (m *MQTT) Connect() error {
	opts := mqtt.NewClientOptions()
	opts.AddBroker(fmt.Sprintf("tcp://%s:%d", m.config.Host, m.config.Port))
	opts.SetClientID(m.config.ClientID)
	opts.SetUsername(m.config.Username)
	opts.SetPassword(m.config.Password)
	opts.SetCleanSession(m.config.Clean)
	opts.SetKeepAlive(time.Duration(m.config.Keepalive) * time.Second)
	opts.SetAutoReconnect(true)
	opts.SetOnConnectHandler(m.onConnect)
	opts.SetConnectionLostHandler(m.onDisconnect)

	opts.SetWill(m.topics.Status(), offlinePayload, byte(m.config.QOS), m.config.Retain)

	m.client = mqtt.NewClient(opts)

	if token := m.client.Connect(); token.Wait() && token.Error() != nil {
		return fmt.Errorf("failed to connect to MQTT broker: %v", token.Error())
	}

	m.log.Info("Connected to MQTT broker: %s:%d", m.config.Host, m.config.Port)
	return nil
}

func (m *MQTT) onConnect(client mqtt.Client) {
	m.log.Info("MQTT connection established")
	m.publishOnlineStatus()
	m.subscribeTopics()
	m.PublishAll()
}

func (m *MQTT) onDisconnect(client mqtt.Client, err error) {
	m.log.Error("MQTT connection lost: %v", err)
}

func (m *MQTT) subscribeTopics() {
	topics := []string{
		m.topics.AlarmCommand(),
		m.topics.LockCommandWildcard(),
		m.topics.SwitchCommandWildcard(),
	}

	for _, topic := range topics {
		token := m.client.Subscribe(topic, byte(m.config.QOS), m.handleMessage)
		if token.Wait() && token.Error() != nil {
			m.log.Error("Failed to subscribe to topic %s: %v", topic, token.Error())
		} else {
			m.log.Debug("Subscribed to topic: %s", topic)
		}
	}
}

func (m *MQTT) handleMessage(client mqtt.Client, msg mqtt.Message) {
	topic := msg.Topic()
	payload := string(msg.Payload())

	m.log.Debug("Received message on topic %s: %s", topic, payload)

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	var err error
	switch {
	case topic == m.topics.AlarmCommand():
		err = m.handleAlarmCommand(ctx, payload)
	case topic == m.topics.LockCommand(topicSerial(topic)):
		err = m.handleLockCommand(ctx, topicSerial(topic), payload)
	case topic == m.topics.SwitchCommand(topicSerial(topic)):
		err = m.handleSwitchCommand(ctx, topicSerial(topic), payload)
	default:
		m.log.Warning("Received message on unknown topic: %s", topic)
		return
	}
	if err != nil {
		m.log.Error("Command on topic %s failed: %v", topic, err)
	}
	m.PublishAll()
}

func (m *MQTT) handleAlarmCommand(ctx context.Context, cmd string) error {
	switch cmd {
	case "full_arm":
		return m.executor.Arm(ctx, command.ArmModeTotal, m.sector.PanelCode)
	case "partial_arm":
		return m.executor.Arm(ctx, command.ArmModePartial, m.sector.PanelCode)
	case "disarm":
		return m.executor.Disarm(ctx, m.sector.PanelCode)
	default:
		return fmt.Errorf("unknown alarm command: %s", cmd)
	}
}

func (m *MQTT) handleLockCommand(ctx context.Context, serialNo, cmd string) error {
	switch cmd {
	case "lock":
		return m.executor.LockDoor(ctx, serialNo, m.sector.PanelCode)
	case "unlock":
		return m.executor.UnlockDoor(ctx, serialNo, m.sector.PanelCode)
	default:
		return fmt.Errorf("unknown lock command: %s", cmd)
	}
}

func (m *MQTT) handleSwitchCommand(ctx context.Context, serialNo, cmd string) error {
	dev, ok := m.registry.FetchDevice(serialNo)
	if !ok {
		return fmt.Errorf("no device with serial %s", serialNo)
	}
	plug, ok := dev.Entities[coordinator.ModelSmartPlug]
	if !ok {
		return fmt.Errorf("device %s is not a smart plug", serialNo)
	}
	switch cmd {
	case "on":
		return m.executor.TurnOnSmartplug(ctx, serialNo, plug.ID)
	case "off":
		return m.executor.TurnOffSmartplug(ctx, serialNo, plug.ID)
	default:
		return fmt.Errorf("unknown switch command: %s", cmd)
	}
}

func (m *MQTT) publishOnlineStatus() {
	m.publishRaw(m.topics.Status(), onlinePayload, true)
}

// PublishAll republishes every entity's state plus the alarm topic. Wired
// as a listener on both coordinators and the command executor.
func (m *MQTT) PublishAll() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for serialNo, device := range m.registry.FetchDevices() {
		for model, entity := range device.Entities {
			m.publish(m.topics.DeviceEntity(serialNo, model), m.entityPayload(serialNo, entity), m.config.Retain)
			if model == coordinator.ModelAlarmPanel {
				m.publishAlarmState(serialNo, entity)
			}
		}
	}
}

func (m *MQTT) entityPayload(serialNo string, entity registry.Entity) map[string]interface{} {
	payload := map[string]interface{}{
		"name":      entity.Name,
		"model":     entity.Model,
		"serial_no": serialNo,
		"sensors":   entity.Sensors,
		"available": m.entityAvailable(serialNo, entity),
	}
	if len(entity.Attributes) > 0 {
		payload["attributes"] = entity.Attributes
	}
	if !entity.LastUpdated.IsZero() {
		payload["last_updated"] = entity.LastUpdated.Format(time.RFC3339)
	}
	if entity.FailedUpdateCount > 0 {
		payload["failed_update_count"] = entity.FailedUpdateCount
	}
	if pending, ok := m.executor.Pending(serialNo); ok {
		payload["pending"] = string(pending)
	}
	return payload
}

func (m *MQTT) entityAvailable(serialNo string, entity registry.Entity) bool {
	owner := m.action
	if entity.Coordinator == m.sensors.Name() {
		owner = m.sensors
	}
	return owner.EntityAvailable(serialNo, entity.Model)
}

func (m *MQTT) publishAlarmState(serialNo string, entity registry.Entity) {
	state := "unknown"
	if status, ok := entity.Sensors["alarm_status"]; ok {
		// Registry sensor values round-trip through JSON, so numbers may
		// arrive as float64.
		switch v := status.(type) {
		case int:
			state = alarmStateName(v)
		case float64:
			state = alarmStateName(int(v))
		}
	}
	if pending, ok := m.executor.Pending(serialNo); ok {
		switch pending {
		case command.PendingArming:
			state = "arming"
		case command.PendingDisarming:
			state = "disarming"
		}
	}
	payload := map[string]interface{}{
		"state":     state,
		"online":    entity.Sensors["online"],
		"available": m.entityAvailable(serialNo, entity),
	}
	if len(entity.Attributes) > 0 {
		payload["attributes"] = entity.Attributes
	}
	m.publish(m.topics.Alarm(), payload, true)
}

// PublishEvent publishes one resolved panel log event.
func (m *MQTT) PublishEvent(event coordinator.Event) {
	payload := map[string]interface{}{
		"serial_no":  event.SerialNo,
		"device":     event.DeviceName,
		"event_type": event.EventType,
		"time":       event.Time,
		"user":       event.User,
		"channel":    event.Channel,
	}
	m.publish(m.topics.Event(), payload, m.config.RetainLog)
}

func (m *MQTT) Publish(topic string, payload interface{}, retain bool) {
	m.publish(topic, payload, retain)
}

func (m *MQTT) publish(topic string, message interface{}, retain bool) {
	payload, err := json.Marshal(message)
	if err != nil {
		m.log.Error("Failed to marshal message for topic %s: %v", topic, err)
		return
	}
	m.publishRaw(topic, string(payload), retain)
}

func (m *MQTT) publishRaw(topic, payload string, retain bool) {
	// Coordinator listeners can fire before the broker connection is up.
	if m.client == nil || !m.client.IsConnected() {
		return
	}
	token := m.client.Publish(topic, byte(m.config.QOS), retain, payload)
	if token.Wait() && token.Error() != nil {
		m.log.Error("Failed to publish message to topic %s: %v", topic, token.Error())
	} else {
		m.log.Trace("Published message to topic: %s", topic)
	}
}

func (m *MQTT) Close() {
	if m.client != nil && m.client.IsConnected() {
		m.publishRaw(m.topics.Status(), offlinePayload, true)
		m.client.Disconnect(250)
	}
}
