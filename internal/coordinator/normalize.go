package coordinator

import (
	"fmt"

	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/sector"
)

// Entity model names. Each endpoint produces exactly one of these, and the
// two device coordinators never share one, which is what makes registry
// merges commutative across coordinators.
const (
	ModelSmartLock         = "Smart Lock"
	ModelSmartPlug         = "Smart Plug"
	ModelAlarmPanel        = "Alarm panel"
	ModelDoorWindow        = "Door/Window Sensor"
	ModelSmokeDetector     = "Smoke Detector"
	ModelLeakageDetector   = "Leakage Detector"
	ModelTemperatureV2     = "Temperature Sensor V2"
	ModelHumidity          = "Humidity Sensor"
	ModelTemperatureLegacy = "Temperature Sensor (legacy)"
)

// PanelDeviceName is the display name of the synthesized panel device.
const PanelDeviceName = "Alarm Control Panel"

// endpointEntityModel maps a data endpoint to the entity model it owns,
// used to mark the right entities stale when that endpoint fails.
func endpointEntityModel(ep sector.DataEndpointType) string {
	switch ep {
	case sector.EndpointPanelStatus:
		return ModelAlarmPanel
	case sector.EndpointLockStatus:
		return ModelSmartLock
	case sector.EndpointSmartPlugStatus:
		return ModelSmartPlug
	case sector.EndpointDoorsAndWindows:
		return ModelDoorWindow
	case sector.EndpointSmokeDetectors:
		return ModelSmokeDetector
	case sector.EndpointLeakageDetectors:
		return ModelLeakageDetector
	case sector.EndpointTemperatures:
		return ModelTemperatureV2
	case sector.EndpointHumidity:
		return ModelHumidity
	case sector.EndpointTemperaturesLegacy:
		return ModelTemperatureLegacy
	default:
		return ""
	}
}

// normalizeEndpoint turns one endpoint's payload into device records ready
// for the registry merge.
func normalizeEndpoint(ep sector.DataEndpointType, resp *sector.APIResponse, info *sector.PanelInfo, panelID string) ([]registry.Device, error) {
	switch ep {
	case sector.EndpointPanelStatus:
		return normalizePanelStatus(resp, info, panelID)
	case sector.EndpointLockStatus:
		return normalizeLocks(resp)
	case sector.EndpointSmartPlugStatus:
		return normalizePlugs(resp)
	case sector.EndpointDoorsAndWindows, sector.EndpointSmokeDetectors, sector.EndpointLeakageDetectors:
		return normalizeDetectors(ep, resp)
	case sector.EndpointTemperatures, sector.EndpointHumidity:
		return normalizeReadings(ep, resp)
	case sector.EndpointTemperaturesLegacy:
		return normalizeLegacyTemperatures(resp)
	case sector.EndpointCameras:
		// Camera state is not mapped to entities; the endpoint is only
		// probed during negotiation and images are fetched on demand.
		return nil, nil
	default:
		return nil, fmt.Errorf("no normalization for endpoint %s", ep)
	}
}

func normalizePanelStatus(resp *sector.APIResponse, info *sector.PanelInfo, panelID string) ([]registry.Device, error) {
	var status sector.PanelStatus
	if err := resp.Decode(&status); err != nil {
		return nil, err
	}
	attrs := map[string]interface{}{}
	if info != nil {
		attrs["panel_code_length"] = info.PanelCodeLength
		attrs["panel_quick_arm"] = info.QuickArmEnabled
		attrs["panel_partial_arm"] = info.CanPartialArm
	}
	return []registry.Device{{
		SerialNo: panelID,
		Name:     PanelDeviceName,
		Model:    ModelAlarmPanel,
		Entities: map[string]registry.Entity{
			ModelAlarmPanel: {
				Name:       PanelDeviceName,
				Model:      ModelAlarmPanel,
				Attributes: attrs,
				Sensors: map[string]interface{}{
					"online":       status.IsOnline,
					"alarm_status": status.Status,
				},
			},
		},
	}}, nil
}

func normalizeLocks(resp *sector.APIResponse) ([]registry.Device, error) {
	var locks []sector.Lock
	if err := resp.Decode(&locks); err != nil {
		return nil, err
	}
	var out []registry.Device
	for _, lock := range locks {
		serial := firstNonEmpty(lock.SerialNo, lock.Serial)
		if serial == "" {
			continue
		}
		out = append(out, registry.Device{
			SerialNo: serial,
			Name:     lock.Label,
			Model:    ModelSmartLock,
			Entities: map[string]registry.Entity{
				ModelSmartLock: {
					Name:  lock.Label,
					Model: ModelSmartLock,
					Sensors: map[string]interface{}{
						"lock_status": lock.Status,
						"low_battery": lock.BatteryLow,
					},
				},
			},
		})
	}
	return out, nil
}

func normalizePlugs(resp *sector.APIResponse) ([]registry.Device, error) {
	var plugs []sector.SmartPlug
	if err := resp.Decode(&plugs); err != nil {
		return nil, err
	}
	var out []registry.Device
	for _, plug := range plugs {
		serial := firstNonEmpty(plug.SerialNo, plug.Serial)
		if serial == "" {
			continue
		}
		out = append(out, registry.Device{
			SerialNo: serial,
			Name:     plug.Label,
			Model:    ModelSmartPlug,
			Entities: map[string]registry.Entity{
				ModelSmartPlug: {
					Name:  plug.Label,
					Model: ModelSmartPlug,
					ID:    plug.ID,
					Sensors: map[string]interface{}{
						"plug_status": plug.Status,
					},
				},
			},
		})
	}
	return out, nil
}

func normalizeDetectors(ep sector.DataEndpointType, resp *sector.APIResponse) ([]registry.Device, error) {
	var tree sector.HouseCheck
	if err := resp.Decode(&tree); err != nil {
		return nil, err
	}
	model := endpointEntityModel(ep)
	var out []registry.Device
	for _, comp := range tree.Components() {
		serial := comp.SerialNumber()
		if serial == "" {
			continue
		}
		sensors := map[string]interface{}{}
		if low, ok := comp.BatteryIsLow(); ok {
			sensors["low_battery"] = low
		}
		switch {
		case comp.Alarm != nil:
			sensors["alarm"] = *comp.Alarm
		case ep == sector.EndpointLeakageDetectors && comp.LeakDetected != nil:
			sensors["alarm"] = *comp.LeakDetected
		}
		if ep == sector.EndpointDoorsAndWindows && comp.Closed != nil {
			sensors["closed"] = *comp.Closed
		}
		out = append(out, registry.Device{
			SerialNo: serial,
			Name:     comp.DisplayName(),
			Model:    model,
			Entities: map[string]registry.Entity{
				model: {
					Name:    comp.DisplayName(),
					Model:   model,
					Sensors: sensors,
				},
			},
		})
	}
	return out, nil
}

// normalizeReadings handles the environmental house-check endpoints. Their
// components usually share a serial with an existing detector, so the
// reading lands as an extra entity on that device.
func normalizeReadings(ep sector.DataEndpointType, resp *sector.APIResponse) ([]registry.Device, error) {
	var tree sector.HouseCheck
	if err := resp.Decode(&tree); err != nil {
		return nil, err
	}
	model := endpointEntityModel(ep)
	var out []registry.Device
	for _, comp := range tree.Components() {
		serial := comp.SerialNumber()
		if serial == "" {
			continue
		}
		sensors := map[string]interface{}{}
		if ep == sector.EndpointTemperatures {
			if comp.Temperature == nil {
				continue
			}
			sensors["temperature"] = *comp.Temperature
		} else {
			if comp.Humidity == nil {
				continue
			}
			sensors["humidity"] = *comp.Humidity
		}
		if low, ok := comp.BatteryIsLow(); ok {
			sensors["low_battery"] = low
		}
		out = append(out, registry.Device{
			SerialNo: serial,
			Name:     comp.DisplayName(),
			Model:    model,
			Entities: map[string]registry.Entity{
				model: {
					Name:    comp.DisplayName(),
					Model:   model,
					Sensors: sensors,
				},
			},
		})
	}
	return out, nil
}

func normalizeLegacyTemperatures(resp *sector.APIResponse) ([]registry.Device, error) {
	var temps []sector.Temperature
	if err := resp.Decode(&temps); err != nil {
		return nil, err
	}
	var out []registry.Device
	for _, t := range temps {
		serial := firstNonEmpty(t.SerialNo, t.Serial)
		if serial == "" {
			continue
		}
		out = append(out, registry.Device{
			SerialNo: serial,
			Name:     t.Label,
			Model:    ModelTemperatureLegacy,
			Entities: map[string]registry.Entity{
				ModelTemperatureLegacy: {
					Name:  t.Label,
					Model: ModelTemperatureLegacy,
					Sensors: map[string]interface{}{
						"temperature": t.Temperature,
					},
				},
			},
		})
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
