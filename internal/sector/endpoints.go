package sector

import "fmt"

// DefaultBaseURL is the production Sector Alarm API host.
const DefaultBaseURL = "https://mypagesapi.sectoralarm.net"

// DataEndpointType identifies one polled data category.
type DataEndpointType int

const (
	EndpointPanelStatus DataEndpointType = iota
	EndpointLogs
	EndpointLockStatus
	EndpointSmartPlugStatus
	EndpointDoorsAndWindows
	EndpointSmokeDetectors
	EndpointLeakageDetectors
	EndpointCameras
	EndpointHumidity
	EndpointTemperatures
	EndpointTemperaturesLegacy
)

func (t DataEndpointType) String() string {
	switch t {
	case EndpointPanelStatus:
		return "Panel Status"
	case EndpointLogs:
		return "Logs"
	case EndpointLockStatus:
		return "Lock Status"
	case EndpointSmartPlugStatus:
		return "Smartplug Status"
	case EndpointDoorsAndWindows:
		return "Doors and Windows"
	case EndpointSmokeDetectors:
		return "Smoke Detectors"
	case EndpointLeakageDetectors:
		return "Leakage Detectors"
	case EndpointCameras:
		return "Cameras"
	case EndpointHumidity:
		return "Humidity"
	case EndpointTemperatures:
		return "Temperatures"
	case EndpointTemperaturesLegacy:
		return "Temperatures (legacy)"
	default:
		return fmt.Sprintf("Unknown DataEndpointType(%d)", t)
	}
}

// IsDevice reports whether the endpoint's payload maps directly onto a
// device, as opposed to environmental readings that are attached to devices
// discovered elsewhere.
func (t DataEndpointType) IsDevice() bool {
	switch t {
	case EndpointPanelStatus, EndpointLockStatus, EndpointSmartPlugStatus,
		EndpointDoorsAndWindows, EndpointSmokeDetectors,
		EndpointLeakageDetectors, EndpointCameras:
		return true
	default:
		return false
	}
}

// IsHouseCheck reports whether the endpoint belongs to the v2 "house check"
// family. House-check and legacy endpoints for overlapping data are mutually
// exclusive alternatives and are never polled together.
func (t DataEndpointType) IsHouseCheck() bool {
	switch t {
	case EndpointDoorsAndWindows, EndpointSmokeDetectors,
		EndpointLeakageDetectors, EndpointHumidity, EndpointTemperatures,
		EndpointCameras:
		return true
	default:
		return false
	}
}

// dataEndpoint resolves an endpoint type to its HTTP method and path for a
// given panel. POST house-check endpoints carry the panel id in the request
// body instead.
func dataEndpoint(t DataEndpointType, panelID string) (method, path string) {
	switch t {
	case EndpointPanelStatus:
		return "GET", "/api/panel/GetPanelStatus?panelId=" + panelID
	case EndpointLogs:
		return "GET", "/api/v2/panel/logs?panelid=" + panelID + "&pageNumber=1&pageSize=40"
	case EndpointLockStatus:
		return "GET", "/api/panel/GetLockStatus?panelId=" + panelID
	case EndpointSmartPlugStatus:
		return "GET", "/api/panel/GetSmartplugStatus?panelId=" + panelID
	case EndpointDoorsAndWindows:
		return "POST", "/api/v2/housecheck/doorsandwindows"
	case EndpointSmokeDetectors:
		return "POST", "/api/v2/housecheck/smokedetectors"
	case EndpointLeakageDetectors:
		return "POST", "/api/v2/housecheck/leakagedetectors"
	case EndpointCameras:
		return "GET", "/api/v2/housecheck/cameras/" + panelID
	case EndpointHumidity:
		return "GET", "/api/housecheck/panels/" + panelID + "/humidity"
	case EndpointTemperatures:
		return "POST", "/api/v2/housecheck/temperatures"
	case EndpointTemperaturesLegacy:
		return "GET", "/api/panel/GetTemperatures?panelId=" + panelID
	default:
		return "", ""
	}
}

// ActionType identifies one actuator command endpoint.
type ActionType int

const (
	ActionArm ActionType = iota
	ActionPartialArm
	ActionDisarm
	ActionLock
	ActionUnlock
	ActionTurnOnSmartplug
	ActionTurnOffSmartplug
)

func (t ActionType) String() string {
	switch t {
	case ActionArm:
		return "Arm"
	case ActionPartialArm:
		return "PartialArm"
	case ActionDisarm:
		return "Disarm"
	case ActionLock:
		return "Lock"
	case ActionUnlock:
		return "Unlock"
	case ActionTurnOnSmartplug:
		return "TurnOnSmartplug"
	case ActionTurnOffSmartplug:
		return "TurnOffSmartplug"
	default:
		return fmt.Sprintf("Unknown ActionType(%d)", t)
	}
}

// actionEndpoint resolves an action type to its endpoint path. An unmapped
// action is a fatal configuration error, not a retryable one.
func actionEndpoint(t ActionType) (string, error) {
	switch t {
	case ActionArm:
		return "/api/Panel/Arm", nil
	case ActionPartialArm:
		return "/api/Panel/PartialArm", nil
	case ActionDisarm:
		return "/api/Panel/Disarm", nil
	case ActionLock:
		return "/api/Panel/Lock", nil
	case ActionUnlock:
		return "/api/Panel/Unlock", nil
	case ActionTurnOnSmartplug:
		return "/api/Panel/TurnOnSmartplug", nil
	case ActionTurnOffSmartplug:
		return "/api/Panel/TurnOffSmartplug", nil
	default:
		return "", &ConfigError{Reason: fmt.Sprintf("no endpoint mapped for action %s", t)}
	}
}
