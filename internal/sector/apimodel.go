package sector

import (
	"encoding/json"

	"github.com/akerman/sector2mqtt/internal/util"
)

// APIResponse carries the outcome of one data-endpoint call. Individual
// endpoint failures are encoded here rather than raised, so one bad endpoint
// never fails a whole fetch cycle.
type APIResponse struct {
	StatusCode int
	IsJSON     bool
	Body       json.RawMessage
}

// OK reports whether the response can be decoded and used.
func (r *APIResponse) OK() bool {
	return r != nil && r.StatusCode == 200 && r.IsJSON && len(r.Body) > 0 && string(r.Body) != "null"
}

// Decode unmarshals the response body into v.
func (r *APIResponse) Decode(v interface{}) error {
	return json.Unmarshal(r.Body, v)
}

// PanelStatus is the live state of the alarm panel.
type PanelStatus struct {
	IsOnline   bool `json:"IsOnline"`
	Status     int  `json:"Status"`
	ReadyToArm bool `json:"ReadyToArm"`
}

// Lock is one smart lock as reported by the legacy lock-status endpoint and
// the panel inventory.
type Lock struct {
	Label      string `json:"Label"`
	Serial     string `json:"Serial"`
	SerialNo   string `json:"SerialNo"`
	Status     string `json:"Status"`
	BatteryLow bool   `json:"BatteryLow"`
}

// SmartPlug is one smart plug as reported by the legacy plug-status endpoint
// and the panel inventory.
type SmartPlug struct {
	ID       string `json:"Id"`
	Label    string `json:"Label"`
	Serial   string `json:"Serial"`
	SerialNo string `json:"SerialNo"`
	Status   string `json:"Status"`
}

// Temperature is one probe from the legacy flat temperature list. The vendor
// serializes the reading as a string here, unlike the v2 tree.
type Temperature struct {
	Label       string `json:"Label"`
	Serial      string `json:"Serial"`
	SerialNo    string `json:"SerialNo"`
	Temperature string `json:"Temperature"`
}

// PanelInfo is the vendor-declared static inventory of a panel. It is always
// replaced wholesale, never merged.
type PanelInfo struct {
	PanelID         string        `json:"PanelId"`
	PanelCodeLength int           `json:"PanelCodeLength"`
	QuickArmEnabled bool          `json:"QuickArmEnabled"`
	CanPartialArm   bool          `json:"CanPartialArm"`
	Capabilities    []string      `json:"Capabilities"`
	Locks           []Lock        `json:"Locks"`
	Smartplugs      []SmartPlug   `json:"Smartplugs"`
	Temperatures    []Temperature `json:"Temperatures"`
}

// CapabilityLegacyHomeScreen marks panels still served by the legacy
// per-feature API family instead of the v2 house check.
const CapabilityLegacyHomeScreen = "UseLegacyHomeScreen"

func (p *PanelInfo) HasCapability(name string) bool {
	return util.Contains(p.Capabilities, name)
}

// PanelSummary is one entry from the account panel list.
type PanelSummary struct {
	PanelID     string `json:"PanelId"`
	DisplayName string `json:"DisplayName"`
}

// Component is one leaf of a house-check tree. The two tree shapes
// (Sections/Places/Components and Floors/Rooms/Devices) carry slightly
// different field names for the same facts, so readings are pointers and
// presence is checked explicitly during normalization.
type Component struct {
	SerialNo     string   `json:"SerialNo"`
	Serial       string   `json:"Serial"`
	SerialString string   `json:"SerialString"`
	Label        string   `json:"Label"`
	Name         string   `json:"Name"`
	Type         string   `json:"Type"`
	Closed       *bool    `json:"Closed"`
	LowBattery   *bool    `json:"LowBattery"`
	BatteryLow   *bool    `json:"BatteryLow"`
	Alarm        *bool    `json:"Alarm"`
	LeakDetected *bool    `json:"LeakDetected"`
	Temperature  *float64 `json:"Temperature"`
	Humidity     *float64 `json:"Humidity"`
}

// SerialNumber picks the first populated serial field.
func (c *Component) SerialNumber() string {
	switch {
	case c.SerialNo != "":
		return c.SerialNo
	case c.Serial != "":
		return c.Serial
	default:
		return c.SerialString
	}
}

// DisplayName prefers the label over the internal name.
func (c *Component) DisplayName() string {
	if c.Label != "" {
		return c.Label
	}
	return c.Name
}

// BatteryIsLow merges the two battery flag spellings; the second return
// value reports whether either was present.
func (c *Component) BatteryIsLow() (bool, bool) {
	if c.LowBattery != nil {
		return *c.LowBattery, true
	}
	if c.BatteryLow != nil {
		return *c.BatteryLow, true
	}
	return false, false
}

// HouseCheck is a v2 response tree. Depending on category the vendor nests
// components under Sections/Places or Floors/Rooms; both are descended and
// flattened before entity mapping.
type HouseCheck struct {
	Sections []struct {
		Places []struct {
			Components []Component `json:"Components"`
		} `json:"Places"`
	} `json:"Sections"`
	Floors []struct {
		Rooms []struct {
			Devices []Component `json:"Devices"`
		} `json:"Rooms"`
	} `json:"Floors"`
}

// Components flattens both tree shapes into one component list.
func (h *HouseCheck) Components() []Component {
	var out []Component
	for _, section := range h.Sections {
		for _, place := range section.Places {
			out = append(out, place.Components...)
		}
	}
	for _, floor := range h.Floors {
		for _, room := range floor.Rooms {
			out = append(out, room.Devices...)
		}
	}
	return out
}

// LogRecord is one panel log entry. LockName is free text matched against
// device display names during event processing.
type LogRecord struct {
	User      string `json:"User"`
	Channel   string `json:"Channel"`
	Time      string `json:"Time"`
	EventType string `json:"EventType"`
	LockName  string `json:"LockName"`
}

// LogRecords is the envelope returned by the logs endpoint.
type LogRecords struct {
	Records []LogRecord `json:"Records"`
}
