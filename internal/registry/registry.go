package registry

import (
	"sync"
	"time"

	"github.com/akerman/sector2mqtt/internal/log"
)

// Entity is one logical capability of a device, keyed under its device by
// model name. LastUpdated and FailedUpdateCount track per-entity freshness;
// a zero LastUpdated means the entity has never completed an update and a
// zero FailedUpdateCount means no failures are being tracked.
type Entity struct {
	Name              string                 `json:"name"`
	Model             string                 `json:"model"`
	ID                string                 `json:"id,omitempty"`
	Coordinator       string                 `json:"coordinator_name,omitempty"`
	Sensors           map[string]interface{} `json:"sensors"`
	Attributes        map[string]interface{} `json:"attributes,omitempty"`
	LastUpdated       time.Time              `json:"last_updated,omitempty"`
	FailedUpdateCount int                    `json:"failed_update_count,omitempty"`
}

func (e Entity) clone() Entity {
	c := e
	c.Sensors = cloneMap(e.Sensors)
	c.Attributes = cloneMap(e.Attributes)
	return c
}

// Device groups every entity reported for one serial number. A single
// physical unit can carry several entities, a smoke detector housing that
// also reports ambient temperature being the usual case.
type Device struct {
	SerialNo string            `json:"serial_no"`
	Name     string            `json:"name"`
	Model    string            `json:"model"`
	Entities map[string]Entity `json:"entities"`
}

func (d Device) clone() Device {
	c := d
	c.Entities = make(map[string]Entity, len(d.Entities))
	for name, e := range d.Entities {
		c.Entities[name] = e.clone()
	}
	return c
}

func cloneMap(m map[string]interface{}) map[string]interface{} {
	if m == nil {
		return nil
	}
	out := make(map[string]interface{}, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Registry is the shared device store that all coordinators merge into.
// Merges happen at the entity level so independently scheduled coordinators
// can each own disjoint entity names under the same device without erasing
// each other's contributions. All fetches return deep copies.
type Registry struct {
	mu      sync.RWMutex
	devices map[string]Device
	log     *log.Logger
}

func NewRegistry(logger *log.Logger) *Registry {
	return &Registry{
		devices: make(map[string]Device),
		log:     logger.Component("registry"),
	}
}

// RegisterDevice merges one incoming device record. An unknown serial is
// inserted whole. For a known serial, each incoming entity replaces the
// stored entity of the same name wholesale while stored entities absent
// from the incoming record are preserved. Top-level name/model/serial are
// overwritten when the incoming record carries them. Registering the same
// record twice is a no-op the second time.
func (r *Registry) RegisterDevice(incoming Device) {
	r.mu.Lock()
	defer r.mu.Unlock()

	stored, ok := r.devices[incoming.SerialNo]
	if !ok {
		r.devices[incoming.SerialNo] = incoming.clone()
		return
	}

	if incoming.Name != "" {
		stored.Name = incoming.Name
	}
	if incoming.Model != "" {
		stored.Model = incoming.Model
	}
	if stored.Entities == nil {
		stored.Entities = make(map[string]Entity)
	}
	for name, entity := range incoming.Entities {
		if prev, exists := stored.Entities[name]; exists &&
			prev.Coordinator != "" && entity.Coordinator != "" &&
			prev.Coordinator != entity.Coordinator {
			r.log.Warning("Entity %s on device %s changed owner from coordinator %s to %s",
				name, incoming.SerialNo, prev.Coordinator, entity.Coordinator)
		}
		stored.Entities[name] = entity.clone()
	}
	r.devices[incoming.SerialNo] = stored
}

// FetchDevice returns a copy of one device record.
func (r *Registry) FetchDevice(serialNo string) (Device, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	d, ok := r.devices[serialNo]
	if !ok {
		return Device{}, false
	}
	return d.clone(), true
}

// FetchDevices returns a copy of the full serial to device mapping.
func (r *Registry) FetchDevices() map[string]Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Device, len(r.devices))
	for serial, d := range r.devices {
		out[serial] = d.clone()
	}
	return out
}

// FetchDevicesByCoordinator returns only the entities tagged with the given
// coordinator name, nested under their devices. Devices with no matching
// entities are excluded. Each coordinator uses this so its freshness logic
// only ever judges entities it owns.
func (r *Registry) FetchDevicesByCoordinator(coordinator string) map[string]Device {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]Device)
	for serial, d := range r.devices {
		var filtered map[string]Entity
		for name, e := range d.Entities {
			if e.Coordinator != coordinator {
				continue
			}
			if filtered == nil {
				filtered = make(map[string]Entity)
			}
			filtered[name] = e.clone()
		}
		if filtered == nil {
			continue
		}
		c := d
		c.Entities = filtered
		out[serial] = c
	}
	return out
}

// Restore replaces the registry contents wholesale, used when priming from
// a cached snapshot at startup.
func (r *Registry) Restore(devices map[string]Device) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.devices = make(map[string]Device, len(devices))
	for serial, d := range devices {
		r.devices[serial] = d.clone()
	}
}

// Len reports the number of known devices.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.devices)
}
