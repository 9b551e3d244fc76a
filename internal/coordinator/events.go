package coordinator

import (
	"sync"

	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/sector"
)

// Event is one panel log record resolved to a known device.
type Event struct {
	SerialNo   string
	DeviceName string
	EventType  string
	Time       string
	User       string
	Channel    string
}

type eventKey struct {
	lockName  string
	eventType string
	time      string
}

// eventTracker deduplicates log records across cycles. The log endpoint
// returns a sliding window, so most records of a cycle were already seen.
type eventTracker struct {
	mu      sync.Mutex
	seen    map[eventKey]struct{}
	onEvent func(Event)
}

func newEventTracker() *eventTracker {
	return &eventTracker{seen: make(map[eventKey]struct{})}
}

// process matches new records against device display names and emits one
// Event per match. Records with an empty or unknown lock name are dropped
// with a warning.
func (t *eventTracker) process(records []sector.LogRecord, reg *registry.Registry, logger *log.Logger) {
	if len(records) == 0 {
		return
	}
	devices := reg.FetchDevices()

	t.mu.Lock()
	defer t.mu.Unlock()
	for _, record := range records {
		key := eventKey{lockName: record.LockName, eventType: record.EventType, time: record.Time}
		if _, done := t.seen[key]; done {
			continue
		}
		t.seen[key] = struct{}{}

		if record.LockName == "" {
			logger.Warning("Discarding %s event with no lock name", record.EventType)
			continue
		}
		var matched *registry.Device
		for serial := range devices {
			dev := devices[serial]
			if dev.Name == record.LockName {
				matched = &dev
				break
			}
		}
		if matched == nil {
			logger.Warning("No device matches lock name '%s', discarding %s event", record.LockName, record.EventType)
			continue
		}
		if t.onEvent != nil {
			t.onEvent(Event{
				SerialNo:   matched.SerialNo,
				DeviceName: matched.Name,
				EventType:  record.EventType,
				Time:       record.Time,
				User:       record.User,
				Channel:    record.Channel,
			})
		}
	}
}
