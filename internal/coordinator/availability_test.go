package coordinator

import (
	"context"
	"testing"
	"time"

	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/sector"
)

func availabilityFixture(t *testing.T) (*DeviceCoordinator, *registry.Registry, *time.Time) {
	t.Helper()
	api := &fakeAPI{
		panelID: "P123",
		responses: map[sector.DataEndpointType]*sector.APIResponse{
			sector.EndpointLockStatus: jsonResp(t, []map[string]interface{}{
				{"Label": "Front Door", "SerialNo": "L1", "Status": "lock"},
			}),
		},
	}
	pc := primedPanelInfo(t, api, map[string]interface{}{
		"PanelId": "P123",
		"Locks":   []map[string]interface{}{{"SerialNo": "L1"}},
	})
	reg := registry.NewRegistry(log.NewLogger("error"))

	c := NewDeviceCoordinator("action", api, pc, reg,
		nil, []sector.DataEndpointType{sector.EndpointLockStatus},
		time.Minute, log.NewLogger("error"))

	now := time.Date(2026, 8, 30, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }
	if err := c.Refresh(context.Background()); err != nil {
		t.Fatalf("refresh failed: %v", err)
	}
	return c, reg, &now
}

func TestEntityAvailable(t *testing.T) {
	c, _, _ := availabilityFixture(t)
	if !c.EntityAvailable("L1", ModelSmartLock) {
		t.Fatal("freshly updated entity must be available")
	}
}

func TestEntityAvailableUnknownEntity(t *testing.T) {
	c, _, _ := availabilityFixture(t)
	if c.EntityAvailable("NOPE", ModelSmartLock) {
		t.Fatal("unknown serial must be unavailable")
	}
	if c.EntityAvailable("L1", ModelSmartPlug) {
		t.Fatal("unknown entity model must be unavailable")
	}
}

func TestEntityAvailableFailedUpdates(t *testing.T) {
	c, reg, _ := availabilityFixture(t)
	dev, _ := reg.FetchDevice("L1")
	entity := dev.Entities[ModelSmartLock]
	entity.FailedUpdateCount = failedUpdateLimit
	reg.RegisterDevice(registry.Device{
		SerialNo: "L1",
		Entities: map[string]registry.Entity{ModelSmartLock: entity},
	})

	if c.EntityAvailable("L1", ModelSmartLock) {
		t.Fatal("entity at the failure limit must be unavailable")
	}
}

func TestEntityAvailableStaleTimestamp(t *testing.T) {
	c, _, now := availabilityFixture(t)
	*now = now.Add(lastUpdatedWindow + time.Minute)
	if c.EntityAvailable("L1", ModelSmartLock) {
		t.Fatal("entity past the freshness window must be unavailable")
	}
}

func TestEntityAvailableNeverUpdated(t *testing.T) {
	c, reg, _ := availabilityFixture(t)
	reg.RegisterDevice(registry.Device{
		SerialNo: "R1",
		Entities: map[string]registry.Entity{
			ModelSmartLock: {Name: "Restored", Model: ModelSmartLock, Coordinator: "action"},
		},
	})
	// Cache-restored entities have no timestamp yet; they count as available
	// until a cycle says otherwise.
	if !c.EntityAvailable("R1", ModelSmartLock) {
		t.Fatal("entity with zero LastUpdated and no failures must be available")
	}
}

func TestEntityAvailableUnhealthyCoordinator(t *testing.T) {
	c, _, _ := availabilityFixture(t)
	c.mu.Lock()
	c.errCount = healthyErrorLimit
	c.mu.Unlock()
	if c.EntityAvailable("L1", ModelSmartLock) {
		t.Fatal("every entity of an unhealthy coordinator must be unavailable")
	}
}
