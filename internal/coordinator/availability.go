package coordinator

import "time"

const (
	failedUpdateLimit = 2
	lastUpdatedWindow = time.Hour
)

// EntityAvailable derives whether an entity should be treated as live: the
// owning coordinator must be healthy, the entity must exist, its failure
// count must be under the limit, and its last update must be recent. An
// entity that has never updated and never failed is available by default.
func (c *DeviceCoordinator) EntityAvailable(serialNo, entityModel string) bool {
	if !c.IsHealthy() {
		return false
	}
	dev, ok := c.registry.FetchDevice(serialNo)
	if !ok {
		return false
	}
	entity, ok := dev.Entities[entityModel]
	if !ok {
		return false
	}
	if entity.FailedUpdateCount >= failedUpdateLimit {
		return false
	}
	if !entity.LastUpdated.IsZero() && c.now().Sub(entity.LastUpdated) > lastUpdatedWindow {
		return false
	}
	return true
}
