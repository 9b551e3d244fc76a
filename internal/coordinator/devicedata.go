package coordinator

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/sector"
)

const healthyErrorLimit = 2

// DeviceCoordinator runs the fetch, normalize, merge cycle for one set of
// endpoints. Two instances share the registry: one covers action-capable
// devices (panel, locks, plugs) and one covers environmental sensors. The
// entity models each instance produces are disjoint, which keeps the shared
// registry convergent no matter how the merge timing interleaves.
type DeviceCoordinator struct {
	name      string
	api       API
	panelInfo *PanelInfoCoordinator
	registry  *registry.Registry
	mandatory []sector.DataEndpointType
	optional  []sector.DataEndpointType
	interval  time.Duration
	log       *log.Logger
	now       func() time.Time

	mu        sync.Mutex
	resolved  bool
	legacyAPI bool
	endpoints []sector.DataEndpointType
	errCount  int

	logMu sync.RWMutex
	logs  []sector.LogRecord

	events *eventTracker

	listenerMu sync.Mutex
	listeners  []func()

	refreshCh chan struct{}
	onReauth  func(error)
}

func NewDeviceCoordinator(
	name string,
	api API,
	panelInfo *PanelInfoCoordinator,
	reg *registry.Registry,
	mandatory, optional []sector.DataEndpointType,
	interval time.Duration,
	logger *log.Logger,
) *DeviceCoordinator {
	return &DeviceCoordinator{
		name:      name,
		api:       api,
		panelInfo: panelInfo,
		registry:  reg,
		mandatory: mandatory,
		optional:  optional,
		interval:  interval,
		log:       logger.Component(name),
		now:       time.Now,
		events:    newEventTracker(),
		refreshCh: make(chan struct{}, 1),
	}
}

// Name returns the coordinator's registry tag.
func (c *DeviceCoordinator) Name() string {
	return c.name
}

// Registry exposes the shared device registry for platform adapters.
func (c *DeviceCoordinator) Registry() *registry.Registry {
	return c.registry
}

// IsHealthy reports whether recent cycles have been succeeding. Entity
// availability goes to false for every entity this coordinator owns once
// the error counter reaches the limit.
func (c *DeviceCoordinator) IsHealthy() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.errCount < healthyErrorLimit
}

// Endpoints returns the resolved endpoint set, empty until the first
// successful negotiation.
func (c *DeviceCoordinator) Endpoints() []sector.DataEndpointType {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]sector.DataEndpointType{}, c.endpoints...)
}

// UsesLegacyAPI reports which vendor API family negotiation picked.
func (c *DeviceCoordinator) UsesLegacyAPI() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.legacyAPI
}

// Logs returns the last fetched panel log records.
func (c *DeviceCoordinator) Logs() []sector.LogRecord {
	c.logMu.RLock()
	defer c.logMu.RUnlock()
	return append([]sector.LogRecord{}, c.logs...)
}

// AddListener registers a callback invoked after every successful cycle.
func (c *DeviceCoordinator) AddListener(fn func()) {
	c.listenerMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenerMu.Unlock()
}

// OnEvent registers a callback invoked once per newly observed log event.
func (c *DeviceCoordinator) OnEvent(fn func(Event)) {
	c.events.onEvent = fn
}

// OnReauthRequired registers the handler invoked when a cycle fails with a
// rejected login.
func (c *DeviceCoordinator) OnReauthRequired(fn func(error)) {
	c.onReauth = fn
}

// TriggerRefresh requests an immediate out-of-band cycle, used by the
// command executor to reconcile optimistic state early.
func (c *DeviceCoordinator) TriggerRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

func (c *DeviceCoordinator) hasOptional(ep sector.DataEndpointType) bool {
	for _, o := range c.optional {
		if o == ep {
			return true
		}
	}
	return false
}

// negotiate computes the endpoint set from the latest panel inventory. The
// result is sticky for the life of the coordinator so a transient probe
// failure later cannot make the endpoint set oscillate. Caller holds c.mu.
func (c *DeviceCoordinator) negotiate(ctx context.Context) error {
	info := c.panelInfo.PanelInfo()
	if info == nil {
		return panelInfoFailure(c.api.PanelID(), "no data returned from coordinator")
	}

	selected := make(map[sector.DataEndpointType]bool, len(c.mandatory))
	for _, ep := range c.mandatory {
		selected[ep] = true
	}
	if len(info.Locks) > 0 && c.hasOptional(sector.EndpointLockStatus) {
		selected[sector.EndpointLockStatus] = true
	}
	if len(info.Smartplugs) > 0 && c.hasOptional(sector.EndpointSmartPlugStatus) {
		selected[sector.EndpointSmartPlugStatus] = true
	}

	legacy := info.HasCapability(sector.CapabilityLegacyHomeScreen)
	if !legacy {
		var probe []sector.DataEndpointType
		for _, ep := range c.optional {
			if ep.IsHouseCheck() {
				probe = append(probe, ep)
			}
		}
		if len(probe) > 0 {
			responses, err := c.api.RetrieveAllData(ctx, probe)
			if err != nil {
				var loginErr *sector.LoginError
				if errors.As(err, &loginErr) {
					return &ReauthRequired{Err: err}
				}
				return &UpdateFailed{Err: err}
			}
			supported := 0
			for ep, resp := range responses {
				if resp.OK() {
					selected[ep] = true
					supported++
				} else {
					c.log.Debug("Endpoint %s not supported by panel %s, skipping", ep, c.api.PanelID())
				}
			}
			if supported == 0 {
				legacy = true
			}
		}
	}
	if legacy {
		if c.hasOptional(sector.EndpointTemperaturesLegacy) && len(info.Temperatures) > 0 {
			selected[sector.EndpointTemperaturesLegacy] = true
		}
	}

	c.endpoints = orderEndpoints(selected)
	c.legacyAPI = legacy
	c.resolved = true
	c.log.Info("Resolved %d endpoints for panel %s (legacy API: %t)", len(c.endpoints), c.api.PanelID(), legacy)
	return nil
}

// orderEndpoints fixes the processing order so environmental endpoints land
// before device endpoints. Device endpoint records are authoritative for a
// device's name and model, so they must merge last.
func orderEndpoints(selected map[sector.DataEndpointType]bool) []sector.DataEndpointType {
	out := make([]sector.DataEndpointType, 0, len(selected))
	for ep := range selected {
		out = append(out, ep)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].IsDevice() != out[j].IsDevice() {
			return !out[i].IsDevice()
		}
		return out[i] < out[j]
	})
	return out
}

// Refresh performs one full cycle. Per-endpoint failures are isolated: a
// bad endpoint only marks its own entities stale while the rest of the
// cycle proceeds. Transport failures and login rejections fail the cycle.
func (c *DeviceCoordinator) Refresh(ctx context.Context) error {
	if err := c.refresh(ctx); err != nil {
		return err
	}
	// Listeners read back through IsHealthy and EntityAvailable, so they
	// must run with the state mutex released.
	c.notify()
	return nil
}

func (c *DeviceCoordinator) refresh(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.resolved {
		if err := c.negotiate(ctx); err != nil {
			return err
		}
	}

	responses, err := c.api.RetrieveAllData(ctx, c.endpoints)
	if err != nil {
		var loginErr *sector.LoginError
		if errors.As(err, &loginErr) {
			return &ReauthRequired{Err: err}
		}
		c.errCount++
		return &UpdateFailed{Err: err}
	}

	info := c.panelInfo.PanelInfo()
	now := c.now()
	var logsResp *sector.APIResponse
	for _, ep := range c.endpoints {
		resp := responses[ep]
		if ep == sector.EndpointLogs {
			// Held back until every device merge has landed, so log
			// records can match devices first seen this cycle.
			logsResp = resp
			continue
		}
		if !resp.OK() {
			c.markStale(ep, resp)
			continue
		}
		devices, err := normalizeEndpoint(ep, resp, info, c.api.PanelID())
		if err != nil {
			c.log.Warning("Skipping endpoint %s: %v", ep, err)
			c.markStale(ep, resp)
			continue
		}
		for _, dev := range devices {
			for name, entity := range dev.Entities {
				entity.Coordinator = c.name
				entity.LastUpdated = now
				entity.FailedUpdateCount = 0
				dev.Entities[name] = entity
			}
			c.registry.RegisterDevice(dev)
		}
	}

	if logsResp != nil {
		c.processLogs(logsResp)
	}

	c.errCount = 0
	return nil
}

// markStale bumps the failure counter on every previously known entity the
// failed endpoint was responsible for. Devices that never successfully
// reported stay absent rather than appearing with failure markers.
func (c *DeviceCoordinator) markStale(ep sector.DataEndpointType, resp *sector.APIResponse) {
	if resp == nil {
		c.log.Warning("No response for endpoint %s", ep)
	} else {
		c.log.Warning("Endpoint %s returned no usable data (HTTP %d, JSON: %t)", ep, resp.StatusCode, resp.IsJSON)
	}
	model := endpointEntityModel(ep)
	if model == "" {
		return
	}
	for serial, dev := range c.registry.FetchDevices() {
		entity, ok := dev.Entities[model]
		if !ok {
			continue
		}
		entity.FailedUpdateCount++
		c.registry.RegisterDevice(registry.Device{
			SerialNo: serial,
			Entities: map[string]registry.Entity{model: entity},
		})
	}
}

func (c *DeviceCoordinator) processLogs(resp *sector.APIResponse) {
	if !resp.OK() {
		c.log.Warning("Log endpoint returned no usable data")
		return
	}
	var records sector.LogRecords
	if err := resp.Decode(&records); err != nil {
		c.log.Warning("Unparseable log records: %v", err)
		return
	}
	c.logMu.Lock()
	c.logs = records.Records
	c.logMu.Unlock()
	c.events.process(records.Records, c.registry, c.log)
}

func (c *DeviceCoordinator) notify() {
	c.listenerMu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Run drives the refresh loop until the context is cancelled. The caller
// performs the first cycle itself before starting the loop, so Run waits
// for the first tick or trigger.
func (c *DeviceCoordinator) Run(ctx context.Context) {
	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c.runCycle(ctx)
		case <-c.refreshCh:
			c.runCycle(ctx)
		}
	}
}

func (c *DeviceCoordinator) runCycle(ctx context.Context) {
	err := c.Refresh(ctx)
	if err == nil {
		return
	}
	var reauth *ReauthRequired
	if errors.As(err, &reauth) {
		c.log.Error("Stored credentials were rejected: %v", err)
		if c.onReauth != nil {
			c.onReauth(err)
		}
		return
	}
	c.log.Warning("Refresh failed: %v", err)
}
