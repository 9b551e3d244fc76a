package coordinator

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/sector"
)

// PanelInfoCoordinator refreshes the panel's static inventory on its own
// cycle. The result is replaced wholesale on every successful fetch and is
// the read-only input to capability negotiation.
type PanelInfoCoordinator struct {
	api      API
	log      *log.Logger
	interval time.Duration

	mu   sync.RWMutex
	info *sector.PanelInfo

	listenerMu sync.Mutex
	listeners  []func()

	refreshCh chan struct{}
	onReauth  func(error)
}

func NewPanelInfoCoordinator(api API, logger *log.Logger, interval time.Duration) *PanelInfoCoordinator {
	return &PanelInfoCoordinator{
		api:       api,
		log:       logger.Component("panel-info-coordinator"),
		interval:  interval,
		refreshCh: make(chan struct{}, 1),
	}
}

// PanelInfo returns the latest inventory snapshot, or nil if no fetch has
// succeeded yet.
func (c *PanelInfoCoordinator) PanelInfo() *sector.PanelInfo {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.info == nil {
		return nil
	}
	info := *c.info
	return &info
}

// AddListener registers a callback invoked after every successful refresh.
func (c *PanelInfoCoordinator) AddListener(fn func()) {
	c.listenerMu.Lock()
	c.listeners = append(c.listeners, fn)
	c.listenerMu.Unlock()
}

// OnReauthRequired registers the handler invoked when a refresh fails with
// a rejected login.
func (c *PanelInfoCoordinator) OnReauthRequired(fn func(error)) {
	c.onReauth = fn
}

// TriggerRefresh requests an immediate out-of-band refresh. Requests while
// one is already queued are coalesced.
func (c *PanelInfoCoordinator) TriggerRefresh() {
	select {
	case c.refreshCh <- struct{}{}:
	default:
	}
}

// Refresh performs one fetch cycle. A login rejection comes back as
// ReauthRequired, everything else as UpdateFailed.
func (c *PanelInfoCoordinator) Refresh(ctx context.Context) error {
	resp, err := c.api.GetPanelInfo(ctx)
	if err != nil {
		var loginErr *sector.LoginError
		if errors.As(err, &loginErr) {
			return &ReauthRequired{Err: err}
		}
		return &UpdateFailed{Err: err}
	}

	panelID := c.api.PanelID()
	switch {
	case resp.StatusCode != 200:
		return panelInfoFailure(panelID, fmt.Sprintf("HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))))
	case !resp.IsJSON:
		return panelInfoFailure(panelID, fmt.Sprintf("response data is not JSON '%s'", strings.TrimSpace(string(resp.Body))))
	case len(resp.Body) == 0 || string(resp.Body) == "null":
		return panelInfoFailure(panelID, "no data returned from API")
	}

	var info sector.PanelInfo
	if err := resp.Decode(&info); err != nil {
		return panelInfoFailure(panelID, fmt.Sprintf("response data is not JSON '%s'", strings.TrimSpace(string(resp.Body))))
	}

	c.mu.Lock()
	c.info = &info
	c.mu.Unlock()

	c.log.Debug("Panel info refreshed for panel %s (%d locks, %d plugs, %d temperature probes)",
		panelID, len(info.Locks), len(info.Smartplugs), len(info.Temperatures))
	c.notify()
	return nil
}

func (c *PanelInfoCoordinator) notify() {
	c.listenerMu.Lock()
	listeners := append([]func(){}, c.listeners...)
	c.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// Run drives the refresh loop until the context is cancelled. The caller
// performs the first refresh itself before starting the loop, so Run waits
// for the first tick or trigger.
func (c *PanelInfoCoordinator) Run(ctx context.Context) {
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

func (c *PanelInfoCoordinator) runCycle(ctx context.Context) {
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
	c.log.Warning("Panel info refresh failed: %v", err)
}
