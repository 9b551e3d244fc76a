package command

import (
	"context"
	"fmt"
	"sync"

	"github.com/akerman/sector2mqtt/internal/log"
)

// Actions is the slice of the session client the executor drives.
type Actions interface {
	PanelID() string
	Arm(ctx context.Context, code string) error
	PartialArm(ctx context.Context, code string) error
	Disarm(ctx context.Context, code string) error
	LockDoor(ctx context.Context, serialNo, code string) error
	UnlockDoor(ctx context.Context, serialNo, code string) error
	TurnOnSmartplug(ctx context.Context, plugID string) error
	TurnOffSmartplug(ctx context.Context, plugID string) error
}

// Refresher requests an out-of-band coordinator cycle after a successful
// command so real state reconciles the optimistic guess quickly.
type Refresher interface {
	TriggerRefresh()
}

// PendingState is the optimistic transitional state shown while a command
// is in flight.
type PendingState string

const (
	PendingLocking      PendingState = "locking"
	PendingUnlocking    PendingState = "unlocking"
	PendingArming       PendingState = "arming"
	PendingDisarming    PendingState = "disarming"
	PendingSwitchingOn  PendingState = "switching_on"
	PendingSwitchingOff PendingState = "switching_off"
)

// ArmMode selects full or partial arming.
type ArmMode string

const (
	ArmModeTotal   ArmMode = "total"
	ArmModePartial ArmMode = "partial"
)

// Executor runs actuator commands with optimistic state. Every command
// sets a pending state and notifies listeners before the vendor call, and
// the pending state is always cleared by the next coordinator cycle no
// matter whether the cycle confirms the guess.
type Executor struct {
	api     Actions
	refresh Refresher
	log     *log.Logger

	mu      sync.Mutex
	pending map[string]PendingState

	listenerMu sync.Mutex
	listeners  []func()
}

func NewExecutor(api Actions, refresh Refresher, logger *log.Logger) *Executor {
	return &Executor{
		api:     api,
		refresh: refresh,
		log:     logger.Component("command"),
		pending: make(map[string]PendingState),
	}
}

// AddListener registers a callback invoked whenever pending state changes.
func (e *Executor) AddListener(fn func()) {
	e.listenerMu.Lock()
	e.listeners = append(e.listeners, fn)
	e.listenerMu.Unlock()
}

// Pending returns the optimistic state for a device serial, if any.
func (e *Executor) Pending(serialNo string) (PendingState, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	state, ok := e.pending[serialNo]
	return state, ok
}

// ClearAll drops every pending state. Wired as a coordinator listener so
// reconciliation always wins over the optimistic guess.
func (e *Executor) ClearAll() {
	e.mu.Lock()
	changed := len(e.pending) > 0
	e.pending = make(map[string]PendingState)
	e.mu.Unlock()
	if changed {
		e.notify()
	}
}

func (e *Executor) setPending(key string, state PendingState) {
	e.mu.Lock()
	e.pending[key] = state
	e.mu.Unlock()
	e.notify()
}

func (e *Executor) clearPending(key string) {
	e.mu.Lock()
	delete(e.pending, key)
	e.mu.Unlock()
	e.notify()
}

func (e *Executor) notify() {
	e.listenerMu.Lock()
	listeners := append([]func(){}, e.listeners...)
	e.listenerMu.Unlock()
	for _, fn := range listeners {
		fn()
	}
}

// run wraps one command in the optimistic state machine: pending on entry,
// cleared on failure, reconciled by a triggered refresh on success.
func (e *Executor) run(key string, state PendingState, op func() error) error {
	e.setPending(key, state)
	if err := op(); err != nil {
		e.clearPending(key)
		return err
	}
	e.refresh.TriggerRefresh()
	return nil
}

// Arm arms the panel fully or partially. Arm and Disarm are not safe to
// blindly retry; a failed call leaves the panel in whatever state the
// vendor left it and the next cycle reports the truth.
func (e *Executor) Arm(ctx context.Context, mode ArmMode, code string) error {
	panelID := e.api.PanelID()
	e.log.Info("Arming panel %s (%s)", panelID, mode)
	return e.run(panelID, PendingArming, func() error {
		switch mode {
		case ArmModeTotal:
			return e.api.Arm(ctx, code)
		case ArmModePartial:
			return e.api.PartialArm(ctx, code)
		default:
			return fmt.Errorf("unknown arm mode %q", mode)
		}
	})
}

// Disarm disarms the panel.
func (e *Executor) Disarm(ctx context.Context, code string) error {
	panelID := e.api.PanelID()
	e.log.Info("Disarming panel %s", panelID)
	return e.run(panelID, PendingDisarming, func() error {
		return e.api.Disarm(ctx, code)
	})
}

// LockDoor locks a smart lock by serial.
func (e *Executor) LockDoor(ctx context.Context, serialNo, code string) error {
	e.log.Info("Locking %s", serialNo)
	return e.run(serialNo, PendingLocking, func() error {
		return e.api.LockDoor(ctx, serialNo, code)
	})
}

// UnlockDoor unlocks a smart lock by serial.
func (e *Executor) UnlockDoor(ctx context.Context, serialNo, code string) error {
	e.log.Info("Unlocking %s", serialNo)
	return e.run(serialNo, PendingUnlocking, func() error {
		return e.api.UnlockDoor(ctx, serialNo, code)
	})
}

// TurnOnSmartplug switches a plug on. The pending state is keyed by the
// plug's serial while the vendor call uses its device id.
func (e *Executor) TurnOnSmartplug(ctx context.Context, serialNo, plugID string) error {
	e.log.Info("Turning on plug %s", serialNo)
	return e.run(serialNo, PendingSwitchingOn, func() error {
		return e.api.TurnOnSmartplug(ctx, plugID)
	})
}

// TurnOffSmartplug switches a plug off.
func (e *Executor) TurnOffSmartplug(ctx context.Context, serialNo, plugID string) error {
	e.log.Info("Turning off plug %s", serialNo)
	return e.run(serialNo, PendingSwitchingOff, func() error {
		return e.api.TurnOffSmartplug(ctx, plugID)
	})
}
