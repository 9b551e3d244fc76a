package coordinator

import (
	"context"
	"fmt"

	"github.com/akerman/sector2mqtt/internal/sector"
)

// API is the slice of the session client the coordinators consume.
type API interface {
	PanelID() string
	GetPanelInfo(ctx context.Context) (*sector.APIResponse, error)
	RetrieveAllData(ctx context.Context, endpoints []sector.DataEndpointType) (map[sector.DataEndpointType]*sector.APIResponse, error)
}

// UpdateFailed marks one failed refresh cycle. The next scheduled cycle
// proceeds independently.
type UpdateFailed struct {
	Err error
}

func (e *UpdateFailed) Error() string {
	return e.Err.Error()
}

func (e *UpdateFailed) Unwrap() error {
	return e.Err
}

// ReauthRequired escalates a rejected login out of a refresh cycle. It is a
// credentials problem, not a data problem, so it never counts toward a
// coordinator's transient failure counter and must surface to the operator
// instead of being retried silently.
type ReauthRequired struct {
	Err error
}

func (e *ReauthRequired) Error() string {
	return e.Err.Error()
}

func (e *ReauthRequired) Unwrap() error {
	return e.Err
}

func panelInfoFailure(panelID, reason string) error {
	return &UpdateFailed{Err: fmt.Errorf("Failed to retrieve panel information for panel '%s' (%s)", panelID, reason)}
}
