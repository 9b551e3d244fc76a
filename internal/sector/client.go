package sector

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"

	"github.com/akerman/sector2mqtt/internal/log"
)

const apiVersion = "5"

// Client owns the authenticated HTTP session against the Sector Alarm cloud
// API. The token is the single shared auth state for every coordinator and
// the command executor; refreshes are coalesced so concurrent consumers do
// not trigger redundant logins.
type Client struct {
	baseURL  string
	userID   string
	password string
	panelID  string

	http  *http.Client
	retry *Retryable
	log   *log.Logger

	mu    sync.RWMutex
	token string
	sf    singleflight.Group
}

func NewClient(baseURL, userID, password, panelID string, logger *log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		userID:   userID,
		password: password,
		panelID:  panelID,
		http:     &http.Client{Timeout: 10 * time.Second},
		retry:    NewRetryable(3, 30*time.Second, nil),
		log:      logger.Component("sector"),
	}
}

// PanelID returns the panel this client is scoped to.
func (c *Client) PanelID() string {
	return c.panelID
}

func (c *Client) currentToken() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token
}

// Login exchanges the stored credentials for a bearer token. Concurrent
// callers are coalesced into one request. A rejected login or a token-less
// response is a LoginError, which callers must surface as a credential
// problem rather than retry.
func (c *Client) Login(ctx context.Context) error {
	_, err, _ := c.sf.Do("login", func() (interface{}, error) {
		return nil, c.doLogin(ctx)
	})
	return err
}

func (c *Client) doLogin(ctx context.Context) error {
	payload, _ := json.Marshal(map[string]string{
		"UserId":   c.userID,
		"Password": c.password,
	})
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/Login/Login", bytes.NewReader(payload))
	if err != nil {
		return &ApiError{Op: "login", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("API-Version", apiVersion)

	resp, err := c.http.Do(req)
	if err != nil {
		return &ApiError{Op: "login", Err: err}
	}
	defer resp.Body.Close()
	body, _ := io.ReadAll(resp.Body)

	if resp.StatusCode != 200 {
		return &LoginError{Reason: fmt.Sprintf("HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(body)))}
	}

	var loginResp struct {
		AuthorizationToken string `json:"AuthorizationToken"`
	}
	if err := json.Unmarshal(body, &loginResp); err != nil {
		return &LoginError{Reason: fmt.Sprintf("unparseable login response: %v", err)}
	}
	if loginResp.AuthorizationToken == "" {
		return &LoginError{Reason: "no authorization token in response"}
	}

	c.mu.Lock()
	c.token = loginResp.AuthorizationToken
	c.mu.Unlock()
	c.log.Debug("Logged in to panel %s", c.panelID)
	return nil
}

// Logout invalidates the session server-side. Best effort; errors are
// returned but callers usually just log them during shutdown.
func (c *Client) Logout(ctx context.Context) error {
	if c.currentToken() == "" {
		return nil
	}
	resp, err := c.do(ctx, "POST", "/api/Login/Logout", map[string]string{})
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.token = ""
	c.mu.Unlock()
	if resp.StatusCode != 200 {
		return &ApiError{Op: "logout", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	return nil
}

// do issues one authenticated call. A 401 triggers exactly one coalesced
// re-login and replay; a second rejection is an AuthenticationError. The
// HTTP status is part of the returned response, not an error, so callers
// decide per-endpoint how to treat non-2xx.
func (c *Client) do(ctx context.Context, method, path string, payload interface{}) (*APIResponse, error) {
	if c.currentToken() == "" {
		if err := c.Login(ctx); err != nil {
			return nil, err
		}
	}

	resp, err := c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 401 {
		return resp, nil
	}

	if err := c.Login(ctx); err != nil {
		return nil, err
	}
	resp, err = c.doOnce(ctx, method, path, payload)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode == 401 {
		return nil, &AuthenticationError{Op: method + " " + path}
	}
	return resp, nil
}

func (c *Client) doOnce(ctx context.Context, method, path string, payload interface{}) (*APIResponse, error) {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return nil, &ApiError{Op: method + " " + path, Err: err}
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, &ApiError{Op: method + " " + path, Err: err}
	}
	req.Header.Set("Authorization", c.currentToken())
	req.Header.Set("Accept", "application/json")
	req.Header.Set("API-Version", apiVersion)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	httpResp, err := c.http.Do(req)
	if err != nil {
		return nil, &ApiError{Op: method + " " + path, Err: err}
	}
	defer httpResp.Body.Close()
	raw, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return nil, &ApiError{Op: method + " " + path, Err: err}
	}

	return &APIResponse{
		StatusCode: httpResp.StatusCode,
		IsJSON:     strings.Contains(httpResp.Header.Get("Content-Type"), "application/json"),
		Body:       raw,
	}, nil
}

// RetrieveAllData polls every requested endpoint concurrently and returns
// one response per endpoint. Individual endpoint failures come back encoded
// in their APIResponse; only transport failures after retry exhaustion or
// auth rejection fail the call as a whole.
func (c *Client) RetrieveAllData(ctx context.Context, endpoints []DataEndpointType) (map[DataEndpointType]*APIResponse, error) {
	results := make(map[DataEndpointType]*APIResponse, len(endpoints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	for _, ep := range endpoints {
		ep := ep
		g.Go(func() error {
			method, path := dataEndpoint(ep, c.panelID)
			if path == "" {
				return &ConfigError{Reason: fmt.Sprintf("no endpoint mapped for %s", ep)}
			}
			var payload interface{}
			if method == "POST" {
				payload = map[string]string{"PanelId": c.panelID}
			}
			var resp *APIResponse
			err := c.retry.Run(gctx, func() error {
				var callErr error
				resp, callErr = c.do(gctx, method, path, payload)
				return callErr
			})
			if err != nil {
				return err
			}
			mu.Lock()
			results[ep] = resp
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return results, nil
}

// GetPanelInfo fetches the panel's static inventory.
func (c *Client) GetPanelInfo(ctx context.Context) (*APIResponse, error) {
	var resp *APIResponse
	err := c.retry.Run(ctx, func() error {
		var callErr error
		resp, callErr = c.do(ctx, "GET", "/api/Panel/GetPanel?panelId="+c.panelID, nil)
		return callErr
	})
	return resp, err
}

// GetPanelList retrieves the panels available to the account, used at
// startup to validate the configured panel id.
func (c *Client) GetPanelList(ctx context.Context) ([]PanelSummary, error) {
	resp, err := c.do(ctx, "GET", "/api/account/GetPanelList", nil)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, &ApiError{Op: "panel list", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	var panels []PanelSummary
	if err := resp.Decode(&panels); err != nil {
		return nil, &ApiError{Op: "panel list", Err: err}
	}
	return panels, nil
}

// GetCameraImage fetches the latest still from a camera as opaque bytes.
func (c *Client) GetCameraImage(ctx context.Context, serialNo string) ([]byte, error) {
	resp, err := c.do(ctx, "POST", "/api/camera/GetCameraImage", map[string]string{
		"PanelId":  c.panelID,
		"SerialNo": serialNo,
	})
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != 200 {
		return nil, &ApiError{Op: "camera image", Err: fmt.Errorf("HTTP %d", resp.StatusCode)}
	}
	var img struct {
		ImageData string `json:"ImageData"`
	}
	if err := resp.Decode(&img); err != nil || img.ImageData == "" {
		return nil, &ApiError{Op: "camera image", Err: fmt.Errorf("no image data for camera %s", serialNo)}
	}
	return base64.StdEncoding.DecodeString(img.ImageData)
}

func (c *Client) runAction(ctx context.Context, action ActionType, payload map[string]string) error {
	path, err := actionEndpoint(action)
	if err != nil {
		return err
	}
	resp, err := c.do(ctx, "POST", path, payload)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &ApiError{
			Op:  action.String(),
			Err: fmt.Errorf("HTTP %d - %s", resp.StatusCode, strings.TrimSpace(string(resp.Body))),
		}
	}
	c.log.Debug("Action %s succeeded", action)
	return nil
}

// Arm fully arms the panel. Not safe to blindly retry; callers must check
// panel state before resending.
func (c *Client) Arm(ctx context.Context, code string) error {
	return c.runAction(ctx, ActionArm, map[string]string{
		"PanelCode": code,
		"PanelId":   c.panelID,
	})
}

// PartialArm arms the panel in partial (home) mode.
func (c *Client) PartialArm(ctx context.Context, code string) error {
	return c.runAction(ctx, ActionPartialArm, map[string]string{
		"PanelCode": code,
		"PanelId":   c.panelID,
	})
}

// Disarm disarms the panel. Same retry caveat as Arm.
func (c *Client) Disarm(ctx context.Context, code string) error {
	return c.runAction(ctx, ActionDisarm, map[string]string{
		"PanelCode": code,
		"PanelId":   c.panelID,
	})
}

// LockDoor locks the lock with the given serial. The serial is sent under
// both names the vendor has used for this field.
func (c *Client) LockDoor(ctx context.Context, serialNo, code string) error {
	return c.runAction(ctx, ActionLock, map[string]string{
		"LockSerial": serialNo,
		"PanelCode":  code,
		"PanelId":    c.panelID,
		"SerialNo":   serialNo,
	})
}

// UnlockDoor unlocks the lock with the given serial.
func (c *Client) UnlockDoor(ctx context.Context, serialNo, code string) error {
	return c.runAction(ctx, ActionUnlock, map[string]string{
		"LockSerial": serialNo,
		"PanelCode":  code,
		"PanelId":    c.panelID,
		"SerialNo":   serialNo,
	})
}

// TurnOnSmartplug switches a plug on by its vendor device id.
func (c *Client) TurnOnSmartplug(ctx context.Context, plugID string) error {
	return c.runAction(ctx, ActionTurnOnSmartplug, map[string]string{
		"PanelId":  c.panelID,
		"DeviceId": plugID,
	})
}

// TurnOffSmartplug switches a plug off by its vendor device id.
func (c *Client) TurnOffSmartplug(ctx context.Context, plugID string) error {
	return c.runAction(ctx, ActionTurnOffSmartplug, map[string]string{
		"PanelId":  c.panelID,
		"DeviceId": plugID,
	})
}
