package sector

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/akerman/sector2mqtt/internal/log"
)

func testLogger() *log.Logger {
	return log.NewLogger("error")
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func TestLoginStoresToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/Login/Login" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if r.Header.Get("API-Version") != "5" {
			t.Errorf("missing API-Version header")
		}
		var body map[string]string
		json.NewDecoder(r.Body).Decode(&body)
		if body["UserId"] != "user@example.com" || body["Password"] != "hunter2" {
			t.Errorf("unexpected credentials %v", body)
		}
		writeJSON(w, map[string]string{"AuthorizationToken": "tok-1"})
	}))
	defer server.Close()

	c := NewClient(server.URL, "user@example.com", "hunter2", "P123", testLogger())
	if err := c.Login(context.Background()); err != nil {
		t.Fatalf("login failed: %v", err)
	}
	if c.currentToken() != "tok-1" {
		t.Fatalf("token = %q", c.currentToken())
	}
}

func TestLoginRejectedIsLoginError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad credentials", http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "wrong", "P123", testLogger())
	err := c.Login(context.Background())
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
}

func TestLoginWithoutTokenIsLoginError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]string{})
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	err := c.Login(context.Background())
	var loginErr *LoginError
	if !errors.As(err, &loginErr) {
		t.Fatalf("expected LoginError, got %v", err)
	}
}

func TestExpiredTokenIsRefreshedOnce(t *testing.T) {
	var logins int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Login/Login":
			atomic.AddInt32(&logins, 1)
			writeJSON(w, map[string]string{"AuthorizationToken": "tok-2"})
		case "/api/account/GetPanelList":
			if r.Header.Get("Authorization") != "tok-2" {
				w.WriteHeader(http.StatusUnauthorized)
				return
			}
			writeJSON(w, []map[string]string{{"PanelId": "P123", "DisplayName": "Home"}})
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	c.token = "tok-stale"

	panels, err := c.GetPanelList(context.Background())
	if err != nil {
		t.Fatalf("panel list failed: %v", err)
	}
	if len(panels) != 1 || panels[0].PanelID != "P123" {
		t.Fatalf("panels = %+v", panels)
	}
	if got := atomic.LoadInt32(&logins); got != 1 {
		t.Fatalf("expected exactly one re-login, got %d", got)
	}
}

func TestPersistent401IsAuthenticationError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/api/Login/Login" {
			writeJSON(w, map[string]string{"AuthorizationToken": "tok-3"})
			return
		}
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	_, err := c.GetPanelList(context.Background())
	var authErr *AuthenticationError
	if !errors.As(err, &authErr) {
		t.Fatalf("expected AuthenticationError, got %v", err)
	}
}

func TestRetrieveAllDataIsolatesEndpointFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Login/Login":
			writeJSON(w, map[string]string{"AuthorizationToken": "tok"})
		case "/api/panel/GetPanelStatus":
			writeJSON(w, map[string]interface{}{"IsOnline": true, "Status": 1})
		case "/api/v2/housecheck/doorsandwindows":
			var body map[string]string
			json.NewDecoder(r.Body).Decode(&body)
			if body["PanelId"] != "P123" {
				t.Errorf("POST body missing panel id: %v", body)
			}
			http.Error(w, "not found", http.StatusNotFound)
		default:
			t.Errorf("unexpected path %s", r.URL.Path)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	results, err := c.RetrieveAllData(context.Background(), []DataEndpointType{
		EndpointPanelStatus, EndpointDoorsAndWindows,
	})
	if err != nil {
		t.Fatalf("fetch failed: %v", err)
	}

	if !results[EndpointPanelStatus].OK() {
		t.Error("panel status response should be usable")
	}
	doors := results[EndpointDoorsAndWindows]
	if doors == nil || doors.StatusCode != 404 {
		t.Fatalf("doors response = %+v", doors)
	}
	if doors.OK() {
		t.Error("404 response must not be OK")
	}
}

func TestGetCameraImage(t *testing.T) {
	raw := []byte{0xff, 0xd8, 0xff, 0xe0}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Login/Login":
			writeJSON(w, map[string]string{"AuthorizationToken": "tok"})
		case "/api/camera/GetCameraImage":
			writeJSON(w, map[string]string{"ImageData": base64.StdEncoding.EncodeToString(raw)})
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	img, err := c.GetCameraImage(context.Background(), "CAM1")
	if err != nil {
		t.Fatalf("camera image failed: %v", err)
	}
	if string(img) != string(raw) {
		t.Fatalf("image bytes = %v", img)
	}
}

func TestActionFailureIsApiError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/Login/Login":
			writeJSON(w, map[string]string{"AuthorizationToken": "tok"})
		case "/api/Panel/Arm":
			http.Error(w, "wrong code", http.StatusBadRequest)
		}
	}))
	defer server.Close()

	c := NewClient(server.URL, "user", "pass", "P123", testLogger())
	err := c.Arm(context.Background(), "0000")
	var apiErr *ApiError
	if !errors.As(err, &apiErr) {
		t.Fatalf("expected ApiError, got %v", err)
	}
}

func TestAPIResponseOK(t *testing.T) {
	cases := []struct {
		name string
		resp *APIResponse
		want bool
	}{
		{"nil", nil, false},
		{"good", &APIResponse{StatusCode: 200, IsJSON: true, Body: []byte(`{}`)}, true},
		{"not json", &APIResponse{StatusCode: 200, IsJSON: false, Body: []byte(`<html>`)}, false},
		{"empty", &APIResponse{StatusCode: 200, IsJSON: true, Body: nil}, false},
		{"null", &APIResponse{StatusCode: 200, IsJSON: true, Body: []byte(`null`)}, false},
		{"error status", &APIResponse{StatusCode: 500, IsJSON: true, Body: []byte(`{}`)}, false},
	}
	for _, c := range cases {
		if got := c.resp.OK(); got != c.want {
			t.Errorf("%s: OK = %t, want %t", c.name, got, c.want)
		}
	}
}
