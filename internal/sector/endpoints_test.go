package sector

import (
	"errors"
	"strings"
	"testing"
)

func TestEndpointClassification(t *testing.T) {
	cases := []struct {
		ep         DataEndpointType
		device     bool
		houseCheck bool
	}{
		{EndpointPanelStatus, true, false},
		{EndpointLogs, false, false},
		{EndpointLockStatus, true, false},
		{EndpointSmartPlugStatus, true, false},
		{EndpointDoorsAndWindows, true, true},
		{EndpointSmokeDetectors, true, true},
		{EndpointLeakageDetectors, true, true},
		{EndpointCameras, true, true},
		{EndpointHumidity, false, true},
		{EndpointTemperatures, false, true},
		{EndpointTemperaturesLegacy, false, false},
	}
	for _, c := range cases {
		if got := c.ep.IsDevice(); got != c.device {
			t.Errorf("%s: IsDevice = %t, want %t", c.ep, got, c.device)
		}
		if got := c.ep.IsHouseCheck(); got != c.houseCheck {
			t.Errorf("%s: IsHouseCheck = %t, want %t", c.ep, got, c.houseCheck)
		}
	}
}

func TestDataEndpointPaths(t *testing.T) {
	method, path := dataEndpoint(EndpointPanelStatus, "P123")
	if method != "GET" || path != "/api/panel/GetPanelStatus?panelId=P123" {
		t.Errorf("panel status endpoint = %s %s", method, path)
	}

	method, path = dataEndpoint(EndpointDoorsAndWindows, "P123")
	if method != "POST" || path != "/api/v2/housecheck/doorsandwindows" {
		t.Errorf("doors endpoint = %s %s", method, path)
	}
	if strings.Contains(path, "P123") {
		t.Error("house-check POST endpoints carry the panel id in the body, not the path")
	}

	method, path = dataEndpoint(EndpointHumidity, "P123")
	if method != "GET" || path != "/api/housecheck/panels/P123/humidity" {
		t.Errorf("humidity endpoint = %s %s", method, path)
	}
}

func TestActionEndpointUnmapped(t *testing.T) {
	if _, err := actionEndpoint(ActionLock); err != nil {
		t.Fatalf("mapped action returned error: %v", err)
	}

	_, err := actionEndpoint(ActionType(99))
	var cfgErr *ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError for unmapped action, got %v", err)
	}
}
