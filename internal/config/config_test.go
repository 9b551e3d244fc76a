package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	path := writeConfig(t, `
sector:
  username: user@example.com
  password: hunter2
  panel_id: "P123"
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.MQTT.ClientID != "sector2mqtt" || cfg.MQTT.Host != "localhost" || cfg.MQTT.Port != 1883 {
		t.Fatalf("mqtt defaults = %+v", cfg.MQTT)
	}
	if cfg.MQTT.Prefix != "sector2mqtt" || cfg.HomeAssistant.Prefix != "homeassistant" {
		t.Fatalf("prefix defaults = %q %q", cfg.MQTT.Prefix, cfg.HomeAssistant.Prefix)
	}
	if cfg.Log != "info" {
		t.Fatalf("log default = %q", cfg.Log)
	}
	if cfg.Sector.UpdateIntervalDuration() != 60*time.Second {
		t.Fatalf("update interval = %v", cfg.Sector.UpdateIntervalDuration())
	}
	if cfg.Sector.PanelInfoIntervalDuration() != 600*time.Second {
		t.Fatalf("panel info interval = %v", cfg.Sector.PanelInfoIntervalDuration())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	path := writeConfig(t, `
sector:
  username: user@example.com
  password: hunter2
  panel_id: "P123"
  panel_code: "1234"
  update_interval: 30
  disable_lock_status: true
mqtt:
  host: broker.local
  port: 8883
  prefix: alarm
homeassistant:
  discovery: true
log: debug
cache: true
`)
	cfg, err := LoadConfig(path)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}
	if cfg.MQTT.Host != "broker.local" || cfg.MQTT.Port != 8883 || cfg.MQTT.Prefix != "alarm" {
		t.Fatalf("mqtt = %+v", cfg.MQTT)
	}
	if !cfg.Sector.DisableLockStatus || cfg.Sector.PanelCode != "1234" {
		t.Fatalf("sector = %+v", cfg.Sector)
	}
	if cfg.Sector.UpdateIntervalDuration() != 30*time.Second {
		t.Fatalf("update interval = %v", cfg.Sector.UpdateIntervalDuration())
	}
	if !cfg.HomeAssistant.Discovery || !cfg.Cache || cfg.Log != "debug" {
		t.Fatalf("cfg = %+v", cfg)
	}
}

func TestLoadConfigRequiresCredentials(t *testing.T) {
	path := writeConfig(t, `
sector:
  panel_id: "P123"
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error without credentials")
	}
}

func TestLoadConfigRequiresPanelID(t *testing.T) {
	path := writeConfig(t, `
sector:
  username: user@example.com
  password: hunter2
`)
	if _, err := LoadConfig(path); err == nil {
		t.Fatal("expected an error without a panel id")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected an error for a missing file")
	}
}
