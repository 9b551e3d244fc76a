package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/akerman/sector2mqtt/internal/cache"
	"github.com/akerman/sector2mqtt/internal/command"
	"github.com/akerman/sector2mqtt/internal/config"
	"github.com/akerman/sector2mqtt/internal/coordinator"
	"github.com/akerman/sector2mqtt/internal/homeassistant"
	"github.com/akerman/sector2mqtt/internal/log"
	"github.com/akerman/sector2mqtt/internal/mqtt"
	"github.com/akerman/sector2mqtt/internal/registry"
	"github.com/akerman/sector2mqtt/internal/sector"
)

const startupTimeout = 60 * time.Second

func main() {
	configFile := flag.String("config", "config.yml", "Path to configuration file")
	flag.Parse()

	cfg, err := config.LoadConfig(*configFile)
	if err != nil {
		fmt.Printf("Error loading config: %v\n", err)
		os.Exit(1)
	}

	logger := log.NewLogger(cfg.Log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	client := sector.NewClient(cfg.Sector.BaseURL, cfg.Sector.Username, cfg.Sector.Password, cfg.Sector.PanelID, logger)

	startupCtx, startupCancel := context.WithTimeout(ctx, startupTimeout)
	defer startupCancel()

	if err := client.Login(startupCtx); err != nil {
		logger.Error("Failed to log in to Sector Alarm: %v", err)
		os.Exit(1)
	}

	// Check that the configured panel actually exists on the account.
	if panels, err := client.GetPanelList(startupCtx); err != nil {
		logger.Warning("Failed to retrieve panel list: %v", err)
	} else if !panelListed(panels, cfg.Sector.PanelID) {
		logger.Warning("Panel %s not found on account, proceeding anyway", cfg.Sector.PanelID)
	}

	reg := registry.NewRegistry(logger)

	if cfg.Cache {
		data, err := cache.LoadCache(cfg.Sector.PanelID)
		if err != nil {
			logger.Warning("Failed to load cache: %v", err)
		} else if data != nil {
			reg.Restore(data.Devices)
			logger.Info("Restored %d devices from cache", reg.Len())
		}
	}

	panelInfo := coordinator.NewPanelInfoCoordinator(client, logger, cfg.Sector.PanelInfoIntervalDuration())

	actionMandatory := []sector.DataEndpointType{sector.EndpointPanelStatus}
	if !cfg.Sector.DisableLogEvents {
		actionMandatory = append(actionMandatory, sector.EndpointLogs)
	}
	var actionOptional []sector.DataEndpointType
	if !cfg.Sector.DisableLockStatus {
		actionOptional = append(actionOptional, sector.EndpointLockStatus)
	}
	if !cfg.Sector.DisablePlugStatus {
		actionOptional = append(actionOptional, sector.EndpointSmartPlugStatus)
	}

	sensorOptional := []sector.DataEndpointType{
		sector.EndpointDoorsAndWindows,
		sector.EndpointSmokeDetectors,
		sector.EndpointLeakageDetectors,
		sector.EndpointCameras,
	}
	if !cfg.Sector.DisableTemperatures {
		sensorOptional = append(sensorOptional,
			sector.EndpointHumidity,
			sector.EndpointTemperatures,
			sector.EndpointTemperaturesLegacy,
		)
	}

	interval := cfg.Sector.UpdateIntervalDuration()
	action := coordinator.NewDeviceCoordinator("action", client, panelInfo, reg, actionMandatory, actionOptional, interval, logger)
	sensors := coordinator.NewDeviceCoordinator("sensors", client, panelInfo, reg, nil, sensorOptional, interval, logger)

	executor := command.NewExecutor(client, action, logger)
	action.AddListener(executor.ClearAll)

	mqttClient := mqtt.NewMQTT(&cfg.MQTT, &cfg.Sector, reg, executor, action, sensors, logger)
	action.AddListener(mqttClient.PublishAll)
	sensors.AddListener(mqttClient.PublishAll)
	executor.AddListener(mqttClient.PublishAll)
	if !cfg.Sector.DisableLogEvents {
		action.OnEvent(mqttClient.PublishEvent)
	}

	onReauth := func(err error) {
		logger.Error("Authentication no longer valid, check credentials: %v", err)
	}
	panelInfo.OnReauthRequired(onReauth)
	action.OnReauthRequired(onReauth)
	sensors.OnReauthRequired(onReauth)

	// Prime the registry before the broker sees us.
	if err := panelInfo.Refresh(startupCtx); err != nil {
		logger.Error("Initial panel information fetch failed: %v", err)
		os.Exit(1)
	}
	if err := action.Refresh(startupCtx); err != nil {
		logger.Warning("Initial refresh failed: %v", err)
	}
	if err := sensors.Refresh(startupCtx); err != nil {
		logger.Warning("Initial refresh failed: %v", err)
	}

	if err := mqttClient.Connect(); err != nil {
		logger.Error("Failed to connect to MQTT broker: %v", err)
		os.Exit(1)
	}

	if cfg.HomeAssistant.Discovery {
		ha := homeassistant.New(&cfg.HomeAssistant, mqttClient, reg, logger)
		ha.Start()
		// Devices that only show up after startup still get announced.
		action.AddListener(ha.Refresh)
		sensors.AddListener(ha.Refresh)
	}

	go panelInfo.Run(ctx)
	go action.Run(ctx)
	go sensors.Run(ctx)

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	<-sigChan

	logger.Info("Shutting down...")
	cancel()

	if cfg.Cache {
		if err := cache.SaveCache(cfg.Sector.PanelID, panelInfo.PanelInfo(), reg); err != nil {
			logger.Warning("Failed to save cache: %v", err)
		} else {
			logger.Info("Saved device snapshot to cache")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()
	if err := client.Logout(shutdownCtx); err != nil {
		logger.Debug("Logout failed: %v", err)
	}

	mqttClient.Close()
}

func panelListed(panels []sector.PanelSummary, panelID string) bool {
	for _, p := range panels {
		if p.PanelID == panelID {
			return true
		}
	}
	return false
}
