package homeassistant

import (
	"strings"

	"github.com/akerman/sector2mqtt/internal/coordinator"
	"github.com/akerman/sector2mqtt/internal/registry"
)

func getDeviceClass(entity registry.Entity, sensor string) string {
	switch sensor {
	case "low_battery":
		return "battery"
	case "online":
		return "connectivity"
	case "temperature":
		return "temperature"
	case "humidity":
		return "humidity"
	case "closed":
		// Guess door versus window from the entity name.
		if strings.Contains(strings.ToLower(entity.Name), "window") {
			return "window"
		}
		return "door"
	case "alarm":
		switch entity.Model {
		case coordinator.ModelSmokeDetector:
			return "smoke"
		case coordinator.ModelLeakageDetector:
			return "moisture"
		}
		return "safety"
	}
	return ""
}

func unitOfMeasurement(sensor string) string {
	switch sensor {
	case "temperature":
		return "°C"
	case "humidity":
		return "%"
	}
	return ""
}
