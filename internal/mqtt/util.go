package mqtt

import "strings"

// topicSerial extracts the device serial from a command topic shaped like
// <prefix>/lock/<serial>/command.
func topicSerial(topic string) string {
	parts := strings.Split(topic, "/")
	if len(parts) < 2 {
		return ""
	}
	return parts[len(parts)-2]
}

// alarmStateName maps the vendor's numeric panel state to the conventional
// alarm state string.
func alarmStateName(status int) string {
	switch status {
	case 1:
		return "disarmed"
	case 2:
		return "armed_home"
	case 3:
		return "armed_away"
	default:
		return "unknown"
	}
}
