package mqtt

import "testing"

func TestTopicShapes(t *testing.T) {
	topics := NewTopics("sector2mqtt")

	cases := []struct {
		got  string
		want string
	}{
		{topics.Status(), "sector2mqtt/status"},
		{topics.Alarm(), "sector2mqtt/alarm"},
		{topics.AlarmCommand(), "sector2mqtt/alarm/command"},
		{topics.DeviceEntity("L1", "Smart Lock"), "sector2mqtt/device/L1/smart-lock"},
		{topics.LockCommand("L1"), "sector2mqtt/lock/L1/command"},
		{topics.LockCommandWildcard(), "sector2mqtt/lock/+/command"},
		{topics.SwitchCommand("PL1"), "sector2mqtt/switch/PL1/command"},
		{topics.SwitchCommandWildcard(), "sector2mqtt/switch/+/command"},
		{topics.Event(), "sector2mqtt/event"},
	}
	for _, c := range cases {
		if c.got != c.want {
			t.Errorf("topic = %q, want %q", c.got, c.want)
		}
	}
}

func TestTopicSerial(t *testing.T) {
	if got := topicSerial("sector2mqtt/lock/L1/command"); got != "L1" {
		t.Errorf("topicSerial = %q", got)
	}
	if got := topicSerial("sector2mqtt/switch/PL1/command"); got != "PL1" {
		t.Errorf("topicSerial = %q", got)
	}
	if got := topicSerial("short"); got != "" {
		t.Errorf("topicSerial on malformed topic = %q", got)
	}
}

func TestAlarmStateName(t *testing.T) {
	cases := map[int]string{
		1:  "disarmed",
		2:  "armed_home",
		3:  "armed_away",
		0:  "unknown",
		99: "unknown",
	}
	for status, want := range cases {
		if got := alarmStateName(status); got != want {
			t.Errorf("alarmStateName(%d) = %q, want %q", status, got, want)
		}
	}
}
