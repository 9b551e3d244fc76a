package mqtt

import (
	"fmt"

	"github.com/akerman/sector2mqtt/internal/util"
)

type Topics struct {
	prefix string
}

func NewTopics(prefix string) *Topics {
	return &Topics{prefix: prefix}
}

func (t *Topics) Status() string {
	return fmt.Sprintf("%s/status", t.prefix)
}

func (t *Topics) Alarm() string {
	return fmt.Sprintf("%s/alarm", t.prefix)
}

func (t *Topics) AlarmCommand() string {
	return fmt.Sprintf("%s/alarm/command", t.prefix)
}

func (t *Topics) DeviceEntity(serialNo, model string) string {
	return fmt.Sprintf("%s/device/%s/%s", t.prefix, serialNo, util.Slugify(model))
}

func (t *Topics) LockCommand(serialNo string) string {
	return fmt.Sprintf("%s/lock/%s/command", t.prefix, serialNo)
}

func (t *Topics) LockCommandWildcard() string {
	return fmt.Sprintf("%s/lock/+/command", t.prefix)
}

func (t *Topics) SwitchCommand(serialNo string) string {
	return fmt.Sprintf("%s/switch/%s/command", t.prefix, serialNo)
}

func (t *Topics) SwitchCommandWildcard() string {
	return fmt.Sprintf("%s/switch/+/command", t.prefix)
}

func (t *Topics) Event() string {
	return fmt.Sprintf("%s/event", t.prefix)
}
