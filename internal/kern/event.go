package kern

import "time"

// EventKind classifies scheduler trace events.
type EventKind int

const (
	EventBoot EventKind = iota
	EventCreate
	EventDispatch
	EventSleep
	EventWake
	EventExit
	EventOOM
	EventIdle
	EventTick
)

func (k EventKind) String() string {
	switch k {
	case EventBoot:
		return "boot"
	case EventCreate:
		return "create"
	case EventDispatch:
		return "dispatch"
	case EventSleep:
		return "sleep"
	case EventWake:
		return "wake"
	case EventExit:
		return "exit"
	case EventOOM:
		return "oom"
	case EventIdle:
		return "idle"
	case EventTick:
		return "tick"
	default:
		return "unknown"
	}
}

// Event is one entry in the scheduler's trace stream.
type Event struct {
	Time     time.Time
	Tick     int64
	Kind     EventKind
	Task     TaskID
	Name     string
	Priority Priority
	WakeTick int64
}
