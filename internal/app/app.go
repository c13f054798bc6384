// Package app is the firmware payload: one periodic task that announces
// liveness on the diagnostic console once per second.
package app

import (
	"fmt"
	"time"

	"tinyrt/internal/console"
	"tinyrt/internal/kern"
)

const (
	tag              = "app"
	announceMessage  = "hello from the announce task"
	announceInterval = 1000 * time.Millisecond
	announceStack    = 4096
)

// System is the slice of the kernel the application touches: it can create
// tasks and nothing else. Everything after registration happens on the
// kernel's scheduler.
type System interface {
	CreateTask(kern.TaskSpec) (kern.TaskHandle, error)
}

// Main registers the announce task and returns immediately; it never waits
// for the task to run. A creation failure is returned to the caller, which
// treats it as fatal to boot.
func Main(sys System, log *console.Logger) error {
	_, err := sys.CreateTask(kern.TaskSpec{
		Name:       "announce",
		Entry:      func(tc *kern.TaskContext) { announce(tc, log, announceInterval) },
		StackBytes: announceStack,
		Priority:   kern.PriorityIdle + 1,
	})
	if err != nil {
		return fmt.Errorf("app: create announce task: %w", err)
	}
	return nil
}

// announce loops forever: one log line, then one timed yield. It unwinds
// only when the kernel shuts down.
func announce(tc *kern.TaskContext, log *console.Logger, interval time.Duration) {
	for {
		log.Infof(tag, announceMessage)
		if err := tc.Sleep(interval); err != nil {
			return
		}
	}
}
