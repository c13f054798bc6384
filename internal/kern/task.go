package kern

import "time"

// TaskID uniquely identifies a task for the lifetime of a boot.
type TaskID uint64

// Priority ranks ready tasks: higher values dispatch before lower ones.
type Priority int

const (
	PriorityIdle Priority = 0
	PriorityMax  Priority = 24
)

// MinStackBytes is the smallest stack reservation the kernel accepts;
// smaller requests are rounded up.
const MinStackBytes = 2048

// EntryFunc is a task body. It runs on the kernel's scheduler and yields
// only through its TaskContext. Returning ends the task.
type EntryFunc func(tc *TaskContext)

// TaskSpec carries the immutable creation-time parameters of a task.
type TaskSpec struct {
	Name       string
	Entry      EntryFunc
	StackBytes int // 0 means Config.DefaultStack
	Priority   Priority
	Arg        any // opaque, handed to the entry via TaskContext
}

// TaskHandle identifies a created task. Callers may discard it; the kernel
// keeps its own reference.
type TaskHandle struct {
	id   TaskID
	name string
}

func (h TaskHandle) ID() TaskID   { return h.id }
func (h TaskHandle) Name() string { return h.name }

// task is the control block. seq orders tasks of equal priority FIFO.
type task struct {
	id      TaskID
	name    string
	entry   EntryFunc
	stack   int
	prio    Priority
	arg     any
	seq     uint64
	started bool
	resume  chan struct{}
}

// TaskContext is the running task's view of the kernel: identity, the
// opaque creation argument, and the one suspension primitive.
type TaskContext struct {
	k *Kernel
	t *task
}

func (tc *TaskContext) ID() TaskID   { return tc.t.id }
func (tc *TaskContext) Name() string { return tc.t.name }
func (tc *TaskContext) Arg() any     { return tc.t.arg }

// Sleep suspends the calling task for at least d of wall-clock time. The
// duration is converted to ticks rounding up, so the task never wakes
// earlier than requested; it may wake later when higher-priority tasks are
// ready. Sleep(0) yields the processor without delaying.
//
// Returns ErrKernelStopped once the kernel shuts down so the task body can
// unwind.
func (tc *TaskContext) Sleep(d time.Duration) error {
	k, t := tc.k, tc.t

	wake := k.clock.Count() + k.ticksFor(d)
	select {
	case k.yieldCh <- yieldReq{t: t, wake: wake}:
	case <-k.stopped:
		return ErrKernelStopped
	}
	select {
	case <-t.resume:
		return nil
	case <-k.stopped:
		return ErrKernelStopped
	}
}
