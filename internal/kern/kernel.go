package kern

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"strconv"
	"sync"
	"time"

	"github.com/emirpasic/gods/trees/redblacktree"
	"github.com/google/uuid"

	"tinyrt/internal/console"
)

var (
	// ErrOutOfMemory reports that a task's stack reservation does not fit
	// in the remaining heap budget.
	ErrOutOfMemory = errors.New("kern: out of memory")

	// ErrKernelStopped is returned from Sleep once the kernel shuts down.
	ErrKernelStopped = errors.New("kern: kernel stopped")
)

// Kernel is a host-side stand-in for a preemptive real-time kernel: a tick
// clock, a priority-ordered ready queue, a wake-tick-ordered sleep queue,
// and a dispatch loop driving one task at a time. Tasks yield the processor
// only through TaskContext.Sleep, so dispatch decisions happen at yield
// points; among ready tasks the highest priority always runs first.
type Kernel struct {
	mu       sync.Mutex
	cfg      Config
	log      *console.Logger
	bootID   uuid.UUID
	clock    *tickClock
	ready    *redblacktree.Tree // readyKey{prio, seq} -> *task
	asleep   *redblacktree.Tree // sleepKey{wake, id} -> *task
	tasks    map[TaskID]*task
	running  *task
	nextID   TaskID
	nextSeq  uint64
	heapFree int
	idled    bool

	events  chan Event
	yieldCh chan yieldReq
	exitCh  chan *task
	kick    chan struct{}
	stopped chan struct{}

	csvFile *os.File
	csvW    *csv.Writer
}

type yieldReq struct {
	t    *task
	wake int64
}

// New builds a kernel from the given configuration. Nothing runs until Run.
func New(cfg Config, log *console.Logger) *Kernel {
	if cfg.TickMS <= 0 {
		cfg.TickMS = 10
	}
	if cfg.HeapBytes <= 0 {
		cfg.HeapBytes = 256 << 10
	}
	if cfg.DefaultStack < MinStackBytes {
		cfg.DefaultStack = 4096
	}

	return &Kernel{
		cfg:      cfg,
		log:      log,
		bootID:   uuid.New(),
		clock:    newTickClock(time.Duration(cfg.TickMS)*time.Millisecond, 256),
		ready:    redblacktree.NewWith(readyCmp),
		asleep:   redblacktree.NewWith(sleepCmp),
		tasks:    make(map[TaskID]*task),
		heapFree: cfg.HeapBytes,
		events:   make(chan Event, 256),
		yieldCh:  make(chan yieldReq),
		exitCh:   make(chan *task),
		kick:     make(chan struct{}, 1),
		stopped:  make(chan struct{}),
	}
}

// EnableTrace opens the given path for a CSV trace of scheduler events.
// Must be called before Run.
func (k *Kernel) EnableTrace(path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("kern: open trace: %w", err)
	}
	w := csv.NewWriter(f)
	w.Write([]string{"timestamp", "tick", "event", "task_id", "name", "priority", "wake_tick"})
	w.Flush()
	k.csvFile = f
	k.csvW = w
	return nil
}

// BootID identifies this boot of the kernel.
func (k *Kernel) BootID() uuid.UUID { return k.bootID }

// TickMS reports the tick period in milliseconds.
func (k *Kernel) TickMS() int { return k.cfg.TickMS }

// Now reports time since boot, at tick granularity.
func (k *Kernel) Now() time.Duration {
	return time.Duration(k.clock.Count()) * time.Duration(k.cfg.TickMS) * time.Millisecond
}

// HeapFree reports how many bytes of the heap budget remain unreserved.
func (k *Kernel) HeapFree() int {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.heapFree
}

// CreateTask validates the spec, reserves its stack against the heap
// budget, and enqueues the task ready. It returns as soon as the task is
// queued; the task first runs whenever the scheduler dispatches it. Safe to
// call before or during Run.
func (k *Kernel) CreateTask(spec TaskSpec) (TaskHandle, error) {
	if spec.Entry == nil {
		return TaskHandle{}, errors.New("kern: task entry must not be nil")
	}
	if spec.Name == "" {
		return TaskHandle{}, errors.New("kern: task name must not be empty")
	}
	stack := spec.StackBytes
	if stack <= 0 {
		stack = k.cfg.DefaultStack
	}
	if stack < MinStackBytes {
		stack = MinStackBytes
	}
	prio := spec.Priority
	if prio < PriorityIdle {
		prio = PriorityIdle
	} else if prio > PriorityMax {
		prio = PriorityMax
	}

	k.mu.Lock()
	if stack > k.heapFree {
		free := k.heapFree
		k.mu.Unlock()
		k.emit(Event{Kind: EventOOM, Name: spec.Name})
		return TaskHandle{}, fmt.Errorf("kern: create %q: stack %d exceeds free heap %d: %w",
			spec.Name, stack, free, ErrOutOfMemory)
	}
	k.heapFree -= stack
	k.nextID++
	t := &task{
		id:     k.nextID,
		name:   spec.Name,
		entry:  spec.Entry,
		stack:  stack,
		prio:   prio,
		arg:    spec.Arg,
		seq:    k.nextSeq,
		resume: make(chan struct{}),
	}
	k.nextSeq++
	k.tasks[t.id] = t
	k.ready.Put(readyKey{prio: t.prio, seq: t.seq}, t)
	k.mu.Unlock()

	k.emit(Event{Kind: EventCreate, Task: t.id, Name: t.name, Priority: t.prio})

	// nudge the dispatcher in case it is idling
	select {
	case k.kick <- struct{}{}:
	default:
	}

	return TaskHandle{id: t.id, name: t.name}, nil
}

// Run starts the tick clock and the dispatch loop, then consumes trace
// events until ctx is cancelled. Tasks blocked in Sleep observe the
// shutdown and unwind on their own goroutines.
func (k *Kernel) Run(ctx context.Context) error {
	k.clock.Start()
	k.log.Infof("kern", "boot %s board=%s tick=%dms heap=%d bytes",
		k.bootID, k.cfg.Board, k.cfg.TickMS, k.cfg.HeapBytes)
	k.emit(Event{Kind: EventBoot})

	go k.loop(ctx)

	for {
		select {
		case ev := <-k.events:
			k.trace(ev)
		case <-k.stopped:
			// drain whatever the loop emitted before stopping
			for {
				select {
				case ev := <-k.events:
					k.trace(ev)
				default:
					if k.csvFile != nil {
						k.csvW.Flush()
						k.csvFile.Close()
					}
					return nil
				}
			}
		}
	}
}

func (k *Kernel) loop(ctx context.Context) {
	defer func() {
		k.clock.Stop()
		close(k.stopped)
	}()

	for {
		k.dispatch()

		select {
		case <-ctx.Done():
			return
		case <-k.clock.C:
			k.onTick()
		case req := <-k.yieldCh:
			k.onYield(req)
		case t := <-k.exitCh:
			k.onExit(t)
		case <-k.kick:
		}
	}
}

// dispatch hands the processor to the highest-priority ready task, if the
// processor is free. First dispatch starts the task goroutine; later ones
// unblock its pending Sleep.
func (k *Kernel) dispatch() {
	k.mu.Lock()
	if k.running != nil {
		k.mu.Unlock()
		return
	}
	node := k.ready.Left()
	if node == nil {
		k.mu.Unlock()
		return
	}
	key := node.Key.(readyKey)
	t := node.Value.(*task)
	k.ready.Remove(key)
	k.running = t
	k.idled = false
	started := t.started
	t.started = true
	k.mu.Unlock()

	k.emit(Event{Kind: EventDispatch, Task: t.id, Name: t.name, Priority: t.prio})

	if !started {
		go k.runTask(t)
	} else {
		t.resume <- struct{}{}
	}
}

func (k *Kernel) runTask(t *task) {
	tc := &TaskContext{k: k, t: t}
	t.entry(tc)

	select {
	case k.exitCh <- t:
	case <-k.stopped:
	}
}

func (k *Kernel) onTick() {
	now := k.clock.Count()

	k.mu.Lock()
	var woken []*task
	for {
		node := k.asleep.Left()
		if node == nil {
			break
		}
		key := node.Key.(sleepKey)
		if key.wake > now {
			break
		}
		t := node.Value.(*task)
		k.asleep.Remove(key)
		t.seq = k.nextSeq
		k.nextSeq++
		k.ready.Put(readyKey{prio: t.prio, seq: t.seq}, t)
		woken = append(woken, t)
	}
	idle := k.running == nil && k.ready.Size() == 0 && !k.idled
	if idle {
		k.idled = true
	}
	k.mu.Unlock()

	for _, t := range woken {
		k.emit(Event{Kind: EventWake, Task: t.id, Name: t.name, Priority: t.prio})
	}
	if idle {
		k.emit(Event{Kind: EventIdle})
	} else {
		k.emit(Event{Kind: EventTick})
	}
}

func (k *Kernel) onYield(req yieldReq) {
	t := req.t
	now := k.clock.Count()

	k.mu.Lock()
	if k.running == t {
		k.running = nil
	}
	if req.wake <= now {
		// zero-delay yield: straight back to the ready queue
		t.seq = k.nextSeq
		k.nextSeq++
		k.ready.Put(readyKey{prio: t.prio, seq: t.seq}, t)
	} else {
		k.asleep.Put(sleepKey{wake: req.wake, id: t.id}, t)
	}
	k.mu.Unlock()

	k.emit(Event{Kind: EventSleep, Task: t.id, Name: t.name, WakeTick: req.wake})
}

func (k *Kernel) onExit(t *task) {
	k.mu.Lock()
	if k.running == t {
		k.running = nil
	}
	delete(k.tasks, t.id)
	k.heapFree += t.stack
	k.mu.Unlock()

	k.emit(Event{Kind: EventExit, Task: t.id, Name: t.name})
}

// ticksFor converts a wall-clock delay into ticks. It rounds up and adds
// one tick to cover the partial interval between the call and the next
// tick boundary, so the task never wakes before the requested duration has
// passed.
func (k *Kernel) ticksFor(d time.Duration) int64 {
	if d <= 0 {
		return 0
	}
	tick := time.Duration(k.cfg.TickMS) * time.Millisecond
	n := int64((d + tick - 1) / tick)
	if n < 1 {
		n = 1
	}
	return n + 1
}

func (k *Kernel) emit(ev Event) {
	ev.Time = time.Now()
	ev.Tick = k.clock.Count()

	select {
	case <-k.stopped:
	default:
		select {
		case k.events <- ev:
		case <-k.stopped:
		}
	}
}

// trace logs one event to the console at verbose level and to the CSV
// trace if enabled. Ticks are far too chatty to record.
func (k *Kernel) trace(ev Event) {
	if ev.Kind == EventTick {
		return
	}

	k.log.Verbosef("kern", "tick=%06d %-8s task=%03d %s", ev.Tick, ev.Kind, ev.Task, ev.Name)

	if k.csvW != nil {
		k.csvW.Write([]string{
			ev.Time.Format(time.RFC3339Nano),
			strconv.FormatInt(ev.Tick, 10),
			ev.Kind.String(),
			strconv.FormatUint(uint64(ev.Task), 10),
			ev.Name,
			strconv.Itoa(int(ev.Priority)),
			strconv.FormatInt(ev.WakeTick, 10),
		})
		k.csvW.Flush()
	}
}

// readyKey orders the ready queue: highest priority first, then FIFO.
type readyKey struct {
	prio Priority
	seq  uint64
}

func readyCmp(a, b any) int {
	ka, kb := a.(readyKey), b.(readyKey)
	switch {
	case ka.prio > kb.prio:
		return -1
	case ka.prio < kb.prio:
		return 1
	case ka.seq < kb.seq:
		return -1
	case ka.seq > kb.seq:
		return 1
	default:
		return 0
	}
}

// sleepKey orders the sleep queue by wake tick.
type sleepKey struct {
	wake int64
	id   TaskID
}

func sleepCmp(a, b any) int {
	ka, kb := a.(sleepKey), b.(sleepKey)
	switch {
	case ka.wake < kb.wake:
		return -1
	case ka.wake > kb.wake:
		return 1
	case ka.id < kb.id:
		return -1
	case ka.id > kb.id:
		return 1
	default:
		return 0
	}
}
