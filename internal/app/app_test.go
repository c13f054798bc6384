package app

import (
	"bytes"
	"context"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"tinyrt/internal/console"
	"tinyrt/internal/kern"
)

type fakeSystem struct {
	specs []kern.TaskSpec
	err   error
}

func (f *fakeSystem) CreateTask(spec kern.TaskSpec) (kern.TaskHandle, error) {
	f.specs = append(f.specs, spec)
	return kern.TaskHandle{}, f.err
}

func TestMainRegistersExactlyOneTask(t *testing.T) {
	sys := &fakeSystem{}
	log := console.New(console.Options{Writer: io.Discard})

	if err := Main(sys, log); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(sys.specs) != 1 {
		t.Fatalf("expected 1 task, got %d", len(sys.specs))
	}

	spec := sys.specs[0]
	if spec.Name != "announce" {
		t.Fatalf("task name = %q", spec.Name)
	}
	if spec.StackBytes != 4096 {
		t.Fatalf("stack = %d, want 4096", spec.StackBytes)
	}
	if spec.Priority != kern.PriorityIdle+1 {
		t.Fatalf("priority = %d, want idle+1", spec.Priority)
	}
	if spec.Entry == nil {
		t.Fatalf("entry is nil")
	}
	if spec.Arg != nil {
		t.Fatalf("arg should be unused, got %v", spec.Arg)
	}
}

func TestMainPropagatesCreationFailure(t *testing.T) {
	sys := &fakeSystem{err: kern.ErrOutOfMemory}
	log := console.New(console.Options{Writer: io.Discard})

	err := Main(sys, log)
	if !errors.Is(err, kern.ErrOutOfMemory) {
		t.Fatalf("expected wrapped ErrOutOfMemory, got %v", err)
	}
}

type lockedBuffer struct {
	mu  sync.Mutex
	buf bytes.Buffer
}

func (b *lockedBuffer) Write(p []byte) (int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.Write(p)
}

func (b *lockedBuffer) String() string {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.buf.String()
}

var announceLineRe = regexp.MustCompile(`^I \((\d+)\) app: hello from the announce task$`)

// Boots a real kernel at a 1 ms tick and runs the announce loop at a short
// interval so cadence can be observed in tens of milliseconds.
func TestAnnounceTaskLivenessAndCadence(t *testing.T) {
	const interval = 10 * time.Millisecond

	var buf lockedBuffer
	log := console.New(console.Options{Writer: &buf})
	k := kern.New(kern.Config{TickMS: 1, HeapBytes: 64 << 10}, log)

	_, err := k.CreateTask(kern.TaskSpec{
		Name:  "announce",
		Entry: func(tc *kern.TaskContext) { announce(tc, log, interval) },
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 120*time.Millisecond)
	defer cancel()
	if err := k.Run(ctx); err != nil {
		t.Fatalf("kernel run: %v", err)
	}

	var stamps []int
	for _, line := range strings.Split(strings.TrimRight(buf.String(), "\n"), "\n") {
		m := announceLineRe.FindStringSubmatch(line)
		if m == nil {
			continue // kernel banner and trace lines
		}
		ms, _ := strconv.Atoi(m[1])
		stamps = append(stamps, ms)
	}

	if len(stamps) < 4 {
		t.Fatalf("expected at least 4 announce lines, got %d:\n%s", len(stamps), buf.String())
	}
	// boot scenario: the first record must land within one interval plus a
	// scheduling-jitter allowance, not merely exist
	if bound := int(interval.Milliseconds()) + 40; stamps[0] > bound {
		t.Fatalf("first announce too late after boot: %d ms > %d ms", stamps[0], bound)
	}
	for i := 1; i < len(stamps); i++ {
		// timestamps are truncated to whole milliseconds, so allow 1 ms
		if gap := stamps[i] - stamps[i-1]; gap < int(interval.Milliseconds())-1 {
			t.Fatalf("announce %d came early: gap %d ms", i, gap)
		}
	}
}

func TestAnnounceUnwindsOnShutdown(t *testing.T) {
	log := console.New(console.Options{Writer: io.Discard})
	k := kern.New(kern.Config{TickMS: 1, HeapBytes: 64 << 10}, log)

	done := make(chan struct{})
	_, err := k.CreateTask(kern.TaskSpec{
		Name: "announce",
		Entry: func(tc *kern.TaskContext) {
			defer close(done)
			announce(tc, log, time.Hour)
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	runDone := make(chan struct{})
	go func() {
		defer close(runDone)
		k.Run(ctx)
	}()

	time.Sleep(20 * time.Millisecond) // let the task reach its sleep
	cancel()
	<-runDone

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatalf("announce loop never unwound after shutdown")
	}
}
