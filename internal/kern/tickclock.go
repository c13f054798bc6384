package kern

import (
	"sync/atomic"
	"time"
)

// tickClock drives the scheduler timebase: one channel send per tick plus
// an atomic count for delay math and timestamps.
type tickClock struct {
	C        chan struct{}
	interval time.Duration
	count    atomic.Int64
	stop     chan struct{}
}

func newTickClock(interval time.Duration, buffer int) *tickClock {
	return &tickClock{
		C:        make(chan struct{}, buffer),
		interval: interval,
		stop:     make(chan struct{}),
	}
}

// Start begins emitting ticks at the clock's interval.
func (c *tickClock) Start() {
	ticker := time.NewTicker(c.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				c.count.Add(1)
				select {
				case c.C <- struct{}{}:
				default:
					// consumer is behind; the count still advances
				}
			case <-c.stop:
				close(c.C)
				return
			}
		}
	}()
}

// Stop signals the clock to stop emitting ticks.
func (c *tickClock) Stop() {
	close(c.stop)
}

// Count returns how many ticks have elapsed since Start.
func (c *tickClock) Count() int64 {
	return c.count.Load()
}
