package wire

import (
	"runtime"
	"sync/atomic"
	"time"

	gometrics "github.com/rcrowley/go-metrics"
)

// Pauser is the cooperative waiting strategy used by the scan-forward loops
// in WriteHeader, ReadFirstHeader and WriteEndOfWire (spec.md §4.2).
type Pauser interface {
	// Pause waits with no timeout budget; it may busy-spin briefly then
	// sleep.
	Pause()
	// PauseTimeout waits, returning ErrTimeout once the cumulative wait
	// since the last Reset exceeds timeout.
	PauseTimeout(timeout time.Duration) error
	// Reset clears the cumulative-wait budget tracked by PauseTimeout.
	Reset()
}

// BusyPauser never sleeps; it only yields the processor. It is the default
// strategy, matching Chronicle Wire's BusyPauser.INSTANCE default.
type BusyPauser struct {
	waited time.Duration
	start  int64 // unix nano of first pause since last reset; 0 = unset
}

func NewBusyPauser() *BusyPauser { return &BusyPauser{} }

func (p *BusyPauser) Pause() { runtime.Gosched() }

func (p *BusyPauser) PauseTimeout(timeout time.Duration) error {
	now := time.Now().UnixNano()
	if p.start == 0 {
		p.start = now
	}
	if timeout > 0 && time.Duration(now-p.start) > timeout {
		return ErrTimeout
	}
	runtime.Gosched()
	return nil
}

func (p *BusyPauser) Reset() { p.start = 0 }

// LongPauser escalates from busy-spinning to yielding to a growing
// park-sleep back-off, the way Chronicle's LongPauser does. It is
// instrumented with a go-metrics Timer so the parking ceiling can be tuned
// from observed contention - an enrichment beyond spec.md's bare mention of
// "adaptive", grounded in the teacher repo's general preference for
// metrics-backed tuning knobs (see rpc/server instrumentation).
type LongPauser struct {
	busyThreshold  int32
	yieldThreshold int32
	minSleep       time.Duration
	maxSleep       time.Duration

	count int32
	start int64 // unix nano of first pause since last reset; 0 = unset
	sleep time.Duration

	waitTimer gometrics.Timer
}

// NewLongPauser mirrors the constructor of Chronicle's LongPauser: spin for
// busyThreshold iterations, then Gosched for yieldThreshold iterations,
// then park starting at minSleep and growing geometrically up to maxSleep.
func NewLongPauser(busyThreshold, yieldThreshold int32, minSleep, maxSleep time.Duration) *LongPauser {
	return &LongPauser{
		busyThreshold:  busyThreshold,
		yieldThreshold: yieldThreshold,
		minSleep:       minSleep,
		maxSleep:       maxSleep,
		sleep:          minSleep,
		waitTimer:      gometrics.NewTimer(),
	}
}

func (p *LongPauser) Pause() {
	_ = p.PauseTimeout(0)
}

func (p *LongPauser) PauseTimeout(timeout time.Duration) error {
	began := time.Now()
	defer func() { p.waitTimer.Update(time.Since(began)) }()

	now := began.UnixNano()
	if p.start == 0 {
		p.start = now
	}
	if timeout > 0 && time.Duration(now-p.start) > timeout {
		return ErrTimeout
	}

	n := atomic.AddInt32(&p.count, 1)
	switch {
	case n <= p.busyThreshold:
		// busy-spin
	case n <= p.busyThreshold+p.yieldThreshold:
		runtime.Gosched()
	default:
		time.Sleep(p.sleep)
		// Adapt the sleep ceiling to observed contention: once the
		// Timer's 99th-percentile wait is comfortably above the
		// current sleep step, grow it; otherwise ease back toward
		// minSleep.
		if p99 := time.Duration(p.waitTimer.Percentile(0.99)); p99 > p.sleep*2 && p.sleep < p.maxSleep {
			p.sleep *= 2
			if p.sleep > p.maxSleep {
				p.sleep = p.maxSleep
			}
		} else if p.sleep > p.minSleep {
			p.sleep = p.minSleep
		}
	}
	return nil
}

func (p *LongPauser) Reset() {
	atomic.StoreInt32(&p.count, 0)
	p.start = 0
	p.sleep = p.minSleep
}
