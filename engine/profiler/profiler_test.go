package profiler

import (
	"testing"
	"time"
)

func TestProfilerReport(t *testing.T) {
	start := time.Unix(0, 0)
	clock := start
	p := NewProfiler()
	p.now = func() time.Time { return clock }
	p.lastTime = start

	p.ObserveFenceWait(0, 2*time.Millisecond)
	p.ObserveFenceWait(1, 4*time.Millisecond)
	p.ObserveSkip()
	p.ObserveOutOfDate()
	p.ObserveOutOfDate()

	for i := range 9 {
		clock = start.Add(time.Duration(i+1) * 100 * time.Millisecond)
		if p.Tick() {
			t.Fatalf("Tick() %d reported before the interval elapsed", i)
		}
	}
	clock = start.Add(time.Second)
	if !p.Tick() {
		t.Fatalf("Tick() did not report after one second")
	}

	r := p.Last()
	if r.FPS != 10 {
		t.Errorf("FPS = %v, want 10", r.FPS)
	}
	if r.FenceWaitAvg != 3*time.Millisecond || r.FenceWaitMax != 4*time.Millisecond {
		t.Errorf("fence wait avg, max = %v, %v, want 3ms, 4ms", r.FenceWaitAvg, r.FenceWaitMax)
	}
	if r.Skipped != 1 || r.OutOfDate != 2 {
		t.Errorf("Skipped, OutOfDate = %d, %d, want 1, 2", r.Skipped, r.OutOfDate)
	}

	clock = start.Add(2 * time.Second)
	if !p.Tick() {
		t.Fatalf("second Tick() did not report")
	}
	if r := p.Last(); r.Skipped != 0 || r.FenceWaitMax != 0 || r.FPS != 1 {
		t.Errorf("second interval = %+v, want counters reset and FPS 1", r)
	}
}

func TestSetIntervalIgnoresNonPositive(t *testing.T) {
	p := NewProfiler()
	p.SetInterval(0)
	if p.updateInterval != time.Second {
		t.Errorf("updateInterval = %v, want %v", p.updateInterval, time.Second)
	}
	p.SetInterval(250 * time.Millisecond)
	if p.updateInterval != 250*time.Millisecond {
		t.Errorf("updateInterval = %v, want 250ms", p.updateInterval)
	}
}
