package profiler

import (
	"log/slog"
	"runtime"
	"sync"
	"time"

	"github.com/Carmen-Shannon/oxy-canvas/common"
)

// Profiler tracks frame rate, frame pacing and memory statistics for performance monitoring.
// It is a canvas.FrameObserver: attach it with canvas.WithObserver to receive fence waits, skips and
// out-of-date events. Outputs stats to the logger at a configurable interval.
type Profiler struct {
	mu sync.Mutex

	frameCount     int
	lastTime       time.Time
	updateInterval time.Duration
	memStats       runtime.MemStats
	lastGCCount    uint32
	lastTotalAlloc uint64

	fenceWaits   int
	fenceWaitSum time.Duration
	fenceWaitMax time.Duration
	skipped      int
	outOfDate    int
	last         Report
	now          func() time.Time
}

// Report is the summary of one profiling interval.
type Report struct {
	FPS float64
	// FenceWaitAvg and FenceWaitMax describe how long BeginFrame blocked on frame slot fences.
	FenceWaitAvg time.Duration
	FenceWaitMax time.Duration
	Skipped      int
	OutOfDate    int
	HeapMB       float64
	AllocRateMB  float64
	GCCount      uint32
}

// NewProfiler creates a new Profiler with default settings.
// Update interval defaults to 1 second.
//
// Returns:
//   - *Profiler: the newly created profiler instance
func NewProfiler() *Profiler {
	return &Profiler{
		lastTime:       time.Now(),
		updateInterval: time.Second,
		now:            time.Now,
	}
}

// SetInterval changes how often Tick reports. Values <= 0 are ignored.
//
// Parameters:
//   - d: the report interval
func (p *Profiler) SetInterval(d time.Duration) {
	if d <= 0 {
		return
	}
	p.mu.Lock()
	p.updateInterval = d
	p.mu.Unlock()
}

// ObserveFenceWait records how long a frame waited for its slot's fence.
func (p *Profiler) ObserveFenceWait(slot int, d time.Duration) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.fenceWaits++
	p.fenceWaitSum += d
	p.fenceWaitMax = max(p.fenceWaitMax, d)
}

// ObserveSkip records a frame skipped because the window had no drawable area.
func (p *Profiler) ObserveSkip() {
	p.mu.Lock()
	p.skipped++
	p.mu.Unlock()
}

// ObserveOutOfDate records a swapchain that had to be rebuilt.
func (p *Profiler) ObserveOutOfDate() {
	p.mu.Lock()
	p.outOfDate++
	p.mu.Unlock()
}

// Last returns the most recent interval report.
func (p *Profiler) Last() Report {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.last
}

// Tick should be called once per presented frame to track frame timing.
// Logs performance statistics when the update interval has elapsed.
// Statistics include: FPS, fence wait time, skipped and out-of-date frames, heap usage, allocation rate, GC count/pause times.
//
// Returns:
//   - bool: true if stats were logged this tick, false otherwise
func (p *Profiler) Tick() bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.frameCount++
	currentTime := p.now()
	elapsed := currentTime.Sub(p.lastTime)
	if elapsed < p.updateInterval {
		return false
	}

	runtime.ReadMemStats(&p.memStats)
	// Alloc: Bytes of allocated heap objects (live memory)
	// TotalAlloc: Cumulative bytes allocated for heap objects (increases forever, tracks churn)
	allocDelta := p.memStats.TotalAlloc - p.lastTotalAlloc

	// Calculate GC pause stats (last pause and max recent pause)
	gcCount := p.memStats.NumGC
	var lastPauseUs, maxPauseUs uint64
	if gcCount > 0 {
		// PauseNs is a circular buffer of last 256 GC pauses
		lastPauseUs = p.memStats.PauseNs[(gcCount-1)%256] / 1000

		startIdx := p.lastGCCount
		if gcCount-startIdx > 256 {
			startIdx = gcCount - 256
		}
		for i := startIdx; i < gcCount; i++ {
			maxPauseUs = max(maxPauseUs, p.memStats.PauseNs[i%256]/1000)
		}
	}

	r := Report{
		FPS:          float64(p.frameCount) / elapsed.Seconds(),
		FenceWaitMax: p.fenceWaitMax,
		Skipped:      p.skipped,
		OutOfDate:    p.outOfDate,
		HeapMB:       float64(p.memStats.Alloc) / 1024 / 1024,
		AllocRateMB:  float64(allocDelta) / 1024 / 1024 / elapsed.Seconds(),
		GCCount:      gcCount,
	}
	if p.fenceWaits > 0 {
		r.FenceWaitAvg = p.fenceWaitSum / time.Duration(p.fenceWaits)
	}

	common.Logger().Info("profiler",
		slog.Float64("fps", r.FPS),
		slog.Duration("fence_wait_avg", r.FenceWaitAvg),
		slog.Duration("fence_wait_max", r.FenceWaitMax),
		slog.Int("skipped", r.Skipped),
		slog.Int("out_of_date", r.OutOfDate),
		slog.Float64("heap_mb", r.HeapMB),
		slog.Float64("alloc_rate_mb_s", r.AllocRateMB),
		slog.Uint64("gc", uint64(gcCount)),
		slog.Uint64("gc_last_pause_us", lastPauseUs),
		slog.Uint64("gc_max_pause_us", maxPauseUs))

	p.last = r
	p.frameCount = 0
	p.fenceWaits, p.fenceWaitSum, p.fenceWaitMax = 0, 0, 0
	p.skipped, p.outOfDate = 0, 0
	p.lastTime = currentTime
	p.lastGCCount = gcCount
	p.lastTotalAlloc = p.memStats.TotalAlloc
	return true
}
