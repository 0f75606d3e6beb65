package telemetry

import (
	"sort"
	"sync"
	"time"
)

// HealthTracker watches background loops that report in through heartbeats.
// A loop that misses its deadline turns the report degraded.
type HealthTracker struct {
	mu    sync.Mutex
	loops map[string]*loopHealth
	now   func() time.Time
}

type loopHealth struct {
	interval time.Duration
	lastBeat time.Time
}

type HealthReport struct {
	Status string       `json:"status"`
	Checks []LoopStatus `json:"checks,omitempty"`
}

type LoopStatus struct {
	Name     string    `json:"name"`
	Healthy  bool      `json:"healthy"`
	LastBeat time.Time `json:"lastBeat"`
}

type Heartbeat struct {
	tracker *HealthTracker
	name    string
}

func NewHealthTracker() *HealthTracker {
	return &HealthTracker{loops: map[string]*loopHealth{}, now: time.Now}
}

// Register adds a loop that must beat at least once per interval.
func (t *HealthTracker) Register(name string, interval time.Duration) *Heartbeat {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.loops[name] = &loopHealth{interval: interval, lastBeat: t.now()}
	return &Heartbeat{tracker: t, name: name}
}

// Unregister removes a loop, typically when it exits cleanly.
func (t *HealthTracker) Unregister(name string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.loops, name)
}

func (t *HealthTracker) Report() HealthReport {
	t.mu.Lock()
	defer t.mu.Unlock()

	report := HealthReport{Status: "ok"}
	now := t.now()
	names := make([]string, 0, len(t.loops))
	for name := range t.loops {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		loop := t.loops[name]
		healthy := loop.interval <= 0 || now.Sub(loop.lastBeat) <= loop.interval
		if !healthy {
			report.Status = "degraded"
		}
		report.Checks = append(report.Checks, LoopStatus{Name: name, Healthy: healthy, LastBeat: loop.lastBeat})
	}
	return report
}

func (h *Heartbeat) Beat() {
	if h == nil || h.tracker == nil {
		return
	}
	h.tracker.mu.Lock()
	defer h.tracker.mu.Unlock()
	if loop, ok := h.tracker.loops[h.name]; ok {
		loop.lastBeat = h.tracker.now()
	}
}
