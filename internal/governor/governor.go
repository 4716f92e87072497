// Package governor provides process-wide memory/CPU awareness for the
// download scheduler and quotes aggregator: a safe worker count, a safe
// chunk size, and a circuit breaker that forces callers to back off once
// memory is exhausted.
package governor

import (
	"context"
	"runtime"
	"sync"
	"time"

	"github.com/shirou/gopsutil/v4/mem"
)

// State is an ordered health reading, from healthiest to most constrained.
type State int

const (
	Healthy State = iota
	Warning
	Critical
	Exhausted
)

func (s State) String() string {
	switch s {
	case Healthy:
		return "HEALTHY"
	case Warning:
		return "WARNING"
	case Critical:
		return "CRITICAL"
	case Exhausted:
		return "EXHAUSTED"
	default:
		return "UNKNOWN"
	}
}

// sampler abstracts memory sampling so tests can inject readings without
// touching the real host. The default implementation wraps gopsutil.
type sampler interface {
	sample() (usedPercent float64, availableMB uint64, err error)
}

type gopsutilSampler struct{}

func (gopsutilSampler) sample() (float64, uint64, error) {
	v, err := mem.VirtualMemory()
	if err != nil {
		return 0, 0, err
	}
	return v.UsedPercent, v.Available / (1024 * 1024), nil
}

const (
	// RequiredMB is the default memory headroom (MB) a HEALTHY reading
	// requires to be available; WARNING and CRITICAL scale off it per spec.
	RequiredMB = 512
	// MinFreeMB is the absolute floor below which the state is EXHAUSTED
	// regardless of percentage used.
	MinFreeMB = 128
	// DefaultCooldown is how long the circuit breaker holds EXHAUSTED after
	// tripping, before it re-reads the live sample.
	DefaultCooldown = 60 * time.Second
	pollInterval    = 100 * time.Millisecond
	sampleCacheTTL  = time.Second
)

// Governor is the process-wide resource arbiter. Its zero value is not
// usable; construct with New or use Default.
type Governor struct {
	sampler    sampler
	requiredMB uint64
	minFreeMB  uint64
	cooldown   time.Duration
	nowFn      func() time.Time

	mu           sync.Mutex
	cachedAt     time.Time
	cachedState  State
	trippedUntil time.Time
}

// New constructs a Governor with the given memory thresholds and breaker
// cooldown. Passing nowFn as nil uses time.Now.
func New(requiredMB, minFreeMB uint64, cooldown time.Duration, nowFn func() time.Time) *Governor {
	if nowFn == nil {
		nowFn = time.Now
	}
	return &Governor{
		sampler:    gopsutilSampler{},
		requiredMB: requiredMB,
		minFreeMB:  minFreeMB,
		cooldown:   cooldown,
		nowFn:      nowFn,
	}
}

var (
	defaultOnce sync.Once
	defaultInst *Governor
)

// Default returns the process-wide singleton Governor with spec defaults.
func Default() *Governor {
	defaultOnce.Do(func() {
		defaultInst = New(RequiredMB, MinFreeMB, DefaultCooldown, nil)
	})
	return defaultInst
}

// CheckState samples memory (cached for one second to avoid jitter) and
// returns the derived ResourceState. A tripped circuit breaker forces
// EXHAUSTED for the remainder of its cooldown window regardless of the live
// sample. If sampling is unavailable, CheckState degrades gracefully to
// HEALTHY rather than throttling callers on a broken signal.
func (g *Governor) CheckState() State {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.checkStateLocked()
}

func (g *Governor) checkStateLocked() State {
	now := g.nowFn()

	if now.Before(g.trippedUntil) {
		return Exhausted
	}

	if !g.cachedAt.IsZero() && now.Sub(g.cachedAt) < sampleCacheTTL {
		return g.cachedState
	}

	usedPercent, availableMB, err := g.sampler.sample()
	if err != nil {
		g.cachedAt = now
		g.cachedState = Healthy
		return Healthy
	}

	state := deriveState(usedPercent, availableMB, g.requiredMB, g.minFreeMB)
	g.cachedAt = now
	g.cachedState = state

	if state == Exhausted && g.trippedUntil.Before(now) {
		g.trippedUntil = now.Add(g.cooldown)
	}

	return state
}

func deriveState(usedPercent float64, availableMB, requiredMB, minFreeMB uint64) State {
	if usedPercent >= 95 || availableMB < minFreeMB {
		return Exhausted
	}
	if usedPercent >= 85 {
		if availableMB < requiredMB/2 {
			return Critical
		}
		return Warning
	}
	if usedPercent >= 70 || availableMB < requiredMB {
		return Warning
	}
	return Healthy
}

// SafeWorkerCount scales requested down according to the current state.
func (g *Governor) SafeWorkerCount(requested int) int {
	return scale(requested, g.CheckState())
}

// SafeChunkSize scales requested down according to the current state, using
// the same factors as SafeWorkerCount.
func (g *Governor) SafeChunkSize(requested int) int {
	return scale(requested, g.CheckState())
}

func scale(requested int, state State) int {
	switch state {
	case Healthy:
		return requested
	case Warning:
		return max(1, requested/2)
	case Critical:
		return max(1, requested/4)
	default:
		return 1
	}
}

func max(a, b int) int {
	if a > b {
		return a
	}
	return b
}

// WaitFor polls at 100ms until state reaches at least minState or timeout
// elapses. It returns true if minState was reached.
func (g *Governor) WaitFor(ctx context.Context, minState State, timeout time.Duration) bool {
	deadline := g.nowFn().Add(timeout)
	ticker := time.NewTicker(pollInterval)
	defer ticker.Stop()

	if g.CheckState() <= minState {
		return true
	}
	for {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if g.CheckState() <= minState {
				return true
			}
			if !g.nowFn().Before(deadline) {
				return g.CheckState() <= minState
			}
		}
	}
}

// NumCPUCeiling returns min(runtime.NumCPU(), cap).
func NumCPUCeiling(cap int) int {
	n := runtime.NumCPU()
	if n > cap {
		return cap
	}
	return n
}
