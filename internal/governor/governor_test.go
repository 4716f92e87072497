package governor

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCheckStateThresholds(t *testing.T) {
	cases := []struct {
		name        string
		usedPercent float64
		availableMB uint64
		want        State
	}{
		{"healthy", 50, 2000, Healthy},
		{"warning-by-percent", 75, 2000, Warning},
		{"critical-low-available", 90, 200, Critical},
		{"warning-high-available", 90, 2000, Warning},
		{"exhausted-by-percent", 96, 2000, Exhausted},
		{"exhausted-by-floor", 10, 50, Exhausted},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			g := New(RequiredMB, MinFreeMB, DefaultCooldown, nil)
			g.SetSamplerForTest(tc.usedPercent, tc.availableMB, nil)
			assert.Equal(t, tc.want, g.CheckState())
		})
	}
}

func TestSafeWorkerCountScalesWithState(t *testing.T) {
	g := New(RequiredMB, MinFreeMB, DefaultCooldown, nil)

	g.SetSamplerForTest(75, 2000, nil)
	assert.Equal(t, 4, g.SafeWorkerCount(8))

	g.SetSamplerForTest(90, 200, nil)
	assert.Equal(t, 2, g.SafeWorkerCount(8))

	g.SetSamplerForTest(96, 2000, nil)
	assert.Equal(t, 1, g.SafeWorkerCount(8))
}

func TestBreakerTripsAndHoldsThroughCooldown(t *testing.T) {
	now := time.Now()
	clock := &now
	nowFn := func() time.Time { return *clock }

	g := New(RequiredMB, MinFreeMB, 60*time.Second, nowFn)
	g.SetSamplerForTest(96, 2000, nil)
	require.Equal(t, Exhausted, g.CheckState())

	// Memory recovers, but the breaker should keep reporting EXHAUSTED
	// until the cooldown window elapses.
	g.SetSamplerForTest(10, 4000, nil)
	*clock = clock.Add(1100 * time.Millisecond) // bust the 1s sample cache
	assert.Equal(t, Exhausted, g.CheckState())

	*clock = clock.Add(61 * time.Second)
	assert.Equal(t, Healthy, g.CheckState())
}

func TestSamplingUnavailableDegradesToHealthy(t *testing.T) {
	g := New(RequiredMB, MinFreeMB, DefaultCooldown, nil)
	g.SetSamplerForTest(0, 0, assert.AnError)
	assert.Equal(t, Healthy, g.CheckState())
}

func TestWaitForReturnsOnceStateReached(t *testing.T) {
	g := New(RequiredMB, MinFreeMB, DefaultCooldown, nil)
	g.SetSamplerForTest(50, 2000, nil)

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	assert.True(t, g.WaitFor(ctx, Warning, time.Second))
}
