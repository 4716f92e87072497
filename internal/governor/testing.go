package governor

import "time"

// fakeSampler lets tests inject a fixed memory reading instead of sampling
// the real host.
type fakeSampler struct {
	usedPercent float64
	availableMB uint64
	err         error
}

func (f fakeSampler) sample() (float64, uint64, error) {
	return f.usedPercent, f.availableMB, f.err
}

// SetSamplerForTest overrides g's memory sampler. Exported only for use by
// tests in this module's own test files and in packages that construct a
// Governor via New for deterministic scenarios.
func (g *Governor) SetSamplerForTest(usedPercent float64, availableMB uint64, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.sampler = fakeSampler{usedPercent: usedPercent, availableMB: availableMB, err: err}
	g.cachedAt = time.Time{}
}
