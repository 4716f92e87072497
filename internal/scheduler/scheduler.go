// Package scheduler orchestrates CVM download jobs with bounded
// concurrency, retrying transient failures and validating each artifact
// before handing it to an extractor hook — grounded on the
// worker/dispatcher/result-channel triad in the teacher's
// processFilesWithPipeline (internal/services/marketdata/ohlcv_pipeline.go).
package scheduler

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"

	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/httpadapter"
	"github.com/jor0105/datafin/internal/result"
	"github.com/jor0105/datafin/internal/retrypolicy"
	"github.com/jor0105/datafin/internal/zipstream"
)

// Job is one (family, year) download unit.
type Job struct {
	Family      domain.DocumentFamily
	Year        int // zero for CAD, which carries no year suffix
	URL         string
	Destination string
}

// ID returns the DownloadResult identifier for the job: "family:year", or
// just "family" for year-less archives.
func (j Job) ID() string {
	if j.Family == domain.CAD {
		return string(j.Family)
	}
	return fmt.Sprintf("%s:%d", j.Family, j.Year)
}

// sizeTolerance is how far a downloaded artifact's size may drift from the
// HEAD-reported expected size before it is rejected.
const sizeTolerance = 0.05

// Scheduler runs Jobs with bounded concurrency, retry, and post-download
// validation.
type Scheduler struct {
	Adapter    *httpadapter.Adapter
	Governor   *governor.Governor
	Policy     retrypolicy.Policy
	MaxWorkers int
	// Logger records each per-job failure at WARNING, per spec.md §7. Safe
	// for concurrent use by every worker goroutine. A nil Logger is replaced
	// with zap.NewNop() so callers never need a nil check.
	Logger *zap.Logger
	// Extract, if set, runs after a job's artifact validates; its error is
	// recorded against the job but never aborts other jobs.
	Extract func(job Job) error
}

// New builds a Scheduler with governor.Default() and retrypolicy.Default()
// unless overridden on the returned value.
func New(adapter *httpadapter.Adapter) *Scheduler {
	return &Scheduler{
		Adapter:    adapter,
		Governor:   governor.Default(),
		Policy:     retrypolicy.Default(),
		MaxWorkers: 8,
		Logger:     zap.NewNop(),
	}
}

type jobOutcome struct {
	id  string
	err error
}

// Run executes every job, bounded by governor.SafeWorkerCount(MaxWorkers),
// and returns the aggregated DownloadResult. Per-job failures are recorded
// in the result, not returned; Run returns a non-nil error only when ctx is
// cancelled before every job has reported, together with the outcomes
// recorded so far.
func (s *Scheduler) Run(ctx context.Context, jobs []Job) (*result.DownloadResult, error) {
	logger := s.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	res := result.NewDownloadResult()
	if len(jobs) == 0 {
		return res, nil
	}

	workers := s.Governor.SafeWorkerCount(s.MaxWorkers)
	if workers < 1 {
		workers = 1
	}
	if workers > len(jobs) {
		workers = len(jobs)
	}

	jobCh := make(chan Job)
	resultCh := make(chan jobOutcome, len(jobs))

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for {
				select {
				case <-ctx.Done():
					return
				case job, ok := <-jobCh:
					if !ok {
						return
					}
					err := s.runJob(ctx, job)
					resultCh <- jobOutcome{id: job.ID(), err: err}
				}
			}
		}()
	}

	go func() {
		defer close(jobCh)
		for _, j := range jobs {
			select {
			case <-ctx.Done():
				return
			case jobCh <- j:
			}
		}
	}()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	remaining := len(jobs)
	for remaining > 0 {
		select {
		case o := <-resultCh:
			if o.err != nil {
				logger.Warn("job failed", zap.String("job", o.id), zap.Error(o.err))
				res.AddError(o.id, o.err.Error())
			} else {
				res.AddSuccess(o.id)
			}
			remaining--
		case <-done:
			// workers exited early (context cancelled); drain whatever
			// outcomes are already buffered, then stop.
			for len(resultCh) > 0 {
				o := <-resultCh
				if o.err != nil {
					logger.Warn("job failed", zap.String("job", o.id), zap.Error(o.err))
					res.AddError(o.id, o.err.Error())
				} else {
					res.AddSuccess(o.id)
				}
				remaining--
			}
			return res, ctx.Err()
		}
	}
	return res, nil
}

// runJob drives one job through HEAD, streamed GET, validation, the
// optional extractor hook, and the retry loop.
func (s *Scheduler) runJob(ctx context.Context, job Job) error {
	var lastErr error
	for attempt := 0; attempt < s.Policy.MaxAttempts; attempt++ {
		if attempt > 0 {
			if err := s.Policy.Sleep(ctx, attempt-1); err != nil {
				return err
			}
		}

		lastErr = s.attempt(ctx, job)
		if lastErr == nil {
			return nil
		}
		if !retrypolicy.IsRetryable(lastErr) {
			return lastErr
		}
	}
	return lastErr
}

func (s *Scheduler) attempt(ctx context.Context, job Job) error {
	head, err := s.Adapter.Head(ctx, job.URL)
	if err != nil {
		return err
	}

	if err := s.Adapter.StreamToFile(ctx, job.URL, job.Destination, s.Governor.SafeChunkSize(1<<20)); err != nil {
		return err
	}

	if err := s.validate(job.Destination, head.ContentLength); err != nil {
		os.Remove(job.Destination)
		return err
	}

	if s.Extract != nil {
		if err := s.Extract(job); err != nil {
			return domain.Wrap(domain.KindExtractionError, "extractor hook failed for "+job.Destination, err)
		}
	}
	return nil
}

func (s *Scheduler) validate(path string, expectedSize int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return domain.Wrap(domain.KindNetworkError, "downloaded artifact missing", err)
	}

	if expectedSize > 0 {
		actual := float64(info.Size())
		lower := float64(expectedSize) * (1 - sizeTolerance)
		upper := float64(expectedSize) * (1 + sizeTolerance)
		if actual < lower || actual > upper {
			return domain.New(domain.KindNetworkError, fmt.Sprintf("downloaded size %d outside tolerance of expected %d", info.Size(), expectedSize))
		}
	}

	if isZip(path) {
		archive, err := zipstream.Open(path)
		if err != nil {
			return err
		}
		archive.Close()
	}
	return nil
}

func isZip(path string) bool {
	n := len(path)
	return n >= 4 && (path[n-4:] == ".zip" || path[n-4:] == ".ZIP")
}
