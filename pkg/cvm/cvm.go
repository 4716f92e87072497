// Package cvm exposes the public CVM fundamental-statements download
// operation: validate inputs, expand (family, year) pairs into jobs, run
// them through the scheduler, and transcode each freshly downloaded
// archive as it lands.
package cvm

import (
	"context"
	"fmt"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/jor0105/datafin/internal/config"
	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/httpadapter"
	"github.com/jor0105/datafin/internal/result"
	"github.com/jor0105/datafin/internal/retrypolicy"
	"github.com/jor0105/datafin/internal/scheduler"
	"github.com/jor0105/datafin/internal/transcode"
)

// Options configures one DownloadCVM invocation.
type Options struct {
	Destination string
	Families    []string
	InitialYear int
	LastYear    int
	Config      config.Config
	// Logger receives a Warn for every job that fails. A nil Logger is
	// replaced with zap.NewNop().
	Logger *zap.Logger
}

// DownloadCVM validates opts, expands the requested families and year range
// into download jobs, and runs them to completion, transcoding each archive
// into destination as it finishes.
func DownloadCVM(ctx context.Context, opts Options) (*result.DownloadResult, error) {
	destDir, err := domain.ValidateDestinationPath(opts.Destination)
	if err != nil {
		return nil, err
	}

	if len(opts.Families) == 0 {
		return nil, domain.New(domain.KindEmptyAssetList, "at least one document family must be requested")
	}

	families := make([]domain.DocumentFamily, 0, len(opts.Families))
	for _, name := range opts.Families {
		fam, err := domain.ParseDocumentFamily(name)
		if err != nil {
			return nil, err
		}
		families = append(families, fam)
	}

	jobs, err := expandJobs(families, opts.InitialYear, opts.LastYear, destDir)
	if err != nil {
		return nil, err
	}

	policy := retrypolicy.Policy{
		Initial:     retrypolicy.Default().Initial,
		Multiplier:  opts.Config.RetryBackoffMult,
		Cap:         retrypolicy.Default().Cap,
		MaxAttempts: opts.Config.NetworkMaxRetries + 1,
	}
	if policy.Multiplier == 0 {
		policy = retrypolicy.Default()
	}

	adapter := httpadapter.New(opts.Config.NetworkTimeout, policy)
	sched := scheduler.New(adapter)
	sched.Policy = policy
	sched.Governor = governor.Default()
	if opts.Logger != nil {
		sched.Logger = opts.Logger
	}

	tc := transcode.New(sched.Governor)
	sched.Extract = func(job scheduler.Job) error {
		if job.Family == domain.CAD {
			_, err := tc.TranscodeCSV(job.Destination, destDir)
			return err
		}
		_, err := tc.Transcode(job.Destination, destDir)
		return err
	}

	return sched.Run(ctx, jobs)
}

func expandJobs(families []domain.DocumentFamily, initialYear, lastYear int, destDir string) ([]scheduler.Job, error) {
	var jobs []scheduler.Job
	for _, fam := range families {
		if !fam.HasYearSuffix() {
			jobs = append(jobs, scheduler.Job{
				Family:      fam,
				URL:         fam.ArchiveURL(0),
				Destination: filepath.Join(destDir, "cad_cia_aberta.csv"),
			})
			continue
		}

		minYear := domain.FamilyMinYear[fam]
		yr, err := domain.NewYearRange(initialYear, lastYear, minYear, nil)
		if err != nil {
			return nil, err
		}
		for _, year := range yr.Years() {
			name := fmt.Sprintf("%s_cia_aberta_%d.zip", strings.ToLower(string(fam)), year)
			jobs = append(jobs, scheduler.Job{
				Family:      fam,
				Year:        year,
				URL:         fam.ArchiveURL(year),
				Destination: filepath.Join(destDir, name),
			})
		}
	}
	return jobs, nil
}
