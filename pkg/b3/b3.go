// Package b3 exposes the public B3 COTAHIST quote-extraction operation.
package b3

import (
	"context"

	"go.uber.org/zap"

	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/quotes"
	"github.com/jor0105/datafin/internal/result"
)

// Options configures one ExtractQuotes invocation.
type Options struct {
	StagingDir  string
	DestDir     string
	Classes     []string
	InitialYear int
	LastYear    int
	OutputName  string
	Mode        string
	// Logger receives a Warn for every archive that fails. A nil Logger is
	// replaced with zap.NewNop().
	Logger *zap.Logger
}

// ExtractQuotes discovers COTAHIST ZIPs in opts.StagingDir within the
// requested year range, filters by instrument class, and writes one
// consolidated columnar file at opts.DestDir/opts.OutputName+".col".
func ExtractQuotes(ctx context.Context, opts Options) (*result.ExtractionResult, error) {
	mode, err := quotes.ParseMode(opts.Mode)
	if err != nil {
		return nil, err
	}

	agg := quotes.NewAggregator(governor.Default())
	if opts.Logger != nil {
		agg.Logger = opts.Logger
	}
	return agg.Extract(ctx, opts.StagingDir, opts.DestDir, opts.Classes, opts.InitialYear, opts.LastYear, opts.OutputName, mode)
}
