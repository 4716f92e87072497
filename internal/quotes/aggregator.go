package quotes

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/result"
	"github.com/jor0105/datafin/internal/zipstream"
)

// Mode selects how ZIP archives are processed: Fast parallelises across
// archives up to the governor's worker ceiling, Slow processes one archive
// at a time. Neither forks a process — the source's GIL-bypass rationale
// does not survive translation into a compiled target, per spec.md §9.
type Mode int

const (
	Slow Mode = iota
	Fast
)

// ParseMode validates the caller-supplied processing-mode string.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "slow":
		return Slow, nil
	case "fast":
		return Fast, nil
	default:
		return Slow, domain.New(domain.KindInvalidDocName, "processing mode must be \"fast\" or \"slow\": "+s)
	}
}

var yearInName = regexp.MustCompile(`(19|20)\d{2}`)

// discover returns every ZIP in stagingDir whose name contains a year within
// yr, sorted for determinism.
func discover(stagingDir string, yr domain.YearRange) ([]string, error) {
	entries, err := os.ReadDir(stagingDir)
	if err != nil {
		return nil, domain.Wrap(domain.KindInvalidDestinationPath, "cannot read staging directory", err)
	}
	var matches []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		if !strings.EqualFold(filepath.Ext(name), ".zip") {
			continue
		}
		years := yearInName.FindAllString(name, -1)
		for _, y := range years {
			n, err := strconv.Atoi(y)
			if err != nil {
				continue
			}
			if yr.Contains(n) {
				matches = append(matches, filepath.Join(stagingDir, name))
				break
			}
		}
	}
	return matches, nil
}

const defaultBatchSize = 100_000

// Aggregator walks discovered ZIPs, filters/decodes their lines, and writes
// one consolidated columnar file.
type Aggregator struct {
	Governor *governor.Governor
	// Logger receives a Warn for every archive that fails to process.
	// NewAggregator sets it to zap.NewNop(); Extract treats a nil Logger the
	// same way.
	Logger *zap.Logger
}

// NewAggregator returns an Aggregator backed by g (governor.Default() if
// nil).
func NewAggregator(g *governor.Governor) *Aggregator {
	if g == nil {
		g = governor.Default()
	}
	return &Aggregator{Governor: g, Logger: zap.NewNop()}
}

// Extract runs one extract_quotes invocation.
func (a *Aggregator) Extract(ctx context.Context, stagingDir, destDir string, classes []string, initialYear, lastYear int, outputName string, mode Mode) (*result.ExtractionResult, error) {
	logger := a.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	if err := domain.ValidateFilename(outputName + ".col"); err != nil {
		return nil, err
	}
	destDir, err := domain.ValidateDestinationPath(destDir)
	if err != nil {
		return nil, err
	}

	accepted, err := domain.ParseInstrumentClasses(classes)
	if err != nil {
		return nil, err
	}

	yr, err := domain.NewYearRange(initialYear, lastYear, domain.CotahistMinYear, nil)
	if err != nil {
		return nil, err
	}

	files, err := discover(stagingDir, yr)
	if err != nil {
		return nil, err
	}

	outputPath := filepath.Join(destDir, outputName+".col")
	res := result.NewExtractionResult(len(files), outputPath)
	if len(files) == 0 {
		if writeErr := WriteEmpty(outputPath); writeErr != nil {
			return nil, writeErr
		}
		return res, nil
	}

	shardDir, err := os.MkdirTemp(destDir, ".quotes-shards-*")
	if err != nil {
		return nil, domain.Wrap(domain.KindExtractionError, "cannot create shard staging directory", err)
	}
	defer os.RemoveAll(shardDir)

	workers := 1
	if mode == Fast {
		workers = a.Governor.SafeWorkerCount(governor.NumCPUCeiling(8))
	}
	chunkSize := a.Governor.SafeChunkSize(defaultBatchSize)

	shardPaths := make([]string, len(files))

	processOne := func(idx int) error {
		file := files[idx]
		records, perr := a.processArchive(file, accepted)
		if perr != nil {
			logger.Warn("archive failed", zap.String("file", file), zap.Error(perr))
			res.MarkError(file, perr.Error())
			return nil
		}
		if len(records) == 0 {
			res.MarkSuccess(0)
			return nil
		}
		shardPath := filepath.Join(shardDir, fmt.Sprintf("shard-%04d.col", idx))
		if werr := WriteShard(shardPath, records, chunkSize); werr != nil {
			logger.Warn("archive failed", zap.String("file", file), zap.Error(werr))
			res.MarkError(file, werr.Error())
			return nil
		}
		shardPaths[idx] = shardPath
		res.MarkSuccess(int64(len(records)))
		return nil
	}

	if mode == Fast && workers > 1 {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(workers)
		for i := range files {
			i := i
			g.Go(func() error {
				select {
				case <-gctx.Done():
					return gctx.Err()
				default:
				}
				return processOne(i)
			})
		}
		if err := g.Wait(); err != nil {
			return nil, err
		}
	} else {
		for i := range files {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			if err := processOne(i); err != nil {
				return nil, err
			}
		}
	}

	nonEmpty := shardPaths[:0]
	for _, p := range shardPaths {
		if p != "" {
			nonEmpty = append(nonEmpty, p)
		}
	}
	if err := Consolidate(nonEmpty, outputPath); err != nil {
		return nil, err
	}

	return res, nil
}

// processArchive streams lines of every member of one ZIP through the
// parser, returning accepted records in source order.
func (a *Aggregator) processArchive(path string, accepted map[string]struct{}) ([]Record, error) {
	archive, err := zipstream.Open(path)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	var records []Record
	for _, member := range archive.Members() {
		lr, err := archive.Lines(member, zipstream.DefaultEncoding)
		if err != nil {
			return nil, err
		}
		for {
			line, err := lr.Next()
			if err != nil {
				lr.Close()
				if errors.Is(err, io.EOF) {
					break
				}
				return nil, domain.Wrap(domain.KindCorruptedZipError, "error reading member "+member.Name, err)
			}
			rec, perr := Parse(line, accepted)
			if perr != nil {
				continue
			}
			if rec != nil {
				records = append(records, *rec)
			}
		}
	}
	return records, nil
}
