// Package columnar wraps github.com/parquet-go/parquet-go's generic
// writer/reader into the chunked-append, atomic-rename shard model the
// transcoder and quotes aggregator need: a row type written in bounded
// batches, and many shard files consolidated into one final output by
// reading every shard's rows back out and rewriting them into a single
// file under a temp name that is then renamed into place.
package columnar

import (
	"io"
	"os"

	"github.com/parquet-go/parquet-go"

	"github.com/jor0105/datafin/internal/domain"
)

// ShardWriter accumulates rows of type T into row-group-sized batches and
// streams them to a single output file. Close must be called exactly once;
// it flushes any buffered rows and finalises the file.
type ShardWriter[T any] struct {
	f         *os.File
	gw        *parquet.GenericWriter[T]
	chunkSize int
	buf       []T
}

// CreateShard opens path for writing and returns a ShardWriter that flushes
// to a new row group every chunkSize rows.
func CreateShard[T any](path string, chunkSize int) (*ShardWriter[T], error) {
	if chunkSize <= 0 {
		chunkSize = 1
	}
	f, err := os.Create(path)
	if err != nil {
		return nil, domain.Wrap(domain.KindExtractionError, "cannot create shard file "+path, err)
	}
	return &ShardWriter[T]{
		f:         f,
		gw:        parquet.NewGenericWriter[T](f),
		chunkSize: chunkSize,
	}, nil
}

// Append adds row to the writer's pending batch, flushing a row group once
// the batch reaches chunkSize.
func (w *ShardWriter[T]) Append(row T) error {
	w.buf = append(w.buf, row)
	if len(w.buf) >= w.chunkSize {
		return w.flush()
	}
	return nil
}

func (w *ShardWriter[T]) flush() error {
	if len(w.buf) == 0 {
		return nil
	}
	if _, err := w.gw.Write(w.buf); err != nil {
		return domain.Wrap(domain.KindExtractionError, "write row group", err)
	}
	if err := w.gw.Flush(); err != nil {
		return domain.Wrap(domain.KindExtractionError, "flush row group", err)
	}
	w.buf = w.buf[:0]
	return nil
}

// Close flushes any remaining buffered rows and finalises the file.
func (w *ShardWriter[T]) Close() error {
	if err := w.flush(); err != nil {
		w.f.Close()
		return err
	}
	if err := w.gw.Close(); err != nil {
		w.f.Close()
		return domain.Wrap(domain.KindExtractionError, "finalise shard file", err)
	}
	return w.f.Close()
}

// WriteAll is a convenience wrapper for the common case: write every row in
// one call, in chunkSize-row batches.
func WriteAll[T any](path string, rows []T, chunkSize int) error {
	w, err := CreateShard[T](path, chunkSize)
	if err != nil {
		return err
	}
	for _, r := range rows {
		if err := w.Append(r); err != nil {
			w.Close()
			return err
		}
	}
	return w.Close()
}

// WriteEmpty writes a valid, zero-row columnar file with T's schema.
func WriteEmpty[T any](path string) error {
	return WriteAll[T](path, nil, 1)
}

// ReadAll reads every row of an existing columnar file.
func ReadAll[T any](path string) ([]T, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, domain.Wrap(domain.KindExtractionError, "open columnar file "+path, err)
	}
	defer f.Close()

	gr := parquet.NewGenericReader[T](f)
	defer gr.Close()

	var out []T
	buf := make([]T, 1024)
	for {
		n, err := gr.Read(buf)
		out = append(out, buf[:n]...)
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, domain.Wrap(domain.KindExtractionError, "read columnar file "+path, err)
		}
		if n == 0 {
			break
		}
	}
	return out, nil
}

// Consolidate reads every row out of shardPaths, in order, and writes them
// as one file at outputPath. It writes to outputPath+".tmp" first and
// atomically renames it into place, so a reader never observes a partial
// consolidated file.
func Consolidate[T any](shardPaths []string, outputPath string) error {
	tmp := outputPath + ".tmp"
	w, err := CreateShard[T](tmp, 50_000)
	if err != nil {
		return err
	}
	for _, shard := range shardPaths {
		rows, err := ReadAll[T](shard)
		if err != nil {
			w.Close()
			os.Remove(tmp)
			return err
		}
		for _, r := range rows {
			if err := w.Append(r); err != nil {
				w.Close()
				os.Remove(tmp)
				return err
			}
		}
	}
	if err := w.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, outputPath); err != nil {
		os.Remove(tmp)
		return domain.Wrap(domain.KindExtractionError, "rename consolidated file into place", err)
	}
	return nil
}
