// Package zipstream opens a ZIP archive and yields its member entries as
// lazily-decoded text lines, never materialising a whole member in memory —
// grounded on the windowed, self-advancing io.Reader shape of the teacher's
// batchedCSVReader in internal/services/marketdata/ohlcv_pipeline.go.
package zipstream

import (
	"archive/zip"
	"bufio"
	"io"
	"os"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/jor0105/datafin/internal/domain"
)

// Archive wraps an opened ZIP file and exposes its members for streaming
// reads.
type Archive struct {
	f  *os.File
	zr *zip.Reader
}

// Open opens path as a ZIP archive. Every failure surfaces as
// CorruptedZipError: a missing file wraps the os not-exist error (so
// errors.Is(err, fs.ErrNotExist) tells it apart), and a non-ZIP, truncated,
// or empty (0 entries) archive carries no such cause.
func Open(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, domain.Wrap(domain.KindCorruptedZipError, "zip archive not found: "+path, err)
		}
		return nil, domain.Wrap(domain.KindCorruptedZipError, "cannot open zip archive: "+path, err)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, domain.Wrap(domain.KindCorruptedZipError, "cannot stat zip archive: "+path, err)
	}

	zr, err := zip.NewReader(f, info.Size())
	if err != nil {
		f.Close()
		return nil, domain.Wrap(domain.KindCorruptedZipError, "not a valid zip archive: "+path, err)
	}
	if len(zr.File) == 0 {
		f.Close()
		return nil, domain.New(domain.KindCorruptedZipError, "zip archive has no entries: "+path)
	}

	return &Archive{f: f, zr: zr}, nil
}

// Close releases the underlying file handle.
func (a *Archive) Close() error { return a.f.Close() }

// Members returns every entry in the archive, in ZIP directory order.
func (a *Archive) Members() []*zip.File {
	return a.zr.File
}

// Lines opens member and returns a LineReader that decodes it with enc
// (pass charmap.ISO8859_1 for the Brazilian-regulatory-file default) and
// yields text lines split on \n/\r\n, without ever buffering the whole
// member.
func (a *Archive) Lines(member *zip.File, enc encoding.Encoding) (*LineReader, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, domain.Wrap(domain.KindCorruptedZipError, "cannot open member "+member.Name, err)
	}
	var r io.Reader = rc
	if enc != nil {
		r = enc.NewDecoder().Reader(rc)
	}
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), maxLineBytes)
	return &LineReader{rc: rc, scanner: scanner}, nil
}

// maxLineBytes bounds a single CSV/fixed-width line; CVM source files run a
// few hundred bytes per row, so this leaves ample headroom without letting a
// corrupted member grow the scan buffer unbounded.
const maxLineBytes = 4 * 1024 * 1024

// LineReader yields successive text lines of one ZIP member.
type LineReader struct {
	rc      io.ReadCloser
	scanner *bufio.Scanner
}

// Next advances to the next line. It returns io.EOF once the member is
// exhausted.
func (l *LineReader) Next() (string, error) {
	if l.scanner.Scan() {
		return l.scanner.Text(), nil
	}
	if err := l.scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}

// Close releases the member's reader.
func (l *LineReader) Close() error { return l.rc.Close() }

// DefaultEncoding is the Latin-1 codec Brazilian regulatory archives use.
var DefaultEncoding encoding.Encoding = charmap.ISO8859_1
