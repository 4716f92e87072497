// Package transcode implements the atomic CSV→columnar transcoder: for one
// input ZIP it decodes each text member's CSV rows and writes them to a
// columnar shard per member, rolling back every shard created during a
// failed run while leaving pre-existing files untouched — grounded on the
// teacher's windowed batchedCSVReader (internal/services/marketdata/
// ohlcv_pipeline.go) generalized from gzip/S3 input to a local ZIP member.
package transcode

import (
	"archive/zip"
	"encoding/csv"
	"io"
	"os"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/charmap"

	"github.com/jor0105/datafin/internal/columnar"
	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
	"github.com/jor0105/datafin/internal/zipstream"
)

const (
	defaultChunkRows  = 50_000
	defaultSizeCap    = 2 << 30 // 2 GiB
	encodingProbeSize = 10 * 1024
)

// encodingCandidate pairs a probe label with its decoder; a nil decoder
// means the probe bytes must already be valid UTF-8.
type encodingCandidate struct {
	name string
	dec  encoding.Encoding
}

var encodingCandidates = []encodingCandidate{
	{"utf-8", nil},
	{"latin-1", charmap.ISO8859_1},
	{"iso-8859-1", charmap.ISO8859_1},
	{"cp1252", charmap.Windows1252},
}

// Transcoder converts one ZIP's CSV members into columnar shards.
type Transcoder struct {
	Governor     *governor.Governor
	ChunkRows    int
	SizeCapBytes int64
}

// New returns a Transcoder with spec defaults: 50,000-row chunks (scaled by
// the governor) and a 2 GiB per-member size cap.
func New(g *governor.Governor) *Transcoder {
	if g == nil {
		g = governor.Default()
	}
	return &Transcoder{Governor: g, ChunkRows: defaultChunkRows, SizeCapBytes: defaultSizeCap}
}

// Transcode opens zipPath and writes one "<member_stem>.col" shard per text
// member into destDir, returning the shard paths it wrote (which excludes
// members skipped because a shard for them already existed). On any
// per-member failure after the first shard has been written, every shard
// this call created is deleted and pre-existing files in destDir are left
// bit-identical.
func (t *Transcoder) Transcode(zipPath, destDir string) ([]string, error) {
	preexisting, err := snapshot(destDir)
	if err != nil {
		return nil, err
	}

	archive, err := zipstream.Open(zipPath)
	if err != nil {
		return nil, err
	}
	defer archive.Close()

	ledger := newStagingLedger()
	chunkRows := t.Governor.SafeChunkSize(t.ChunkRows)

	for _, member := range archive.Members() {
		shardPath := filepath.Join(destDir, stem(member.Name)+".col")

		if _, existed := preexisting[shardPath]; existed {
			continue // idempotent re-run: shard already present from a prior run
		}

		if int64(member.UncompressedSize64) > t.SizeCapBytes {
			t.rollback(ledger)
			return nil, domain.New(domain.KindExtractionError, "member "+member.Name+" exceeds size cap, refusing to extract")
		}

		if err := t.transcodeMember(archive, member, shardPath, chunkRows, ledger); err != nil {
			t.rollback(ledger)
			return nil, err
		}
	}

	return ledger.Paths(), nil
}

// transcodeMember writes shardPath and tracks it in ledger the moment the
// file is created, before any row is appended — so a write failure partway
// through still leaves the orphan tracked for rollback.
func (t *Transcoder) transcodeMember(archive *zipstream.Archive, member *zip.File, shardPath string, chunkRows int, ledger *StagingLedger) error {
	probeBytes, err := probe(member)
	if err != nil {
		return domain.Wrap(domain.KindCorruptedZipError, "cannot probe member "+member.Name, err)
	}
	enc := detectEncoding(probeBytes)

	lr, err := archive.Lines(member, enc)
	if err != nil {
		return err
	}
	defer lr.Close()

	reader := &lineReaderAdapter{lr: lr}
	csvReader := csv.NewReader(reader)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	headers, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return nil // empty member, nothing to shard
		}
		return domain.Wrap(domain.KindCorruptedZipError, "cannot read header of member "+member.Name, err)
	}

	writer, err := columnar.CreateShard[row](shardPath, chunkRows)
	if err != nil {
		return err
	}
	ledger.Track(shardPath)

	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed lines, per the transcoder's tolerance contract
		}
		if err := writer.Append(toRow(headers, fields)); err != nil {
			writer.Close()
			return err
		}
	}

	return writer.Close()
}

// TranscodeCSV converts a single plain CSV file — not packaged in a ZIP —
// into one columnar shard named after the file's stem. The CVM master
// registry (document family CAD) is the only artifact shipped this way; every
// other family arrives as a ZIP and goes through Transcode instead.
func (t *Transcoder) TranscodeCSV(csvPath, destDir string) (string, error) {
	shardPath := filepath.Join(destDir, stem(csvPath)+".col")

	preexisting, err := snapshot(destDir)
	if err != nil {
		return "", err
	}
	if _, existed := preexisting[shardPath]; existed {
		return shardPath, nil // idempotent re-run
	}

	info, err := os.Stat(csvPath)
	if err != nil {
		return "", domain.Wrap(domain.KindExtractionError, "cannot stat csv file "+csvPath, err)
	}
	if info.Size() > t.SizeCapBytes {
		return "", domain.New(domain.KindExtractionError, "file "+csvPath+" exceeds size cap, refusing to extract")
	}

	f, err := os.Open(csvPath)
	if err != nil {
		return "", domain.Wrap(domain.KindExtractionError, "cannot open csv file "+csvPath, err)
	}
	defer f.Close()

	probeBytes := make([]byte, encodingProbeSize)
	n, err := io.ReadFull(f, probeBytes)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", domain.Wrap(domain.KindExtractionError, "cannot probe csv file "+csvPath, err)
	}
	enc := detectEncoding(probeBytes[:n])
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return "", domain.Wrap(domain.KindExtractionError, "cannot rewind csv file "+csvPath, err)
	}

	var reader io.Reader = f
	if enc != nil {
		reader = enc.NewDecoder().Reader(f)
	}

	csvReader := csv.NewReader(reader)
	csvReader.Comma = ';'
	csvReader.FieldsPerRecord = -1
	csvReader.LazyQuotes = true

	headers, err := csvReader.Read()
	if err != nil {
		if err == io.EOF {
			return shardPath, columnar.WriteEmpty[row](shardPath)
		}
		return "", domain.Wrap(domain.KindExtractionError, "cannot read header of "+csvPath, err)
	}

	chunkRows := t.Governor.SafeChunkSize(t.ChunkRows)
	writer, err := columnar.CreateShard[row](shardPath, chunkRows)
	if err != nil {
		return "", err
	}

	for {
		fields, err := csvReader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			continue // skip malformed lines, per the transcoder's tolerance contract
		}
		if err := writer.Append(toRow(headers, fields)); err != nil {
			writer.Close()
			os.Remove(shardPath)
			return "", err
		}
	}

	if err := writer.Close(); err != nil {
		os.Remove(shardPath)
		return "", err
	}
	return shardPath, nil
}

func (t *Transcoder) rollback(ledger *StagingLedger) {
	for _, p := range ledger.Paths() {
		os.Remove(p)
	}
}

func snapshot(dir string) (map[string]struct{}, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]struct{}{}, nil
		}
		return nil, domain.Wrap(domain.KindInvalidDestinationPath, "cannot read destination directory", err)
	}
	out := make(map[string]struct{}, len(entries))
	for _, e := range entries {
		if e.Type().IsRegular() {
			out[filepath.Join(dir, e.Name())] = struct{}{}
		}
	}
	return out, nil
}

func stem(name string) string {
	base := filepath.Base(name)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// probe reads up to encodingProbeSize bytes from a fresh open of member,
// independent of any in-progress read of the same entry.
func probe(member *zip.File) ([]byte, error) {
	rc, err := member.Open()
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	buf := make([]byte, encodingProbeSize)
	n, err := io.ReadFull(rc, buf)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return nil, err
	}
	return buf[:n], nil
}

// detectEncoding returns the first candidate in spec order whose decoder
// accepts probeBytes cleanly.
func detectEncoding(probeBytes []byte) encoding.Encoding {
	for _, c := range encodingCandidates {
		if c.dec == nil {
			if utf8.Valid(probeBytes) {
				return nil
			}
			continue
		}
		if _, err := c.dec.NewDecoder().Bytes(probeBytes); err == nil {
			return c.dec
		}
	}
	return charmap.ISO8859_1 // always decodes; last resort
}

// lineReaderAdapter turns a zipstream.LineReader (one text line per Next)
// back into an io.Reader the stdlib csv.Reader can consume directly.
type lineReaderAdapter struct {
	lr  *zipstream.LineReader
	buf []byte
}

func (a *lineReaderAdapter) Read(p []byte) (int, error) {
	if len(a.buf) == 0 {
		line, err := a.lr.Next()
		if err != nil {
			return 0, err
		}
		a.buf = append([]byte(line), '\n')
	}
	n := copy(p, a.buf)
	a.buf = a.buf[n:]
	return n, nil
}
