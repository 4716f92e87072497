package quotes

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jor0105/datafin/internal/columnar"
	"github.com/jor0105/datafin/internal/domain"
	"github.com/jor0105/datafin/internal/governor"
)

func writeTestZip(t *testing.T, path, memberName, content string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	w, err := zw.Create(memberName)
	require.NoError(t, err)
	_, err = w.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
}

func cotahistDataLine(tpmerc, closeField string) string {
	return buildLine("01", "20230213", "02", "PETR4", tpmerc, "PETROBRAS", "ON NM",
		"0000000003500", "0000000003600", "0000000003400", "0000000003550",
		closeField, "0000000003520", "0000000003530", "00042", "000000000100000",
		"000000000350000", "BRPETRACNOR9")
}

// TestExtractWritesFilteredDecimalConsolidatedFile exercises spec scenarios
// 1 and 2 end to end: a standard-lot record's close decodes to an exact
// 35.25, and a same-ticker record carrying tpmerc=070 (an options code, not
// requested by the "ações" class) is dropped before it ever reaches the
// consolidated file.
func TestExtractWritesFilteredDecimalConsolidatedFile(t *testing.T) {
	stagingDir := t.TempDir()
	destDir := t.TempDir()

	header := strings.Repeat(" ", recordLength)
	header = "00" + header[2:]
	trailer := strings.Repeat(" ", recordLength)
	trailer = "99" + trailer[2:]

	accepted := cotahistDataLine("010", "0000000003525") // close = 35.25
	dropped := cotahistDataLine("070", "0000000009999")

	content := strings.Join([]string{header, accepted, dropped, trailer}, "\n") + "\n"
	zipPath := filepath.Join(stagingDir, "COTAHIST_A2023.ZIP")
	writeTestZip(t, zipPath, "COTAHIST_A2023.TXT", content)

	agg := NewAggregator(governor.Default())
	res, err := agg.Extract(context.Background(), stagingDir, destDir, []string{string(domain.Acoes)}, 2023, 2023, "quotes_2023", Slow)
	require.NoError(t, err)
	assert.Equal(t, 0, res.ErrorCount())
	assert.Equal(t, 1, res.SuccessCount())
	assert.EqualValues(t, 1, res.TotalRecords)

	rows, err := columnar.ReadAll[row](res.OutputFile)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "010", rows[0].TPMERC)
	assert.Equal(t, "35.25", rows[0].Close)
}

func TestExtractWritesEmptyOutputWhenNoYearMatchingArchives(t *testing.T) {
	destDir := t.TempDir()
	agg := NewAggregator(governor.Default())
	res, err := agg.Extract(context.Background(), t.TempDir(), destDir, []string{string(domain.Acoes)}, 2019, 2019, "quotes_2019", Slow)
	require.NoError(t, err)
	assert.Equal(t, 0, res.SuccessCount())

	rows, err := columnar.ReadAll[row](res.OutputFile)
	require.NoError(t, err)
	assert.Len(t, rows, 0)
}
