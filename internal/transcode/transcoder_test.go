package transcode

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jor0105/datafin/internal/columnar"
	"github.com/jor0105/datafin/internal/governor"
)

func writeTestZip(t *testing.T, path string, members map[string]string) {
	t.Helper()
	f, err := os.Create(path)
	require.NoError(t, err)
	defer f.Close()

	zw := zip.NewWriter(f)
	for name, content := range members {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(content))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
}

func TestTranscodeWritesOneShardPerMember(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "dfp_cia_aberta_2022.zip")
	writeTestZip(t, zipPath, map[string]string{
		"dfp_cia_aberta_2022.csv": "CNPJ;DENOM;VL_CONTA\n11.111.111/0001-11;ACME SA;1234,56\n",
	})

	destDir := t.TempDir()
	tr := New(governor.Default())
	shards, err := tr.Transcode(zipPath, destDir)
	require.NoError(t, err)
	require.Len(t, shards, 1)

	rows, err := columnar.ReadAll[row](shards[0])
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME SA", rows[0].Values["DENOM"])
	assert.Equal(t, "1234.56", rows[0].Values["VL_CONTA"])
}

func TestTranscodeSkipsMemberWithExistingShard(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "ipe_cia_aberta_2023.zip")
	writeTestZip(t, zipPath, map[string]string{
		"ipe_cia_aberta_2023.csv": "A;B\n1;2\n",
	})

	destDir := t.TempDir()
	existingShard := filepath.Join(destDir, "ipe_cia_aberta_2023.col")
	require.NoError(t, os.WriteFile(existingShard, []byte("stale"), 0o644))

	tr := New(governor.Default())
	shards, err := tr.Transcode(zipPath, destDir)
	require.NoError(t, err)
	assert.Empty(t, shards)

	got, err := os.ReadFile(existingShard)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(got))
}

func TestTranscodeCSVWritesShardForPlainFile(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "cad_cia_aberta.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("CNPJ;DENOM\n11.111.111/0001-11;ACME SA\n"), 0o644))

	destDir := t.TempDir()
	tr := New(governor.Default())
	shardPath, err := tr.TranscodeCSV(csvPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(destDir, "cad_cia_aberta.col"), shardPath)

	rows, err := columnar.ReadAll[row](shardPath)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "ACME SA", rows[0].Values["DENOM"])
}

func TestTranscodeCSVIsIdempotentOnExistingShard(t *testing.T) {
	dir := t.TempDir()
	csvPath := filepath.Join(dir, "cad_cia_aberta.csv")
	require.NoError(t, os.WriteFile(csvPath, []byte("CNPJ;DENOM\n11.111.111/0001-11;ACME SA\n"), 0o644))

	destDir := t.TempDir()
	existingShard := filepath.Join(destDir, "cad_cia_aberta.col")
	require.NoError(t, os.WriteFile(existingShard, []byte("stale"), 0o644))

	tr := New(governor.Default())
	shardPath, err := tr.TranscodeCSV(csvPath, destDir)
	require.NoError(t, err)
	assert.Equal(t, existingShard, shardPath)

	got, err := os.ReadFile(existingShard)
	require.NoError(t, err)
	assert.Equal(t, "stale", string(got))
}

func TestTranscodeRollsBackOnOversizedMember(t *testing.T) {
	dir := t.TempDir()
	zipPath := filepath.Join(dir, "fre_cia_aberta_2021.zip")
	writeTestZip(t, zipPath, map[string]string{
		"first.csv":  "A;B\n1;2\n",
		"second.csv": "A;B\n3;4\n",
	})

	destDir := t.TempDir()
	tr := New(governor.Default())
	tr.SizeCapBytes = 1 // every member now exceeds the cap

	shards, err := tr.Transcode(zipPath, destDir)
	require.Error(t, err)
	assert.Empty(t, shards)

	entries, err := os.ReadDir(destDir)
	require.NoError(t, err)
	assert.Empty(t, entries, "failed run must leave no shard behind")
}
