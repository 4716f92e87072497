package columnar

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sampleRow struct {
	ID   int64  `parquet:"id"`
	Name string `parquet:"name"`
}

func TestWriteAllAndReadAllRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sample.col")
	rows := []sampleRow{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}

	require.NoError(t, WriteAll(path, rows, 2))

	got, err := ReadAll[sampleRow](path)
	require.NoError(t, err)
	assert.Equal(t, rows, got)
}

func TestWriteEmptyProducesZeroRows(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.col")
	require.NoError(t, WriteEmpty[sampleRow](path))

	got, err := ReadAll[sampleRow](path)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestConsolidateMergesShardsInOrder(t *testing.T) {
	dir := t.TempDir()
	shard1 := filepath.Join(dir, "shard-0.col")
	shard2 := filepath.Join(dir, "shard-1.col")
	require.NoError(t, WriteAll(shard1, []sampleRow{{ID: 1, Name: "a"}}, 10))
	require.NoError(t, WriteAll(shard2, []sampleRow{{ID: 2, Name: "b"}, {ID: 3, Name: "c"}}, 10))

	out := filepath.Join(dir, "final.col")
	require.NoError(t, Consolidate[sampleRow]([]string{shard1, shard2}, out))

	got, err := ReadAll[sampleRow](out)
	require.NoError(t, err)
	assert.Equal(t, []sampleRow{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}, got)

	_, statErr := filepath.EvalSymlinks(out + ".tmp")
	assert.Error(t, statErr, "temp file should not remain after a successful consolidate")
}
