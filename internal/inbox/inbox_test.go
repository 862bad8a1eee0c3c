package inbox

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, path string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("1624507883, JOHN DOE, DEBIT, 250000, SUCCESS, restaurant\n"), 0o644))
}

func TestScan_OnlyCSVsSortedByName(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "march.csv"))
	write(t, filepath.Join(dir, "april.CSV"))
	write(t, filepath.Join(dir, "notes.txt"))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "april.CSV", files[0].Name)
	assert.Equal(t, "march.csv", files[1].Name)
	assert.Equal(t, filepath.Join(dir, "march.csv"), files[1].Path)
	assert.Positive(t, files[1].Size)
}

func TestScan_SkipsProcessed(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.MkdirAll(filepath.Join(dir, ProcessedDir), 0o755))
	write(t, filepath.Join(dir, "new.csv"))
	write(t, filepath.Join(dir, ProcessedDir, "old.csv"))

	files, err := Scan(dir)
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "new.csv", files[0].Name)
}

func TestScan_MissingDir(t *testing.T) {
	files, err := Scan(filepath.Join(t.TempDir(), "nope"))
	require.NoError(t, err)
	assert.Nil(t, files)
}

func TestMarkProcessed(t *testing.T) {
	dir := t.TempDir()
	write(t, filepath.Join(dir, "june.csv"))

	require.NoError(t, MarkProcessed(dir, "june.csv"))

	_, err := os.Stat(filepath.Join(dir, "june.csv"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(dir, ProcessedDir, "june.csv"))
	assert.NoError(t, err)
}

func TestMarkProcessed_Missing(t *testing.T) {
	err := MarkProcessed(t.TempDir(), "ghost.csv")
	assert.Error(t, err)
}
