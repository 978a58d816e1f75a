package collectlogs

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollect(t *testing.T) {
	dir := t.TempDir()
	logFile := filepath.Join(dir, "alfa-scout.log")
	require.NoError(t, os.WriteFile(logFile, []byte("INFO: hello\n"), 0644))

	reportsDir := filepath.Join(dir, "reports")
	require.NoError(t, os.MkdirAll(reportsDir, 0755))
	require.NoError(t, os.WriteFile(filepath.Join(reportsDir, "survey.json"), []byte("{}"), 0644))

	zipName := filepath.Join(dir, "bundle.zip")
	err := Collect(zipName, Inputs{LogFile: logFile, ReportsDir: reportsDir})
	require.NoError(t, err)

	zr, err := zip.OpenReader(zipName)
	require.NoError(t, err)
	defer zr.Close()

	names := make(map[string]bool)
	for _, f := range zr.File {
		names[filepath.Base(f.Name)] = true
	}
	assert.True(t, names["alfa-scout.log"])
	assert.True(t, names["survey.json"])
	assert.True(t, names["version.txt"])
	assert.True(t, names["system-info.txt"])
}

func TestCollect_MissingInputsStillProducesBundle(t *testing.T) {
	zipName := filepath.Join(t.TempDir(), "bundle.zip")
	err := Collect(zipName, Inputs{LogFile: "does/not/exist.log", ReportsDir: ""})
	require.NoError(t, err)

	zr, err := zip.OpenReader(zipName)
	require.NoError(t, err)
	defer zr.Close()
	assert.GreaterOrEqual(t, len(zr.File), 2, "version and system info are always present")
}
