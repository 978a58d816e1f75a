// Package collectlogs builds a support zip with the log file, survey
// reports, config, and system information for field diagnostics.
package collectlogs

import (
	"archive/zip"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"alfa-scout/internal/metadata"
	"alfa-scout/internal/version"
)

// Inputs names the files worth bundling. Empty or missing entries are
// skipped silently: a bundle from a half-configured host is still useful.
type Inputs struct {
	LogFile    string
	ReportsDir string
	ConfigPath string
}

// Collect writes a zip archive at zipName with everything in Inputs plus
// version and system info.
func Collect(zipName string, in Inputs) error {
	zipFile, err := os.Create(zipName)
	if err != nil {
		return fmt.Errorf("failed to create zip: %w", err)
	}
	defer zipFile.Close()

	zw := zip.NewWriter(zipFile)
	defer zw.Close()

	if in.LogFile != "" {
		_ = addFile(zw, in.LogFile)
	}
	if in.ReportsDir != "" {
		_ = addDir(zw, in.ReportsDir)
	}
	if in.ConfigPath != "" {
		_ = addFile(zw, in.ConfigPath)
	}

	if err := addString(zw, "version.txt", version.Version+"\n"); err != nil {
		return err
	}
	return addString(zw, "system-info.txt", metadata.Describe())
}

func addFile(zw *zip.Writer, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w, err := zw.Create(filepath.ToSlash(path))
	if err != nil {
		return err
	}
	_, err = io.Copy(w, f)
	return err
}

func addDir(zw *zip.Writer, dir string) error {
	return filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		return addFile(zw, path)
	})
}

func addString(zw *zip.Writer, name, content string) error {
	w, err := zw.Create(name)
	if err != nil {
		return err
	}
	_, err = w.Write([]byte(content))
	return err
}
