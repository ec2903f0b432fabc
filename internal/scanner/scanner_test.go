package scanner

import (
	"archive/zip"
	"os"
	"path/filepath"
	"testing"

	"modsync/internal/cache"
)

func writeModJar(t *testing.T, dir, name, id, version string) {
	t.Helper()
	f, err := os.Create(filepath.Join(dir, name))
	if err != nil {
		t.Fatalf("creating %s: %v", name, err)
	}
	defer func() { _ = f.Close() }()

	zw := zip.NewWriter(f)
	w, err := zw.Create("fabric.mod.json")
	if err != nil {
		t.Fatalf("creating zip entry: %v", err)
	}
	content := `{"id": "` + id + `", "name": "` + id + `", "version": "` + version + `"}`
	if _, err := w.Write([]byte(content)); err != nil {
		t.Fatalf("writing zip entry: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("closing zip writer: %v", err)
	}
}

func TestScanColdDirectoryParsesAndCaches(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, dir, "sodium-0.5.0+mc1.20.1.jar", "sodium", "0.5.0")

	c, err := cache.OpenPath(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	records, _, err := Scan(dir, c)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("len(records) = %d, want 1", len(records))
	}
	if records[0].DetectedID != "sodium" {
		t.Errorf("DetectedID = %q, want sodium", records[0].DetectedID)
	}

	if _, ok := c.Get("sodium-0.5.0+mc1.20.1.jar"); !ok {
		t.Error("cache should contain a row for the scanned file after a cold scan")
	}
}

func TestScanWarmDirectoryUsesCacheFingerprint(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, dir, "sodium-0.5.0+mc1.20.1.jar", "sodium", "0.5.0")

	c, err := cache.OpenPath(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	if _, _, err := Scan(dir, c); err != nil {
		t.Fatalf("first Scan() error = %v", err)
	}

	records, _, err := Scan(dir, c)
	if err != nil {
		t.Fatalf("second Scan() error = %v", err)
	}
	if len(records) != 1 || records[0].DetectedID != "sodium" {
		t.Errorf("warm scan records = %+v", records)
	}
}

func TestScanOrdersLexicographicallyByFilename(t *testing.T) {
	dir := t.TempDir()
	writeModJar(t, dir, "zeta.jar", "zeta", "1.0")
	writeModJar(t, dir, "alpha.jar", "alpha", "1.0")

	c, err := cache.OpenPath(filepath.Join(t.TempDir(), "cache.bolt"))
	if err != nil {
		t.Fatalf("OpenPath() error = %v", err)
	}
	defer func() { _ = c.Close() }()

	records, _, err := Scan(dir, c)
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if len(records) != 2 || records[0].Filename != "alpha.jar" || records[1].Filename != "zeta.jar" {
		t.Errorf("records = %+v, want alpha.jar before zeta.jar", records)
	}
}
