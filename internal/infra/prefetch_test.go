package infra

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParsePrefetchName(t *testing.T) {
	tests := []struct {
		name    string
		input   string
		wantExe string
		wantOK  bool
	}{
		{"typical record", "CHROME.EXE-AB12CD34.pf", "CHROME.EXE", true},
		{"lowercase extension tolerated", "notepad.exe-12345678.PF", "NOTEPAD.EXE", true},
		{"dash inside exe name", "MY-APP.EXE-DEADBEEF.pf", "MY-APP.EXE", true},
		{"no hash suffix", "CHROME.EXE.pf", "", false},
		{"wrong extension", "CHROME.EXE-AB12CD34.txt", "", false},
		{"no dash at all", "READYBOOT.pf", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			exe, ok := parsePrefetchName(tt.input)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.wantExe, exe)
		})
	}
}

func TestPrefetchScanner_InaccessibleDir(t *testing.T) {
	cache := NewPrefetchScannerWithDir(filepath.Join(t.TempDir(), "does-not-exist")).Scan()

	assert.False(t, cache.Accessible())
	_, ok := cache.LastRan("CHROME.EXE")
	assert.False(t, ok)
}

func TestPrefetchScanner_ReadsRecords(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, filepath.Join(dir, "CHROME.EXE-AB12CD34.pf"),
		time.Date(2024, time.March, 1, 10, 0, 0, 0, time.Local))
	writeFileAt(t, filepath.Join(dir, "IGNORED.txt"), time.Now())

	cache := NewPrefetchScannerWithDir(dir).Scan()

	assert.True(t, cache.Accessible())
	ran, ok := cache.LastRan("CHROME.EXE")
	require.True(t, ok)
	assert.Equal(t, 2024, ran.Year())

	_, ok = cache.LastRan("IGNORED")
	assert.False(t, ok)
}

func TestPrefetchScanner_KeepsMostRecentRecord(t *testing.T) {
	dir := t.TempDir()
	older := time.Date(2024, time.January, 1, 0, 0, 0, 0, time.Local)
	newer := time.Date(2024, time.June, 1, 0, 0, 0, 0, time.Local)
	writeFileAt(t, filepath.Join(dir, "APP.EXE-11111111.pf"), older)
	writeFileAt(t, filepath.Join(dir, "APP.EXE-22222222.pf"), newer)

	cache := NewPrefetchScannerWithDir(dir).Scan()

	ran, ok := cache.LastRan("APP.EXE")
	require.True(t, ok)
	assert.True(t, newer.Equal(ran))
}

func TestPrefetchCache_LookupIsCaseInsensitive(t *testing.T) {
	dir := t.TempDir()
	writeFileAt(t, filepath.Join(dir, "CHROME.EXE-AB12CD34.pf"), time.Now())

	cache := NewPrefetchScannerWithDir(dir).Scan()

	_, ok := cache.LastRan("chrome.exe")
	assert.True(t, ok)
}

func writeFileAt(t *testing.T, path string, mtime time.Time) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte("x"), 0600))
	require.NoError(t, os.Chtimes(path, mtime, mtime))
}
