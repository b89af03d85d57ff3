package infra

import (
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/winstack/startupmgr/internal/domain"
)

const defaultPrefetchDir = `C:\Windows\Prefetch`

// PrefetchScanner implements domain.PrefetchScanner over the Windows
// prefetch directory. The directory is only readable by elevated
// processes, so scan failure is information, not an error.
type PrefetchScanner struct {
	dir string
}

// NewPrefetchScanner scans the system prefetch directory.
func NewPrefetchScanner() *PrefetchScanner {
	return &PrefetchScanner{dir: defaultPrefetchDir}
}

// NewPrefetchScannerWithDir scans a specific directory (for config
// overrides and tests).
func NewPrefetchScannerWithDir(dir string) *PrefetchScanner {
	return &PrefetchScanner{dir: dir}
}

// Scan reads every .pf record once, tracking the most recent
// modification time per executable identifier.
func (s *PrefetchScanner) Scan() domain.PrefetchCache {
	cache := &prefetchCache{lastRan: make(map[string]time.Time)}

	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return cache
	}
	cache.accessible = true

	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		exe, ok := parsePrefetchName(de.Name())
		if !ok {
			continue
		}
		info, err := de.Info()
		if err != nil {
			continue
		}
		modified := info.ModTime()
		if existing, ok := cache.lastRan[exe]; !ok || modified.After(existing) {
			cache.lastRan[exe] = modified
		}
	}

	return cache
}

// parsePrefetchName extracts the executable identifier from a prefetch
// record name: "CHROME.EXE-AB12CD34.pf" -> "CHROME.EXE".
func parsePrefetchName(name string) (string, bool) {
	if !strings.EqualFold(filepath.Ext(name), ".pf") {
		return "", false
	}
	withoutExt := name[:len(name)-len(".pf")]
	dash := strings.LastIndexByte(withoutExt, '-')
	if dash < 0 {
		return "", false
	}
	return strings.ToUpper(withoutExt[:dash]), true
}

type prefetchCache struct {
	accessible bool
	lastRan    map[string]time.Time
}

func (c *prefetchCache) Accessible() bool { return c.accessible }

func (c *prefetchCache) LastRan(exeName string) (time.Time, bool) {
	t, ok := c.lastRan[strings.ToUpper(exeName)]
	return t, ok
}

// Ensure PrefetchScanner implements domain.PrefetchScanner.
var _ domain.PrefetchScanner = (*PrefetchScanner)(nil)
