package infra

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/winstack/startupmgr/internal/domain"
)

// handoffFileName is the fixed name of the temp-directory file carrying
// the non-admin task path set across a privilege-escalating restart.
const handoffFileName = "app-manager-nonadmin.txt"

// FileHandoff implements domain.HandoffStore as a newline-delimited
// file in the system temp directory. It must survive a full process
// exit and relaunch under a different privilege token, which is why it
// cannot be in-memory state or an IPC channel.
type FileHandoff struct {
	path string
}

// NewFileHandoff uses the well-known temp-directory location.
func NewFileHandoff() *FileHandoff {
	return &FileHandoff{path: filepath.Join(os.TempDir(), handoffFileName)}
}

// NewFileHandoffWithPath uses a specific file (for tests).
func NewFileHandoffWithPath(path string) *FileHandoff {
	return &FileHandoff{path: path}
}

// Path returns the handoff file location.
func (h *FileHandoff) Path() string { return h.path }

// Save overwrites the stored path set.
func (h *FileHandoff) Save(taskPaths []string) error {
	data := strings.Join(taskPaths, "\n")
	if err := os.WriteFile(h.path, []byte(data), 0600); err != nil {
		return fmt.Errorf("failed to write handoff file: %w", err)
	}
	return nil
}

// Consume reads and deletes the stored set. Stale leftovers must never
// affect a future run, so deletion happens even if the content turns
// out to be empty. A missing file is a normal state.
func (h *FileHandoff) Consume() ([]string, bool, error) {
	data, err := os.ReadFile(h.path)
	if os.IsNotExist(err) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("failed to read handoff file: %w", err)
	}
	_ = os.Remove(h.path)

	var paths []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimSpace(line)
		if line != "" {
			paths = append(paths, line)
		}
	}
	return paths, true, nil
}

// Ensure FileHandoff implements domain.HandoffStore.
var _ domain.HandoffStore = (*FileHandoff)(nil)
