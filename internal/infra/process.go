// Package infra implements infrastructure concerns (registry, COM,
// services, filesystem, process enumeration).
package infra

import (
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/domain"
)

// ProcScanner implements domain.ProcessScanner using gopsutil.
type ProcScanner struct {
	logger *zap.Logger
}

// NewProcScanner creates a process scanner.
func NewProcScanner(logger *zap.Logger) *ProcScanner {
	return &ProcScanner{logger: logger}
}

// Snapshot walks all live processes once and returns an immutable view.
func (s *ProcScanner) Snapshot() domain.ProcessSnapshot {
	snap := &procSnapshot{
		running: make(map[string]struct{}),
		starts:  make(map[string]time.Time),
	}

	procs, err := process.Processes()
	if err != nil {
		s.logger.Warn("process enumeration failed", zap.Error(err))
		return snap
	}

	for _, p := range procs {
		name, err := p.Name()
		if err != nil {
			continue // process may have exited mid-walk
		}
		name = strings.ToLower(name)
		snap.running[name] = struct{}{}

		ms, err := p.CreateTime()
		if err != nil || ms <= 0 {
			continue
		}
		started := time.UnixMilli(ms).Local()
		// A name may map to several instances; keep the earliest start.
		if existing, ok := snap.starts[name]; !ok || started.Before(existing) {
			snap.starts[name] = started
		}
	}

	return snap
}

type procSnapshot struct {
	running map[string]struct{}
	starts  map[string]time.Time
}

func (s *procSnapshot) IsRunning(exeName string) bool {
	_, ok := s.running[strings.ToLower(exeName)]
	return ok
}

func (s *procSnapshot) StartTime(exeName string) (time.Time, bool) {
	t, ok := s.starts[strings.ToLower(exeName)]
	return t, ok
}

// Ensure ProcScanner implements domain.ProcessScanner.
var _ domain.ProcessScanner = (*ProcScanner)(nil)
