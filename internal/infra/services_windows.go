//go:build windows

package infra

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/shirou/gopsutil/v3/process"
	"go.uber.org/zap"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/winstack/startupmgr/internal/domain"
)

// ServiceReader enumerates Win32 services through the service control
// manager. It pre-populates enabled/run-state/runs-as/last-ran because
// no other source can supply them as accurately.
type ServiceReader struct {
	logger *zap.Logger
}

// NewServiceReader creates the service reader.
func NewServiceReader(logger *zap.Logger) *ServiceReader {
	return &ServiceReader{logger: logger}
}

func (r *ServiceReader) Name() string { return "services" }

func (r *ServiceReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	m, err := mgr.Connect()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer m.Disconnect()

	names, err := m.ListServices()
	if err != nil {
		return nil, fmt.Errorf("failed to enumerate services: %w", err)
	}

	// The SCM reports a PID per running service; a separate process walk
	// turns those into start times.
	startTimes := processStartTimesByPID()

	var entries []domain.StartupEntry
	for _, name := range names {
		entry, ok := r.readService(m, name, startTimes)
		if ok {
			entries = append(entries, entry)
		}
	}
	return entries, nil
}

func (r *ServiceReader) readService(m *mgr.Mgr, name string, startTimes map[int32]time.Time) (domain.StartupEntry, bool) {
	s, err := m.OpenService(name)
	if err != nil {
		return domain.StartupEntry{}, false
	}
	defer s.Close()

	cfg, err := s.Config()
	if err != nil {
		return domain.StartupEntry{}, false
	}
	if strings.TrimSpace(cfg.BinaryPathName) == "" {
		return domain.StartupEntry{}, false
	}

	displayName := cfg.DisplayName
	if displayName == "" {
		displayName = name
	}

	source := domain.Service{ServiceName: name, CommandLine: cfg.BinaryPathName}
	entry := domain.NewStartupEntry(displayName, cfg.BinaryPathName, source)
	entry.Enabled = startTypeStatus(cfg.StartType)
	entry.RunsAs = cleanAccountName(cfg.ServiceStartName)
	entry.Description = ServiceDescription(name)

	status, err := s.Query()
	if err == nil {
		if status.State == svc.Running {
			entry.RunState = domain.StateRunning
		}
		if status.ProcessId > 0 {
			if started, ok := startTimes[int32(status.ProcessId)]; ok {
				entry.LastRan = started
			}
		}
	}

	return entry, true
}

// processStartTimesByPID maps live PIDs to their start times.
func processStartTimesByPID() map[int32]time.Time {
	starts := make(map[int32]time.Time)
	procs, err := process.Processes()
	if err != nil {
		return starts
	}
	for _, p := range procs {
		ms, err := p.CreateTime()
		if err != nil || ms <= 0 {
			continue
		}
		starts[p.Pid] = time.UnixMilli(ms).Local()
	}
	return starts
}

// ServiceDescription fetches a service's description from the registry.
// Best-effort: failures read as "".
func ServiceDescription(serviceName string) string {
	k, err := openServiceKey(serviceName)
	if err != nil {
		return ""
	}
	defer k.Close()
	desc, _, err := k.GetStringValue("Description")
	if err != nil {
		return ""
	}
	return desc
}

// Ensure ServiceReader implements domain.SourceReader.
var _ domain.SourceReader = (*ServiceReader)(nil)
