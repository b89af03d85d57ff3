//go:build windows

package infra

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"
	"golang.org/x/sys/windows/svc"
	"golang.org/x/sys/windows/svc/mgr"

	"github.com/winstack/startupmgr/internal/domain"
)

// WindowsActions implements domain.ActionDispatcher against the live
// system. Unlike collection, every failure here is surfaced: the user
// asked for this specific action and needs to know it did not happen.
type WindowsActions struct {
	logger *zap.Logger
}

// NewWindowsActions creates the dispatcher.
func NewWindowsActions(logger *zap.Logger) *WindowsActions {
	return &WindowsActions{logger: logger}
}

// Enable re-enables a disabled entry.
func (a *WindowsActions) Enable(entry domain.StartupEntry) error {
	return a.setEnabled(entry, true)
}

// Disable turns an entry off without deleting it.
func (a *WindowsActions) Disable(entry domain.StartupEntry) error {
	return a.setEnabled(entry, false)
}

func (a *WindowsActions) setEnabled(entry domain.StartupEntry, enabled bool) error {
	switch src := entry.Source.(type) {
	case domain.RegistryRun:
		return writeApproval(src.Hive, "Run", entry.Name, enabled)
	case domain.RegistryRunOnce:
		return errors.New("RunOnce entries cannot be toggled")
	case domain.StartupFolder:
		hive := domain.HiveHKCU
		if src.IsCommon {
			hive = domain.HiveHKLM
		}
		return writeApproval(hive, "StartupFolder", src.FileName(), enabled)
	case domain.TaskScheduler:
		flag := "/DISABLE"
		if enabled {
			flag = "/ENABLE"
		}
		return runHidden("schtasks", "/Change", "/TN", src.TaskPath, flag)
	case domain.Service:
		startType := uint32(mgr.StartDisabled)
		if enabled {
			startType = mgr.StartAutomatic
		}
		return a.setServiceStartType(src.ServiceName, startType)
	}
	return fmt.Errorf("unsupported source kind %v", entry.Source.Kind())
}

// Start launches the entry's command, or starts the service for Service
// entries.
func (a *WindowsActions) Start(entry domain.StartupEntry) error {
	if src, ok := entry.Source.(domain.Service); ok {
		return a.withService(src.ServiceName, func(s *mgr.Service) error {
			if err := s.Start(); err != nil {
				return fmt.Errorf("failed to start service %s: %w", src.ServiceName, err)
			}
			return nil
		})
	}
	if strings.TrimSpace(entry.Command) == "" {
		return errors.New("entry has no command to launch")
	}
	// cmd's "start" detaches the child and understands quoted commands.
	return runHidden("cmd", "/C", "start", "", entry.Command)
}

// Stop stops a Service entry; the other sources have no process to stop
// beyond what the task manager offers.
func (a *WindowsActions) Stop(entry domain.StartupEntry) error {
	src, ok := entry.Source.(domain.Service)
	if !ok {
		return fmt.Errorf("%s entries cannot be stopped", entry.Source.Kind())
	}
	return a.withService(src.ServiceName, func(s *mgr.Service) error {
		if _, err := s.Control(svc.Stop); err != nil {
			return fmt.Errorf("failed to stop service %s: %w", src.ServiceName, err)
		}
		return nil
	})
}

// Delete removes the entry from its originating subsystem.
func (a *WindowsActions) Delete(entry domain.StartupEntry) error {
	switch src := entry.Source.(type) {
	case domain.RegistryRun:
		if err := deleteRunValue(src.Hive, src.KeyPath, entry.Name); err != nil {
			return err
		}
		deleteApproval(src.Hive, "Run", entry.Name)
		deleteApproval(src.Hive, "Run32", entry.Name)
		return nil
	case domain.RegistryRunOnce:
		return deleteRunValue(src.Hive, src.KeyPath, entry.Name)
	case domain.StartupFolder:
		if err := os.Remove(src.Path); err != nil {
			return fmt.Errorf("failed to delete startup file: %w", err)
		}
		hive := domain.HiveHKCU
		if src.IsCommon {
			hive = domain.HiveHKLM
		}
		deleteApproval(hive, "StartupFolder", src.FileName())
		return nil
	case domain.TaskScheduler:
		return runHidden("schtasks", "/Delete", "/TN", src.TaskPath, "/F")
	case domain.Service:
		return errors.New("deleting services is not supported; disable it instead")
	}
	return fmt.Errorf("unsupported source kind %v", entry.Source.Kind())
}

// writeApproval rewrites an entry's StartupApproved record. The OS
// format: byte 0 is the status, bytes 4..12 the disable FILETIME.
func writeApproval(hive domain.RegistryHive, branch, valueName string, enabled bool) error {
	keyPath := domain.StartupApprovedPath + `\` + branch
	k, _, err := registry.CreateKey(hiveKey(hive), keyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open %s\\%s: %w", hive, keyPath, err)
	}
	defer k.Close()

	record := make([]byte, 12)
	if enabled {
		record[0] = 0x02
	} else {
		record[0] = 0x03
		binary.LittleEndian.PutUint64(record[4:12], domain.TimeToFiletime(time.Now()))
	}
	if err := k.SetBinaryValue(valueName, record); err != nil {
		return fmt.Errorf("failed to write approval record: %w", err)
	}
	return nil
}

// deleteApproval removes a side-table record. Absence is fine.
func deleteApproval(hive domain.RegistryHive, branch, valueName string) {
	keyPath := domain.StartupApprovedPath + `\` + branch
	k, err := registry.OpenKey(hiveKey(hive), keyPath, registry.SET_VALUE)
	if err != nil {
		return
	}
	defer k.Close()
	_ = k.DeleteValue(valueName)
}

func deleteRunValue(hive domain.RegistryHive, keyPath, valueName string) error {
	k, err := registry.OpenKey(hiveKey(hive), keyPath, registry.SET_VALUE)
	if err != nil {
		return fmt.Errorf("failed to open %s\\%s: %w", hive, keyPath, err)
	}
	defer k.Close()
	if err := k.DeleteValue(valueName); err != nil {
		return fmt.Errorf("failed to delete registry value %q: %w", valueName, err)
	}
	return nil
}

func (a *WindowsActions) setServiceStartType(serviceName string, startType uint32) error {
	return a.withService(serviceName, func(s *mgr.Service) error {
		cfg, err := s.Config()
		if err != nil {
			return fmt.Errorf("failed to read config of %s: %w", serviceName, err)
		}
		cfg.StartType = startType
		if err := s.UpdateConfig(cfg); err != nil {
			return fmt.Errorf("failed to update start type of %s: %w", serviceName, err)
		}
		return nil
	})
}

func (a *WindowsActions) withService(serviceName string, fn func(*mgr.Service) error) error {
	m, err := mgr.Connect()
	if err != nil {
		return fmt.Errorf("failed to connect to service manager: %w", err)
	}
	defer m.Disconnect()

	s, err := m.OpenService(serviceName)
	if err != nil {
		return fmt.Errorf("failed to open service %s: %w", serviceName, err)
	}
	defer s.Close()

	return fn(s)
}

// runHidden executes a console tool without flashing a window.
func runHidden(name string, args ...string) error {
	cmd := exec.Command(name, args...)
	cmd.SysProcAttr = &syscall.SysProcAttr{
		HideWindow:    true,
		CreationFlags: windows.CREATE_NO_WINDOW,
	}
	output, err := cmd.CombinedOutput()
	if err != nil {
		msg := strings.TrimSpace(string(output))
		if msg != "" {
			return fmt.Errorf("%s failed: %s", name, msg)
		}
		return fmt.Errorf("%s failed: %w", name, err)
	}
	return nil
}

// Ensure WindowsActions implements domain.ActionDispatcher.
var _ domain.ActionDispatcher = (*WindowsActions)(nil)
