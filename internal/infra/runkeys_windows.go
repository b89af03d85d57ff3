//go:build windows

package infra

import (
	"context"

	"golang.org/x/sys/windows/registry"

	"github.com/winstack/startupmgr/internal/domain"
)

type runKeyInfo struct {
	hive    domain.RegistryHive
	keyPath string
}

var runKeys = []runKeyInfo{
	{domain.HiveHKCU, `Software\Microsoft\Windows\CurrentVersion\Run`},
	{domain.HiveHKLM, `Software\Microsoft\Windows\CurrentVersion\Run`},
	// 32-bit app entries on 64-bit Windows
	{domain.HiveHKLM, `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\Run`},
}

var runOnceKeys = []runKeyInfo{
	{domain.HiveHKCU, `Software\Microsoft\Windows\CurrentVersion\RunOnce`},
	{domain.HiveHKLM, `Software\Microsoft\Windows\CurrentVersion\RunOnce`},
	{domain.HiveHKLM, `Software\Wow6432Node\Microsoft\Windows\CurrentVersion\RunOnce`},
}

func hiveKey(hive domain.RegistryHive) registry.Key {
	if hive == domain.HiveHKLM {
		return registry.LOCAL_MACHINE
	}
	return registry.CURRENT_USER
}

// RunKeyReader enumerates the Run keys of both hives.
type RunKeyReader struct{}

// NewRunKeyReader creates the Run key reader.
func NewRunKeyReader() *RunKeyReader { return &RunKeyReader{} }

func (r *RunKeyReader) Name() string { return "registry-run" }

func (r *RunKeyReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	return scanRunKeys(runKeys, func(info runKeyInfo) domain.Source {
		return domain.RegistryRun{Hive: info.hive, KeyPath: info.keyPath}
	}), nil
}

// RunOnceReader enumerates the RunOnce keys of both hives.
type RunOnceReader struct{}

// NewRunOnceReader creates the RunOnce key reader.
func NewRunOnceReader() *RunOnceReader { return &RunOnceReader{} }

func (r *RunOnceReader) Name() string { return "registry-runonce" }

func (r *RunOnceReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	return scanRunKeys(runOnceKeys, func(info runKeyInfo) domain.Source {
		return domain.RegistryRunOnce{Hive: info.hive, KeyPath: info.keyPath}
	}), nil
}

// scanRunKeys reads every string value of every listed key. Keys that
// cannot be opened contribute nothing; values of other types (binary,
// dword) are not launch commands and are skipped.
func scanRunKeys(keys []runKeyInfo, makeSource func(runKeyInfo) domain.Source) []domain.StartupEntry {
	var entries []domain.StartupEntry
	for _, info := range keys {
		k, err := registry.OpenKey(hiveKey(info.hive), info.keyPath, registry.QUERY_VALUE)
		if err != nil {
			continue
		}

		names, err := k.ReadValueNames(0)
		if err != nil {
			k.Close()
			continue
		}
		for _, name := range names {
			if name == "" {
				continue
			}
			command, _, err := k.GetStringValue(name)
			if err != nil || command == "" {
				continue
			}
			entries = append(entries, domain.NewStartupEntry(name, command, makeSource(info)))
		}
		k.Close()
	}
	return entries
}

var (
	_ domain.SourceReader = (*RunKeyReader)(nil)
	_ domain.SourceReader = (*RunOnceReader)(nil)
)
