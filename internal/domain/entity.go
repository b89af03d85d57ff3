// Package domain contains core business entities and interfaces.
// This is the innermost layer in Clean Architecture - no external dependencies.
package domain

import (
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// RegistryHive identifies the registry root a source lives under.
type RegistryHive string

const (
	HiveHKCU RegistryHive = "HKCU"
	HiveHKLM RegistryHive = "HKLM"
)

// SourceKind orders the closed set of autostart mechanisms. The numeric
// value is the primary sort key for entry lists.
type SourceKind int

const (
	KindRegistryRun SourceKind = iota
	KindRegistryRunOnce
	KindStartupFolder
	KindTaskScheduler
	KindService
)

func (k SourceKind) String() string {
	switch k {
	case KindRegistryRun:
		return "Registry Run"
	case KindRegistryRunOnce:
		return "Registry RunOnce"
	case KindStartupFolder:
		return "Startup Folder"
	case KindTaskScheduler:
		return "Task Scheduler"
	case KindService:
		return "Service"
	}
	return "Unknown"
}

// Source identifies the OS object an entry represents. The variant set
// is fixed by the Windows platform; implementations are value structs so
// sources compare with ==.
type Source interface {
	Kind() SourceKind
	// Location is a human-readable description of where the entry lives.
	Location() string
}

// RegistryRun is a value under a Run key. Toggled via the
// StartupApproved side-table, never by deleting the value.
type RegistryRun struct {
	Hive    RegistryHive
	KeyPath string
}

func (s RegistryRun) Kind() SourceKind { return KindRegistryRun }
func (s RegistryRun) Location() string { return string(s.Hive) + `\` + s.KeyPath }

// RegistryRunOnce is a value under a RunOnce key. Fires once by design,
// so it cannot be toggled; delete is the only lifecycle action.
type RegistryRunOnce struct {
	Hive    RegistryHive
	KeyPath string
}

func (s RegistryRunOnce) Kind() SourceKind { return KindRegistryRunOnce }
func (s RegistryRunOnce) Location() string { return string(s.Hive) + `\` + s.KeyPath }

// StartupFolder is a file in a Startup folder. The side-table identity
// is the file name, not the friendly display name.
type StartupFolder struct {
	Path     string
	IsCommon bool
}

func (s StartupFolder) Kind() SourceKind { return KindStartupFolder }
func (s StartupFolder) Location() string {
	if s.IsCommon {
		return "Common Startup Folder"
	}
	return "User Startup Folder"
}

// FileName returns the underlying file name used for side-table lookups.
func (s StartupFolder) FileName() string { return baseName(s.Path) }

// TaskScheduler is a scheduled task. It carries its own enabled flag and
// run history and is never reconciled against the side-table.
type TaskScheduler struct {
	TaskPath string
}

func (s TaskScheduler) Kind() SourceKind { return KindTaskScheduler }
func (s TaskScheduler) Location() string { return "Task: " + s.TaskPath }

// Service is a Windows service. Enabled/disabled via start-type; has
// true start/stop process semantics unlike the other variants.
type Service struct {
	ServiceName string
	CommandLine string
}

func (s Service) Kind() SourceKind { return KindService }
func (s Service) Location() string { return s.CommandLine }

// EnabledStatus is the four-state enable flag of an entry.
type EnabledStatus string

const (
	StatusEnabled  EnabledStatus = "Enabled"
	StatusDisabled EnabledStatus = "Disabled"
	StatusManual   EnabledStatus = "Manual"
	StatusUnknown  EnabledStatus = "Unknown"
)

// RunState says whether the entry's executable is currently running.
type RunState string

const (
	StateRunning RunState = "Running"
	StateStopped RunState = "Stopped"
)

// StartupEntry is one discovered autostart mechanism instance.
// Source is immutable after creation; together with Name it identifies
// the OS object actions operate on. Name is always the discovered
// identifier (registry value name, file stem, task name, service
// display name); presentation overrides go in DisplayName so they can
// never leak into action or side-table keys.
type StartupEntry struct {
	Name          string
	DisplayName   string // friendly override, presentation only
	Command       string
	Source        Source
	Enabled       EnabledStatus
	RunState      RunState
	LastRan       time.Time // zero means unknown
	RequiresAdmin bool
	RunsAs        string
	ProductName   string
	Description   string
}

// NewStartupEntry creates an entry with enrichment fields at their
// defaults. Readers set name, command and source only.
func NewStartupEntry(name, command string, source Source) StartupEntry {
	return StartupEntry{
		Name:     name,
		Command:  command,
		Source:   source,
		Enabled:  StatusUnknown,
		RunState: StateStopped,
	}
}

// Display returns the name to present: the friendly override when one
// is set, the discovered name otherwise.
func (e *StartupEntry) Display() string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}

// ExeName returns the lower-cased executable file name extracted from
// the entry's command, or "" if none can be determined.
func (e *StartupEntry) ExeName() string {
	return ExtractExeName(e.Command)
}

// ExtractExeName pulls the bare executable file name out of a raw launch
// string: quoting and arguments are stripped, %VAR% references expanded,
// and the path reduced to its base name, lower-cased.
func ExtractExeName(command string) string {
	command = strings.TrimSpace(command)
	if command == "" {
		return ""
	}

	var pathStr string
	if strings.HasPrefix(command, `"`) {
		rest := command[1:]
		if end := strings.Index(rest, `"`); end >= 0 {
			pathStr = rest[:end]
		} else {
			pathStr = rest
		}
	} else {
		pathStr = strings.Fields(command)[0]
	}
	if pathStr == "" {
		return ""
	}

	base := baseName(ExpandEnvVars(pathStr))
	if base == "" || base == "." {
		return ""
	}
	return strings.ToLower(base)
}

// baseName is filepath.Base that also understands backslash-separated
// Windows paths when running on other platforms (tests).
func baseName(path string) string {
	base := filepath.Base(path)
	if i := strings.LastIndexByte(base, '\\'); i >= 0 {
		base = base[i+1:]
	}
	return base
}

// ExpandEnvVars expands %VAR% references against the process
// environment. It stops at the first variable it cannot resolve.
func ExpandEnvVars(s string) string {
	for {
		start := strings.IndexByte(s, '%')
		if start < 0 {
			return s
		}
		end := strings.IndexByte(s[start+1:], '%')
		if end < 0 {
			return s
		}
		value, ok := os.LookupEnv(s[start+1 : start+1+end])
		if !ok {
			return s
		}
		s = s[:start] + value + s[start+2+end:]
	}
}

// SortEntries orders entries by source-kind precedence, then by
// case-insensitive name. The sort is stable and total.
func SortEntries(entries []StartupEntry) {
	sort.SliceStable(entries, func(i, j int) bool {
		ki, kj := entries[i].Source.Kind(), entries[j].Source.Kind()
		if ki != kj {
			return ki < kj
		}
		return strings.ToLower(entries[i].Name) < strings.ToLower(entries[j].Name)
	})
}

// CollectionResult is the output of one collection pass, fully owned by
// the receiver. A newer pass's result replaces it wholesale.
type CollectionResult struct {
	Entries []StartupEntry
	IsAdmin bool
}
