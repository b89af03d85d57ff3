package domain

import (
	"context"
	"time"
)

// SourceReader enumerates one autostart mechanism.
// Readers set name, command and source only, except the Task Scheduler
// and Service readers which have privileged access to enabled/run-state/
// runs-as/last-ran at enumeration time and pre-populate those fields.
// A reader that can enumerate some but not all entries returns what it
// found; the collector treats a failed reader as an empty contribution.
type SourceReader interface {
	// Name identifies the reader in logs.
	Name() string

	// Read returns the entries currently registered with the mechanism.
	Read(ctx context.Context) ([]StartupEntry, error)
}

// ApprovalStore reads the OS's StartupApproved side-table.
// Implementation: registry walk over the Run/Run32/StartupFolder
// branches of both hives.
type ApprovalStore interface {
	// LoadAll returns all records keyed by "HIVE\path\valuename".
	// Read fresh on every collection pass, never mutated in place.
	LoadAll() map[string]ApprovalInfo
}

// ProcessSnapshot is a point-in-time view of live processes, keyed by
// case-insensitive executable file name (not full path).
type ProcessSnapshot interface {
	// IsRunning reports whether any process with the given exe name is live.
	IsRunning(exeName string) bool

	// StartTime returns the earliest observed start time across all
	// processes sharing the exe name.
	StartTime(exeName string) (time.Time, bool)
}

// ProcessScanner builds a ProcessSnapshot.
// Implementation: uses gopsutil for the process walk.
type ProcessScanner interface {
	Snapshot() ProcessSnapshot
}

// PrefetchCache is a point-in-time view of execution-history records,
// keyed by upper-cased executable file name.
type PrefetchCache interface {
	// Accessible reports whether the scan was permitted at all. The
	// prefetch directory is only readable by elevated processes, so this
	// doubles as the collector's fallback admin-detection heuristic.
	Accessible() bool

	// LastRan returns the most recent recorded execution for the exe name.
	LastRan(exeName string) (time.Time, bool)
}

// PrefetchScanner builds a PrefetchCache.
type PrefetchScanner interface {
	Scan() PrefetchCache
}

// ProductNameResolver extracts a product name from the binary a command
// launches. Best-effort: failure yields "".
type ProductNameResolver interface {
	ProductName(command string) string
}

// ElevationChecker probes the process token directly. ok is false when
// no direct check is available on this platform, in which case the
// collector falls back to the prefetch-accessibility heuristic.
type ElevationChecker interface {
	IsElevated() (elevated bool, ok bool)
}

// HandoffStore persists the non-admin-visible task path set across a
// privilege-escalating process restart. Single-writer (written once,
// immediately before escalation), single-reader-then-delete. Absence is
// a normal state, not an error.
type HandoffStore interface {
	// Save overwrites the stored path set.
	Save(taskPaths []string) error

	// Consume reads and deletes the stored set. found is false when no
	// set was saved.
	Consume() (taskPaths []string, found bool, err error)
}

// ActionDispatcher performs lifecycle actions against the subsystem an
// entry originates from. Unlike collection, actions surface hard errors
// to the caller; every state-changing action is followed by a full
// re-collection.
type ActionDispatcher interface {
	// Enable re-enables a disabled entry.
	Enable(entry StartupEntry) error

	// Disable turns an entry off without deleting it.
	Disable(entry StartupEntry) error

	// Start launches the entry's command, or starts the service for
	// Service entries.
	Start(entry StartupEntry) error

	// Stop stops a Service entry. Other sources have no stop semantics.
	Stop(entry StartupEntry) error

	// Delete removes the entry from its originating subsystem.
	Delete(entry StartupEntry) error
}
