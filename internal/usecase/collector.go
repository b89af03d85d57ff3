// Package usecase contains application business logic.
package usecase

import (
	"context"
	"os"
	"os/user"
	"strings"
	"sync"

	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/domain"
)

// CollectorDeps bundles the collaborators a Collector orchestrates.
// Elevation is optional; when nil the collector relies on the
// prefetch-accessibility heuristic alone.
type CollectorDeps struct {
	Readers   []domain.SourceReader
	Approvals domain.ApprovalStore
	Processes domain.ProcessScanner
	Prefetch  domain.PrefetchScanner
	Products  domain.ProductNameResolver
	Handoff   domain.HandoffStore
	Elevation domain.ElevationChecker
	Logger    *zap.Logger
}

// Collector fuses the five autostart sources into one enriched, sorted
// entry list and resolves the admin-visibility diff protocol.
//
// A collection pass never fails as a whole: every OS-level failure
// degrades to an empty source contribution or a default field value.
type Collector struct {
	deps   CollectorDeps
	userFn func() string
}

// NewCollector creates a collector. A nil logger is replaced with a nop
// logger so degraded-read logging stays optional.
func NewCollector(deps CollectorDeps) *Collector {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	return &Collector{deps: deps, userFn: currentUsername}
}

// Collect runs one full collection pass. It performs blocking OS calls
// and is meant to run off the interactive thread; see CollectAsync.
func (c *Collector) Collect(ctx context.Context) domain.CollectionResult {
	// Phase 1: fan out all source readers, join before anything else.
	entries := c.readSources(ctx)

	// Phase 2: build the enrichment caches once per pass.
	approvals := c.deps.Approvals.LoadAll()
	procs := c.deps.Processes.Snapshot()
	prefetch := c.deps.Prefetch.Scan()
	isAdmin := c.isAdmin(prefetch)
	username := c.userFn()

	// Phase 3: enrich every entry uniformly.
	for i := range entries {
		c.enrich(&entries[i], approvals, procs, prefetch, username)
	}

	// Phase 4: resolve admin-only visibility.
	c.resolveAdminOnly(entries, isAdmin)

	// Phase 5: deterministic order.
	domain.SortEntries(entries)

	return domain.CollectionResult{Entries: entries, IsAdmin: isAdmin}
}

// CollectAsync runs Collect on its own goroutine and delivers the single
// result on the returned channel. The caller must not launch a second
// pass while one is outstanding; a started pass cannot be canceled.
func (c *Collector) CollectAsync(ctx context.Context) <-chan domain.CollectionResult {
	out := make(chan domain.CollectionResult, 1)
	go func() {
		out <- c.Collect(ctx)
		close(out)
	}()
	return out
}

// SaveHandoff snapshots the Task Scheduler paths visible in the given
// entry set. Called immediately before a restart-as-admin so the
// elevated pass has a baseline to diff against.
func (c *Collector) SaveHandoff(entries []domain.StartupEntry) error {
	var paths []string
	for _, e := range entries {
		if src, ok := e.Source.(domain.TaskScheduler); ok {
			paths = append(paths, src.TaskPath)
		}
	}
	return c.deps.Handoff.Save(paths)
}

// readSources invokes all readers concurrently with a hard join barrier.
// Readers share no mutable state; each returns an owned slice.
func (c *Collector) readSources(ctx context.Context) []domain.StartupEntry {
	results := make([][]domain.StartupEntry, len(c.deps.Readers))

	var wg sync.WaitGroup
	for i, reader := range c.deps.Readers {
		wg.Add(1)
		go func(i int, reader domain.SourceReader) {
			defer wg.Done()
			found, err := reader.Read(ctx)
			if err != nil {
				// A failed reader contributes nothing this pass.
				c.deps.Logger.Warn("source reader failed",
					zap.String("reader", reader.Name()),
					zap.Error(err))
			}
			results[i] = found
		}(i, reader)
	}
	wg.Wait()

	var entries []domain.StartupEntry
	for _, found := range results {
		// Cross-source duplicates are intentionally preserved: a program
		// registered via both a Run key and a task is two OS objects
		// with independent lifecycles.
		entries = append(entries, found...)
	}
	return entries
}

// isAdmin prefers a direct token probe when one is wired and falls back
// to "the prefetch directory was readable", which only elevated
// processes can do.
func (c *Collector) isAdmin(prefetch domain.PrefetchCache) bool {
	if c.deps.Elevation != nil {
		if elevated, ok := c.deps.Elevation.IsElevated(); ok {
			return elevated
		}
	}
	return prefetch.Accessible()
}

// enrich fills the fields no single reader can supply. Idempotent for a
// fixed set of caches: re-running it changes nothing.
func (c *Collector) enrich(
	e *domain.StartupEntry,
	approvals map[string]domain.ApprovalInfo,
	procs domain.ProcessSnapshot,
	prefetch domain.PrefetchCache,
	username string,
) {
	_, isTask := e.Source.(domain.TaskScheduler)
	_, isService := e.Source.(domain.Service)

	// Registry, folder and service entries launch as the logged-in user
	// in this model. Task and service readers may already know better.
	if isTask || isService {
		if e.RunsAs == "" {
			e.RunsAs = username
		}
	} else {
		e.RunsAs = username
	}

	// Enable state from the StartupApproved side-table. Task entries
	// carry their own flag; readers that pre-populated a status keep it.
	if !isTask {
		status, disabledAt := domain.LookupApproval(e.Name, e.Source, approvals)
		if e.Enabled == domain.StatusUnknown {
			e.Enabled = status
		}
		// The disabled timestamp is a fallback signal only, never an
		// override of a value already known to be accurate.
		if e.LastRan.IsZero() {
			e.LastRan = disabledAt
		}
	}

	e.ProductName = c.deps.Products.ProductName(e.Command)

	exe := e.ExeName()
	if exe == "" {
		return
	}
	if procs.IsRunning(exe) {
		e.RunState = domain.StateRunning
		// A live process is the most authoritative timestamp source.
		if start, ok := procs.StartTime(exe); ok {
			e.LastRan = start
		}
	} else {
		e.RunState = domain.StateStopped
		if e.LastRan.IsZero() {
			if ran, ok := prefetch.LastRan(strings.ToUpper(exe)); ok {
				e.LastRan = ran
			}
		}
	}
}

// resolveAdminOnly implements the two-run visibility protocol. Only Task
// Scheduler entries can differ between a standard-user and an admin run;
// without a saved non-admin baseline there is no basis for comparison
// and nothing is marked.
func (c *Collector) resolveAdminOnly(entries []domain.StartupEntry, isAdmin bool) {
	if !isAdmin {
		return
	}

	saved, found, err := c.deps.Handoff.Consume()
	if err != nil {
		c.deps.Logger.Warn("failed to read non-admin handoff", zap.Error(err))
		return
	}
	if !found {
		// Launched directly as admin: under-report rather than guess.
		return
	}

	nonAdmin := make(map[string]struct{}, len(saved))
	for _, p := range saved {
		nonAdmin[p] = struct{}{}
	}
	for i := range entries {
		if src, ok := entries[i].Source.(domain.TaskScheduler); ok {
			_, visible := nonAdmin[src.TaskPath]
			entries[i].RequiresAdmin = !visible
		}
	}
}

func currentUsername() string {
	if u, err := user.Current(); err == nil && u.Username != "" {
		name := u.Username
		// Strip the domain prefix ("MACHINE\user" -> "user").
		if i := strings.LastIndexByte(name, '\\'); i >= 0 {
			name = name[i+1:]
		}
		return name
	}
	if name := os.Getenv("USERNAME"); name != "" {
		return name
	}
	return os.Getenv("USER")
}
