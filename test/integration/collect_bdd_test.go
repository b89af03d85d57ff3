//go:build integration

package integration

import (
	"context"
	"os"
	"path/filepath"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/domain"
	"github.com/winstack/startupmgr/internal/infra"
	"github.com/winstack/startupmgr/internal/usecase"
)

// fakeReader stands in for an OS source reader.
type fakeReader struct {
	name    string
	entries []domain.StartupEntry
}

func (f *fakeReader) Name() string { return f.name }

func (f *fakeReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	out := make([]domain.StartupEntry, len(f.entries))
	copy(out, f.entries)
	return out, nil
}

type fakeApprovals struct {
	records map[string]domain.ApprovalInfo
}

func (f *fakeApprovals) LoadAll() map[string]domain.ApprovalInfo {
	if f.records == nil {
		return map[string]domain.ApprovalInfo{}
	}
	return f.records
}

type fakeProcesses struct{}

func (fakeProcesses) Snapshot() domain.ProcessSnapshot { return fakeProcesses{} }

func (fakeProcesses) IsRunning(string) bool { return false }

func (fakeProcesses) StartTime(string) (time.Time, bool) { return time.Time{}, false }

type fakeProducts struct{}

func (fakeProducts) ProductName(string) string { return "" }

var _ = Describe("Collection Pipeline", func() {
	var (
		tmpDir       string
		prefetchDir  string
		handoff      *infra.FileHandoff
		standardSet  []domain.StartupEntry
		elevatedSet  []domain.StartupEntry
		newCollector func(readers []domain.SourceReader, prefetch string) *usecase.Collector
	)

	BeforeEach(func() {
		var err error
		tmpDir, err = os.MkdirTemp("", "startupmgr-integration-*")
		Expect(err).NotTo(HaveOccurred())

		// A readable prefetch directory stands in for an elevated token.
		prefetchDir = filepath.Join(tmpDir, "prefetch")
		Expect(os.Mkdir(prefetchDir, 0755)).To(Succeed())

		handoff = infra.NewFileHandoffWithPath(filepath.Join(tmpDir, "handoff.txt"))

		standardSet = []domain.StartupEntry{
			domain.NewStartupEntry("OneDrive", `C:\od.exe`,
				domain.RegistryRun{Hive: domain.HiveHKCU, KeyPath: `Software\Microsoft\Windows\CurrentVersion\Run`}),
			domain.NewStartupEntry("Updater", `C:\u.exe`,
				domain.TaskScheduler{TaskPath: `\Vendor\Updater`}),
		}
		elevatedSet = append(append([]domain.StartupEntry{}, standardSet...),
			domain.NewStartupEntry("Defrag", `C:\d.exe`,
				domain.TaskScheduler{TaskPath: `\Microsoft\Defrag`}))

		newCollector = func(readers []domain.SourceReader, prefetch string) *usecase.Collector {
			return usecase.NewCollector(usecase.CollectorDeps{
				Readers:   readers,
				Approvals: &fakeApprovals{},
				Processes: fakeProcesses{},
				Prefetch:  infra.NewPrefetchScannerWithDir(prefetch),
				Products:  fakeProducts{},
				Handoff:   handoff,
				Logger:    zap.NewNop(),
			})
		}
	})

	AfterEach(func() {
		os.RemoveAll(tmpDir)
	})

	Describe("privilege handoff across a restart", func() {
		Context("when a standard-user pass saves its baseline", func() {
			It("marks only the newly visible tasks on the elevated pass", func() {
				// First run: standard user, prefetch unreadable.
				standard := newCollector(
					[]domain.SourceReader{&fakeReader{name: "fake", entries: standardSet}},
					filepath.Join(tmpDir, "no-such-dir"),
				)
				first := standard.Collect(context.Background())
				Expect(first.IsAdmin).To(BeFalse())

				Expect(standard.SaveHandoff(first.Entries)).To(Succeed())

				// Second run: elevated, the extra task becomes visible.
				elevated := newCollector(
					[]domain.SourceReader{&fakeReader{name: "fake", entries: elevatedSet}},
					prefetchDir,
				)
				second := elevated.Collect(context.Background())
				Expect(second.IsAdmin).To(BeTrue())

				marked := map[string]bool{}
				for _, e := range second.Entries {
					marked[e.Name] = e.RequiresAdmin
				}
				Expect(marked["Defrag"]).To(BeTrue())
				Expect(marked["Updater"]).To(BeFalse())
				Expect(marked["OneDrive"]).To(BeFalse())
			})

			It("consumes the handoff file so it cannot go stale", func() {
				standard := newCollector(
					[]domain.SourceReader{&fakeReader{name: "fake", entries: standardSet}},
					filepath.Join(tmpDir, "no-such-dir"),
				)
				first := standard.Collect(context.Background())
				Expect(standard.SaveHandoff(first.Entries)).To(Succeed())

				elevated := newCollector(
					[]domain.SourceReader{&fakeReader{name: "fake", entries: elevatedSet}},
					prefetchDir,
				)
				elevated.Collect(context.Background())

				_, err := os.Stat(handoff.Path())
				Expect(os.IsNotExist(err)).To(BeTrue())
			})
		})

		Context("when launched directly as admin", func() {
			It("marks nothing without a baseline", func() {
				elevated := newCollector(
					[]domain.SourceReader{&fakeReader{name: "fake", entries: elevatedSet}},
					prefetchDir,
				)
				result := elevated.Collect(context.Background())

				Expect(result.IsAdmin).To(BeTrue())
				for _, e := range result.Entries {
					Expect(e.RequiresAdmin).To(BeFalse(), e.Name)
				}
			})
		})
	})

	Describe("startup folder scanning", func() {
		It("feeds folder entries through the full pipeline", func() {
			userDir := filepath.Join(tmpDir, "user-startup")
			commonDir := filepath.Join(tmpDir, "common-startup")
			Expect(os.Mkdir(userDir, 0755)).To(Succeed())
			Expect(os.Mkdir(commonDir, 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(userDir, "Tool.exe"), []byte("x"), 0755)).To(Succeed())
			Expect(os.WriteFile(filepath.Join(commonDir, "Shared.cmd"), []byte("x"), 0755)).To(Succeed())

			reader := infra.NewStartupFolderReaderWithDirs(userDir, commonDir, nil, zap.NewNop())
			collector := newCollector([]domain.SourceReader{reader}, filepath.Join(tmpDir, "no-such-dir"))

			result := collector.Collect(context.Background())

			Expect(result.Entries).To(HaveLen(2))
			names := []string{result.Entries[0].Name, result.Entries[1].Name}
			Expect(names).To(ConsistOf("Tool", "Shared"))
			for _, e := range result.Entries {
				Expect(e.Enabled).To(Equal(domain.StatusEnabled))
				Expect(e.RunState).To(Equal(domain.StateStopped))
				Expect(e.RunsAs).NotTo(BeEmpty())
			}
		})
	})

	Describe("result ordering", func() {
		It("orders by source precedence then case-insensitive name", func() {
			entries := []domain.StartupEntry{
				domain.NewStartupEntry("zeta", `C:\z.exe`,
					domain.RegistryRun{Hive: domain.HiveHKCU, KeyPath: `Software\Run`}),
				domain.NewStartupEntry("Alpha", `C:\a.exe`,
					domain.Service{ServiceName: "alpha"}),
				domain.NewStartupEntry("Beta", `C:\b.exe`,
					domain.StartupFolder{Path: `C:\s\Beta.lnk`}),
			}
			collector := newCollector(
				[]domain.SourceReader{&fakeReader{name: "fake", entries: entries}},
				filepath.Join(tmpDir, "no-such-dir"),
			)

			result := collector.Collect(context.Background())

			got := make([]string, len(result.Entries))
			for i, e := range result.Entries {
				got[i] = e.Name
			}
			Expect(got).To(Equal([]string{"zeta", "Beta", "Alpha"}))
		})
	})
})
