package domain

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExtractExeName(t *testing.T) {
	tests := []struct {
		name    string
		command string
		want    string
	}{
		{"plain path", `C:\Program Files\App\app.exe`, "app.exe"},
		{"quoted with args", `"C:\Program Files\App\My App.exe" --minimized`, "my app.exe"},
		{"unquoted with args", `C:\Tools\tool.exe /silent`, "tool.exe"},
		{"bare name", `notepad.exe`, "notepad.exe"},
		{"mixed case", `C:\APPS\NOTEPAD.EXE`, "notepad.exe"},
		{"empty", ``, ""},
		{"whitespace only", `   `, ""},
		{"unterminated quote", `"C:\App\app.exe`, "app.exe"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ExtractExeName(tt.command))
		})
	}
}

func TestExtractExeName_ExpandsEnvVars(t *testing.T) {
	t.Setenv("SystemRoot", `C:\Windows`)
	assert.Equal(t, "svchost.exe", ExtractExeName(`%SystemRoot%\system32\svchost.exe -k netsvcs`))
}

func TestExpandEnvVars_UnknownVarLeftAlone(t *testing.T) {
	got := ExpandEnvVars(`%DefinitelyNotSet_startupmgr%\foo.exe`)
	assert.Equal(t, `%DefinitelyNotSet_startupmgr%\foo.exe`, got)
}

func TestSourceKindPrecedence(t *testing.T) {
	// The precedence order is fixed by the platform model.
	assert.True(t, KindRegistryRun < KindRegistryRunOnce)
	assert.True(t, KindRegistryRunOnce < KindStartupFolder)
	assert.True(t, KindStartupFolder < KindTaskScheduler)
	assert.True(t, KindTaskScheduler < KindService)
}

func TestSourceLocations(t *testing.T) {
	run := RegistryRun{Hive: HiveHKCU, KeyPath: `Software\Microsoft\Windows\CurrentVersion\Run`}
	assert.Equal(t, `HKCU\Software\Microsoft\Windows\CurrentVersion\Run`, run.Location())

	assert.Equal(t, "User Startup Folder", StartupFolder{Path: `C:\x\a.lnk`}.Location())
	assert.Equal(t, "Common Startup Folder", StartupFolder{Path: `C:\x\a.lnk`, IsCommon: true}.Location())
	assert.Equal(t, `Task: \Microsoft\Foo`, TaskScheduler{TaskPath: `\Microsoft\Foo`}.Location())
	assert.Equal(t, `C:\svc.exe`, Service{ServiceName: "svc", CommandLine: `C:\svc.exe`}.Location())
}

func TestStartupFolderFileName(t *testing.T) {
	src := StartupFolder{Path: `C:\Users\alice\Start Menu\Programs\Startup\Discord.lnk`}
	assert.Equal(t, "Discord.lnk", src.FileName())
}

func TestNewStartupEntryDefaults(t *testing.T) {
	e := NewStartupEntry("Foo", `C:\foo.exe`, RegistryRun{Hive: HiveHKCU, KeyPath: "k"})
	assert.Equal(t, StatusUnknown, e.Enabled)
	assert.Equal(t, StateStopped, e.RunState)
	assert.True(t, e.LastRan.IsZero())
	assert.False(t, e.RequiresAdmin)
}

func TestSortEntries_SourceMajorNameMinor(t *testing.T) {
	// "b" (Service) sorts after both Run entries even though "b" < "B"
	// case-insensitively: source type dominates.
	entries := []StartupEntry{
		NewStartupEntry("A", "", RegistryRun{Hive: HiveHKCU, KeyPath: "k"}),
		NewStartupEntry("b", "", Service{ServiceName: "b"}),
		NewStartupEntry("B", "", RegistryRun{Hive: HiveHKCU, KeyPath: "k"}),
	}

	SortEntries(entries)

	require.Len(t, entries, 3)
	assert.Equal(t, "A", entries[0].Name)
	assert.Equal(t, "B", entries[1].Name)
	assert.Equal(t, "b", entries[2].Name)
}

func TestSortEntries_TotalAndReproducible(t *testing.T) {
	sources := []Source{
		RegistryRun{Hive: HiveHKLM, KeyPath: "k"},
		RegistryRunOnce{Hive: HiveHKCU, KeyPath: "k"},
		StartupFolder{Path: `C:\s\x.lnk`},
		TaskScheduler{TaskPath: `\X`},
		Service{ServiceName: "x"},
	}
	names := []string{"alpha", "BRAVO", "Charlie", "delta", "Echo"}

	var reference []StartupEntry
	for _, s := range sources {
		for _, n := range names {
			reference = append(reference, NewStartupEntry(n, "", s))
		}
	}
	SortEntries(reference)

	rng := rand.New(rand.NewSource(42))
	for trial := 0; trial < 20; trial++ {
		shuffled := make([]StartupEntry, len(reference))
		copy(shuffled, reference)
		rng.Shuffle(len(shuffled), func(i, j int) {
			shuffled[i], shuffled[j] = shuffled[j], shuffled[i]
		})

		SortEntries(shuffled)
		assert.Equal(t, reference, shuffled)
	}

	// Source-type major, name minor.
	for i := 1; i < len(reference); i++ {
		prev, cur := reference[i-1], reference[i]
		assert.LessOrEqual(t, int(prev.Source.Kind()), int(cur.Source.Kind()))
	}
}
