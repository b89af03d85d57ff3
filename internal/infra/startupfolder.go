package infra

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/domain"
)

// LinkResolver resolves a .lnk shortcut to its target command line
// (target path plus arguments). Implementation: WScript.Shell COM
// automation on Windows.
type LinkResolver interface {
	Resolve(path string) (command string, ok bool)
}

type startupFolder struct {
	dir      string
	isCommon bool
}

// StartupFolderReader enumerates the user and common Startup folders.
type StartupFolderReader struct {
	folders  []startupFolder
	resolver LinkResolver
	logger   *zap.Logger
}

// NewStartupFolderReader locates the folders from the environment.
func NewStartupFolderReader(logger *zap.Logger) *StartupFolderReader {
	var folders []startupFolder
	if appdata := os.Getenv("APPDATA"); appdata != "" {
		folders = append(folders, startupFolder{dir: startMenuStartup(appdata), isCommon: false})
	}
	if programData := os.Getenv("ProgramData"); programData != "" {
		folders = append(folders, startupFolder{dir: startMenuStartup(programData), isCommon: true})
	}
	return &StartupFolderReader{
		folders:  folders,
		resolver: newShellLinkResolver(logger),
		logger:   logger,
	}
}

// NewStartupFolderReaderWithDirs scans explicit directories with a given
// resolver (for tests).
func NewStartupFolderReaderWithDirs(userDir, commonDir string, resolver LinkResolver, logger *zap.Logger) *StartupFolderReader {
	return &StartupFolderReader{
		folders: []startupFolder{
			{dir: userDir, isCommon: false},
			{dir: commonDir, isCommon: true},
		},
		resolver: resolver,
		logger:   logger,
	}
}

func startMenuStartup(root string) string {
	return filepath.Join(root, "Microsoft", "Windows", "Start Menu", "Programs", "Startup")
}

// Name identifies the reader in logs.
func (r *StartupFolderReader) Name() string { return "startup-folder" }

// Read scans both folders. An unreadable folder contributes nothing.
func (r *StartupFolderReader) Read(ctx context.Context) ([]domain.StartupEntry, error) {
	var entries []domain.StartupEntry
	for _, folder := range r.folders {
		entries = append(entries, r.scanFolder(folder.dir, folder.isCommon)...)
	}
	return entries, nil
}

func (r *StartupFolderReader) scanFolder(dir string, isCommon bool) []domain.StartupEntry {
	dirEntries, err := os.ReadDir(dir)
	if err != nil {
		return nil
	}

	var entries []domain.StartupEntry
	for _, de := range dirEntries {
		if de.IsDir() {
			continue
		}
		fileName := de.Name()
		if strings.EqualFold(fileName, "desktop.ini") {
			continue
		}

		fullPath := filepath.Join(dir, fileName)
		ext := strings.ToLower(filepath.Ext(fileName))
		stem := strings.TrimSuffix(fileName, filepath.Ext(fileName))

		var name, command string
		switch ext {
		case ".lnk":
			name = stem
			command = fullPath
			if r.resolver != nil {
				if target, ok := r.resolver.Resolve(fullPath); ok {
					command = target
				}
			}
		case ".exe", ".bat", ".cmd":
			name = stem
			command = fullPath
		default:
			continue
		}

		source := domain.StartupFolder{Path: fullPath, IsCommon: isCommon}
		entries = append(entries, domain.NewStartupEntry(name, command, source))
	}
	return entries
}

// Ensure StartupFolderReader implements domain.SourceReader.
var _ domain.SourceReader = (*StartupFolderReader)(nil)
