//go:build windows

package main

import (
	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/config"
	"github.com/winstack/startupmgr/internal/domain"
	"github.com/winstack/startupmgr/internal/infra"
	"github.com/winstack/startupmgr/internal/usecase"
)

// newCollector wires the live Windows adapters into a collector.
func newCollector(cfg config.Config, logger *zap.Logger) (*usecase.Collector, error) {
	var readers []domain.SourceReader
	if cfg.Sources.RegistryRun {
		readers = append(readers, infra.NewRunKeyReader())
	}
	if cfg.Sources.RegistryRunOnce {
		readers = append(readers, infra.NewRunOnceReader())
	}
	if cfg.Sources.StartupFolder {
		readers = append(readers, infra.NewStartupFolderReader(logger))
	}
	if cfg.Sources.TaskScheduler {
		readers = append(readers, infra.NewTaskSchedulerReader(logger))
	}
	if cfg.Sources.Services {
		readers = append(readers, infra.NewServiceReader(logger))
	}

	prefetch := infra.NewPrefetchScanner()
	if cfg.PrefetchDir != "" {
		prefetch = infra.NewPrefetchScannerWithDir(cfg.PrefetchDir)
	}

	return usecase.NewCollector(usecase.CollectorDeps{
		Readers:   readers,
		Approvals: infra.NewRegistryApprovalStore(),
		Processes: infra.NewProcScanner(logger),
		Prefetch:  prefetch,
		Products:  infra.NewVersionInfoResolver(),
		Handoff:   infra.NewFileHandoff(),
		Elevation: infra.NewTokenElevation(),
		Logger:    logger,
	}), nil
}

func newDispatcher(logger *zap.Logger) (domain.ActionDispatcher, error) {
	return infra.NewWindowsActions(logger), nil
}
