//go:build !windows

package main

import (
	"errors"

	"go.uber.org/zap"

	"github.com/winstack/startupmgr/internal/config"
	"github.com/winstack/startupmgr/internal/domain"
	"github.com/winstack/startupmgr/internal/usecase"
)

var errWindowsOnly = errors.New("startupmgr audits the Windows autostart surface and only runs on Windows")

func newCollector(cfg config.Config, logger *zap.Logger) (*usecase.Collector, error) {
	return nil, errWindowsOnly
}

func newDispatcher(logger *zap.Logger) (domain.ActionDispatcher, error) {
	return nil, errWindowsOnly
}
