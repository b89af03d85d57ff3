//go:build !windows

package infra

import "go.uber.org/zap"

// Shortcut resolution needs the Windows shell; elsewhere the .lnk path
// itself stands in as the command.
func newShellLinkResolver(_ *zap.Logger) LinkResolver { return nil }
