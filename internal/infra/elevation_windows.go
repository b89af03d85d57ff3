//go:build windows

package infra

import (
	"golang.org/x/sys/windows"
	"golang.org/x/sys/windows/registry"

	"github.com/winstack/startupmgr/internal/domain"
)

// TokenElevation implements domain.ElevationChecker with a direct token
// probe, replacing the prefetch-readability heuristic where available.
type TokenElevation struct{}

// NewTokenElevation creates the elevation checker.
func NewTokenElevation() *TokenElevation { return &TokenElevation{} }

// IsElevated asks the current process token directly.
func (TokenElevation) IsElevated() (bool, bool) {
	return windows.GetCurrentProcessToken().IsElevated(), true
}

// openServiceKey opens a service's configuration key under the SCM
// registry tree.
func openServiceKey(serviceName string) (registry.Key, error) {
	return registry.OpenKey(registry.LOCAL_MACHINE,
		`SYSTEM\CurrentControlSet\Services\`+serviceName, registry.QUERY_VALUE)
}

// Ensure TokenElevation implements domain.ElevationChecker.
var _ domain.ElevationChecker = (*TokenElevation)(nil)
