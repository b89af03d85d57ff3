package infra

import (
	"strings"

	"github.com/winstack/startupmgr/internal/domain"
)

// commandPath extracts the bare executable path from a raw launch
// string: environment variables expanded, surrounding quotes removed,
// trailing arguments cut at the ".exe " boundary.
func commandPath(command string) string {
	expanded := domain.ExpandEnvVars(strings.TrimSpace(command))

	if strings.HasPrefix(expanded, `"`) {
		rest := expanded[1:]
		if end := strings.Index(rest, `"`); end >= 0 {
			return rest[:end]
		}
		return rest
	}

	if i := strings.Index(strings.ToLower(expanded), ".exe "); i >= 0 {
		return expanded[:i+len(".exe")]
	}
	return expanded
}
