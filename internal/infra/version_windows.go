//go:build windows

package infra

import (
	"fmt"
	"unsafe"

	"golang.org/x/sys/windows"

	"github.com/winstack/startupmgr/internal/domain"
)

// VersionInfoResolver implements domain.ProductNameResolver by reading
// the ProductName string from a PE file's version resource.
type VersionInfoResolver struct{}

// NewVersionInfoResolver creates the resolver.
func NewVersionInfoResolver() *VersionInfoResolver { return &VersionInfoResolver{} }

// ProductName extracts the product name of the binary a command
// launches. Best-effort: any failure reads as "".
func (VersionInfoResolver) ProductName(command string) string {
	if command == "" {
		return ""
	}
	path := commandPath(command)
	if path == "" {
		return ""
	}

	size, err := windows.GetFileVersionInfoSize(path, nil)
	if err != nil || size == 0 {
		return ""
	}
	buf := make([]byte, size)
	if err := windows.GetFileVersionInfo(path, 0, size, unsafe.Pointer(&buf[0])); err != nil {
		return ""
	}

	if lang, cp, ok := firstTranslation(buf); ok {
		if name, ok := queryProductName(buf, lang, cp); ok {
			return name
		}
	}
	// No usable translation table: try the common US English codepages.
	for _, tr := range [][2]uint16{{0x0409, 0x04B0}, {0x0409, 0x04E4}, {0x0000, 0x04B0}} {
		if name, ok := queryProductName(buf, tr[0], tr[1]); ok {
			return name
		}
	}
	return ""
}

// firstTranslation reads the first (language, codepage) pair of the
// version resource's translation table.
func firstTranslation(buf []byte) (lang, codepage uint16, ok bool) {
	var ptr unsafe.Pointer
	var length uint32
	err := windows.VerQueryValue(unsafe.Pointer(&buf[0]), `\VarFileInfo\Translation`, unsafe.Pointer(&ptr), &length)
	if err != nil || ptr == nil || length < 4 {
		return 0, 0, false
	}
	pair := (*[2]uint16)(ptr)
	return pair[0], pair[1], true
}

func queryProductName(buf []byte, lang, codepage uint16) (string, bool) {
	query := fmt.Sprintf(`\StringFileInfo\%04x%04x\ProductName`, lang, codepage)
	var ptr unsafe.Pointer
	var length uint32
	err := windows.VerQueryValue(unsafe.Pointer(&buf[0]), query, unsafe.Pointer(&ptr), &length)
	if err != nil || ptr == nil || length == 0 {
		return "", false
	}
	// length counts UTF-16 code units including the terminator.
	chars := unsafe.Slice((*uint16)(ptr), length)
	name := windows.UTF16ToString(chars)
	if name == "" {
		return "", false
	}
	return name, true
}

// Ensure VersionInfoResolver implements domain.ProductNameResolver.
var _ domain.ProductNameResolver = (*VersionInfoResolver)(nil)
