//go:build windows

package infra

import (
	"golang.org/x/sys/windows/registry"

	"github.com/winstack/startupmgr/internal/domain"
)

// The StartupApproved branches holding per-entry toggle records.
var approvalBranches = []struct {
	hive    domain.RegistryHive
	keyPath string
}{
	{domain.HiveHKCU, domain.StartupApprovedPath + `\Run`},
	{domain.HiveHKLM, domain.StartupApprovedPath + `\Run`},
	{domain.HiveHKCU, domain.StartupApprovedPath + `\Run32`},
	{domain.HiveHKLM, domain.StartupApprovedPath + `\Run32`},
	{domain.HiveHKCU, domain.StartupApprovedPath + `\StartupFolder`},
	{domain.HiveHKLM, domain.StartupApprovedPath + `\StartupFolder`},
}

// RegistryApprovalStore implements domain.ApprovalStore over the
// StartupApproved registry branches.
type RegistryApprovalStore struct{}

// NewRegistryApprovalStore creates the approval store reader.
func NewRegistryApprovalStore() *RegistryApprovalStore {
	return &RegistryApprovalStore{}
}

// LoadAll walks all branches and decodes every record. Keys are
// formatted as "HIVE\path\valuename".
func (s *RegistryApprovalStore) LoadAll() map[string]domain.ApprovalInfo {
	approvals := make(map[string]domain.ApprovalInfo)

	for _, branch := range approvalBranches {
		k, err := registry.OpenKey(hiveKey(branch.hive), branch.keyPath, registry.QUERY_VALUE)
		if err != nil {
			continue
		}

		names, err := k.ReadValueNames(0)
		if err != nil {
			k.Close()
			continue
		}
		for _, name := range names {
			if name == "" {
				continue
			}
			raw, _, err := k.GetBinaryValue(name)
			if err != nil {
				continue
			}
			key := string(branch.hive) + `\` + branch.keyPath + `\` + name
			approvals[key] = domain.ParseApproval(raw)
		}
		k.Close()
	}

	return approvals
}

// Ensure RegistryApprovalStore implements domain.ApprovalStore.
var _ domain.ApprovalStore = (*RegistryApprovalStore)(nil)
