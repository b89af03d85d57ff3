package domain

import (
	"encoding/binary"
	"time"
)

// StartupApproved registry branch, relative to a hive root. The OS keeps
// its per-entry enable/disable flags under Run, Run32 and StartupFolder
// subkeys of this path.
const StartupApprovedPath = `Software\Microsoft\Windows\CurrentVersion\Explorer\StartupApproved`

// filetimeUnixEpoch is 1970-01-01 expressed as a Windows FILETIME
// (100ns ticks since 1601-01-01).
const filetimeUnixEpoch = 116444736000000000

// ApprovalInfo is one side-table record. DisabledAt is meaningful only
// when Enabled is StatusDisabled.
type ApprovalInfo struct {
	Enabled    EnabledStatus
	DisabledAt time.Time
}

// FiletimeToTime converts a Windows FILETIME to local time. Zero and
// values before the Unix epoch decode to the zero time ("no timestamp").
func FiletimeToTime(ft uint64) time.Time {
	if ft < filetimeUnixEpoch {
		return time.Time{}
	}
	ticks := ft - filetimeUnixEpoch
	secs := int64(ticks / 10_000_000)
	nanos := int64(ticks%10_000_000) * 100
	return time.Unix(secs, nanos).Local()
}

// TimeToFiletime converts a time to the FILETIME encoding the side-table
// stores. Zero times encode as 0.
func TimeToFiletime(t time.Time) uint64 {
	if t.IsZero() {
		return 0
	}
	return uint64(t.Unix())*10_000_000 + uint64(t.Nanosecond()/100) + filetimeUnixEpoch
}

// ParseApproval decodes a raw StartupApproved value. Byte 0 of 0x02 or
// 0x06 means enabled; anything else means disabled, with bytes 4..12
// holding the little-endian FILETIME of the toggle. Records shorter than
// 12 bytes decode to Unknown, never an error.
func ParseApproval(b []byte) ApprovalInfo {
	if len(b) < 12 {
		return ApprovalInfo{Enabled: StatusUnknown}
	}

	switch b[0] {
	case 0x02, 0x06:
		return ApprovalInfo{Enabled: StatusEnabled}
	}

	ft := binary.LittleEndian.Uint64(b[4:12])
	return ApprovalInfo{
		Enabled:    StatusDisabled,
		DisabledAt: FiletimeToTime(ft),
	}
}

// ApprovalKeys returns the side-table lookup keys for an entry, in probe
// order, formatted as "HIVE\path\valuename". Sources that never consult
// the side-table return nil.
func ApprovalKeys(name string, source Source) []string {
	switch s := source.(type) {
	case RegistryRun:
		return []string{
			string(s.Hive) + `\` + StartupApprovedPath + `\Run\` + name,
			// 32-bit registrations on 64-bit Windows live under Run32.
			string(s.Hive) + `\` + StartupApprovedPath + `\Run32\` + name,
		}
	case StartupFolder:
		hive := HiveHKCU
		if s.IsCommon {
			hive = HiveHKLM
		}
		return []string{
			string(hive) + `\` + StartupApprovedPath + `\StartupFolder\` + s.FileName(),
		}
	}
	return nil
}

// LookupApproval resolves an entry's enable state against a loaded
// side-table. RunOnce entries always read as enabled since toggling does
// not apply to them; TaskScheduler and Service carry their own flags and
// read as Unknown here. An absent record for an eligible source defaults
// to enabled with no timestamp.
func LookupApproval(name string, source Source, approvals map[string]ApprovalInfo) (EnabledStatus, time.Time) {
	switch source.(type) {
	case RegistryRunOnce:
		return StatusEnabled, time.Time{}
	case TaskScheduler, Service:
		return StatusUnknown, time.Time{}
	}

	for _, key := range ApprovalKeys(name, source) {
		if info, ok := approvals[key]; ok {
			return info.Enabled, info.DisabledAt
		}
	}
	return StatusEnabled, time.Time{}
}
