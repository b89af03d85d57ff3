package infra

import (
	"strings"

	"github.com/winstack/startupmgr/internal/domain"
)

// Windows service start-type values from the SCM.
const (
	serviceAutoStart   = 2
	serviceDemandStart = 3
	serviceDisabled    = 4
)

// startTypeStatus maps an SCM start type to the entry enable state.
func startTypeStatus(startType uint32) domain.EnabledStatus {
	switch startType {
	case serviceAutoStart:
		return domain.StatusEnabled
	case serviceDemandStart:
		return domain.StatusManual
	case serviceDisabled:
		return domain.StatusDisabled
	}
	return domain.StatusUnknown
}

// cleanAccountName normalizes a service's ObjectName for display:
// LocalSystem and empty become SYSTEM, authority prefixes are stripped
// ("NT AUTHORITY\LocalService" -> "LocalService").
func cleanAccountName(name string) string {
	name = strings.TrimSpace(name)
	if name == "" || strings.EqualFold(name, "LocalSystem") {
		return "SYSTEM"
	}
	if i := strings.LastIndexByte(name, '\\'); i >= 0 {
		return name[i+1:]
	}
	return name
}

// IsMicrosoftService reports whether a Service entry is a known built-in
// Windows service, matched by its specific binary path. Broad folder
// matching is avoided: malware can place executables in system folders.
func IsMicrosoftService(entry domain.StartupEntry) bool {
	src, ok := entry.Source.(domain.Service)
	if !ok {
		return false
	}

	cmd := strings.TrimPrefix(strings.ToLower(src.CommandLine), `"`)

	for _, prefix := range windowsServicePrefixes {
		if strings.HasPrefix(cmd, prefix) {
			return true
		}
	}

	if strings.Contains(cmd, `\windows\system32\svchost.exe`) {
		return true
	}

	// System32 executables whose version resource names the OS itself.
	if (strings.Contains(cmd, `\windows\system32\`) ||
		strings.Contains(cmd, `%systemroot%\system32\`)) &&
		entry.ProductName == "Microsoft\u00ae Windows\u00ae Operating System" {
		return true
	}

	return false
}

// Command-line prefixes of known built-in Windows services, in the
// %systemroot%/%windir% forms the SCM stores them in.
var windowsServicePrefixes = []string{
	`%systemroot%\system32\svchost.exe`,
	`%windir%\system32\svchost.exe`,
	`%systemroot%\system32\alg.exe`,
	`%systemroot%\system32\appvclient.exe`,
	`%systemroot%\system32\dllhost.exe`,
	`%systemroot%\system32\fxssvc.exe`,
	`%systemroot%\system32\gameinputsvc.exe`,
	`%systemroot%\system32\inetsrv\inetinfo.exe`,
	`%systemroot%\system32\lsass.exe`,
	`%systemroot%\system32\locator.exe`,
	`%systemroot%\system32\midisrv.exe`,
	`%systemroot%\system32\mqsvc.exe`,
	`%systemroot%\system32\msdtc.exe`,
	`%systemroot%\system32\msiexec.exe`,
	`%systemroot%\system32\openssh\ssh-agent.exe`,
	`%systemroot%\system32\perfhost.exe`,
	`%systemroot%\system32\searchindexer.exe`,
	`%systemroot%\system32\securityhealthservice.exe`,
	`%systemroot%\system32\sgrmbroker.exe`,
	`%systemroot%\system32\snmp.exe`,
	`%systemroot%\system32\snmptrap.exe`,
	`%systemroot%\system32\spoolsv.exe`,
	`%systemroot%\system32\sppsvc.exe`,
	`%systemroot%\system32\tieringengineservice.exe`,
	`%systemroot%\system32\vds.exe`,
	`%systemroot%\system32\vssvc.exe`,
	`%systemroot%\system32\wbem\wmiapsrv.exe`,
	`%systemroot%\system32\wbengine.exe`,
	`%systemroot%\syswow64\perfhost.exe`,
	`%systemroot%\servicing\trustedinstaller.exe`,
	`%systemroot%\microsoft.net\framework64\v4.0.30319\smsvchost.exe`,
	`%programfiles%\windows media player\wmpnetwk.exe`,
	`%programdata%\microsoft\windows defender\`,
	`c:\programdata\microsoft\windows defender\`,
}
