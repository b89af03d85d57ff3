package infra

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/winstack/startupmgr/internal/domain"
)

func TestStartTypeStatus(t *testing.T) {
	assert.Equal(t, domain.StatusEnabled, startTypeStatus(serviceAutoStart))
	assert.Equal(t, domain.StatusManual, startTypeStatus(serviceDemandStart))
	assert.Equal(t, domain.StatusDisabled, startTypeStatus(serviceDisabled))
	assert.Equal(t, domain.StatusUnknown, startTypeStatus(0))
	assert.Equal(t, domain.StatusUnknown, startTypeStatus(1)) // boot/system drivers
}

func TestCleanAccountName(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"LocalSystem", "SYSTEM"},
		{"localsystem", "SYSTEM"},
		{"", "SYSTEM"},
		{"  ", "SYSTEM"},
		{`NT AUTHORITY\LocalService`, "LocalService"},
		{`NT AUTHORITY\NetworkService`, "NetworkService"},
		{`MACHINE\svcaccount`, "svcaccount"},
		{"plainuser", "plainuser"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, cleanAccountName(tt.input), "input %q", tt.input)
	}
}

func TestIsMicrosoftService(t *testing.T) {
	svcEntry := func(cmd, product string) domain.StartupEntry {
		e := domain.NewStartupEntry("svc", cmd, domain.Service{
			ServiceName: "svc",
			CommandLine: cmd,
		})
		e.ProductName = product
		return e
	}

	t.Run("svchost prefix", func(t *testing.T) {
		e := svcEntry(`%SystemRoot%\system32\svchost.exe -k netsvcs -p`, "")
		assert.True(t, IsMicrosoftService(e))
	})

	t.Run("svchost absolute path", func(t *testing.T) {
		e := svcEntry(`C:\Windows\System32\svchost.exe -k LocalService`, "")
		assert.True(t, IsMicrosoftService(e))
	})

	t.Run("known binary with quotes", func(t *testing.T) {
		e := svcEntry(`"%SystemRoot%\system32\spoolsv.exe"`, "")
		assert.True(t, IsMicrosoftService(e))
	})

	t.Run("system32 binary with OS product name", func(t *testing.T) {
		e := svcEntry(`C:\Windows\System32\custom.exe`,
			"Microsoft\u00ae Windows\u00ae Operating System")
		assert.True(t, IsMicrosoftService(e))
	})

	t.Run("system32 binary without OS product name", func(t *testing.T) {
		e := svcEntry(`C:\Windows\System32\dropped.exe`, "Totally Legit Inc")
		assert.False(t, IsMicrosoftService(e))
	})

	t.Run("third-party service", func(t *testing.T) {
		e := svcEntry(`"C:\Program Files\Vendor\agent.exe" --service`, "Vendor Agent")
		assert.False(t, IsMicrosoftService(e))
	})

	t.Run("non-service source", func(t *testing.T) {
		e := domain.NewStartupEntry("run", `C:\Windows\System32\svchost.exe`,
			domain.RegistryRun{Hive: domain.HiveHKLM, KeyPath: `Software\Run`})
		assert.False(t, IsMicrosoftService(e))
	})
}
