package infra

import (
	"strings"
	"time"
)

// oleDateEpoch is day zero of the OLE Automation date scale.
var oleDateEpoch = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.Local)

// oleDateMin2000 is approximately 2000-01-01 in OLE days. The Task
// Scheduler reports bogus pre-2000 dates as a "never ran" sentinel.
const oleDateMin2000 = 36526.0

// oleDateToTime converts an OLE Automation date (fractional days since
// 1899-12-30) to local time. Sentinel values decode to the zero time.
func oleDateToTime(oleDate float64) time.Time {
	if oleDate < oleDateMin2000 {
		return time.Time{}
	}
	days := int(oleDate)
	secs := int((oleDate - float64(days)) * 86400.0)
	return oleDateEpoch.AddDate(0, 0, days).Add(time.Duration(secs) * time.Second)
}

// taskRunTime normalizes the LastRunTime value the COM layer hands back:
// go-ole decodes VT_DATE variants to time.Time, but some providers
// surface the raw OLE double instead.
func taskRunTime(value interface{}) time.Time {
	switch v := value.(type) {
	case time.Time:
		if v.Year() < 2000 {
			return time.Time{}
		}
		return v.Local()
	case float64:
		return oleDateToTime(v)
	}
	return time.Time{}
}

// stripDomain reduces "DOMAIN\user" to "user".
func stripDomain(user string) string {
	if i := strings.LastIndexByte(user, '\\'); i >= 0 {
		return user[i+1:]
	}
	return user
}
