package models

import (
	"strconv"
	"time"
)

// darajaLayout is the yyyyMMddHHmmss format used by M-Pesa timestamps
const darajaLayout = "20060102150405"

// nairobi is EAT (UTC+3, no DST); provider timestamps are local time
var nairobi = time.FixedZone("EAT", 3*60*60)

// Now returns the current time in UTC
func Now() time.Time {
	return time.Now().UTC()
}

// DarajaTimestamp formats t as the provider expects for STK password generation
func DarajaTimestamp(t time.Time) string {
	return t.In(nairobi).Format(darajaLayout)
}

// ParseDarajaTime parses callback TransactionDate values, which arrive either
// as a JSON number or a string
func ParseDarajaTime(v interface{}) (time.Time, bool) {
	var s string
	switch val := v.(type) {
	case string:
		s = val
	case float64:
		s = strconv.FormatInt(int64(val), 10)
	case int64:
		s = strconv.FormatInt(val, 10)
	case int:
		s = strconv.Itoa(val)
	default:
		return time.Time{}, false
	}

	t, err := time.ParseInLocation(darajaLayout, s, nairobi)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
