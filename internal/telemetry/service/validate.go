package service

import "time"

// timestampLayouts are the accepted ISO-8601 shapes. A trailing Z is
// equivalent to +00:00; timestamps without an offset are taken as UTC.
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
}

// parseTimestamp parses a submitted timestamp string. Stored timestamps
// are normalized to UTC so range queries compare uniformly across drivers.
func parseTimestamp(raw *string) (time.Time, bool) {
	if raw == nil {
		return time.Time{}, false
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.Parse(layout, *raw); err == nil {
			return ts.UTC(), true
		}
	}
	return time.Time{}, false
}
