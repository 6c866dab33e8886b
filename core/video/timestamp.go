package video

import (
	"strings"
	"time"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

// creationTimeLayouts are tried in order; all are read as UTC.
var creationTimeLayouts = []string{
	"2006-01-02T15:04:05.999999999Z", // ISO-8601 with fraction and Z
	"2006-01-02T15:04:05",            // ISO-8601, no zone
	"2006-01-02 15:04:05",            // space separated
}

// ParseCreationTime parses a container creation_time tag. The last
// strategy rewrites a trailing "Z" as "+00:00" and accepts any RFC 3339
// offset, which is then converted to UTC.
func ParseCreationTime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	for _, layout := range creationTimeLayouts {
		if t, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return t.UTC(), nil
		}
	}
	iso := s
	if strings.HasSuffix(iso, "Z") {
		iso = strings.TrimSuffix(iso, "Z") + "+00:00"
	}
	t, err := time.Parse(time.RFC3339Nano, iso)
	if err != nil {
		return time.Time{}, &core.ParseError{Field: "creation_time", Value: s, Err: err}
	}
	return t.UTC(), nil
}
