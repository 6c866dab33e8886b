package video

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// ParseLocation parses an ISO 6709 signed pair such as
// "+38.7695-009.1297/". The value must start with a sign and contain
// exactly one more sign that is not preceded by a hemisphere letter, so an
// altitude suffix is rejected.
func ParseLocation(s string) (geo.Coordinate, error) {
	raw := s
	s = strings.TrimSpace(strings.TrimRight(strings.TrimSpace(s), "/"))
	if s == "" || (s[0] != '+' && s[0] != '-') {
		return geo.Coordinate{}, &core.ParseError{Field: "location", Value: raw, Err: fmt.Errorf("missing leading sign")}
	}

	var splits []int
	for i := 1; i < len(s); i++ {
		if s[i] != '+' && s[i] != '-' {
			continue
		}
		if strings.IndexByte("NEWS", s[i-1]) >= 0 {
			continue
		}
		splits = append(splits, i)
	}
	if len(splits) != 1 {
		return geo.Coordinate{}, &core.ParseError{Field: "location", Value: raw, Err: fmt.Errorf("want 2 components, got %d", len(splits)+1)}
	}

	lat, err := strconv.ParseFloat(s[:splits[0]], 64)
	if err != nil {
		return geo.Coordinate{}, &core.ParseError{Field: "location", Value: raw, Err: err}
	}
	lon, err := strconv.ParseFloat(s[splits[0]:], 64)
	if err != nil {
		return geo.Coordinate{}, &core.ParseError{Field: "location", Value: raw, Err: err}
	}

	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("location %q: %w", raw, core.ErrInvalidCoordinate)
	}
	return c, nil
}
