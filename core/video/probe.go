package video

import (
	"fmt"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// creationTimeFromProbe reads format.tags.creation_time, then the first
// stream that carries one.
func creationTimeFromProbe(js []byte) (time.Time, error) {
	v := gjson.GetBytes(js, "format.tags.creation_time")
	if !v.Exists() || v.String() == "" {
		for _, s := range gjson.GetBytes(js, "streams.#.tags.creation_time").Array() {
			if s.String() != "" {
				v = s
				break
			}
		}
	}
	if !v.Exists() || v.String() == "" {
		return time.Time{}, fmt.Errorf("creation_time: %w", core.ErrNoData)
	}
	return ParseCreationTime(v.String())
}

// locationFromProbe scans the container tags, in document order, for keys
// naming a location and returns the first one that parses.
func locationFromProbe(js []byte) (geo.Coordinate, error) {
	var firstErr error
	var found geo.Coordinate
	ok := false
	gjson.GetBytes(js, "format.tags").ForEach(func(key, value gjson.Result) bool {
		if !strings.Contains(strings.ToLower(key.String()), "location") {
			return true
		}
		c, err := ParseLocation(value.String())
		if err != nil {
			if firstErr == nil {
				firstErr = err
			}
			return true
		}
		found, ok = c, true
		return false
	})
	if ok {
		return found, nil
	}
	if firstErr != nil {
		return geo.Coordinate{}, firstErr
	}
	return geo.Coordinate{}, fmt.Errorf("location: %w", core.ErrNoData)
}
