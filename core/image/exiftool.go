package image

import (
	"fmt"
	"os/exec"
	"sort"
	"strings"

	"github.com/barasher/go-exiftool"
)

// ExiftoolTags reads the GPS and date tags exiftool reports for path.
// Coordinates come back as signed decimals. bin may be empty.
func ExiftoolTags(bin, path string) (map[string]string, error) {
	if bin == "" {
		bin = DefaultExiftool
	}
	resolved, err := exec.LookPath(bin)
	if err != nil {
		return nil, fmt.Errorf("exiftool: %w", err)
	}

	et, err := exiftool.NewExiftool(
		exiftool.SetExiftoolBinaryPath(resolved),
		exiftool.CoordFormant("%+f"),
	)
	if err != nil {
		return nil, fmt.Errorf("starting exiftool: %w", err)
	}
	defer et.Close()

	metas := et.ExtractMetadata(path)
	if len(metas) == 0 {
		return nil, fmt.Errorf("exiftool returned no metadata for %s", path)
	}
	if metas[0].Err != nil {
		return nil, fmt.Errorf("exiftool %s: %w", path, metas[0].Err)
	}

	tags := map[string]string{}
	for k, v := range metas[0].Fields {
		if strings.HasPrefix(k, "GPS") || strings.Contains(k, "Date") {
			tags[k] = fmt.Sprint(v)
		}
	}
	return tags, nil
}

// SortedKeys returns the keys of tags in lexical order.
func SortedKeys(tags map[string]string) []string {
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
