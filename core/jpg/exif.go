// Package jpg prints the raw EXIF tags that drive GPS extraction, for
// diagnosing files whose coordinates or timestamps come out wrong.
package jpg

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"
)

// DumpFile writes the GPS and date/time tags of path to w. With all set,
// every tag is written.
func DumpFile(w io.Writer, path string, all bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Dump(w, f, all)
}

// Dump decodes EXIF from r and writes the selected tags to w, sorted by name.
func Dump(w io.Writer, r io.Reader, all bool) error {
	x, err := exif.Decode(r)
	if err != nil && (x == nil || exif.IsCriticalError(err)) {
		return fmt.Errorf("no EXIF metadata found: %w", err)
	}

	wk := &walker{all: all}
	if err := x.Walk(wk); err != nil {
		return err
	}
	if len(wk.lines) == 0 {
		fmt.Fprintln(w, "(no GPS or date tags)")
		return nil
	}
	sort.Strings(wk.lines)
	for _, l := range wk.lines {
		fmt.Fprintln(w, l)
	}
	return nil
}

type walker struct {
	all   bool
	lines []string
}

func (w *walker) Walk(name exif.FieldName, tag *tiff.Tag) error {
	n := string(name)
	if w.all || strings.HasPrefix(n, "GPS") || strings.HasPrefix(n, "DateTime") {
		w.lines = append(w.lines, fmt.Sprintf("%s: %v", n, tag))
	}
	return nil
}
