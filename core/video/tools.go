package video

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/tool"
)

type tools struct {
	ffprobe string
	ffmpeg  string
	timeout time.Duration
}

// run executes name with args under the tool timeout and returns stdout.
func (t tools) run(ctx context.Context, name string, args ...string) ([]byte, error) {
	return tool.Run(ctx, name, t.timeout, args...)
}

// probe returns ffprobe's JSON description of path.
func (t tools) probe(ctx context.Context, path string) ([]byte, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, err
	}
	out, err := t.run(ctx, t.ffprobe,
		"-v", "quiet",
		"-print_format", "json",
		"-show_format",
		"-show_streams",
		path,
	)
	if err != nil {
		return nil, fmt.Errorf("probing %s: %w", path, err)
	}
	return out, nil
}

// writeLocation stream-copies path into a sibling temp file with new
// location tags and swaps it in only when ffmpeg exits cleanly.
func (t tools) writeLocation(ctx context.Context, path string, c geo.Coordinate) error {
	if _, err := os.Stat(path); err != nil {
		return err
	}
	tmp, err := fileutil.TempSibling(path)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)

	loc := c.ISO6709()
	_, err = t.run(ctx, t.ffmpeg,
		"-y",
		"-v", "error",
		"-i", path,
		"-map", "0",
		"-map_metadata", "0",
		"-c", "copy",
		"-metadata", "location="+loc,
		"-metadata", "location-eng="+loc,
		tmp,
	)
	if err != nil {
		return fmt.Errorf("remuxing %s: %w", path, err)
	}
	return fileutil.ReplaceWith(tmp, path)
}
