// Package video reads and writes GPS metadata for video containers:
// MP4, MOV, M4V, MKV, WebM, AVI. Reads go through ffprobe, writes through
// an ffmpeg stream-copy remux.
package video

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"time"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// DefaultTimeout bounds a single ffprobe or ffmpeg run.
const DefaultTimeout = 2 * time.Minute

// Options configures the external tools.
type Options struct {
	FFprobe string // defaults to "ffprobe"
	FFmpeg  string // defaults to "ffmpeg"
	Timeout time.Duration
	Logger  *zap.Logger
}

// Handler implements core.Handler for video formats.
type Handler struct {
	format core.FormatID
	tools  tools
	log    *zap.Logger
}

// New returns a video Handler for the given format.
func New(format core.FormatID, opts Options) *Handler {
	t := tools{ffprobe: opts.FFprobe, ffmpeg: opts.FFmpeg, timeout: opts.Timeout}
	if t.ffprobe == "" {
		t.ffprobe = "ffprobe"
	}
	if t.ffmpeg == "" {
		t.ffmpeg = "ffmpeg"
	}
	if t.timeout <= 0 {
		t.timeout = DefaultTimeout
	}
	return &Handler{format: format, tools: t, log: logging.OrNop(opts.Logger)}
}

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtMP4: {
		Name:       "MP4",
		Kind:       core.KindVideo,
		Extensions: []string{".mp4", ".m4v"},
		CanWrite:   true,
		Notes:      "creation_time and location tags. Falls back to mvhd and ©xyz when ffprobe is missing.",
	},
	core.FmtMOV: {
		Name:       "QuickTime MOV",
		Kind:       core.KindVideo,
		Extensions: []string{".mov", ".qt"},
		CanWrite:   true,
		Notes:      "QuickTime atoms. Same fallback as MP4.",
	},
	core.FmtMKV: {
		Name:       "Matroska MKV",
		Kind:       core.KindVideo,
		Extensions: []string{".mkv"},
		CanWrite:   true,
		Notes:      "EBML-based container. Requires ffprobe/ffmpeg.",
	},
	core.FmtWebM: {
		Name:       "WebM",
		Kind:       core.KindVideo,
		Extensions: []string{".webm"},
		CanWrite:   true,
		Notes:      "EBML-based container. Requires ffprobe/ffmpeg.",
	},
	core.FmtAVI: {
		Name:       "AVI",
		Kind:       core.KindVideo,
		Extensions: []string{".avi"},
		CanWrite:   true,
		Notes:      "RIFF container. Requires ffprobe/ffmpeg.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// Read
// ──────────────────────────────────────────────────────────────────────────────

// Extract probes path for its creation time and location.
func (h *Handler) Extract(ctx context.Context, path string) core.Extraction {
	var out core.Extraction

	js, err := h.tools.probe(ctx, path)
	if err != nil {
		if errors.Is(err, exec.ErrNotFound) && (h.format == core.FmtMP4 || h.format == core.FmtMOV) {
			h.log.Debug("ffprobe not found, reading boxes in-process", zap.String("path", path))
			return readBoxes(path, h.log)
		}
		out.TimeErr, out.CoordErr = err, err
		return out
	}

	out.Time, out.TimeErr = creationTimeFromProbe(js)
	out.Coord, out.CoordErr = locationFromProbe(js)
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Write
// ──────────────────────────────────────────────────────────────────────────────

// WriteCoordinate remuxes path with c in its location tags.
func (h *Handler) WriteCoordinate(ctx context.Context, path string, c geo.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	return h.tools.writeLocation(ctx, path, c)
}
