// Package image reads and writes GPS metadata for still images:
// JPEG, PNG, WebP, TIFF and HEIC/HEIF.
package image

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// ──────────────────────────────────────────────────────────────────────────────
// Handler
// ──────────────────────────────────────────────────────────────────────────────

// Options configures the image handlers.
type Options struct {
	// Exiftool is the exiftool binary used for formats without an in-process
	// writer. Empty means look it up on $PATH.
	Exiftool string
	// Timeout bounds one exiftool write. Zero means no limit beyond the
	// caller's context.
	Timeout time.Duration
	Logger  *zap.Logger
}

// Handler implements core.Handler for all image formats.
type Handler struct {
	format core.FormatID
	opts   Options
	log    *zap.Logger
}

// New returns a Handler for the given format.
func New(format core.FormatID, opts Options) *Handler {
	return &Handler{format: format, opts: opts, log: logging.OrNop(opts.Logger)}
}

func (h *Handler) Info() core.FormatInfo {
	return formatInfo[h.format]
}

var formatInfo = map[core.FormatID]core.FormatInfo{
	core.FmtJPEG: {
		Name:       "JPEG",
		Kind:       core.KindStill,
		Extensions: []string{".jpg", ".jpeg"},
		CanWrite:   true,
		Notes:      "EXIF GPS IFD rewritten in place.",
	},
	core.FmtPNG: {
		Name:       "PNG",
		Kind:       core.KindStill,
		Extensions: []string{".png"},
		CanWrite:   true,
		Notes:      "EXIF read from the eXIf chunk. Written through exiftool.",
	},
	core.FmtWebP: {
		Name:       "WebP",
		Kind:       core.KindStill,
		Extensions: []string{".webp"},
		CanWrite:   true,
		Notes:      "EXIF chunk in RIFF container. Written through exiftool.",
	},
	core.FmtTIFF: {
		Name:       "TIFF",
		Kind:       core.KindStill,
		Extensions: []string{".tiff", ".tif"},
		CanWrite:   true,
		Notes:      "IFD-based metadata. Written through exiftool.",
	},
	core.FmtHEIC: {
		Name:       "HEIC/HEIF",
		Kind:       core.KindHEIC,
		Extensions: []string{".heic", ".heif"},
		CanWrite:   true,
		Notes:      "EXIF item located through iinf/iloc. Written to a temp copy, then replaced.",
	},
}

// ──────────────────────────────────────────────────────────────────────────────
// Read
// ──────────────────────────────────────────────────────────────────────────────

// Extract reads DateTimeOriginal and the GPS coordinate from path. Fields
// missing from EXIF are looked up in an embedded XMP packet.
func (h *Handler) Extract(ctx context.Context, path string) core.Extraction {
	var out core.Extraction
	if err := ctx.Err(); err != nil {
		out.TimeErr, out.CoordErr = err, err
		return out
	}

	x, err := h.decode(path)
	if err != nil {
		out.TimeErr, out.CoordErr = err, err
	} else {
		out.Time, out.TimeErr = CaptureTime(x)
		out.Coord, out.CoordErr = Coordinate(x, func(msg string) {
			h.log.Warn(msg, zap.String("path", path))
		})
	}

	if isAbsent(out.TimeErr) || isAbsent(out.CoordErr) {
		fillFromXMP(path, &out)
	}
	return out
}

// ──────────────────────────────────────────────────────────────────────────────
// Write
// ──────────────────────────────────────────────────────────────────────────────

// WriteCoordinate stores c in the GPS IFD of path.
func (h *Handler) WriteCoordinate(ctx context.Context, path string, c geo.Coordinate) error {
	if !c.Valid() {
		return fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	switch h.format {
	case core.FmtJPEG:
		return writeJPEG(path, c)
	case core.FmtPNG, core.FmtWebP, core.FmtTIFF, core.FmtHEIC:
		return h.writeWithExiftool(ctx, path, c)
	default:
		return fmt.Errorf("%s: %w", h.format, core.ErrUnsupported)
	}
}
