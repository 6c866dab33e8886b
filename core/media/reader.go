package media

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// Reader extracts capture time and coordinate from any supported file.
type Reader struct {
	handlers Resolver
	log      *zap.Logger
}

// NewReader returns a Reader. A nil logger discards output.
func NewReader(handlers Resolver, log *zap.Logger) *Reader {
	return &Reader{handlers: handlers, log: logging.OrNop(log)}
}

// Read returns the capture time (zero when unknown) and coordinate (nil when
// unknown or invalid) of path. It never fails: every problem is logged and
// reported as absence.
func (r *Reader) Read(ctx context.Context, path string) (time.Time, *geo.Coordinate) {
	ex, err := r.Inspect(ctx, path)
	log := r.log.With(zap.String("path", path))
	if err != nil {
		logFailure(log, "reading media", err)
		return time.Time{}, nil
	}

	var ts time.Time
	if ex.TimeErr == nil {
		ts = ex.Time.UTC()
	} else {
		logFailure(log, "capture time", ex.TimeErr)
	}

	var coord *geo.Coordinate
	if ex.CoordErr == nil {
		c := ex.Coord
		coord = &c
	} else {
		logFailure(log, "coordinate", ex.CoordErr)
	}
	return ts, coord
}

// Inspect returns the raw extraction for path, keeping each error so the
// caller can tell an absent field from a malformed one.
func (r *Reader) Inspect(ctx context.Context, path string) (ex core.Extraction, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("decoder panic: %v", p)
		}
	}()

	h, err := r.handlers.HandlerFor(path)
	if err != nil {
		return core.Extraction{}, err
	}
	ex = h.Extract(ctx, path)
	if ex.CoordErr == nil && !ex.Coord.Valid() {
		ex.CoordErr = fmt.Errorf("%v: %w", ex.Coord, core.ErrInvalidCoordinate)
	}
	return ex, nil
}

// Record reads path and returns it as a MediaRecord named name.
func (r *Reader) Record(ctx context.Context, path, name string) core.MediaRecord {
	ts, coord := r.Read(ctx, path)
	rec := core.MediaRecord{Path: name, Time: ts}
	if coord != nil {
		rec.SetCoordinate(*coord, core.ProvOriginal)
	}
	return rec
}

func logFailure(log *zap.Logger, what string, err error) {
	kind := core.Classify(err)
	fields := []zap.Field{zap.String("class", string(kind)), zap.Error(err)}
	if kind == core.FailAbsent {
		log.Debug(what+" not present", fields...)
		return
	}
	log.Warn(what+" unreadable", fields...)
}
