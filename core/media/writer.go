package media

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// Writer stores coordinates into media files.
type Writer struct {
	handlers Resolver
	log      *zap.Logger
}

// NewWriter returns a Writer. A nil logger discards output.
func NewWriter(handlers Resolver, log *zap.Logger) *Writer {
	return &Writer{handlers: handlers, log: logging.OrNop(log)}
}

// Write stores c in path and reports success. The first write to a file
// leaves a pristine copy at <path>.bak.
func (w *Writer) Write(ctx context.Context, path string, c geo.Coordinate) bool {
	log := w.log.With(zap.String("path", path), zap.Stringer("coordinate", c))
	if err := w.WriteCoordinate(ctx, path, c); err != nil {
		log.Error("writing GPS failed", zap.String("class", string(core.Classify(err))), zap.Error(err))
		return false
	}
	log.Info("GPS written")
	return true
}

// WriteCoordinate is Write with the error kept.
func (w *Writer) WriteCoordinate(ctx context.Context, path string, c geo.Coordinate) (err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("encoder panic: %v", p)
		}
	}()

	if !c.Valid() {
		return fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	h, err := w.handlers.HandlerFor(path)
	if err != nil {
		return err
	}
	if !h.Info().CanWrite {
		return fmt.Errorf("%s: %w", h.Info().Name, core.ErrUnsupported)
	}

	if created, err := fileutil.Backup(path); err != nil {
		w.log.Warn("backup failed, writing anyway", zap.String("path", path), zap.Error(err))
	} else if created {
		w.log.Debug("backup created", zap.String("backup", fileutil.BackupPath(path)))
	}

	return h.WriteCoordinate(ctx, path, c)
}
