// Package scan walks a media directory and reads every supported file.
package scan

import (
	"context"
	"path/filepath"

	"github.com/karrick/godirwalk"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// RecordReader reads one file into a record named name.
type RecordReader interface {
	Record(ctx context.Context, path, name string) core.MediaRecord
}

// Scanner lists media records under a root directory.
type Scanner struct {
	reader RecordReader
	log    *zap.Logger
}

// New returns a Scanner reading files through r.
func New(r RecordReader, log *zap.Logger) *Scanner {
	return &Scanner{reader: r, log: logging.OrNop(log)}
}

// Directory reads every supported file under root in lexical walk order.
// Record paths are relative to root with forward slashes. Backups and temp
// files left by interrupted writes are skipped.
func (s *Scanner) Directory(ctx context.Context, root string) ([]core.MediaRecord, error) {
	paths, err := s.Paths(ctx, root)
	if err != nil {
		return nil, err
	}

	records := make([]core.MediaRecord, 0, len(paths))
	for _, p := range paths {
		if err := ctx.Err(); err != nil {
			return records, err
		}
		rel, err := filepath.Rel(root, p)
		if err != nil {
			return records, err
		}
		records = append(records, s.reader.Record(ctx, p, filepath.ToSlash(rel)))
	}

	withGPS := 0
	for i := range records {
		if records[i].HasCoordinate() {
			withGPS++
		}
	}
	s.log.Info("scan complete",
		zap.String("root", root),
		zap.Int("files", len(records)),
		zap.Int("with_gps", withGPS))
	return records, nil
}

// WithoutGPS returns the still images and HEIC files under root that carry
// no usable coordinate.
func (s *Scanner) WithoutGPS(ctx context.Context, root string) ([]core.MediaRecord, error) {
	records, err := s.Directory(ctx, root)
	if err != nil {
		return nil, err
	}
	var out []core.MediaRecord
	for _, r := range records {
		switch core.KindFor(core.FormatForExt(r.Path)) {
		case core.KindStill, core.KindHEIC:
			if !r.HasCoordinate() {
				out = append(out, r)
			}
		}
	}
	return out, nil
}

// Paths lists the supported files under root in lexical walk order without
// reading them. Paths are joined onto root. Backups and temp files are
// skipped.
func (s *Scanner) Paths(ctx context.Context, root string) ([]string, error) {
	var paths []string
	err := godirwalk.Walk(root, &godirwalk.Options{
		Callback: func(path string, de *godirwalk.Dirent) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if de.IsDir() {
				return nil
			}
			if fileutil.IsBackup(path) || fileutil.IsTemp(path) || !core.IsMediaPath(path) {
				return nil
			}
			paths = append(paths, path)
			return nil
		},
		ErrorCallback: func(path string, err error) godirwalk.ErrorAction {
			if ctx.Err() != nil {
				return godirwalk.Halt
			}
			s.log.Warn("skipping unreadable entry", zap.String("path", path), zap.Error(err))
			return godirwalk.SkipNode
		},
	})
	return paths, err
}
