// Package review holds the state of a human review pass over a list of
// media records and writes the reviewer's coordinates back to disk.
//
// A Session is single-user: it has one cursor and is not safe for
// concurrent use.
package review

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// State is where the session is in its browse/update cycle.
type State int

const (
	Browsing State = iota
	Updating
)

func (s State) String() string {
	if s == Updating {
		return "updating"
	}
	return "browsing"
}

// CoordinateWriter stores a coordinate in a media file. media.Writer
// satisfies it.
type CoordinateWriter interface {
	Write(ctx context.Context, path string, c geo.Coordinate) bool
}

// Options configures a Session.
type Options struct {
	// MediaRoot is joined onto relative entry paths.
	MediaRoot string
	// ManifestPath, when set, is rewritten by CommitAll.
	ManifestPath string
	Variant      Variant
	Writer       CoordinateWriter
	// Reader re-derives coordinates when a manifest is loaded.
	Reader Deriver
	Logger *zap.Logger
}

// Session is an ordered list of entries with a cursor.
type Session struct {
	entries   []core.MediaRecord
	datetimes []string
	cursor    int
	changes   int
	state     State
	opts      Options
	log       *zap.Logger
}

// New starts a session over entries.
func New(entries []core.MediaRecord, opts Options) *Session {
	s := &Session{
		entries:   make([]core.MediaRecord, len(entries)),
		datetimes: make([]string, len(entries)),
		opts:      opts,
		log:       logging.OrNop(opts.Logger),
	}
	for i, e := range entries {
		s.entries[i] = e.Clone()
	}
	return s
}

// Load starts a session from the manifest at manifestPath. opts.ManifestPath
// is set to manifestPath. A manifest that already has GPS columns is always
// rewritten as Extended; opts.Variant only matters for one that does not.
func Load(ctx context.Context, manifestPath string, opts Options) (*Session, error) {
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return nil, err
	}
	opts.ManifestPath = manifestPath
	if m.HasGPS {
		opts.Variant = Extended
	}
	s := New(m.Entries(ctx, opts.MediaRoot, opts.Reader, opts.Logger), opts)
	for i, row := range m.Rows {
		s.datetimes[i] = row.Datetime
	}
	s.log.Info("manifest loaded",
		zap.String("manifest", manifestPath),
		zap.Int("entries", len(s.entries)),
		zap.Bool("gps_columns", m.HasGPS))
	return s, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Navigation
// ──────────────────────────────────────────────────────────────────────────────

// Len returns the number of entries.
func (s *Session) Len() int { return len(s.entries) }

// Index returns the cursor position.
func (s *Session) Index() int { return s.cursor }

// Changes returns the number of successful manual updates.
func (s *Session) Changes() int { return s.changes }

// State returns the current state.
func (s *Session) State() State { return s.state }

// Current returns the entry under the cursor. ok is false for an empty
// session.
func (s *Session) Current() (core.MediaRecord, bool) {
	if len(s.entries) == 0 {
		return core.MediaRecord{}, false
	}
	return s.entries[s.cursor].Clone(), true
}

// Entries returns a copy of all entries.
func (s *Session) Entries() []core.MediaRecord {
	out := make([]core.MediaRecord, len(s.entries))
	for i, e := range s.entries {
		out[i] = e.Clone()
	}
	return out
}

// Next moves the cursor forward, stopping at the last entry.
func (s *Session) Next() int { return s.Seek(s.cursor + 1) }

// Previous moves the cursor back, stopping at the first entry.
func (s *Session) Previous() int { return s.Seek(s.cursor - 1) }

// Seek moves the cursor to i, clamped to the valid range.
func (s *Session) Seek(i int) int {
	switch {
	case len(s.entries) == 0 || i < 0:
		i = 0
	case i >= len(s.entries):
		i = len(s.entries) - 1
	}
	s.cursor = i
	return s.cursor
}

// Path returns the on-disk location of an entry.
func (s *Session) Path(r core.MediaRecord) string {
	return ResolvePath(s.opts.MediaRoot, r.Path)
}

// ──────────────────────────────────────────────────────────────────────────────
// Updates
// ──────────────────────────────────────────────────────────────────────────────

// UpdateCoordinate writes (lat, lon) into the current entry's file. Invalid
// coordinates are rejected before anything is touched. Only a successful
// write changes the entry, which becomes ProvManual, and the cursor then
// moves to the next entry.
func (s *Session) UpdateCoordinate(ctx context.Context, lat, lon float64) bool {
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if len(s.entries) == 0 {
		return false
	}
	if !c.Valid() {
		s.log.Warn("rejected coordinate", zap.Stringer("coordinate", c))
		return false
	}
	if s.opts.Writer == nil {
		s.log.Error("no coordinate writer configured")
		return false
	}

	s.state = Updating
	defer func() { s.state = Browsing }()

	e := &s.entries[s.cursor]
	if !s.opts.Writer.Write(ctx, s.Path(*e), c) {
		return false
	}
	e.SetCoordinate(c, core.ProvManual)
	s.changes++
	s.log.Info("coordinate updated",
		zap.String("path", e.Path),
		zap.Stringer("coordinate", c),
		zap.Int("changes", s.changes))
	s.Next()
	return true
}

// CommitAll writes every entry that has a coordinate and then rewrites the
// manifest, if any. Entries without a coordinate count as successes. If the
// manifest cannot be written, or anything panics, the manifest is restored
// from its backup and every entry is reported as failed.
func (s *Session) CommitAll(ctx context.Context) (res core.CommitResult) {
	res.Total = len(s.entries)
	res.FailedPaths = []string{}

	if s.opts.ManifestPath != "" {
		if created, err := fileutil.Backup(s.opts.ManifestPath); err != nil {
			s.log.Warn("manifest backup failed", zap.String("manifest", s.opts.ManifestPath), zap.Error(err))
		} else if created {
			s.log.Debug("manifest backed up", zap.String("backup", fileutil.BackupPath(s.opts.ManifestPath)))
		}
	}

	defer func() {
		if p := recover(); p != nil {
			res = s.abort(fmt.Errorf("commit aborted: %v", p))
		}
	}()

	var errs error
	for _, e := range s.entries {
		if e.Coord == nil {
			res.Success++
			continue
		}
		if s.opts.Writer != nil && s.opts.Writer.Write(ctx, s.Path(e), *e.Coord) {
			res.Success++
			continue
		}
		res.Failed++
		res.FailedPaths = append(res.FailedPaths, e.Path)
		errs = multierr.Append(errs, fmt.Errorf("%s: write failed", e.Path))
	}

	if s.opts.ManifestPath != "" {
		rows := make([]Row, len(s.entries))
		for i, e := range s.entries {
			rows[i] = RowFor(e, s.datetimes[i])
		}
		if err := WriteManifest(s.opts.ManifestPath, rows, s.opts.Variant); err != nil {
			return s.abort(err)
		}
	}

	fields := []zap.Field{zap.Int("total", res.Total), zap.Int("success", res.Success), zap.Int("failed", res.Failed)}
	if errs != nil {
		s.log.Warn("commit finished with failures", append(fields, zap.Errors("errors", multierr.Errors(errs)))...)
	} else {
		s.log.Info("commit finished", fields...)
	}
	return res
}

func (s *Session) abort(cause error) core.CommitResult {
	s.log.Error("commit failed", zap.Error(cause))
	if s.opts.ManifestPath != "" {
		if err := fileutil.Restore(s.opts.ManifestPath); err != nil {
			s.log.Error("restoring manifest failed", zap.String("manifest", s.opts.ManifestPath), zap.Error(err))
			cause = multierr.Append(cause, err)
		}
	}
	res := core.CommitResult{
		Total:       len(s.entries),
		Failed:      len(s.entries),
		FailedPaths: make([]string, 0, len(s.entries)),
		Err:         cause,
	}
	for _, e := range s.entries {
		res.FailedPaths = append(res.FailedPaths, e.Path)
	}
	return res
}
