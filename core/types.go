// Package core defines the shared types, interfaces, and format registry
// for Media GPS Surgery.
package core

import (
	"context"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// Provenance records where a record's coordinate came from.
type Provenance int

const (
	ProvNone     Provenance = iota // no coordinate
	ProvOriginal                   // read from the file's own metadata during a scan
	ProvExif                       // re-derived from the file when a manifest was loaded
	ProvProxy                      // borrowed from a nearby-in-time anchor
	ProvManual                     // typed in by a reviewer
	ProvScan                       // listed by a scan, coordinate still unknown
)

var provNames = map[Provenance]string{
	ProvNone:     "none",
	ProvOriginal: "original",
	ProvExif:     "exif",
	ProvProxy:    "proxy",
	ProvManual:   "manual",
	ProvScan:     "scan",
}

// String returns the manifest spelling of p.
func (p Provenance) String() string {
	if s, ok := provNames[p]; ok {
		return s
	}
	return "manual"
}

// FromFile reports whether the coordinate was read from the media file.
func (p Provenance) FromFile() bool { return p == ProvOriginal || p == ProvExif }

// ParseProvenance decodes a gps_source column. Empty text is ProvNone and
// unrecognised text is treated as a manual entry.
func ParseProvenance(s string) Provenance {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return ProvNone
	}
	for p, name := range provNames {
		if name == s {
			return p
		}
	}
	return ProvManual
}

// MediaRecord is one media file under consideration.
type MediaRecord struct {
	Path       string          // relative to the media root, or absolute
	Time       time.Time       // capture time in UTC; zero when unknown
	Coord      *geo.Coordinate // nil when unknown
	Provenance Provenance
}

// HasTime reports whether the capture time is known.
func (r *MediaRecord) HasTime() bool { return !r.Time.IsZero() }

// HasCoordinate reports whether r carries a valid coordinate.
func (r *MediaRecord) HasCoordinate() bool { return r.Coord != nil && r.Coord.Valid() }

// SetCoordinate stores a copy of c with the given provenance.
func (r *MediaRecord) SetCoordinate(c geo.Coordinate, p Provenance) {
	r.Coord = &c
	r.Provenance = p
}

// ClearCoordinate drops the coordinate and resets provenance.
func (r *MediaRecord) ClearCoordinate() {
	r.Coord = nil
	r.Provenance = ProvNone
}

// Normalize enforces "no coordinate ⇔ ProvNone" on records loaded from
// outside the process.
func (r *MediaRecord) Normalize() {
	switch {
	case r.Coord == nil:
		r.Provenance = ProvNone
	case r.Provenance == ProvNone || r.Provenance == ProvScan:
		r.Provenance = ProvManual
	}
}

// Clone returns a deep copy of r.
func (r MediaRecord) Clone() MediaRecord {
	if r.Coord != nil {
		c := *r.Coord
		r.Coord = &c
	}
	return r
}

// Extraction is what a format handler read from one file. Each half carries
// its own error so a missing timestamp does not hide a good coordinate.
type Extraction struct {
	Time     time.Time
	TimeErr  error
	Coord    geo.Coordinate
	CoordErr error
}

// FormatInfo describes what a format handler supports.
type FormatInfo struct {
	Name       string   // "JPEG"
	Kind       Kind     // still, heic or video
	Extensions []string // [".jpg", ".jpeg"]
	CanWrite   bool
	Notes      string // Any caveats or notes
}

// Handler is the interface every format must implement.
type Handler interface {
	// Extract reads the capture time and GPS coordinate from path.
	Extract(ctx context.Context, path string) Extraction
	// WriteCoordinate stores c in path's GPS metadata.
	WriteCoordinate(ctx context.Context, path string, c geo.Coordinate) error
	// Info returns format capabilities.
	Info() FormatInfo
}

// CommitResult summarises a batch write-back.
type CommitResult struct {
	Total       int      `json:"total"`
	Success     int      `json:"success"`
	Failed      int      `json:"failed"`
	FailedPaths []string `json:"failed_paths"`
	Err         error    `json:"-"`
}
