// Package match fills in missing coordinates by borrowing them from the
// record taken closest in time.
package match

import (
	"time"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
)

// DefaultWindow is the default maximum distance between a record and its
// anchor.
const DefaultWindow = time.Hour

// Matcher assigns proxy coordinates.
type Matcher struct {
	// Window is the inclusive maximum time distance. Negative means no
	// record gets a proxy.
	Window time.Duration
	Log    *zap.Logger
}

type anchor struct {
	path  string
	time  time.Time
	coord geo.Coordinate
}

// Assign gives every timed, coordinate-less record the coordinate of the
// nearest anchor within m.Window and marks it ProvProxy. Anchors are the
// records holding both a capture time and a valid coordinate before Assign
// runs, so a fresh proxy never seeds another one. Ties go to the first
// anchor in input order. It returns the number of records updated.
func (m Matcher) Assign(records []core.MediaRecord) int {
	log := logging.OrNop(m.Log)
	if m.Window < 0 {
		return 0
	}

	var anchors []anchor
	for _, r := range records {
		if r.HasTime() && r.HasCoordinate() {
			anchors = append(anchors, anchor{path: r.Path, time: r.Time, coord: *r.Coord})
		}
	}
	if len(anchors) == 0 {
		log.Debug("no anchors, skipping proxy assignment", zap.Int("records", len(records)))
		return 0
	}

	assigned := 0
	for i := range records {
		r := &records[i]
		if !r.HasTime() || r.HasCoordinate() {
			continue
		}

		best := -1
		var bestDist time.Duration
		for j, a := range anchors {
			if a.path == r.Path {
				continue
			}
			d := absDuration(r.Time.Sub(a.time))
			if d > m.Window {
				continue
			}
			if best < 0 || d < bestDist {
				best, bestDist = j, d
			}
		}
		if best < 0 {
			continue
		}

		r.SetCoordinate(anchors[best].coord, core.ProvProxy)
		assigned++
		log.Debug("proxy assigned",
			zap.String("path", r.Path),
			zap.String("anchor", anchors[best].path),
			zap.Float64("minutes", bestDist.Minutes()))
	}

	log.Info("proxy assignment done",
		zap.Int("assigned", assigned),
		zap.Int("anchors", len(anchors)),
		zap.Duration("window", m.Window))
	return assigned
}

// AssignProxies returns a copy of records with proxies assigned using a
// window of windowHours.
func AssignProxies(records []core.MediaRecord, windowHours float64) []core.MediaRecord {
	out := make([]core.MediaRecord, len(records))
	for i, r := range records {
		out[i] = r.Clone()
	}
	Matcher{Window: HoursToWindow(windowHours)}.Assign(out)
	return out
}

// HoursToWindow converts a fractional hour count to a duration.
func HoursToWindow(hours float64) time.Duration {
	return time.Duration(hours * float64(time.Hour))
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
