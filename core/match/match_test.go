package match

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

var noon = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func rec(path string, t time.Time, c *geo.Coordinate) core.MediaRecord {
	r := core.MediaRecord{Path: path, Time: t}
	if c != nil {
		r.SetCoordinate(*c, core.ProvOriginal)
	}
	return r
}

func coord(lat, lon float64) *geo.Coordinate { return &geo.Coordinate{Lat: lat, Lon: lon} }

func TestWindowIsInclusive(t *testing.T) {
	records := []core.MediaRecord{
		rec("a.jpg", noon, coord(10, 20)),
		rec("b.jpg", noon.Add(time.Hour), nil),
		rec("c.jpg", noon.Add(-time.Hour-time.Second), nil),
	}
	out := AssignProxies(records, 1)

	assert.Equal(t, core.ProvProxy, out[1].Provenance)
	require.NotNil(t, out[1].Coord)
	assert.Equal(t, *coord(10, 20), *out[1].Coord)

	assert.Nil(t, out[2].Coord)
	assert.Equal(t, core.ProvNone, out[2].Provenance)
}

func TestNearestAnchorWins(t *testing.T) {
	records := []core.MediaRecord{
		rec("far.jpg", noon.Add(-20*time.Minute), coord(1, 1)),
		rec("target.jpg", noon, nil),
		rec("near.jpg", noon.Add(10*time.Minute), coord(2, 2)),
	}
	out := AssignProxies(records, 1)
	assert.Equal(t, *coord(2, 2), *out[1].Coord)
}

func TestTieGoesToFirstAnchor(t *testing.T) {
	records := []core.MediaRecord{
		rec("target.jpg", noon, nil),
		rec("after.jpg", noon.Add(5*time.Minute), coord(3, 3)),
		rec("before.jpg", noon.Add(-5*time.Minute), coord(4, 4)),
	}
	out := AssignProxies(records, 1)
	assert.Equal(t, *coord(3, 3), *out[0].Coord)
}

func TestNoAnchors(t *testing.T) {
	records := []core.MediaRecord{rec("a.jpg", noon, nil), rec("b.jpg", noon, nil)}
	out := AssignProxies(records, 24)
	for _, r := range out {
		assert.Nil(t, r.Coord)
		assert.Equal(t, core.ProvNone, r.Provenance)
	}
}

func TestSentinelNeverAnchors(t *testing.T) {
	records := []core.MediaRecord{
		rec("zero.jpg", noon, coord(0, 0)),
		rec("target.jpg", noon.Add(time.Minute), nil),
	}
	out := AssignProxies(records, 1)
	assert.Nil(t, out[1].Coord)
}

func TestUntimedRecordsIgnored(t *testing.T) {
	records := []core.MediaRecord{
		rec("untimed-anchor.jpg", time.Time{}, coord(5, 5)),
		rec("untimed.jpg", time.Time{}, nil),
		rec("target.jpg", noon, nil),
	}
	out := AssignProxies(records, 1000)
	assert.Nil(t, out[1].Coord)
	assert.Nil(t, out[2].Coord)
}

func TestSamePathSkipped(t *testing.T) {
	a := rec("dup.jpg", noon, coord(6, 6))
	b := rec("dup.jpg", noon.Add(time.Minute), nil)
	out := AssignProxies([]core.MediaRecord{a, b}, 1)
	assert.Nil(t, out[1].Coord)
}

func TestProxiesDoNotChain(t *testing.T) {
	records := []core.MediaRecord{
		rec("a.jpg", noon, coord(10, 20)),
		rec("b.jpg", noon.Add(50*time.Minute), nil),
		rec("c.jpg", noon.Add(100*time.Minute), nil),
	}
	out := AssignProxies(records, 1)
	assert.Equal(t, core.ProvProxy, out[1].Provenance)
	assert.Nil(t, out[2].Coord)
}

func TestEndToEndScenario(t *testing.T) {
	records := []core.MediaRecord{
		rec("A.jpg", noon, coord(10, 20)),
		rec("B.jpg", noon.Add(30*time.Minute), nil),
		rec("C.jpg", noon.Add(2*time.Hour), nil),
	}
	out := AssignProxies(records, 1)

	assert.Equal(t, core.ProvOriginal, out[0].Provenance)
	assert.Equal(t, core.ProvProxy, out[1].Provenance)
	assert.Equal(t, *coord(10, 20), *out[1].Coord)
	assert.Equal(t, core.ProvNone, out[2].Provenance)
}

func TestInputNotMutated(t *testing.T) {
	records := []core.MediaRecord{
		rec("a.jpg", noon, coord(10, 20)),
		rec("b.jpg", noon.Add(time.Minute), nil),
	}
	out := AssignProxies(records, 1)
	assert.Nil(t, records[1].Coord)
	require.NotNil(t, out[1].Coord)

	out[0].Coord.Lat = 50
	assert.Equal(t, 10.0, records[0].Coord.Lat)
}

func TestMatcherCountsAndNegativeWindow(t *testing.T) {
	records := []core.MediaRecord{
		rec("a.jpg", noon, coord(10, 20)),
		rec("b.jpg", noon, nil),
		rec("c.jpg", noon, nil),
	}
	assert.Equal(t, 0, Matcher{Window: -time.Second}.Assign(records))
	assert.Equal(t, 2, Matcher{Window: 0}.Assign(records))
}

func TestHoursToWindow(t *testing.T) {
	assert.Equal(t, 90*time.Minute, HoursToWindow(1.5))
	assert.Equal(t, time.Duration(0), HoursToWindow(0))
}
