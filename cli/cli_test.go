package main

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/review"
)

type recordingWriter struct {
	writes map[string]geo.Coordinate
}

func (w *recordingWriter) Write(ctx context.Context, path string, c geo.Coordinate) bool {
	if w.writes == nil {
		w.writes = map[string]geo.Coordinate{}
	}
	w.writes[path] = c
	return true
}

func newSession(w review.CoordinateWriter, paths ...string) *review.Session {
	entries := make([]core.MediaRecord, len(paths))
	for i, p := range paths {
		entries[i] = core.MediaRecord{Path: p}
	}
	return review.New(entries, review.Options{MediaRoot: "/media", Writer: w})
}

func noLookup(context.Context, string) (geo.Coordinate, bool, error) {
	return geo.Coordinate{}, false, errors.New("offline")
}

func TestRunReviewUpdatesAndNavigates(t *testing.T) {
	w := &recordingWriter{}
	s := newSession(w, "a.jpg", "b.jpg", "c.jpg")
	var out bytes.Buffer
	p := &core.Printer{Writer: &out}

	input := "u 38.7, -9.1\np\nn\nu 95 0\ng 3\nu 1,2\nq\n"
	require.NoError(t, runReview(context.Background(), s, strings.NewReader(input), p, noLookup))

	assert.Equal(t, geo.Coordinate{Lat: 38.7, Lon: -9.1}, w.writes["/media/a.jpg"])
	assert.Equal(t, geo.Coordinate{Lat: 1, Lon: 2}, w.writes["/media/c.jpg"])
	assert.Len(t, w.writes, 2)
	assert.Equal(t, 2, s.Changes())
	assert.Contains(t, out.String(), "manifest not saved")
}

func TestRunReviewGeocodes(t *testing.T) {
	w := &recordingWriter{}
	s := newSession(w, "a.jpg")
	lookup := func(ctx context.Context, address string) (geo.Coordinate, bool, error) {
		if address == "Lisbon Portugal" {
			return geo.Coordinate{Lat: 38.7, Lon: -9.1}, true, nil
		}
		return geo.Coordinate{}, false, nil
	}
	var out bytes.Buffer
	input := "a Atlantis\na Lisbon Portugal\n"
	require.NoError(t, runReview(context.Background(), s, strings.NewReader(input), &core.Printer{Writer: &out}, lookup))

	assert.Equal(t, geo.Coordinate{Lat: 38.7, Lon: -9.1}, w.writes["/media/a.jpg"])
	assert.Contains(t, out.String(), "no match for Atlantis")
}

func TestRunReviewCommit(t *testing.T) {
	w := &recordingWriter{}
	s := newSession(w, "a.jpg", "b.jpg")
	var out bytes.Buffer
	input := "u 10 20\ns\nq\n"
	require.NoError(t, runReview(context.Background(), s, strings.NewReader(input), &core.Printer{Writer: &out}, noLookup))

	assert.Contains(t, out.String(), "Success: 2")
	assert.NotContains(t, out.String(), "manifest not saved")
}

func TestCoordinateArgs(t *testing.T) {
	for _, in := range [][]string{{"1.5", "2.5"}, {"1.5,", "2.5"}, {"1.5,2.5"}} {
		c, err := coordinateArgs(in)
		require.NoError(t, err, in)
		assert.Equal(t, geo.Coordinate{Lat: 1.5, Lon: 2.5}, c)
	}
	_, err := coordinateArgs([]string{"1"})
	assert.Error(t, err)
	_, err = coordinateArgs([]string{"0", "0"})
	assert.ErrorIs(t, err, core.ErrInvalidCoordinate)
	_, err = coordinateArgs([]string{"north", "2"})
	assert.Error(t, err)
}
