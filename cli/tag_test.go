package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/geocode"
	"github.com/ankit-chaubey/media-gps-surgery/core/media"
	"github.com/ankit-chaubey/media-gps-surgery/core/scan"
)

// stubHandler accepts every write except to files named broken.*, and
// reports a coordinate for files named has.*.
type stubHandler struct {
	mu      sync.Mutex
	written map[string]geo.Coordinate
}

func (h *stubHandler) Extract(ctx context.Context, path string) core.Extraction {
	if strings.HasPrefix(filepath.Base(path), "has.") {
		return core.Extraction{Coord: geo.Coordinate{Lat: 1, Lon: 1}, TimeErr: core.ErrNoData}
	}
	return core.Extraction{TimeErr: core.ErrNoData, CoordErr: core.ErrNoData}
}

func (h *stubHandler) WriteCoordinate(ctx context.Context, path string, c geo.Coordinate) error {
	if strings.HasPrefix(filepath.Base(path), "broken.") {
		return &core.ParseError{Field: "exif", Value: path, Err: core.ErrNoData}
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.written == nil {
		h.written = map[string]geo.Coordinate{}
	}
	h.written[path] = c
	return nil
}

func (h *stubHandler) Info() core.FormatInfo { return core.FormatInfo{Name: "stub", CanWrite: true} }

type stubResolver struct{ h core.Handler }

func (r stubResolver) HandlerFor(string) (core.Handler, error) { return r.h, nil }

func nominatim(t *testing.T, hits *int32) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(hits, 1)
		if r.URL.Query().Get("q") != "Paris, France" {
			_, _ = w.Write([]byte(`[]`))
			return
		}
		_, _ = w.Write([]byte(`[{"lat":"48.8566","lon":"2.3522","display_name":"Paris"}]`))
	}))
	t.Cleanup(srv.Close)
	return srv
}

func tagFixture(t *testing.T, names ...string) string {
	t.Helper()
	root := t.TempDir()
	for _, n := range names {
		p := filepath.Join(root, filepath.FromSlash(n))
		require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
		require.NoError(t, os.WriteFile(p, []byte("x"), 0o644))
	}
	return root
}

func TestTagPlaceWritesEveryTaggableFile(t *testing.T) {
	root := tagFixture(t, "a.jpg", "b.PNG", "c.heic", "d.mov", "e.mp4", "f.webp", "broken.jpg", "notes.txt", "sub/g.jpeg")
	var hits int32
	gc := geocode.New(geocode.Options{URL: nominatim(t, &hits).URL, UserAgent: "test-agent"})
	h := &stubHandler{}
	res := stubResolver{h: h}
	sc := scan.New(media.NewReader(res, nil), nil)

	c, result, err := tagPlace(context.Background(), root, "Paris, France", gc.Lookup, sc, media.NewWriter(res, nil), false, nil)
	require.NoError(t, err)

	paris := geo.Coordinate{Lat: 48.8566, Lon: 2.3522}
	assert.Equal(t, paris, c)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	assert.Equal(t, core.CommitResult{Total: 7, Success: 6, Failed: 1, FailedPaths: []string{"broken.jpg"}}, result)

	for _, n := range []string{"a.jpg", "b.PNG", "c.heic", "d.mov", "e.mp4", "sub/g.jpeg"} {
		assert.Equal(t, paris, h.written[filepath.Join(root, filepath.FromSlash(n))], n)
	}
	assert.NotContains(t, h.written, filepath.Join(root, "f.webp"))
	assert.FileExists(t, filepath.Join(root, "a.jpg.bak"))
}

func TestTagPlaceMissingOnly(t *testing.T) {
	root := tagFixture(t, "has.jpg", "none.jpg")
	var hits int32
	gc := geocode.New(geocode.Options{URL: nominatim(t, &hits).URL, UserAgent: "test-agent"})
	h := &stubHandler{}
	res := stubResolver{h: h}
	sc := scan.New(media.NewReader(res, nil), nil)

	_, result, err := tagPlace(context.Background(), root, "Paris, France", gc.Lookup, sc, media.NewWriter(res, nil), true, nil)
	require.NoError(t, err)
	assert.Equal(t, 1, result.Success)
	assert.Contains(t, h.written, filepath.Join(root, "none.jpg"))
	assert.NotContains(t, h.written, filepath.Join(root, "has.jpg"))
}

func TestTagPlaceUnknownPlace(t *testing.T) {
	root := tagFixture(t, "a.jpg")
	var hits int32
	gc := geocode.New(geocode.Options{URL: nominatim(t, &hits).URL, UserAgent: "test-agent"})
	h := &stubHandler{}
	res := stubResolver{h: h}

	_, _, err := tagPlace(context.Background(), root, "Atlantis", gc.Lookup, scan.New(media.NewReader(res, nil), nil), media.NewWriter(res, nil), false, nil)
	assert.ErrorContains(t, err, "no coordinates found")
	assert.Empty(t, h.written)
}

func TestTagPlaceNotADirectory(t *testing.T) {
	root := tagFixture(t, "a.jpg")
	called := false
	lookup := func(context.Context, string) (geo.Coordinate, bool, error) {
		called = true
		return geo.Coordinate{}, false, nil
	}
	_, _, err := tagPlace(context.Background(), filepath.Join(root, "a.jpg"), "Paris", lookup, nil, nil, false, nil)
	assert.Error(t, err)
	assert.False(t, called)
}
