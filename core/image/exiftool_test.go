package image

import (
	"context"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// fakeExiftool writes a shell script standing in for exiftool.
func fakeExiftool(t *testing.T, body string) string {
	t.Helper()
	if runtime.GOOS == "windows" {
		t.Skip("shell scripts")
	}
	p := filepath.Join(t.TempDir(), "exiftool")
	require.NoError(t, os.WriteFile(p, []byte("#!/bin/sh\n"+body), 0o755))
	return p
}

func pngFixture(t *testing.T) (dir, path string) {
	t.Helper()
	dir = t.TempDir()
	path = filepath.Join(dir, "shot.png")
	require.NoError(t, os.WriteFile(path, []byte("original"), 0o644))
	return dir, path
}

func leftovers(t *testing.T, dir string) []string {
	t.Helper()
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	var out []string
	for _, e := range entries {
		if fileutil.IsTemp(e.Name()) {
			out = append(out, e.Name())
		}
	}
	return out
}

func TestExiftoolWriteReplacesOriginal(t *testing.T) {
	bin := fakeExiftool(t, "for last; do :; done\nprintf tagged > \"$last\"\n")
	dir, path := pngFixture(t)
	h := New(core.FmtPNG, Options{Exiftool: bin, Timeout: 5 * time.Second})

	require.NoError(t, h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: 10, Lon: 20}))

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "tagged", string(got))
	assert.Empty(t, leftovers(t, dir))
}

func TestExiftoolWriteFailureKeepsOriginal(t *testing.T) {
	bin := fakeExiftool(t, "for last; do :; done\nprintf broken > \"$last\"\necho 'Error: bad tag' >&2\nexit 1\n")
	dir, path := pngFixture(t)
	h := New(core.FmtPNG, Options{Exiftool: bin})

	err := h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: 10, Lon: 20})
	var te *core.ToolError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 1, te.ExitCode)
	assert.Equal(t, "Error: bad tag", te.Stderr)

	got, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "original", string(got))
	assert.Empty(t, leftovers(t, dir))
}

func TestExiftoolWriteTimeoutKillsProcess(t *testing.T) {
	bin := fakeExiftool(t, "exec sleep 47\n")
	dir, path := pngFixture(t)
	h := New(core.FmtPNG, Options{Exiftool: bin, Timeout: 200 * time.Millisecond})

	start := time.Now()
	err := h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: 10, Lon: 20})
	elapsed := time.Since(start)

	var te *core.ToolError
	require.ErrorAs(t, err, &te)
	assert.True(t, te.TimedOut)
	assert.Less(t, elapsed, 5*time.Second)
	assert.Empty(t, leftovers(t, dir))

	if _, err := exec.LookPath("pgrep"); err == nil {
		out, _ := exec.Command("pgrep", "-f", "sleep 47").Output()
		assert.Empty(t, string(out), "exiftool child still running")
	}
}

func TestExiftoolTags(t *testing.T) {
	if _, err := exec.LookPath(DefaultExiftool); err != nil {
		t.Skip("exiftool not installed")
	}
	path := writeTestJPEG(t)
	h := New(core.FmtJPEG, Options{})
	require.NoError(t, h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: -33.8688, Lon: 151.2093}))

	tags, err := ExiftoolTags("", path)
	require.NoError(t, err)
	assert.Contains(t, tags, "GPSLatitude")
	assert.IsIncreasing(t, SortedKeys(tags))
}
