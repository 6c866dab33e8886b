package image

import (
	"bytes"
	"context"
	"encoding/binary"
	"hash/crc32"
	stdimage "image"
	"image/color"
	"image/jpeg"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

const arcMilliSecond = 1.0 / 3600.0 / 1000.0

func writeTestJPEG(t *testing.T) string {
	t.Helper()
	img := stdimage.NewRGBA(stdimage.Rect(0, 0, 8, 8))
	for x := 0; x < 8; x++ {
		for y := 0; y < 8; y++ {
			img.Set(x, y, color.RGBA{uint8(x * 30), uint8(y * 30), 90, 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	path := filepath.Join(t.TempDir(), "IMG_0001.jpg")
	require.NoError(t, os.WriteFile(path, buf.Bytes(), 0o644))
	return path
}

func TestExtractJPEGWithoutExif(t *testing.T) {
	path := writeTestJPEG(t)
	h := New(core.FmtJPEG, Options{})

	ex := h.Extract(context.Background(), path)
	assert.ErrorIs(t, ex.TimeErr, core.ErrNoData)
	assert.ErrorIs(t, ex.CoordErr, core.ErrNoData)
}

func TestJPEGWriteThenRead(t *testing.T) {
	path := writeTestJPEG(t)
	h := New(core.FmtJPEG, Options{})
	want := geo.Coordinate{Lat: -33.8688, Lon: 151.2093}

	require.NoError(t, h.WriteCoordinate(context.Background(), path, want))

	ex := h.Extract(context.Background(), path)
	require.NoError(t, ex.CoordErr)
	assert.InDelta(t, want.Lat, ex.Coord.Lat, arcMilliSecond)
	assert.InDelta(t, want.Lon, ex.Coord.Lon, arcMilliSecond)
	assert.ErrorIs(t, ex.TimeErr, core.ErrNoData)

	// A second write replaces the first rather than appending.
	next := geo.Coordinate{Lat: 38.7695, Lon: -9.1297}
	require.NoError(t, h.WriteCoordinate(context.Background(), path, next))
	ex = h.Extract(context.Background(), path)
	require.NoError(t, ex.CoordErr)
	assert.InDelta(t, next.Lat, ex.Coord.Lat, arcMilliSecond)
	assert.InDelta(t, next.Lon, ex.Coord.Lon, arcMilliSecond)
}

func TestWriteRejectsInvalid(t *testing.T) {
	path := writeTestJPEG(t)
	h := New(core.FmtJPEG, Options{})
	before, err := os.ReadFile(path)
	require.NoError(t, err)

	err = h.WriteCoordinate(context.Background(), path, geo.Coordinate{})
	assert.ErrorIs(t, err, core.ErrInvalidCoordinate)
	err = h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: 91, Lon: 0})
	assert.ErrorIs(t, err, core.ErrInvalidCoordinate)

	after, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, before, after)
}

func TestWriteJPEGNotAJPEG(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.jpg")
	require.NoError(t, os.WriteFile(path, []byte("definitely not a jpeg"), 0o644))
	h := New(core.FmtJPEG, Options{})
	assert.Error(t, h.WriteCoordinate(context.Background(), path, geo.Coordinate{Lat: 1, Lon: 1}))
}

func TestParseExifTime(t *testing.T) {
	got, err := ParseExifTime("2024:08:16 17:15:17")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 8, 16, 17, 15, 17, 0, time.UTC), got)

	got, err = ParseExifTime("2024:08:16 17:15:17\x00")
	require.NoError(t, err)
	assert.Equal(t, 17, got.Hour())

	for _, bad := range []string{"", "2024-08-16 17:15:17", "2024:08:16", "    :  :     :  :  ", "2024:13:16 17:15:17"} {
		_, err := ParseExifTime(bad)
		var pe *core.ParseError
		assert.ErrorAs(t, err, &pe, bad)
	}
}

func pngChunkBytes(typ string, data []byte) []byte {
	var b bytes.Buffer
	_ = binary.Write(&b, binary.BigEndian, uint32(len(data)))
	b.WriteString(typ)
	b.Write(data)
	crc := crc32.NewIEEE()
	crc.Write([]byte(typ))
	crc.Write(data)
	_ = binary.Write(&b, binary.BigEndian, crc.Sum32())
	return b.Bytes()
}

func TestPNGExifChunk(t *testing.T) {
	payload := []byte("MM\x00*\x00\x00\x00\x08")
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	b.Write(pngChunkBytes("IHDR", make([]byte, 13)))
	b.Write(pngChunkBytes("eXIf", payload))
	b.Write(pngChunkBytes("IEND", nil))

	path := filepath.Join(t.TempDir(), "shot.png")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))

	got, err := pngExif(path)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPNGWithoutExif(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	b.Write(pngChunkBytes("IHDR", make([]byte, 13)))
	b.Write(pngChunkBytes("IEND", nil))
	path := filepath.Join(t.TempDir(), "plain.png")
	require.NoError(t, os.WriteFile(path, b.Bytes(), 0o644))

	_, err := pngExif(path)
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestPNGSkipsLargeChunksWithoutBuffering(t *testing.T) {
	payload := []byte("II*\x00\x08\x00\x00\x00")
	idat := make([]byte, 64<<10)
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	b.Write(pngChunkBytes("IHDR", make([]byte, 13)))
	b.Write(pngChunkBytes("IDAT", idat))
	b.Write(pngChunkBytes("eXIf", payload))
	b.Write(pngChunkBytes("IEND", nil))

	got, err := findPNGChunk(bytes.NewReader(b.Bytes()), "eXIf", maxPNGExif)
	require.NoError(t, err)
	assert.Equal(t, payload, got)
}

func TestPNGTruncatedChunkLength(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	b.Write(u32(0xFFFFFFF0))
	b.WriteString("IDAT")
	b.Write(make([]byte, 32))

	_, err := findPNGChunk(bytes.NewReader(b.Bytes()), "eXIf", maxPNGExif)
	assert.ErrorIs(t, err, core.ErrNoData)
}

func TestPNGOversizedExifChunk(t *testing.T) {
	var b bytes.Buffer
	b.Write([]byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A})
	b.Write(u32(0xFFFFFFF0))
	b.WriteString("eXIf")

	_, err := findPNGChunk(bytes.NewReader(b.Bytes()), "eXIf", maxPNGExif)
	var pe *core.ParseError
	assert.ErrorAs(t, err, &pe)
}

func TestPNGBadSignature(t *testing.T) {
	_, err := findPNGChunk(bytes.NewReader([]byte("GIF89a..")), "eXIf", maxPNGExif)
	var pe *core.ParseError
	assert.ErrorAs(t, err, &pe)
}

func box(typ string, body ...[]byte) []byte {
	var content []byte
	for _, b := range body {
		content = append(content, b...)
	}
	out := make([]byte, 8, 8+len(content))
	binary.BigEndian.PutUint32(out[0:4], uint32(8+len(content)))
	copy(out[4:8], typ)
	return append(out, content...)
}

func u16(v uint16) []byte {
	b := make([]byte, 2)
	binary.BigEndian.PutUint16(b, v)
	return b
}

func u32(v uint32) []byte {
	b := make([]byte, 4)
	binary.BigEndian.PutUint32(b, v)
	return b
}

// buildHEIC lays out ftyp, meta (iinf + iloc) and mdat holding the Exif item.
func buildHEIC(tiffBlock []byte) []byte {
	payload := append(u32(6), append([]byte("Exif\x00\x00"), tiffBlock...)...)

	ftyp := box("ftyp", []byte("heic"), u32(0), []byte("mif1heic"))
	infeExif := box("infe", []byte{2, 0, 0, 0}, u16(7), u16(0), []byte("Exif"))
	infeImg := box("infe", []byte{2, 0, 0, 0}, u16(1), u16(0), []byte("hvc1"))
	iinf := box("iinf", []byte{0, 0, 0, 0}, u16(2), infeImg, infeExif)

	ilocFor := func(offset uint32) []byte {
		return box("iloc",
			[]byte{0, 0, 0, 0}, // version 0, flags
			[]byte{0x44, 0x00}, // offset_size 4, length_size 4, base_offset_size 0
			u16(1),             // item count
			u16(7), u16(0),     // item 7, data_reference_index
			u16(1),             // extent count
			u32(offset), u32(uint32(len(payload))),
		)
	}
	// The iloc size does not depend on the offset value, so lay out once to
	// measure and again with the real offset.
	meta := box("meta", []byte{0, 0, 0, 0}, iinf, ilocFor(0))
	mdatStart := uint32(len(ftyp) + len(meta) + 8)
	meta = box("meta", []byte{0, 0, 0, 0}, iinf, ilocFor(mdatStart))

	return append(append(ftyp, meta...), box("mdat", payload)...)
}

func TestHEICExifItem(t *testing.T) {
	tiffBlock := []byte("II*\x00\x08\x00\x00\x00\x00\x00")
	path := filepath.Join(t.TempDir(), "IMG_0002.HEIC")
	require.NoError(t, os.WriteFile(path, buildHEIC(tiffBlock), 0o644))

	raw, err := heicExif(path)
	require.NoError(t, err)
	assert.Equal(t, tiffBlock, raw)
}

func TestHEICTopLevelExifBox(t *testing.T) {
	tiffBlock := []byte("MM\x00*\x00\x00\x00\x08\x00\x00")
	data := append(box("ftyp", []byte("heic"), u32(0)), box("Exif", u32(0), tiffBlock)...)
	path := filepath.Join(t.TempDir(), "IMG_0003.heic")
	require.NoError(t, os.WriteFile(path, data, 0o644))

	raw, err := heicExif(path)
	require.NoError(t, err)
	assert.Equal(t, tiffBlock, raw)
}

func TestInfo(t *testing.T) {
	assert.Equal(t, core.KindHEIC, New(core.FmtHEIC, Options{}).Info().Kind)
	assert.True(t, New(core.FmtJPEG, Options{}).Info().CanWrite)
}
