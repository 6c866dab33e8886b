package image

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

// ─── PNG ─────────────────────────────────────────────────────────────────────

// maxPNGExif caps the eXIf chunk length accepted from the chunk header.
const maxPNGExif = 16 << 20

var pngSignature = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}

// pngExif returns the payload of the eXIf chunk.
func pngExif(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return findPNGChunk(f, "eXIf", maxPNGExif)
}

// findPNGChunk streams the chunks of r and returns the data of the first
// chunk of type want. Other chunks are skipped without being buffered.
func findPNGChunk(r io.Reader, want string, limit uint32) ([]byte, error) {
	sig := make([]byte, len(pngSignature))
	if _, err := io.ReadFull(r, sig); err != nil || !bytes.Equal(sig, pngSignature) {
		return nil, &core.ParseError{Field: "png", Err: fmt.Errorf("not a valid PNG")}
	}

	hdr := make([]byte, 8)
	for {
		if _, err := io.ReadFull(r, hdr); err != nil {
			break
		}
		length := binary.BigEndian.Uint32(hdr[0:4])
		typ := string(hdr[4:8])

		if typ == want {
			if length > limit {
				return nil, &core.ParseError{Field: "png", Value: typ,
					Err: fmt.Errorf("chunk length %d exceeds %d", length, limit)}
			}
			data := make([]byte, length)
			if _, err := io.ReadFull(r, data); err != nil {
				return nil, &core.ParseError{Field: "png", Value: typ, Err: err}
			}
			return data, nil
		}
		if typ == "IEND" {
			break
		}
		// data plus CRC
		if _, err := io.CopyN(io.Discard, r, int64(length)+4); err != nil {
			break
		}
	}
	return nil, fmt.Errorf("png %s chunk: %w", want, core.ErrNoData)
}

// ─── WebP ─────────────────────────────────────────────────────────────────────

// webpExif returns the payload of the RIFF EXIF chunk.
func webpExif(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if len(data) < 12 {
		return nil, &core.ParseError{Field: "webp", Err: fmt.Errorf("file too short")}
	}

	offset := 12 // skip RIFF header
	for offset+8 <= len(data) {
		chunkID := string(data[offset : offset+4])
		chunkSize := int(binary.LittleEndian.Uint32(data[offset+4 : offset+8]))
		offset += 8
		if offset+chunkSize > len(data) {
			break
		}
		if chunkID == "EXIF" {
			return data[offset : offset+chunkSize], nil
		}
		offset += chunkSize
		if chunkSize%2 != 0 {
			offset++ // padding
		}
	}
	return nil, fmt.Errorf("webp EXIF chunk: %w", core.ErrNoData)
}
