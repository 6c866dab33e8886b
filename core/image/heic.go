package image

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	dexif "github.com/dsoprea/go-exif/v3"

	"github.com/ankit-chaubey/media-gps-surgery/core"
)

// ─── HEIC ─────────────────────────────────────────────────────────────────────
//
// HEIC stores EXIF as an item of type "Exif" inside the meta box. The item
// is found in iinf and its bytes located through iloc. The payload starts
// with a 4-byte big-endian offset to the TIFF header.

var errShortBox = errors.New("truncated box")

type isoBox struct {
	typ  string
	body []byte
}

// readBoxes splits data into consecutive ISO-BMFF boxes.
func readBoxes(data []byte) ([]isoBox, error) {
	var boxes []isoBox
	for off := 0; off+8 <= len(data); {
		size := int(binary.BigEndian.Uint32(data[off : off+4]))
		typ := string(data[off+4 : off+8])
		hdr := 8
		switch size {
		case 1: // 64-bit size
			if off+16 > len(data) {
				return boxes, errShortBox
			}
			size = int(binary.BigEndian.Uint64(data[off+8 : off+16]))
			hdr = 16
		case 0: // box extends to the end
			size = len(data) - off
		}
		if size < hdr || off+size > len(data) {
			return boxes, errShortBox
		}
		boxes = append(boxes, isoBox{typ: typ, body: data[off+hdr : off+size]})
		off += size
	}
	return boxes, nil
}

func findBox(boxes []isoBox, typ string) (isoBox, bool) {
	for _, b := range boxes {
		if b.typ == typ {
			return b, true
		}
	}
	return isoBox{}, false
}

// heicExif returns the TIFF-headed EXIF block of a HEIC file.
func heicExif(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	top, _ := readBoxes(data)
	if meta, ok := findBox(top, "meta"); ok {
		if raw, err := exifItem(data, meta); err == nil {
			return raw, nil
		}
	}
	// Some writers put a bare Exif box at the top level.
	if box, ok := findBox(top, "Exif"); ok && len(box.body) > 4 {
		return skipTIFFOffset(box.body)
	}
	raw, err := dexif.SearchAndExtractExif(data)
	if err != nil {
		return nil, fmt.Errorf("heic exif: %w", core.ErrNoData)
	}
	return raw, nil
}

func exifItem(file []byte, meta isoBox) ([]byte, error) {
	if len(meta.body) < 4 {
		return nil, errShortBox
	}
	children, err := readBoxes(meta.body[4:]) // full box
	if err != nil && len(children) == 0 {
		return nil, err
	}

	iinf, ok := findBox(children, "iinf")
	if !ok {
		return nil, core.ErrNoData
	}
	id, err := exifItemID(iinf.body)
	if err != nil {
		return nil, err
	}

	iloc, ok := findBox(children, "iloc")
	if !ok {
		return nil, core.ErrNoData
	}
	payload, err := itemData(file, iloc.body, id)
	if err != nil {
		return nil, err
	}
	return skipTIFFOffset(payload)
}

func skipTIFFOffset(payload []byte) ([]byte, error) {
	if len(payload) < 4 {
		return nil, errShortBox
	}
	off := int(binary.BigEndian.Uint32(payload[0:4]))
	rest := payload[4:]
	if off < len(rest) {
		return rest[off:], nil
	}
	return rest, nil
}

// exifItemID scans the infe entries of an iinf box for the Exif item.
func exifItemID(body []byte) (uint32, error) {
	if len(body) < 6 {
		return 0, errShortBox
	}
	version := body[0]
	p := 4
	if version == 0 {
		p += 2
	} else {
		p += 4
	}
	if p > len(body) {
		return 0, errShortBox
	}
	entries, _ := readBoxes(body[p:])
	for _, e := range entries {
		if e.typ != "infe" || len(e.body) < 4 {
			continue
		}
		v := e.body[0]
		b := e.body[4:]
		var id uint32
		switch {
		case v == 2 && len(b) >= 8:
			id = uint32(binary.BigEndian.Uint16(b[0:2]))
			b = b[4:] // item_ID, item_protection_index
		case v == 3 && len(b) >= 10:
			id = binary.BigEndian.Uint32(b[0:4])
			b = b[6:]
		default:
			continue
		}
		if string(b[0:4]) == "Exif" {
			return id, nil
		}
	}
	return 0, core.ErrNoData
}

// itemData reassembles the extents of item id from an iloc box.
func itemData(file, body []byte, id uint32) ([]byte, error) {
	r := &byteReader{b: body}
	version := r.u8()
	r.skip(3)
	sizes := r.u8()
	offsetSize, lengthSize := int(sizes>>4), int(sizes&0x0F)
	sizes = r.u8()
	baseOffsetSize := int(sizes >> 4)
	indexSize := 0
	if version == 1 || version == 2 {
		indexSize = int(sizes & 0x0F)
	}
	var count uint32
	if version < 2 {
		count = uint32(r.uint(2))
	} else {
		count = uint32(r.uint(4))
	}

	for i := uint32(0); i < count && r.err == nil; i++ {
		var itemID uint32
		if version < 2 {
			itemID = uint32(r.uint(2))
		} else {
			itemID = uint32(r.uint(4))
		}
		method := uint64(0)
		if version == 1 || version == 2 {
			method = r.uint(2) & 0x0F
		}
		r.skip(2) // data_reference_index
		base := r.uint(baseOffsetSize)
		extents := int(r.uint(2))

		var out []byte
		for e := 0; e < extents && r.err == nil; e++ {
			if indexSize > 0 {
				r.skip(indexSize)
			}
			off := base + r.uint(offsetSize)
			length := r.uint(lengthSize)
			if itemID != id {
				continue
			}
			if method != 0 {
				return nil, fmt.Errorf("iloc construction method %d: %w", method, core.ErrUnsupported)
			}
			if off+length > uint64(len(file)) {
				return nil, errShortBox
			}
			out = append(out, file[off:off+length]...)
		}
		if itemID == id && r.err == nil {
			return out, nil
		}
	}
	if r.err != nil {
		return nil, r.err
	}
	return nil, core.ErrNoData
}

type byteReader struct {
	b   []byte
	p   int
	err error
}

func (r *byteReader) skip(n int) {
	if r.err != nil {
		return
	}
	if r.p+n > len(r.b) {
		r.err = errShortBox
		return
	}
	r.p += n
}

func (r *byteReader) u8() byte {
	return byte(r.uint(1))
}

// uint reads an n-byte big-endian unsigned integer; n may be 0.
func (r *byteReader) uint(n int) uint64 {
	if r.err != nil || n == 0 {
		return 0
	}
	if r.p+n > len(r.b) {
		r.err = errShortBox
		return 0
	}
	var v uint64
	for _, c := range r.b[r.p : r.p+n] {
		v = v<<8 | uint64(c)
	}
	r.p += n
	return v
}
