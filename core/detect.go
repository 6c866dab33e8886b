package core

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gabriel-vasile/mimetype"
)

// FormatID enumerates every recognised format.
type FormatID string

const (
	FmtJPEG FormatID = "jpeg"
	FmtPNG  FormatID = "png"
	FmtWebP FormatID = "webp"
	FmtTIFF FormatID = "tiff"
	FmtHEIC FormatID = "heic"

	FmtMP4  FormatID = "mp4"
	FmtMOV  FormatID = "mov"
	FmtMKV  FormatID = "mkv"
	FmtWebM FormatID = "webm"
	FmtAVI  FormatID = "avi"

	FmtUnknown FormatID = "unknown"
)

// Kind is the broad family a format's GPS strategy belongs to.
type Kind string

const (
	KindStill   Kind = "still"
	KindHEIC    Kind = "heic"
	KindVideo   Kind = "video"
	KindUnknown Kind = "unknown"
)

// extMap maps lowercase extensions to format IDs.
var extMap = map[string]FormatID{
	".jpg":  FmtJPEG,
	".jpeg": FmtJPEG,
	".png":  FmtPNG,
	".webp": FmtWebP,
	".tiff": FmtTIFF,
	".tif":  FmtTIFF,
	".heic": FmtHEIC,
	".heif": FmtHEIC,

	".mp4":  FmtMP4,
	".m4v":  FmtMP4,
	".mov":  FmtMOV,
	".qt":   FmtMOV,
	".mkv":  FmtMKV,
	".webm": FmtWebM,
	".avi":  FmtAVI,
}

var mimeMap = map[string]FormatID{
	"image/jpeg":       FmtJPEG,
	"image/png":        FmtPNG,
	"image/webp":       FmtWebP,
	"image/tiff":       FmtTIFF,
	"image/heic":       FmtHEIC,
	"image/heif":       FmtHEIC,
	"video/mp4":        FmtMP4,
	"video/x-m4v":      FmtMP4,
	"video/quicktime":  FmtMOV,
	"video/x-matroska": FmtMKV,
	"video/webm":       FmtWebM,
	"video/x-msvideo":  FmtAVI,
}

// FormatForExt returns the format registered for a file extension.
func FormatForExt(path string) FormatID {
	if id, ok := extMap[strings.ToLower(filepath.Ext(path))]; ok {
		return id
	}
	return FmtUnknown
}

// IsMediaPath reports whether path has an extension the tool handles.
func IsMediaPath(path string) bool { return FormatForExt(path) != FmtUnknown }

// DetectFormat returns the FormatID for the given file, first by reading
// magic bytes, then by MIME sniffing, and falling back to extension.
func DetectFormat(path string) (FormatID, error) {
	f, err := os.Open(path)
	if err != nil {
		return FmtUnknown, err
	}
	defer f.Close()

	buf := make([]byte, 16)
	n, err := io.ReadFull(f, buf)
	if err != nil && n == 0 {
		return FmtUnknown, err
	}
	buf = buf[:n]

	if id := detectMagic(buf); id != FmtUnknown {
		if id == FmtMKV {
			id = matroskaFlavour(f)
		}
		return id, nil
	}

	if len(buf) >= 8 && bytes.Equal(buf[4:8], []byte("ftyp")) {
		// Unlisted ftyp brand: let the tag sniffer confirm an MP4 family file.
		if _, err := f.Seek(0, io.SeekStart); err == nil {
			if format, _, err := tag.Identify(f); err == nil && format == tag.MP4 {
				return FmtMP4, nil
			}
		}
	}

	if m, err := mimetype.DetectFile(path); err == nil {
		for mt := m; mt != nil; mt = mt.Parent() {
			if id, ok := mimeMap[mt.String()]; ok {
				return id, nil
			}
		}
	}

	return FormatForExt(path), nil
}

func detectMagic(b []byte) FormatID {
	if len(b) < 4 {
		return FmtUnknown
	}
	switch {
	// JPEG: FF D8 FF
	case b[0] == 0xFF && b[1] == 0xD8 && b[2] == 0xFF:
		return FmtJPEG
	// PNG: 89 50 4E 47 0D 0A 1A 0A
	case bytes.HasPrefix(b, []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A}):
		return FmtPNG
	// WebP: RIFF????WEBP
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("WEBP")):
		return FmtWebP
	// TIFF: 49 49 2A 00 (little-endian) or 4D 4D 00 2A (big-endian)
	case bytes.HasPrefix(b, []byte{0x49, 0x49, 0x2A, 0x00}) ||
		bytes.HasPrefix(b, []byte{0x4D, 0x4D, 0x00, 0x2A}):
		return FmtTIFF
	// ISO-BMFF: ftyp box at offset 4, brand decides HEIC vs MOV vs MP4
	case len(b) >= 12 && bytes.Equal(b[4:8], []byte("ftyp")):
		return detectFtypBrand(string(b[8:12]))
	// Matroska family: EBML header 0x1A45DFA3; WebM is told apart by DocType
	case binary.BigEndian.Uint32(b[0:4]) == 0x1A45DFA3:
		return FmtMKV
	// AVI: RIFF????AVI
	case len(b) >= 12 && bytes.Equal(b[0:4], []byte("RIFF")) && bytes.Equal(b[8:12], []byte("AVI ")):
		return FmtAVI
	}
	return FmtUnknown
}

// matroskaFlavour tells WebM from Matroska by the DocType in the EBML header.
func matroskaFlavour(f io.ReadSeeker) FormatID {
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		return FmtMKV
	}
	head := make([]byte, 64)
	n, _ := io.ReadFull(f, head)
	if ebmlDocType(head[:n]) == "webm" {
		return FmtWebM
	}
	return FmtMKV
}

// ebmlDocType returns the DocType (element 0x4282) of an EBML header, or ""
// if head does not contain one.
func ebmlDocType(head []byte) string {
	i := bytes.Index(head, []byte{0x42, 0x82})
	if i < 0 {
		return ""
	}
	size, width := ebmlVint(head[i+2:])
	start := i + 2 + width
	if width == 0 || size > len(head)-start {
		return ""
	}
	return string(bytes.TrimRight(head[start:start+size], "\x00"))
}

// ebmlVint decodes an EBML variable-length size. width is 0 when b does not
// hold a complete one.
func ebmlVint(b []byte) (size, width int) {
	if len(b) == 0 || b[0] == 0 {
		return 0, 0
	}
	width = 1
	for mask := byte(0x80); b[0]&mask == 0; mask >>= 1 {
		width++
	}
	if width > len(b) || width > 4 {
		return 0, 0
	}
	size = int(b[0] & (0xFF >> width))
	for _, c := range b[1:width] {
		size = size<<8 | int(c)
	}
	return size, width
}

func detectFtypBrand(brand string) FormatID {
	switch brand {
	case "heic", "heix", "hevc", "hevx", "heim", "heis", "mif1", "msf1":
		return FmtHEIC
	case "qt  ":
		return FmtMOV
	case "isom", "iso2", "iso4", "iso5", "iso6", "mp41", "mp42", "avc1", "M4V ", "M4VH", "M4VP", "3gp4", "3gp5", "3g2a":
		return FmtMP4
	default:
		return FmtUnknown
	}
}

// KindFor returns the GPS strategy family for a format.
func KindFor(id FormatID) Kind {
	switch id {
	case FmtJPEG, FmtPNG, FmtWebP, FmtTIFF:
		return KindStill
	case FmtHEIC:
		return KindHEIC
	case FmtMP4, FmtMOV, FmtMKV, FmtWebM, FmtAVI:
		return KindVideo
	default:
		return KindUnknown
	}
}
