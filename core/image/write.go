package image

import (
	"bytes"
	"context"
	"fmt"
	"os"

	dexif "github.com/dsoprea/go-exif/v3"
	exifcommon "github.com/dsoprea/go-exif/v3/common"
	jpegstructure "github.com/dsoprea/go-jpeg-image-structure/v2"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/tool"
)

// sceneTypeTag (0xA301) is dropped before re-serialising: some cameras
// store it with a type the EXIF encoder rejects, which corrupts the block.
const sceneTypeTag uint16 = 0xA301

// exifIFDPointer is the tag ID of the Exif sub-IFD in IFD0.
const exifIFDPointer uint16 = 0x8769

// ─── JPEG ────────────────────────────────────────────────────────────────────

// writeJPEG rewrites the EXIF APP1 segment of path in place with c stored
// in the GPS IFD. Every other tag is kept.
func writeJPEG(path string, c geo.Coordinate) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &core.ParseError{Field: "jpeg", Err: fmt.Errorf("exif encoder: %v", r)}
		}
	}()

	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	fi, err := os.Stat(path)
	if err != nil {
		return err
	}

	jmp := jpegstructure.NewJpegMediaParser()
	intfc, err := jmp.ParseBytes(data)
	if intfc == nil {
		return &core.ParseError{Field: "jpeg", Err: err}
	}
	sl := intfc.(*jpegstructure.SegmentList)

	rootIb, err := sl.ConstructExifBuilder()
	if err != nil {
		// No EXIF yet, or one we cannot load: start from an empty IFD0.
		rootIb, err = emptyRootIfd()
		if err != nil {
			return err
		}
	}

	if err := setGPS(rootIb, c); err != nil {
		return err
	}
	if err := sl.SetExif(rootIb); err != nil {
		return fmt.Errorf("installing exif segment: %w", err)
	}

	var buf bytes.Buffer
	if err := sl.Write(&buf); err != nil {
		return fmt.Errorf("encoding jpeg: %w", err)
	}
	return os.WriteFile(path, buf.Bytes(), fi.Mode().Perm())
}

func emptyRootIfd() (*dexif.IfdBuilder, error) {
	im, err := exifcommon.NewIfdMappingWithStandard()
	if err != nil {
		return nil, fmt.Errorf("ifd mapping: %w", err)
	}
	ti := dexif.NewTagIndex()
	return dexif.NewIfdBuilder(im, ti, exifcommon.IfdStandardIfdIdentity, exifcommon.EncodeDefaultByteOrder), nil
}

// setGPS removes the SceneType tag and writes the four GPS position tags,
// adding GPSVersionID when the IFD lacks one.
func setGPS(rootIb *dexif.IfdBuilder, c geo.Coordinate) error {
	if exifIb, err := rootIb.ChildWithTagId(exifIFDPointer); err == nil {
		if _, err := exifIb.DeleteAll(sceneTypeTag); err != nil {
			return fmt.Errorf("removing SceneType: %w", err)
		}
	}

	gpsIb, err := dexif.GetOrCreateIbFromRootIb(rootIb, "IFD/GPSInfo")
	if err != nil {
		return fmt.Errorf("gps ifd: %w", err)
	}
	if _, err := gpsIb.FindTagWithName("GPSVersionID"); err != nil {
		if err := gpsIb.SetStandardWithName("GPSVersionID", []uint8{2, 2, 0, 0}); err != nil {
			return fmt.Errorf("GPSVersionID: %w", err)
		}
	}

	tags := []struct {
		name  string
		value interface{}
	}{
		{"GPSLatitudeRef", geo.LatitudeRef(c.Lat)},
		{"GPSLatitude", rationals(geo.FromDecimal(c.Lat))},
		{"GPSLongitudeRef", geo.LongitudeRef(c.Lon)},
		{"GPSLongitude", rationals(geo.FromDecimal(c.Lon))},
	}
	for _, t := range tags {
		if err := gpsIb.SetStandardWithName(t.name, t.value); err != nil {
			return fmt.Errorf("%s: %w", t.name, err)
		}
	}
	return nil
}

func rationals(d geo.DMS) []exifcommon.Rational {
	out := make([]exifcommon.Rational, len(d))
	for i, r := range d {
		out[i] = exifcommon.Rational{Numerator: r.Num, Denominator: r.Den}
	}
	return out
}

// ─── exiftool (HEIC, PNG, WebP, TIFF) ─────────────────────────────────────────

// DefaultExiftool is the binary looked up on $PATH when none is configured.
const DefaultExiftool = "exiftool"

// writeWithExiftool writes c into a temporary copy of path and replaces the
// original only when exiftool exits cleanly. A timed-out exiftool is killed
// before the temp file is removed.
func (h *Handler) writeWithExiftool(ctx context.Context, path string, c geo.Coordinate) error {
	tmp, err := fileutil.TempSibling(path)
	if err != nil {
		return err
	}
	defer os.Remove(tmp)
	if err := fileutil.CopyFile(path, tmp); err != nil {
		return err
	}

	bin := h.opts.Exiftool
	if bin == "" {
		bin = DefaultExiftool
	}
	_, err = tool.Run(ctx, bin, h.opts.Timeout,
		"-q",
		"-overwrite_original",
		"-GPSLatitudeRef="+geo.LatitudeRef(c.Lat),
		"-GPSLatitude="+geo.FromDecimal(c.Lat).String(),
		"-GPSLongitudeRef="+geo.LongitudeRef(c.Lon),
		"-GPSLongitude="+geo.FromDecimal(c.Lon).String(),
		tmp,
	)
	if err != nil {
		h.log.Debug("exiftool write failed", zap.String("path", path), zap.Error(err))
		return fmt.Errorf("writing GPS to %s: %w", path, err)
	}

	return fileutil.ReplaceWith(tmp, path)
}
