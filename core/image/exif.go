package image

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"regexp"
	"strings"
	"time"

	dexif "github.com/dsoprea/go-exif/v3"
	"github.com/rwcarlsen/goexif/exif"
	"github.com/rwcarlsen/goexif/tiff"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// ExifTimeLayout is the fixed-width layout of EXIF date/time tags.
const ExifTimeLayout = "2006:01:02 15:04:05"

var exifTimeRe = regexp.MustCompile(`^\d{4}:\d{2}:\d{2} \d{2}:\d{2}:\d{2}$`)

// decode locates and parses the EXIF block of path according to the
// handler's format.
func (h *Handler) decode(path string) (*exif.Exif, error) {
	switch h.format {
	case core.FmtPNG:
		raw, err := pngExif(path)
		if err != nil {
			return nil, err
		}
		return decodeExif(bytes.NewReader(raw))
	case core.FmtWebP:
		raw, err := webpExif(path)
		if err != nil {
			return nil, err
		}
		return decodeExif(bytes.NewReader(raw))
	case core.FmtHEIC:
		raw, err := heicExif(path)
		if err != nil {
			return nil, err
		}
		return decodeExif(bytes.NewReader(raw))
	default:
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()

		x, err := decodeExif(f)
		if err == nil || !errors.Is(err, core.ErrNoData) {
			return x, err
		}
		// goexif only inspects the first APP1 segment; an XMP block placed
		// first hides the EXIF one.
		return searchExif(path)
	}
}

// decodeExif wraps exif.Decode, keeping partially decoded results and
// mapping failures onto the core error kinds.
func decodeExif(r io.Reader) (*exif.Exif, error) {
	x, err := exif.Decode(r)
	if err == nil {
		return x, nil
	}
	if x != nil && !exif.IsCriticalError(err) {
		return x, nil
	}
	if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) || strings.Contains(err.Error(), "intro marker") {
		return nil, fmt.Errorf("exif: %w", core.ErrNoData)
	}
	return nil, &core.ParseError{Field: "exif", Err: err}
}

// searchExif scans the whole file for a TIFF-headed EXIF block.
func searchExif(path string) (*exif.Exif, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	raw, err := dexif.SearchAndExtractExif(data)
	if err != nil {
		return nil, fmt.Errorf("exif: %w", core.ErrNoData)
	}
	return decodeExif(bytes.NewReader(raw))
}

// CaptureTime returns DateTimeOriginal as a UTC time.
func CaptureTime(x *exif.Exif) (time.Time, error) {
	tag, err := x.Get(exif.DateTimeOriginal)
	if err != nil {
		return time.Time{}, fmt.Errorf("DateTimeOriginal: %w", core.ErrNoData)
	}
	s, err := tag.StringVal()
	if err != nil {
		return time.Time{}, &core.ParseError{Field: "DateTimeOriginal", Value: tag.String(), Err: err}
	}
	return ParseExifTime(s)
}

// ParseExifTime parses the fixed-width "YYYY:MM:DD HH:MM:SS" form.
func ParseExifTime(s string) (time.Time, error) {
	s = strings.Trim(s, " \x00")
	if !exifTimeRe.MatchString(s) {
		return time.Time{}, &core.ParseError{Field: "DateTimeOriginal", Value: s}
	}
	t, err := time.ParseInLocation(ExifTimeLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, &core.ParseError{Field: "DateTimeOriginal", Value: s, Err: err}
	}
	return t, nil
}

// Coordinate reads GPSLatitude/GPSLongitude and their hemisphere
// references. Both coordinate tags must be present. A missing reference is
// reported through warn and the raw value's sign is kept.
func Coordinate(x *exif.Exif, warn func(msg string)) (geo.Coordinate, error) {
	latTag, err := x.Get(exif.GPSLatitude)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("GPSLatitude: %w", core.ErrNoData)
	}
	lonTag, err := x.Get(exif.GPSLongitude)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("GPSLongitude: %w", core.ErrNoData)
	}

	lat, err := tagDegrees("GPSLatitude", latTag)
	if err != nil {
		return geo.Coordinate{}, err
	}
	lon, err := tagDegrees("GPSLongitude", lonTag)
	if err != nil {
		return geo.Coordinate{}, err
	}

	latRef, latOK := refValue(x, exif.GPSLatitudeRef)
	lonRef, lonOK := refValue(x, exif.GPSLongitudeRef)
	if (!latOK || !lonOK) && warn != nil {
		warn("GPS hemisphere reference missing, keeping raw sign")
	}

	c := geo.Coordinate{
		Lat: geo.SignedDecimal(lat, latRef),
		Lon: geo.SignedDecimal(lon, lonRef),
	}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	return c, nil
}

// tagDegrees converts a three-component GPS tag, stored either as
// rationals or as plain numbers, to decimal degrees.
func tagDegrees(field string, tag *tiff.Tag) (float64, error) {
	if tag.Count < 3 {
		return 0, &core.ParseError{Field: field, Value: tag.String(), Err: fmt.Errorf("want 3 components, got %d", tag.Count)}
	}
	var parts [3]geo.Part
	for i := range parts {
		switch tag.Format() {
		case tiff.RatVal:
			num, den, err := tag.Rat2(i)
			if err != nil {
				return 0, &core.ParseError{Field: field, Value: tag.String(), Err: err}
			}
			parts[i] = geo.R(num, den)
		case tiff.FloatVal:
			v, err := tag.Float(i)
			if err != nil {
				return 0, &core.ParseError{Field: field, Value: tag.String(), Err: err}
			}
			parts[i] = geo.D(v)
		case tiff.IntVal:
			v, err := tag.Int64(i)
			if err != nil {
				return 0, &core.ParseError{Field: field, Value: tag.String(), Err: err}
			}
			parts[i] = geo.D(float64(v))
		default:
			return 0, &core.ParseError{Field: field, Value: tag.String(), Err: errors.New("not numeric")}
		}
	}
	v, err := geo.ToDecimal(parts[0], parts[1], parts[2], "")
	if err != nil {
		return 0, &core.ParseError{Field: field, Value: tag.String(), Err: err}
	}
	return v, nil
}

func refValue(x *exif.Exif, name exif.FieldName) (string, bool) {
	tag, err := x.Get(name)
	if err != nil {
		return "", false
	}
	s, err := tag.StringVal()
	if err != nil {
		return "", false
	}
	s = strings.Trim(s, " \x00")
	return s, s != ""
}
