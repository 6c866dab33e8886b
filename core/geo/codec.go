// Package geo converts GPS coordinates between the decimal degrees used
// throughout the tool and the degree/minute/second rationals stored in
// EXIF GPS tags.
package geo

import (
	"errors"
	"fmt"
	"math"
	"strings"
)

// Coordinate is a latitude/longitude pair in signed decimal degrees.
type Coordinate struct {
	Lat float64 `json:"latitude"`
	Lon float64 `json:"longitude"`
}

// Valid reports whether c lies inside the WGS84 ranges and is not the
// (0,0) sentinel that cameras write when they have no fix.
func (c Coordinate) Valid() bool { return IsValid(c) }

// IsValid is the free-function form of Coordinate.Valid.
func IsValid(c Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lon) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lon, 0) {
		return false
	}
	if c.Lat < -90 || c.Lat > 90 || c.Lon < -180 || c.Lon > 180 {
		return false
	}
	return !(c.Lat == 0 && c.Lon == 0)
}

// String formats c as "lat, lon" with six decimals.
func (c Coordinate) String() string {
	return fmt.Sprintf("%.6f, %.6f", c.Lat, c.Lon)
}

// ISO6709 renders c the way QuickTime and MP4 containers store a location,
// e.g. "+38.769500-009.129700/".
func (c Coordinate) ISO6709() string {
	return fmt.Sprintf("%+010.6f%+011.6f/", c.Lat, c.Lon)
}

// ─── Rationals ───────────────────────────────────────────────────────────────

// Rational is an unsigned EXIF RATIONAL.
type Rational struct {
	Num uint32
	Den uint32
}

// Float returns r as a float64. A zero denominator is an error.
func (r Rational) Float() (float64, error) {
	if r.Den == 0 {
		return 0, ErrZeroDenominator
	}
	return float64(r.Num) / float64(r.Den), nil
}

// DMS is the degrees, minutes, seconds triple of an EXIF GPS coordinate.
type DMS [3]Rational

// String renders d as "D M S.sss", the form exiftool accepts on write.
func (d DMS) String() string {
	deg, _ := d[0].Float()
	min, _ := d[1].Float()
	sec, _ := d[2].Float()
	return fmt.Sprintf("%d %d %.3f", int(deg), int(min), sec)
}

// ErrZeroDenominator is returned for rationals with a zero denominator.
var ErrZeroDenominator = errors.New("rational with zero denominator")

// Part is one sexagesimal component. EXIF readers hand back either exact
// rationals or values already converted to decimals; both are accepted.
type Part struct {
	num, den   int64
	decimal    float64
	isRational bool
}

// R builds a rational Part.
func R(num, den int64) Part { return Part{num: num, den: den, isRational: true} }

// D builds a decimal Part.
func D(v float64) Part { return Part{decimal: v} }

// Float returns the numeric value of p.
func (p Part) Float() (float64, error) {
	if !p.isRational {
		return p.decimal, nil
	}
	if p.den == 0 {
		return 0, ErrZeroDenominator
	}
	return float64(p.num) / float64(p.den), nil
}

// ─── Conversion ──────────────────────────────────────────────────────────────

// ToDecimal converts degrees, minutes and seconds plus a hemisphere
// reference into signed decimal degrees. "S" and "W" negate the result; any
// other reference, including an empty one, leaves the sign as is.
func ToDecimal(deg, min, sec Part, hemisphere string) (float64, error) {
	d, err := deg.Float()
	if err != nil {
		return 0, fmt.Errorf("degrees: %w", err)
	}
	m, err := min.Float()
	if err != nil {
		return 0, fmt.Errorf("minutes: %w", err)
	}
	s, err := sec.Float()
	if err != nil {
		return 0, fmt.Errorf("seconds: %w", err)
	}
	return SignedDecimal(d+m/60+s/3600, hemisphere), nil
}

// SignedDecimal applies a hemisphere reference to a value that is already in
// decimal degrees.
func SignedDecimal(v float64, hemisphere string) float64 {
	if IsNegativeRef(hemisphere) {
		return -math.Abs(v)
	}
	return v
}

// IsNegativeRef reports whether ref names the southern or western hemisphere.
// EXIF ASCII values often carry trailing NULs or spaces.
func IsNegativeRef(ref string) bool {
	ref = strings.ToUpper(strings.Trim(ref, " \x00"))
	return ref == "S" || ref == "W"
}

// FromDecimal converts the magnitude of v to a DMS triple of whole degrees,
// whole minutes and seconds in thousandths. Seconds are rounded to the
// nearest thousandth; a rounded value of 60 carries into the minutes.
func FromDecimal(v float64) DMS {
	v = math.Abs(v)
	deg := math.Floor(v)
	minutes := (v - deg) * 60
	min := math.Floor(minutes)
	milli := math.Round((minutes - min) * 60 * 1000)

	if milli >= 60000 {
		milli -= 60000
		min++
	}
	if min >= 60 {
		min -= 60
		deg++
	}
	return DMS{
		{Num: uint32(deg), Den: 1},
		{Num: uint32(min), Den: 1},
		{Num: uint32(milli), Den: 1000},
	}
}

// Decimal converts d back to unsigned decimal degrees.
func (d DMS) Decimal() (float64, error) {
	return ToDecimal(
		R(int64(d[0].Num), int64(d[0].Den)),
		R(int64(d[1].Num), int64(d[1].Den)),
		R(int64(d[2].Num), int64(d[2].Den)),
		"",
	)
}

// LatitudeRef returns "N" or "S" for a signed latitude.
func LatitudeRef(lat float64) string {
	if lat < 0 {
		return "S"
	}
	return "N"
}

// LongitudeRef returns "E" or "W" for a signed longitude.
func LongitudeRef(lon float64) string {
	if lon < 0 {
		return "W"
	}
	return "E"
}
