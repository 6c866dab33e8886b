package image

import (
	"bytes"
	"encoding/xml"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
)

// xmpFields holds the XMP properties used when EXIF has no answer.
type xmpFields struct {
	lat, lon string
	created  string
}

var xmpTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
}

// xmpPacket returns the first XMP packet embedded in data, or nil.
func xmpPacket(data []byte) []byte {
	start := bytes.Index(data, []byte("<?xpacket begin="))
	if start < 0 {
		start = bytes.Index(data, []byte("<x:xmpmeta"))
	}
	if start < 0 {
		return nil
	}
	end := bytes.Index(data[start:], []byte("<?xpacket end="))
	if end < 0 {
		end = bytes.Index(data[start:], []byte("</x:xmpmeta>"))
		if end >= 0 {
			end += len("</x:xmpmeta>")
		}
	} else {
		end += len("<?xpacket end=")
		if closeAt := bytes.IndexByte(data[start+end:], '>'); closeAt >= 0 {
			end += closeAt + 1
		}
	}
	if end < 0 {
		return nil
	}
	return data[start : start+end]
}

// parseXMP collects GPS and creation-date properties, whether they are
// written as rdf:Description attributes or as child elements.
func parseXMP(packet []byte) xmpFields {
	var f xmpFields
	set := func(name, val string) {
		val = strings.TrimSpace(val)
		if val == "" {
			return
		}
		switch name {
		case "GPSLatitude":
			f.lat = val
		case "GPSLongitude":
			f.lon = val
		case "DateTimeOriginal":
			f.created = val
		case "DateCreated", "CreateDate":
			if f.created == "" {
				f.created = val
			}
		}
	}

	dec := xml.NewDecoder(bytes.NewReader(packet))
	dec.Strict = false
	var current string
	for {
		tok, err := dec.Token()
		if err != nil {
			break
		}
		switch t := tok.(type) {
		case xml.StartElement:
			current = t.Name.Local
			for _, a := range t.Attr {
				set(a.Name.Local, a.Value)
			}
		case xml.CharData:
			if current != "" {
				set(current, string(t))
			}
		case xml.EndElement:
			current = ""
		}
	}
	return f
}

// ParseXMPCoordinate decodes an XMP GPS value: "DDD,MM,SSk" or "DDD,MM.mmk"
// where k is N, S, E or W.
func ParseXMPCoordinate(s string) (float64, error) {
	s = strings.TrimSpace(s)
	if len(s) < 2 {
		return 0, &core.ParseError{Field: "XMP GPS", Value: s}
	}
	ref := strings.ToUpper(s[len(s)-1:])
	if !strings.ContainsAny(ref, "NSEW") {
		return 0, &core.ParseError{Field: "XMP GPS", Value: s, Err: fmt.Errorf("missing direction")}
	}
	parts := strings.Split(s[:len(s)-1], ",")
	if len(parts) != 2 && len(parts) != 3 {
		return 0, &core.ParseError{Field: "XMP GPS", Value: s, Err: fmt.Errorf("want 2 or 3 components")}
	}
	vals := [3]float64{}
	for i, p := range parts {
		v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
		if err != nil {
			return 0, &core.ParseError{Field: "XMP GPS", Value: s, Err: err}
		}
		vals[i] = v
	}
	return geo.ToDecimal(geo.D(vals[0]), geo.D(vals[1]), geo.D(vals[2]), ref)
}

func parseXMPTime(s string) (time.Time, error) {
	for _, layout := range xmpTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, &core.ParseError{Field: "XMP date", Value: s}
}

// fillFromXMP completes out from the XMP packet of path for whichever half
// EXIF reported as absent.
func fillFromXMP(path string, out *core.Extraction) {
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}
	packet := xmpPacket(data)
	if packet == nil {
		return
	}
	f := parseXMP(packet)

	if isAbsent(out.TimeErr) && f.created != "" {
		out.Time, out.TimeErr = parseXMPTime(f.created)
	}
	if isAbsent(out.CoordErr) && f.lat != "" && f.lon != "" {
		lat, err := ParseXMPCoordinate(f.lat)
		if err != nil {
			out.CoordErr = err
			return
		}
		lon, err := ParseXMPCoordinate(f.lon)
		if err != nil {
			out.CoordErr = err
			return
		}
		out.Coord, out.CoordErr = geo.Coordinate{Lat: lat, Lon: lon}, nil
	}
}

func isAbsent(err error) bool {
	return core.Classify(err) == core.FailAbsent
}
