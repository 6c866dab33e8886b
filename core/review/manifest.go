package review

import (
	"bufio"
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/fileutil"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/image"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
	"github.com/ankit-chaubey/media-gps-surgery/core/video"
)

// ──────────────────────────────────────────────────────────────────────────────
// Manifest layout
// ──────────────────────────────────────────────────────────────────────────────

// Variant selects the columns a manifest is written with.
type Variant int

const (
	// Basic writes path and datetime only.
	Basic Variant = iota
	// Extended also writes latitude, longitude and gps_source.
	Extended
)

const (
	colPath      = "path"
	colDatetime  = "datetime"
	colLatitude  = "latitude"
	colLongitude = "longitude"
	colSource    = "gps_source"
)

var (
	basicHeader    = []string{colPath, colDatetime}
	extendedHeader = []string{colPath, colDatetime, colLatitude, colLongitude, colSource}
)

// ErrNoPathColumn is returned for manifests without a path column.
var ErrNoPathColumn = errors.New("manifest has no path column")

// Row is one manifest line with its cells as text.
type Row struct {
	Path      string
	Datetime  string
	Latitude  string
	Longitude string
	Source    string
}

// Manifest is a parsed manifest file.
type Manifest struct {
	Header []string
	Rows   []Row
	// HasGPS is true when the header carries latitude and longitude.
	HasGPS bool
}

// ──────────────────────────────────────────────────────────────────────────────
// Read
// ──────────────────────────────────────────────────────────────────────────────

// ReadManifest parses the manifest at path. Header names are matched
// case-insensitively and unknown columns are ignored.
func ReadManifest(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	m, err := parseManifest(f)
	if err != nil {
		return nil, fmt.Errorf("reading manifest %s: %w", path, err)
	}
	return m, nil
}

func parseManifest(r io.Reader) (*Manifest, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err == io.EOF {
		return nil, ErrNoPathColumn
	}
	if err != nil {
		return nil, err
	}

	idx := make(map[string]int, len(header))
	for i, h := range header {
		name := strings.ToLower(strings.TrimSpace(strings.TrimPrefix(h, "\ufeff")))
		if _, dup := idx[name]; !dup {
			idx[name] = i
		}
	}
	if _, ok := idx[colPath]; !ok {
		return nil, ErrNoPathColumn
	}
	_, hasLat := idx[colLatitude]
	_, hasLon := idx[colLongitude]

	m := &Manifest{Header: header, HasGPS: hasLat && hasLon}
	cell := func(rec []string, name string) string {
		i, ok := idx[name]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, err
		}
		row := Row{
			Path:      cell(rec, colPath),
			Datetime:  cell(rec, colDatetime),
			Latitude:  cell(rec, colLatitude),
			Longitude: cell(rec, colLongitude),
			Source:    cell(rec, colSource),
		}
		if row.Path == "" {
			continue
		}
		m.Rows = append(m.Rows, row)
	}
	return m, nil
}

// ParseDatetime reads a manifest datetime. It accepts everything a video
// creation_time may look like plus the EXIF "YYYY:MM:DD HH:MM:SS" layout.
func ParseDatetime(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, core.ErrNoData
	}
	if t, err := video.ParseCreationTime(s); err == nil {
		return t, nil
	}
	return image.ParseExifTime(s)
}

// FormatDatetime renders t for a manifest. The zero time renders empty.
func FormatDatetime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

// Coordinate parses the row's latitude and longitude cells.
func (r Row) Coordinate() (geo.Coordinate, error) {
	if r.Latitude == "" || r.Longitude == "" {
		return geo.Coordinate{}, core.ErrNoData
	}
	lat, err := strconv.ParseFloat(r.Latitude, 64)
	if err != nil {
		return geo.Coordinate{}, &core.ParseError{Field: colLatitude, Value: r.Latitude, Err: err}
	}
	lon, err := strconv.ParseFloat(r.Longitude, 64)
	if err != nil {
		return geo.Coordinate{}, &core.ParseError{Field: colLongitude, Value: r.Longitude, Err: err}
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	return c, nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Resolve
// ──────────────────────────────────────────────────────────────────────────────

// Deriver reads a live file's capture time and coordinate.
type Deriver interface {
	Read(ctx context.Context, path string) (time.Time, *geo.Coordinate)
}

// ResolvePath joins a manifest path onto the media root. Absolute paths
// are returned unchanged.
func ResolvePath(root, path string) string {
	p := filepath.FromSlash(path)
	if filepath.IsAbs(p) || root == "" {
		return p
	}
	return filepath.Join(root, p)
}

// Entries turns manifest rows into records. Proxy rows keep their CSV
// coordinate. Original and exif rows re-read the live file and fall back
// to the CSV value. Other rows keep the CSV value. Without GPS columns every
// reachable file is re-read and found coordinates are marked exif.
func (m *Manifest) Entries(ctx context.Context, root string, d Deriver, log *zap.Logger) []core.MediaRecord {
	log = logging.OrNop(log)
	out := make([]core.MediaRecord, 0, len(m.Rows))

	for _, row := range m.Rows {
		rec := core.MediaRecord{Path: row.Path}
		if t, err := ParseDatetime(row.Datetime); err == nil {
			rec.Time = t.UTC()
		} else if !errors.Is(err, core.ErrNoData) {
			log.Warn("unparseable datetime", zap.String("path", row.Path), zap.String("datetime", row.Datetime))
		}

		if !m.HasGPS {
			if c := derive(ctx, d, root, row.Path); c != nil {
				rec.SetCoordinate(*c, core.ProvExif)
			}
			out = append(out, rec)
			continue
		}

		csvCoord, err := row.Coordinate()
		if err != nil && !errors.Is(err, core.ErrNoData) {
			log.Warn("ignoring manifest coordinate", zap.String("path", row.Path), zap.Error(err))
		}
		prov := core.ParseProvenance(row.Source)
		if prov.FromFile() {
			if c := derive(ctx, d, root, row.Path); c != nil {
				rec.SetCoordinate(*c, prov)
				out = append(out, rec)
				continue
			}
		}
		if err == nil {
			rec.SetCoordinate(csvCoord, prov)
		}
		rec.Normalize()
		out = append(out, rec)
	}
	return out
}

func derive(ctx context.Context, d Deriver, root, path string) *geo.Coordinate {
	if d == nil {
		return nil
	}
	full := ResolvePath(root, path)
	if _, err := os.Stat(full); err != nil {
		return nil
	}
	_, c := d.Read(ctx, full)
	return c
}

// ──────────────────────────────────────────────────────────────────────────────
// Write
// ──────────────────────────────────────────────────────────────────────────────

// RowFor projects r onto a manifest row. A non-empty datetime is kept as
// given, otherwise r.Time is formatted.
func RowFor(r core.MediaRecord, datetime string) Row {
	row := Row{Path: r.Path, Datetime: datetime, Source: r.Provenance.String()}
	if row.Datetime == "" {
		row.Datetime = FormatDatetime(r.Time)
	}
	if r.Coord != nil {
		row.Latitude = strconv.FormatFloat(r.Coord.Lat, 'f', -1, 64)
		row.Longitude = strconv.FormatFloat(r.Coord.Lon, 'f', -1, 64)
	}
	return row
}

// EncodeManifest writes rows as CSV in the given variant.
func EncodeManifest(w io.Writer, rows []Row, v Variant) error {
	cw := csv.NewWriter(w)
	header := basicHeader
	if v == Extended {
		header = extendedHeader
	}
	if err := cw.Write(header); err != nil {
		return err
	}
	for _, r := range rows {
		rec := []string{r.Path, r.Datetime}
		if v == Extended {
			rec = append(rec, r.Latitude, r.Longitude, r.Source)
		}
		if err := cw.Write(rec); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteManifest atomically replaces the manifest at path.
func WriteManifest(path string, rows []Row, v Variant) error {
	var buf bytes.Buffer
	if err := EncodeManifest(&buf, rows, v); err != nil {
		return err
	}
	if err := fileutil.WriteFile(path, buf.Bytes()); err != nil {
		return fmt.Errorf("writing manifest %s: %w", path, err)
	}
	return nil
}

// ──────────────────────────────────────────────────────────────────────────────
// Helpers for building manifests
// ──────────────────────────────────────────────────────────────────────────────

// FilterManifest copies the rows of manifestPath whose path appears in the
// list file and that carry a latitude or longitude to outPath. The list
// file has two header lines followed by one path per line, compared
// case-insensitively. It returns the number of rows kept.
func FilterManifest(manifestPath, listPath, outPath string) (int, error) {
	keep, err := readPathList(listPath)
	if err != nil {
		return 0, err
	}
	m, err := ReadManifest(manifestPath)
	if err != nil {
		return 0, err
	}
	if !m.HasGPS {
		return 0, fmt.Errorf("%s: manifest has no latitude/longitude columns", manifestPath)
	}

	var rows []Row
	for _, r := range m.Rows {
		if _, ok := keep[strings.ToLower(r.Path)]; !ok {
			continue
		}
		if r.Latitude == "" && r.Longitude == "" {
			continue
		}
		rows = append(rows, r)
	}
	if err := WriteManifest(outPath, rows, Extended); err != nil {
		return 0, err
	}
	return len(rows), nil
}

func readPathList(path string) (map[string]struct{}, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	keep := make(map[string]struct{})
	sc := bufio.NewScanner(f)
	for n := 0; sc.Scan(); n++ {
		if n < 2 {
			continue
		}
		line := strings.TrimSpace(sc.Text())
		if line != "" {
			keep[strings.ToLower(line)] = struct{}{}
		}
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}
	return keep, nil
}

// WritePathList writes records as a list file FilterManifest can read.
func WritePathList(w io.Writer, records []core.MediaRecord) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "Files without GPS: %d\n", len(records))
	fmt.Fprintln(bw, strings.Repeat("=", 40))
	for _, r := range records {
		fmt.Fprintln(bw, r.Path)
	}
	return bw.Flush()
}

// EntriesFromScan turns scanned records into review entries. With
// onlyMissing set, records whose coordinate was read from the file itself
// are dropped; proxy-filled and still-missing records are kept.
// Paths are made relative to root where possible.
func EntriesFromScan(records []core.MediaRecord, root string, onlyMissing bool) []core.MediaRecord {
	out := make([]core.MediaRecord, 0, len(records))
	for _, r := range records {
		if onlyMissing && r.Provenance.FromFile() {
			continue
		}
		e := r.Clone()
		if filepath.IsAbs(e.Path) && root != "" {
			if rel, err := filepath.Rel(root, e.Path); err == nil && !strings.HasPrefix(rel, "..") {
				e.Path = filepath.ToSlash(rel)
			}
		}
		e.Normalize()
		out = append(out, e)
	}
	return out
}
