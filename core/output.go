package core

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"
)

// Printer handles all display output for the CLI.
type Printer struct {
	JSON    bool
	Verbose bool
	Writer  io.Writer
}

// NewPrinter creates a default Printer writing to stdout.
func NewPrinter(jsonMode, verbose bool) *Printer {
	return &Printer{JSON: jsonMode, Verbose: verbose, Writer: os.Stdout}
}

type jsonRecord struct {
	Path      string   `json:"path"`
	Datetime  string   `json:"datetime,omitempty"`
	Latitude  *float64 `json:"latitude,omitempty"`
	Longitude *float64 `json:"longitude,omitempty"`
	Source    string   `json:"gps_source"`
}

func toJSONRecord(r MediaRecord) jsonRecord {
	out := jsonRecord{Path: r.Path, Source: r.Provenance.String()}
	if r.HasTime() {
		out.Datetime = r.Time.Format(time.RFC3339)
	}
	if r.Coord != nil {
		lat, lon := r.Coord.Lat, r.Coord.Lon
		out.Latitude, out.Longitude = &lat, &lon
	}
	return out
}

// PrintRecords renders a list of records to the configured output.
func (p *Printer) PrintRecords(records []MediaRecord) {
	if p.JSON {
		out := make([]jsonRecord, 0, len(records))
		for _, r := range records {
			out = append(out, toJSONRecord(r))
		}
		p.printJSON(out)
		return
	}
	if len(records) == 0 {
		fmt.Fprintln(p.Writer, "(no media found)")
		return
	}
	for _, r := range records {
		p.printRecordLine(r)
	}
}

// PrintEntry renders the record under a review cursor.
func (p *Printer) PrintEntry(index, total int, r MediaRecord) {
	if p.JSON {
		p.printJSON(struct {
			Index int        `json:"index"`
			Total int        `json:"total"`
			Entry jsonRecord `json:"entry"`
		}{index, total, toJSONRecord(r)})
		return
	}
	fmt.Fprintf(p.Writer, "── %d / %d ──\n", index+1, total)
	fmt.Fprintf(p.Writer, "  %-12s %s\n", "File:", r.Path)
	fmt.Fprintf(p.Writer, "  %-12s %s\n", "Captured:", formatTime(r.Time))
	fmt.Fprintf(p.Writer, "  %-12s %s\n", "GPS:", formatCoord(r))
	fmt.Fprintf(p.Writer, "  %-12s %s\n", "Source:", r.Provenance)
}

func (p *Printer) printRecordLine(r MediaRecord) {
	if p.Verbose {
		fmt.Fprintf(p.Writer, "%-50s  %-20s  %-26s  %s\n", r.Path, formatTime(r.Time), formatCoord(r), r.Provenance)
		return
	}
	fmt.Fprintf(p.Writer, "%s  %s\n", r.Path, formatCoord(r))
}

// PrintResult renders a commit summary.
func (p *Printer) PrintResult(res CommitResult) {
	if p.JSON {
		p.printJSON(res)
		return
	}
	fmt.Fprintf(p.Writer, "Total  : %d\n", res.Total)
	fmt.Fprintf(p.Writer, "Success: %d\n", res.Success)
	fmt.Fprintf(p.Writer, "Failed : %d\n", res.Failed)
	for _, path := range res.FailedPaths {
		fmt.Fprintf(p.Writer, "  ✗ %s\n", path)
	}
	if res.Err != nil {
		fmt.Fprintf(p.Writer, "Error  : %v\n", res.Err)
	}
}

// PrintValue prints a single labelled value, or a one-key JSON object.
func (p *Printer) PrintValue(key string, v interface{}) {
	if p.JSON {
		p.printJSON(map[string]interface{}{key: v})
		return
	}
	fmt.Fprintf(p.Writer, "%s: %v\n", key, v)
}

func (p *Printer) printJSON(v interface{}) {
	b, _ := json.MarshalIndent(v, "", "  ")
	fmt.Fprintln(p.Writer, string(b))
}

// PrintSuccess prints a success message.
func (p *Printer) PrintSuccess(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, "✓ "+msg)
	}
}

// PrintInfo prints an info line (suppressed in JSON mode).
func (p *Printer) PrintInfo(msg string) {
	if !p.JSON {
		fmt.Fprintln(p.Writer, msg)
	}
}

// PrintError prints an error to stderr.
func PrintError(msg string) {
	fmt.Fprintln(os.Stderr, "✗ Error: "+msg)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("2006-01-02 15:04:05")
}

func formatCoord(r MediaRecord) string {
	if r.Coord == nil {
		return "-"
	}
	return strconv.FormatFloat(r.Coord.Lat, 'f', 6, 64) + ", " + strconv.FormatFloat(r.Coord.Lon, 'f', 6, 64)
}
