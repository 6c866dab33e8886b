package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/match"
	"github.com/ankit-chaubey/media-gps-surgery/core/review"
)

var (
	reviewManifest string
	reviewAll      bool
	reviewNoProxy  bool
)

func init() {
	Root.AddCommand(reviewCommand)
	flags := reviewCommand.Flags()
	flags.BoolVarP(&commitExtended, "extended", "e", false, "Force latitude, longitude and gps_source columns; manifests that have them keep them")
	flags.StringVarP(&reviewManifest, "manifest", "o", "", "Manifest to save when reviewing a directory")
	flags.BoolVar(&reviewAll, "all", false, "Review every file of a directory, not only those without GPS")
	flags.BoolVar(&reviewNoProxy, "no-proxies", false, "Do not pre-fill coordinates from nearby files")
}

var reviewCommand = &cobra.Command{
	Use:   "review <manifest.csv | dir>",
	Short: "Step through files and type in their coordinates",
	Long: `Opens a review session over a manifest, or over the files of a directory
that lack GPS. Commands:

  n            next entry (also an empty line)
  p            previous entry
  g <number>   jump to entry
  u <lat> <lon> write a coordinate into the current file
  a <address>  geocode an address and write it into the current file
  s            write every coordinate and save the manifest
  q            quit`,
	Args: exactArgs(1, "<manifest.csv | dir>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := openSession(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if s.Len() == 0 {
			env.printer.PrintInfo("nothing to review")
			return nil
		}
		geocoder := env.geocoder()
		return runReview(cmd.Context(), s, os.Stdin, env.printer, geocoder.Lookup)
	},
}

func openSession(ctx context.Context, target string) (*review.Session, error) {
	opts := sessionOptions()
	fi, err := os.Stat(target)
	if err != nil {
		return nil, err
	}
	if !fi.IsDir() {
		return review.Load(ctx, target, opts)
	}

	records, err := env.scanner.Directory(ctx, target)
	if err != nil {
		return nil, err
	}
	if !reviewNoProxy {
		match.Matcher{Window: env.cfg.Window(), Log: env.log}.Assign(records)
	}
	opts.MediaRoot = target
	opts.ManifestPath = reviewManifest
	return review.New(review.EntriesFromScan(records, target, !reviewAll), opts), nil
}

type lookupFunc func(ctx context.Context, address string) (geo.Coordinate, bool, error)

// runReview drives s from line commands read from in.
func runReview(ctx context.Context, s *review.Session, in io.Reader, p *core.Printer, lookup lookupFunc) error {
	show := func() {
		if cur, ok := s.Current(); ok {
			p.PrintEntry(s.Index(), s.Len(), cur)
		}
	}
	update := func(c geo.Coordinate) {
		if s.UpdateCoordinate(ctx, c.Lat, c.Lon) {
			p.PrintSuccess("saved " + c.String())
		} else {
			p.PrintInfo("not saved: " + c.String())
		}
	}

	committed := true
	show()
	sc := bufio.NewScanner(in)
	for {
		if !p.JSON {
			fmt.Fprint(p.Writer, "> ")
		}
		if !sc.Scan() {
			break
		}
		fields := strings.Fields(sc.Text())
		cmd := ""
		if len(fields) > 0 {
			cmd = strings.ToLower(fields[0])
		}

		switch cmd {
		case "", "n":
			s.Next()
		case "p":
			s.Previous()
		case "g":
			if len(fields) != 2 {
				p.PrintInfo("usage: g <number>")
				continue
			}
			n, err := strconv.Atoi(fields[1])
			if err != nil {
				p.PrintInfo("not a number: " + fields[1])
				continue
			}
			s.Seek(n - 1)
		case "u":
			c, err := coordinateArgs(fields[1:])
			if err != nil {
				p.PrintInfo(err.Error())
				continue
			}
			before := s.Changes()
			update(c)
			if s.Changes() != before {
				committed = false
			}
		case "a":
			if len(fields) < 2 {
				p.PrintInfo("usage: a <address>")
				continue
			}
			address := strings.Join(fields[1:], " ")
			c, found, err := lookup(ctx, address)
			switch {
			case err != nil:
				p.PrintInfo("geocoding failed: " + err.Error())
				continue
			case !found:
				p.PrintInfo("no match for " + address)
				continue
			}
			before := s.Changes()
			update(c)
			if s.Changes() != before {
				committed = false
			}
		case "s":
			p.PrintResult(s.CommitAll(ctx))
			committed = true
		case "q":
			if !committed {
				p.PrintInfo(fmt.Sprintf("%d change(s) written to files; manifest not saved", s.Changes()))
			}
			return nil
		default:
			p.PrintInfo("unknown command " + strconv.Quote(cmd))
			continue
		}
		show()
	}
	return sc.Err()
}

// coordinateArgs accepts "lat lon", "lat, lon" and "lat,lon".
func coordinateArgs(args []string) (geo.Coordinate, error) {
	parts := strings.FieldsFunc(strings.Join(args, " "), func(r rune) bool { return r == ',' || r == ' ' })
	if len(parts) != 2 {
		return geo.Coordinate{}, fmt.Errorf("usage: u <lat> <lon>")
	}
	return parseCoordinate(parts[0], parts[1])
}
