package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/image"
	"github.com/ankit-chaubey/media-gps-surgery/core/jpg"
	"github.com/ankit-chaubey/media-gps-surgery/core/review"
)

var (
	inspectAll     bool
	commitExtended bool
)

func init() {
	Root.AddCommand(writeCommand, inspectCommand, commitCommand, filterCommand, geocodeCommand)
	inspectCommand.Flags().BoolVarP(&inspectAll, "all", "a", false, "Dump every EXIF tag, not only GPS and dates")
	commitCommand.Flags().BoolVarP(&commitExtended, "extended", "e", false, "Force latitude, longitude and gps_source columns even if the manifest has none")
}

var writeCommand = &cobra.Command{
	Use:   "write <file> <lat> <lon>",
	Short: "Store a coordinate in one file",
	Long: `Writes the coordinate into <file>. The first write to a file keeps a
pristine copy next to it as <file>.bak.`,
	Args: exactArgs(3, "<file> <lat> <lon>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, err := parseCoordinate(args[1], args[2])
		if err != nil {
			return err
		}
		if !env.writer.Write(cmd.Context(), args[0], c) {
			return fmt.Errorf("could not write GPS to %s", args[0])
		}
		env.printer.PrintSuccess(fmt.Sprintf("%s ← %s", args[0], c))
		return nil
	},
}

var inspectCommand = &cobra.Command{
	Use:   "inspect <file>",
	Short: "Show what each metadata strategy finds in a file",
	Args:  exactArgs(1, "<file>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		ex, err := env.reader.Inspect(cmd.Context(), path)
		if err != nil {
			return err
		}
		rec := core.MediaRecord{Path: path}
		if ex.TimeErr == nil {
			rec.Time = ex.Time.UTC()
		}
		if ex.CoordErr == nil {
			rec.SetCoordinate(ex.Coord, core.ProvOriginal)
		}
		env.printer.PrintEntry(0, 1, rec)
		if env.printer.JSON {
			return nil
		}
		if ex.TimeErr != nil {
			env.printer.PrintValue("  time", fmt.Sprintf("%s (%v)", core.Classify(ex.TimeErr), ex.TimeErr))
		}
		if ex.CoordErr != nil {
			env.printer.PrintValue("  gps", fmt.Sprintf("%s (%v)", core.Classify(ex.CoordErr), ex.CoordErr))
		}
		if id, err := core.DetectFormat(path); err == nil && (id == core.FmtJPEG || id == core.FmtTIFF) {
			env.printer.PrintInfo("\nEXIF tags:")
			if err := jpg.DumpFile(env.printer.Writer, path, inspectAll); err != nil {
				env.printer.PrintInfo("  " + err.Error())
			}
		} else if err == nil && id != core.FmtUnknown {
			tags, err := image.ExiftoolTags(env.cfg.Exiftool, path)
			if err != nil {
				env.printer.PrintInfo("  exiftool: " + err.Error())
				return nil
			}
			env.printer.PrintInfo("\nexiftool tags:")
			for _, k := range image.SortedKeys(tags) {
				env.printer.PrintValue("  "+k, tags[k])
			}
		}
		return nil
	},
}

var commitCommand = &cobra.Command{
	Use:   "commit <manifest.csv>",
	Short: "Write every coordinate in a manifest back to its file",
	Long: `Loads the manifest, writes each entry's coordinate into the file it
names (relative to --media-root) and rewrites the manifest. If anything goes
badly wrong the manifest is restored from <manifest>.bak.`,
	Args: exactArgs(1, "<manifest.csv>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		s, err := review.Load(cmd.Context(), args[0], sessionOptions())
		if err != nil {
			return err
		}
		res := s.CommitAll(cmd.Context())
		env.printer.PrintResult(res)
		if res.Err != nil {
			return res.Err
		}
		if res.Failed > 0 {
			return fmt.Errorf("%d of %d files failed", res.Failed, res.Total)
		}
		return nil
	},
}

var filterCommand = &cobra.Command{
	Use:   "filter <manifest.csv> <list.txt> <out.csv>",
	Short: "Keep manifest rows listed by nogps that have a coordinate",
	Args:  exactArgs(3, "<manifest.csv> <list.txt> <out.csv>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		n, err := review.FilterManifest(args[0], args[1], args[2])
		if err != nil {
			return err
		}
		env.printer.PrintValue("kept", n)
		return nil
	},
}

var geocodeCommand = &cobra.Command{
	Use:   "geocode <address>",
	Short: "Look up the coordinate of an address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		address := strings.Join(args, " ")
		c, found, err := env.geocoder().Lookup(cmd.Context(), address)
		if err != nil {
			return err
		}
		if !found {
			return fmt.Errorf("no match for %q", address)
		}
		if env.printer.JSON {
			env.printer.PrintValue("coordinate", c)
			return nil
		}
		env.printer.PrintInfo(c.String())
		return nil
	},
}

func sessionOptions() review.Options {
	variant := review.Basic
	if commitExtended {
		variant = review.Extended
	}
	return review.Options{
		MediaRoot: env.cfg.MediaRoot,
		Variant:   variant,
		Writer:    env.writer,
		Reader:    env.reader,
		Logger:    env.log,
	}
}

func parseCoordinate(latText, lonText string) (geo.Coordinate, error) {
	lat, err := strconv.ParseFloat(strings.TrimSpace(latText), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("latitude %q: %w", latText, err)
	}
	lon, err := strconv.ParseFloat(strings.TrimSpace(lonText), 64)
	if err != nil {
		return geo.Coordinate{}, fmt.Errorf("longitude %q: %w", lonText, err)
	}
	c := geo.Coordinate{Lat: lat, Lon: lon}
	if !c.Valid() {
		return geo.Coordinate{}, fmt.Errorf("%v: %w", c, core.ErrInvalidCoordinate)
	}
	return c, nil
}
