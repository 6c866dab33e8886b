package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ankit-chaubey/media-gps-surgery/core"
	"github.com/ankit-chaubey/media-gps-surgery/core/geo"
	"github.com/ankit-chaubey/media-gps-surgery/core/logging"
	"github.com/ankit-chaubey/media-gps-surgery/core/review"
	"github.com/ankit-chaubey/media-gps-surgery/core/scan"
)

var tagMissingOnly bool

// tagFormats are the formats a whole-directory tag touches.
var tagFormats = map[core.FormatID]bool{
	core.FmtJPEG: true,
	core.FmtPNG:  true,
	core.FmtHEIC: true,
	core.FmtMP4:  true,
	core.FmtMOV:  true,
}

func init() {
	Root.AddCommand(tagCommand)
	tagCommand.Flags().BoolVar(&tagMissingOnly, "missing-only", false, "Leave files that already carry GPS untouched")
}

var tagCommand = &cobra.Command{
	Use:   "tag <dir> <place>",
	Short: "Geocode a place once and write it to every photo and video in a directory",
	Long: `Looks <place> up with the geocoder and writes the coordinate into every
JPEG, PNG, HEIC, MP4 and MOV file under <dir>. Each file keeps a pristine
copy as <file>.bak on its first write.`,
	Args: exactArgs(2, "<dir> <place>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		c, res, err := tagPlace(cmd.Context(), args[0], args[1], env.geocoder().Lookup, env.scanner, env.writer, tagMissingOnly, env.log)
		if err != nil {
			return err
		}
		if !env.printer.JSON {
			env.printer.PrintValue(args[1], c.String())
		}
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

// tagPlace resolves place once and writes it to every taggable file under
// root.
func tagPlace(ctx context.Context, root, place string, lookup lookupFunc, sc *scan.Scanner,
	w review.CoordinateWriter, missingOnly bool, log *zap.Logger) (geo.Coordinate, core.CommitResult, error) {
	log = logging.OrNop(log)
	if fi, err := os.Stat(root); err != nil || !fi.IsDir() {
		return geo.Coordinate{}, core.CommitResult{}, fmt.Errorf("directory not found: %s", root)
	}

	c, found, err := lookup(ctx, place)
	if err != nil {
		return geo.Coordinate{}, core.CommitResult{}, fmt.Errorf("geocoding %q: %w", place, err)
	}
	if !found {
		return geo.Coordinate{}, core.CommitResult{}, fmt.Errorf("no coordinates found for %q", place)
	}
	log.Info("place resolved", zap.String("place", place), zap.Stringer("coordinate", c))

	paths, err := tagTargets(ctx, sc, root, missingOnly)
	if err != nil {
		return c, core.CommitResult{}, err
	}
	res := tagDirectory(ctx, root, paths, c, w)
	log.Info("tagging complete",
		zap.String("root", root),
		zap.Int("processed", res.Success),
		zap.Int("skipped", res.Failed))
	return c, res, nil
}

func tagTargets(ctx context.Context, sc *scan.Scanner, root string, missingOnly bool) ([]string, error) {
	var all []string
	if missingOnly {
		records, err := sc.Directory(ctx, root)
		if err != nil {
			return nil, err
		}
		for _, r := range records {
			if !r.HasCoordinate() {
				all = append(all, filepath.Join(root, filepath.FromSlash(r.Path)))
			}
		}
	} else {
		paths, err := sc.Paths(ctx, root)
		if err != nil {
			return nil, err
		}
		all = paths
	}

	out := all[:0]
	for _, p := range all {
		if tagFormats[core.FormatForExt(p)] {
			out = append(out, p)
		}
	}
	return out, nil
}

// tagDirectory writes c into every path. Failed paths are reported relative
// to root.
func tagDirectory(ctx context.Context, root string, paths []string, c geo.Coordinate, w review.CoordinateWriter) core.CommitResult {
	res := core.CommitResult{Total: len(paths), FailedPaths: []string{}}
	for _, p := range paths {
		if ctx.Err() == nil && w.Write(ctx, p, c) {
			res.Success++
			continue
		}
		res.Failed++
		name := p
		if rel, err := filepath.Rel(root, p); err == nil {
			name = filepath.ToSlash(rel)
		}
		res.FailedPaths = append(res.FailedPaths, name)
	}
	res.Err = ctx.Err()
	return res
}
