package main

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/ankit-chaubey/media-gps-surgery/core/match"
	"github.com/ankit-chaubey/media-gps-surgery/core/review"
)

var (
	scanProxies  bool
	scanManifest string
	nogpsOut     string
)

func init() {
	Root.AddCommand(scanCommand, nogpsCommand)
	scanCommand.Flags().BoolVarP(&scanProxies, "proxies", "p", false, "Fill missing coordinates from the nearest file in time")
	scanCommand.Flags().StringVarP(&scanManifest, "manifest", "o", "", "Write the results as an extended manifest CSV")
	nogpsCommand.Flags().StringVarP(&nogpsOut, "out", "o", "", "Write the list to this file instead of stdout")
}

var scanCommand = &cobra.Command{
	Use:   "scan <dir>",
	Short: "Read capture time and GPS for every media file under a directory",
	Long: `Walks <dir>, reads the capture time and coordinate of every supported
photo and video, and lists them. With --proxies, files without GPS borrow
the coordinate of the file taken closest in time, within --window hours.`,
	Args: exactArgs(1, "<dir>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := env.scanner.Directory(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if scanProxies {
			match.Matcher{Window: env.cfg.Window(), Log: env.log}.Assign(records)
		}
		if scanManifest != "" {
			rows := make([]review.Row, len(records))
			for i, r := range records {
				rows[i] = review.RowFor(r, "")
			}
			if err := review.WriteManifest(scanManifest, rows, review.Extended); err != nil {
				return err
			}
			env.printer.PrintSuccess("manifest written to " + scanManifest)
			return nil
		}
		env.printer.PrintRecords(records)
		return nil
	},
}

var nogpsCommand = &cobra.Command{
	Use:   "nogps <dir>",
	Short: "List photos that carry no GPS coordinate",
	Args:  exactArgs(1, "<dir>"),
	RunE: func(cmd *cobra.Command, args []string) error {
		records, err := env.scanner.WithoutGPS(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		if nogpsOut == "" {
			if env.printer.JSON {
				env.printer.PrintRecords(records)
				return nil
			}
			return review.WritePathList(env.printer.Writer, records)
		}
		f, err := os.Create(nogpsOut)
		if err != nil {
			return err
		}
		if err := review.WritePathList(f, records); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		env.printer.PrintSuccess("list written to " + nogpsOut)
		return nil
	},
}
