package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
	"github.com/deploymenttheory/go-nxnand/pkg/app/splitter"
)

var (
	splitArchive   bool
	splitInPlace   bool
	splitChunkSize int64
	mergeInPlace   bool
)

var splitCmd = &cobra.Command{
	Use:   "split [file]",
	Short: "Split a dump into FAT32 sized parts",
	Long: `Split a file into numbered parts. Flat parts are written next to the file
as name.00, name.01, ...; archive parts go into a name_split directory.

In place mode truncates the source as parts are written, so only one part of
extra space is needed.

Examples:
  nxnand split rawnand.bin
  nxnand split rawnand.bin --archive --in-place`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		done := app.ProgressFor(ctx, os.Stderr)
		resp, err := splitter.Split(ctx, &splitter.SplitRequest{
			Source:    args[0],
			Archive:   splitArchive,
			InPlace:   splitInPlace,
			ChunkSize: splitChunkSize,
		})
		done()
		if resp != nil {
			if ferr := splitter.FormatOutput(ctx.Out, resp, ctx.OutputFormat); ferr != nil && err == nil {
				err = ferr
			}
		}
		return err
	},
}

var mergeCmd = &cobra.Command{
	Use:   "merge [first-part]",
	Short: "Join the parts of a split dump",
	Long: `Join the parts of a split file. Pass name.00 for flat parts or the 00
file inside a name_split directory for archive parts.

Examples:
  nxnand merge rawnand.bin.00
  nxnand merge rawnand_split.bin/00 --in-place`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		done := app.ProgressFor(ctx, os.Stderr)
		resp, err := splitter.Merge(ctx, &splitter.MergeRequest{FirstPart: args[0], InPlace: mergeInPlace})
		done()
		if resp != nil {
			if ferr := splitter.FormatOutput(ctx.Out, resp, ctx.OutputFormat); ferr != nil && err == nil {
				err = ferr
			}
		}
		return err
	},
}

func init() {
	rootCmd.AddCommand(splitCmd, mergeCmd)

	splitCmd.Flags().BoolVar(&splitArchive, "archive", false, "write parts into a name_split directory")
	splitCmd.Flags().BoolVar(&splitInPlace, "in-place", false, "truncate the source while splitting")
	splitCmd.Flags().Int64Var(&splitChunkSize, "chunk-size", 0, "part size in bytes (default from config)")

	mergeCmd.Flags().BoolVar(&mergeInPlace, "in-place", false, "delete parts once merged")
}
