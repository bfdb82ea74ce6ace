package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app/partitions"
)

var partitionsFree bool

var partitionsCmd = &cobra.Command{
	Use:     "partitions [nand-path]",
	Aliases: []string{"parts"},
	Short:   "List the GPT partitions of a dump",
	Long: `List the partitions of the primary GPT together with their NX format
and BIS key slot.

Examples:
  # List partitions of a combined dump
  nxnand partitions rawnand.bin

  # Include free space of the FAT32 partitions, which needs the BIS keys
  nxnand partitions rawnand.bin.00 --free --keys-file prod.keys`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		resp, err := partitions.Handle(ctx, &partitions.Request{NandPath: args[0], WithFree: partitionsFree})
		if err != nil {
			return err
		}
		return partitions.FormatOutput(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(partitionsCmd)
	partitionsCmd.Flags().BoolVar(&partitionsFree, "free", false, "mount FAT32 partitions to report free space")
}
