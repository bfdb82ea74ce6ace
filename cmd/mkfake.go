package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app/mkfake"
)

var (
	mkfakeLayout string
	mkfakeClear  bool
	mkfakeForce  bool
)

var mkfakeCmd = &cobra.Command{
	Use:   "mkfake [output]",
	Short: "Write a synthetic dump for testing",
	Long: `Write a dump with an NX partition table, empty FAT32 volumes and a
PRODINFO magic, encrypted with the configured BIS keys. The compact layout
keeps every partition small; the full layout matches a 32 GB console.

Examples:
  nxnand mkfake test.bin --keys-file test.keys
  nxnand mkfake test.bin --clear --layout full`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		resp, err := mkfake.Handle(ctx, &mkfake.Request{
			Output: args[0],
			Layout: mkfakeLayout,
			Clear:  mkfakeClear,
			Force:  mkfakeForce,
		})
		if err != nil {
			return err
		}
		return mkfake.FormatOutput(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(mkfakeCmd)
	mkfakeCmd.Flags().StringVar(&mkfakeLayout, "layout", mkfake.LayoutCompact, "partition layout (compact, full)")
	mkfakeCmd.Flags().BoolVar(&mkfakeClear, "clear", false, "store partitions unencrypted")
	mkfakeCmd.Flags().BoolVarP(&mkfakeForce, "force", "f", false, "replace an existing file")
}
