package cmd

import (
	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
	"github.com/deploymenttheory/go-nxnand/pkg/app/probe"
)

var probePartitions []string

var probeCmd = &cobra.Command{
	Use:   "probe [nand-path]",
	Short: "Check which partitions the BIS keys decrypt",
	Long: `Decrypt the first bytes of each partition and compare them with the
magic expected for its type. A match makes a right key very likely but does
not authenticate the data.

Examples:
  nxnand probe rawnand.bin --keys-file prod.keys
  nxnand probe rawnand.bin --bis2 <hex> --partition SYSTEM`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		resp, err := probe.Handle(ctx, &probe.Request{NandPath: args[0], Partitions: probePartitions})
		if err != nil {
			return err
		}
		if err := probe.FormatOutput(ctx.Out, resp, ctx.OutputFormat); err != nil {
			return err
		}
		if resp.Failed() {
			return app.NewError(app.ErrCodeKeys, "one or more partitions failed to decrypt", nil)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(probeCmd)
	probeCmd.Flags().StringSliceVarP(&probePartitions, "partition", "p", nil, "partitions to probe (default all)")
}
