package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
	"github.com/deploymenttheory/go-nxnand/pkg/app/verify"
)

var verifyCmd = &cobra.Command{
	Use:   "verify-gpt [nand-path]",
	Short: "Check the primary GPT against its backup",
	Long: `Check the header and entry CRCs of the primary and backup GPT and that
both describe the same partitions. Exits non-zero when the table is damaged.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, args[0], false)
	},
}

var repairCmd = &cobra.Command{
	Use:   "repair-gpt [nand-path]",
	Short: "Rewrite the backup GPT from the primary",
	Long: `Rewrite the backup GPT at the end of the dump from a valid primary GPT.
Nothing is written when the table is already consistent.`,

	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runVerify(cmd, args[0], true)
	},
}

func init() {
	rootCmd.AddCommand(verifyCmd, repairCmd)
}

func runVerify(cmd *cobra.Command, nandPath string, repair bool) error {
	ctx, err := newContext(cmd)
	if err != nil {
		return err
	}
	resp, err := verify.Handle(ctx, &verify.Request{NandPath: nandPath, Repair: repair})
	if err != nil {
		return err
	}
	if err := verify.FormatOutput(ctx.Out, resp, ctx.OutputFormat); err != nil {
		return err
	}
	if !resp.OK {
		return app.NewError(app.ErrCodeNandAccess, fmt.Sprintf("partition table is damaged: %s", resp.Problem), nil)
	}
	return nil
}
