package cmd

import (
	"os"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/pkg/app"
	"github.com/deploymenttheory/go-nxnand/pkg/app/files"
)

var (
	// Partition selection shared by ls, extract and inject
	partitionName string

	lsRecursive     bool
	injectDest      string
	injectOverwrite bool
)

var lsCmd = &cobra.Command{
	Use:   "ls [nand-path] [path]",
	Short: "List files on a FAT32 partition",
	Long: `List a directory of a FAT32 partition. The partition is mounted read-only.

Examples:
  nxnand ls rawnand.bin -p USER /Contents
  nxnand ls rawnand.bin -p SYSTEM --recursive -o json`,

	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		req := &files.ListRequest{
			Target:    files.Target{NandPath: args[0], Partition: partitionName},
			Recursive: lsRecursive,
		}
		if len(args) == 2 {
			req.Path = args[1]
		}
		resp, err := files.List(ctx, req)
		if err != nil {
			return err
		}
		return files.FormatList(ctx.Out, resp, ctx.OutputFormat)
	},
}

var extractCmd = &cobra.Command{
	Use:   "extract [nand-path] [source] [dest]",
	Short: "Copy files out of a partition",
	Long: `Copy a file or directory from a FAT32 partition to the host. Directories
are copied recursively; an existing destination directory receives the copy
under the source name.

Examples:
  nxnand extract rawnand.bin -p SYSTEM /save ./system-saves
  nxnand extract rawnand.bin -p USER /Contents/registered/a.nca ./a.nca`,

	Args: cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		done := app.ProgressFor(ctx, os.Stderr)
		resp, err := files.Extract(ctx, &files.ExtractRequest{
			Target: files.Target{NandPath: args[0], Partition: partitionName},
			Source: args[1],
			Dest:   args[2],
		})
		done()
		if err != nil {
			return err
		}
		return files.FormatCopy(ctx.Out, resp, ctx.OutputFormat)
	},
}

var injectCmd = &cobra.Command{
	Use:   "inject [nand-path] [host-path...]",
	Short: "Copy files into a partition",
	Long: `Copy host files and directories into a FAT32 partition. Existing entries
are refused unless --overwrite is given, and the copy is refused up front when
the partition does not have room for it.

Examples:
  nxnand inject rawnand.bin -p USER --dest /Contents ./registered
  nxnand inject rawnand.bin -p SYSTEM --overwrite ./save/8000000000000120`,

	Args: cobra.MinimumNArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, err := newContext(cmd)
		if err != nil {
			return err
		}
		done := app.ProgressFor(ctx, os.Stderr)
		resp, err := files.Inject(ctx, &files.InjectRequest{
			Target:    files.Target{NandPath: args[0], Partition: partitionName},
			Sources:   args[1:],
			Dest:      injectDest,
			Overwrite: injectOverwrite,
		})
		done()
		if err != nil {
			return err
		}
		return files.FormatCopy(ctx.Out, resp, ctx.OutputFormat)
	},
}

func init() {
	rootCmd.AddCommand(lsCmd, extractCmd, injectCmd)

	for _, c := range []*cobra.Command{lsCmd, extractCmd, injectCmd} {
		c.Flags().StringVarP(&partitionName, "partition", "p", "", "partition name, e.g. SYSTEM or USER (required)")
		c.MarkFlagRequired("partition")
	}

	lsCmd.Flags().BoolVarP(&lsRecursive, "recursive", "r", false, "list subdirectories")

	injectCmd.Flags().StringVarP(&injectDest, "dest", "d", "/", "destination directory inside the partition")
	injectCmd.Flags().BoolVar(&injectOverwrite, "overwrite", false, "replace existing files")
}
