package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/deploymenttheory/go-nxnand/internal/device"
	"github.com/deploymenttheory/go-nxnand/internal/types"
	"github.com/deploymenttheory/go-nxnand/pkg/app"
)

var (
	// Global output flags
	verbose      bool
	quiet        bool
	noColor      bool
	outputFormat string

	// Configuration and keys
	configFile string
	keysFile   string
	bisKeys    [4]string
)

var rootCmd = &cobra.Command{
	Use:   "nxnand",
	Short: "Explore and modify Nintendo Switch NAND dumps",
	Long: `nxnand opens combined or split NAND dumps, decrypts their BIS partitions
and gives access to the FAT32 volumes inside them.

BIS keys are read from --bis0..--bis3, a key file given with --keys-file,
the NXNAND_KEYS_BISn environment variables or the keys section of
nxnand.yaml, in that order of precedence.

Commands:
  partitions  List the GPT partitions of a dump
  verify-gpt  Check the primary GPT against its backup
  repair-gpt  Rewrite the backup GPT from the primary
  probe       Check which partitions the BIS keys decrypt
  ls          List files on a FAT32 partition
  extract     Copy files out of a partition
  inject      Copy files into a partition
  split       Split a dump into FAT32 sized parts
  merge       Join the parts of a split dump
  mkfake      Write a synthetic dump for testing`,
	Version:       "0.1.0-dev",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(exitCode(err))
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable verbose output")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress output except errors")
	rootCmd.PersistentFlags().BoolVar(&noColor, "no-color", false, "disable colored output")
	rootCmd.PersistentFlags().StringVarP(&outputFormat, "output", "o", "table", "output format (table, json, yaml)")

	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "config file (default nxnand.yaml in ., ~/.config/nxnand or /etc/nxnand)")
	rootCmd.PersistentFlags().StringVarP(&keysFile, "keys-file", "k", "", "key file with bis_key_00 .. bis_key_03 entries")
	for i := range bisKeys {
		rootCmd.PersistentFlags().StringVar(&bisKeys[i], fmt.Sprintf("bis%d", i), "", fmt.Sprintf("BIS key %d as 64 hex characters, crypto then tweak", i))
	}

	rootCmd.MarkFlagsMutuallyExclusive("verbose", "quiet")
}

// newContext builds the application context from flags and configuration
func newContext(cmd *cobra.Command) (*app.Context, error) {
	if err := app.ValidateFormat(outputFormat); err != nil {
		return nil, err
	}

	cfg, err := device.LoadConfig(configFile)
	if err != nil {
		return nil, app.NewError(app.ErrCodeInvalidInput, "failed to load configuration", err)
	}
	keys, err := resolveKeys(cfg)
	if err != nil {
		return nil, err
	}

	ctx := app.NewContext()
	if cmd.Context() != nil {
		ctx.Context = cmd.Context()
	}
	ctx.OutputFormat = outputFormat
	ctx.Verbose = verbose
	ctx.Quiet = quiet
	ctx.NoColor = noColor
	ctx.Out = cmd.OutOrStdout()
	ctx.Config = cfg
	ctx.Keys = keys
	ctx.ApplyVerbosity()
	return ctx, nil
}

// resolveKeys combines key flags, the key file and the configured keys. Each
// slot takes the first source that sets it.
func resolveKeys(cfg *device.Config) (types.BisKeys, error) {
	flags := device.DefaultConfig()
	for i, k := range bisKeys {
		if k == "" {
			continue
		}
		if err := flags.SetKey(types.BisKeyID(i), k); err != nil {
			return types.BisKeys{}, app.NewError(app.ErrCodeInvalidInput, "invalid key flag", err)
		}
	}
	keys, err := flags.BisKeys()
	if err != nil {
		return keys, app.NewError(app.ErrCodeInvalidInput, "invalid key flag", err)
	}

	if keysFile != "" {
		fileKeys, err := device.LoadKeysFile(keysFile)
		if err != nil {
			return keys, app.NewError(app.ErrCodeKeys, "failed to load key file", err)
		}
		keys = device.Merge(keys, fileKeys)
	}

	configured, err := cfg.BisKeys()
	if err != nil {
		return keys, app.NewError(app.ErrCodeKeys, "invalid BIS key in configuration", err)
	}
	return device.Merge(keys, configured), nil
}

// exitCode maps error codes to process exit codes
func exitCode(err error) int {
	switch app.ErrCode(err) {
	case app.ErrCodeInvalidInput:
		return 2
	case app.ErrCodeKeys:
		return 3
	case app.ErrCodeCancelled:
		return 130
	default:
		return 1
	}
}
