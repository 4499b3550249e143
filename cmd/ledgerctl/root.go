package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"

	"github.com/erp/ledger/internal/infrastructure/config"
	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

// globalOptions are the persistent flags shared by every command
type globalOptions struct {
	envFile  string
	sqlite   string
	logLevel string
	json     bool

	cfg *config.Config
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetOut(stdout)
	root.SetErr(stderr)

	err := root.ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintf(stderr, "Error: %v\n", err)
	}
	return exitCode(err)
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	root := &cobra.Command{
		Use:   "ledgerctl",
		Short: "Post ledger documents and keep the books balanced",
		Long: `ledgerctl drives the ledger posting engine.

Documents (credit notes, debit notes, expenses) are posted into balanced
journals, reversed, and settled against bank or cash categories. Inventory
lots move with the documents that carry inventory products.

Configuration is read from config.toml and LEDGER_* environment variables.
A .env file in the working directory is loaded first.

Example:
  ledgerctl post --document 1b7c... --user 9f2e...
  ledgerctl settle --document 1b7c... --amount 400 --deposit 77aa... --user 9f2e...
  ledgerctl trial-balance --from 2024-01-01 --to 2024-06-30`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return opts.load()
		},
	}

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return usageError(err)
	})

	flags := root.PersistentFlags()
	flags.StringVar(&opts.envFile, "env-file", "", "dotenv file to load before reading configuration (default .env)")
	flags.StringVar(&opts.sqlite, "sqlite", "", "use a SQLite database file instead of PostgreSQL")
	flags.StringVar(&opts.logLevel, "log-level", "", "override log.level (debug, info, warn, error)")
	flags.BoolVar(&opts.json, "json", false, "print results as JSON")

	root.AddCommand(
		newPostCmd(opts),
		newReverseCmd(opts),
		newSettleCmd(opts),
		newReverseInventoryCmd(opts),
		newTrialBalanceCmd(opts),
		newSeedCategoriesCmd(opts),
		newRelayCmd(opts),
	)
	return root
}

// load reads the dotenv file and then the viper configuration. A missing
// default .env is not an error; a missing explicit one is.
func (o *globalOptions) load() error {
	if o.envFile != "" {
		if err := godotenv.Load(o.envFile); err != nil {
			return usageError(fmt.Errorf("failed to load env file %s: %w", o.envFile, err))
		}
	} else if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("failed to load .env: %w", err)
	}

	cfg, err := config.Load()
	if err != nil {
		return usageError(fmt.Errorf("failed to load configuration: %w", err))
	}
	if o.logLevel != "" {
		cfg.Log.Level = o.logLevel
	}
	o.cfg = cfg
	return nil
}
