package main

import (
	"bytes"
	"errors"
	"context"
	"fmt"
	"io"
	"os"

	appledger "github.com/erp/ledger/internal/application/ledger"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// seedFile is the YAML chart of accounts:
//
//	categories:
//	  - code: ACCOUNTS_RECEIVABLE
//	    name: Accounts receivable
//	  - code: OUTPUT_VAT
type seedFile struct {
	Categories []appledger.CategorySeed `yaml:"categories"`
}

// readSeedFile decodes a chart of accounts. Unknown keys are rejected so a
// misspelt field does not silently drop a name.
func readSeedFile(r io.Reader) (appledger.SeedCategoriesCommand, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return appledger.SeedCategoriesCommand{}, err
	}

	var file seedFile
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&file); err != nil && !errors.Is(err, io.EOF) {
		return appledger.SeedCategoriesCommand{}, usageError(fmt.Errorf("invalid seed file: %w", err))
	}
	return appledger.SeedCategoriesCommand{Categories: file.Categories}, nil
}

func newSeedCategoriesCmd(opts *globalOptions) *cobra.Command {
	var path string
	cmd := &cobra.Command{
		Use:   "seed-categories",
		Short: "Create or rename ledger categories from a YAML file",
		Long: `Upsert the chart of accounts by code. Existing codes keep their ID and take
the new name. Well-known codes still missing afterwards are reported.

File format:
  categories:
    - code: ACCOUNTS_RECEIVABLE
      name: Accounts receivable
    - code: OUTPUT_VAT
      name: VAT payable`,
		Args: noArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if path == "" {
				return usageError(fmt.Errorf("--file is required"))
			}
			f, err := os.Open(path)
			if err != nil {
				return usageError(err)
			}
			defer f.Close()

			seed, err := readSeedFile(f)
			if err != nil {
				return err
			}
			return withApp(cmd, opts, func(ctx context.Context, a *app) error {
				result, err := a.categoryService().Seed(ctx, seed)
				if err != nil {
					return err
				}
				return opts.printer(cmd).seeded(result)
			})
		},
	}
	cmd.Flags().StringVarP(&path, "file", "f", "", "YAML seed file")
	return cmd
}
