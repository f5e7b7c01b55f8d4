package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/importer"
)

func importCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "import <file.csv>",
		Short: "Import records from a CSV export",
		Long: `Import records in bulk from a CSV file. Malformed rows are skipped
with a warning; the rest are created at their stated stage.`,
		Args: cobra.ExactArgs(1),
		RunE: runImport,
	}
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("failed to open import file: %w", err)
	}
	defer func() { _ = f.Close() }()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	result, err := importer.New(store, os.Stderr).Import(ctx, f)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Imported %d records (%d skipped)", result.Imported, result.Skipped)))
	return nil
}
