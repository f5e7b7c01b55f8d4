package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/storage"
)

func migrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Bring the database schema up to date",
		Long: `Apply any pending schema migrations. Opening the board or the list
also migrates automatically; this command exists so upgrades can be
run explicitly, for example before a backup.`,
		RunE: runMigrate,
	}
}

func runMigrate(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Database schema is at version %d", storage.ExpectedSchemaVersion)))
	return nil
}
