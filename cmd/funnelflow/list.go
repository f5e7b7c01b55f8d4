package main

import (
	"github.com/spf13/cobra"
)

func listCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List records matching a filter",
		Long: `List records in a table. Every flag is optional; omitted flags impose
no restriction, so a bare "funnelflow list" shows everything.`,
		RunE: runList,
	}
	addFilterFlags(cmd)
	return cmd
}

func runList(cmd *cobra.Command, _ []string) error {
	pred, err := predicateFromFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	records, err := store.Query(ctx, pred)
	if err != nil {
		return err
	}

	renderRecordTable(records)
	return nil
}
