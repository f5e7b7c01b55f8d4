package main

import (
	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

func moveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "move <record-id> <stage>",
		Short: "Move a record to another stage",
		Long: `Move a record to the named stage of its pipeline. The transition is
checked against the configured policy before it is persisted.`,
		Args: cobra.ExactArgs(2),
		RunE: runMove,
	}
}

func runMove(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	coordinator, _, err := initCoordinator(ctx, store, cli.NewNotifier(), service.Predicate{})
	if err != nil {
		return err
	}

	return coordinator.MoveRecord(ctx, args[0], model.Stage(args[1]))
}
