package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

func createCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "create <kind> <title>",
		Short: "Create a new record",
		Long: `Create a new opportunity or bidding. The record starts at the first
stage of its pipeline unless --stage says otherwise.`,
		Args: cobra.ExactArgs(2),
		RunE: runCreate,
	}
	cmd.Flags().String("stage", "", "starting stage (default: first stage of the pipeline)")
	cmd.Flags().String("description", "", "free-text description")
	cmd.Flags().String("counterparty", "", "counterparty name")
	cmd.Flags().String("owner", "", "owner name")
	cmd.Flags().String("category", "", "modality (biddings) or billing mode (opportunities)")
	cmd.Flags().Float64("value", -1, "estimated value")
	cmd.Flags().String("deadline", "", "deadline (YYYY-MM-DD)")
	return cmd
}

func runCreate(cmd *cobra.Command, args []string) error {
	kind, err := parseKind(args[0])
	if err != nil {
		return err
	}

	rec := model.Record{
		Kind:  kind,
		Title: args[1],
	}
	if raw, _ := cmd.Flags().GetString("stage"); raw != "" {
		rec.Stage = model.Stage(raw)
	}
	rec.Description, _ = cmd.Flags().GetString("description")
	rec.CounterpartyName, _ = cmd.Flags().GetString("counterparty")
	rec.OwnerName, _ = cmd.Flags().GetString("owner")
	rec.Category, _ = cmd.Flags().GetString("category")
	if v, _ := cmd.Flags().GetFloat64("value"); v >= 0 {
		rec.EstimatedValue = &v
	}
	if raw, _ := cmd.Flags().GetString("deadline"); raw != "" {
		deadline, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return fmt.Errorf("bad deadline: %w", err)
		}
		rec.Deadline = &deadline
	}

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

	created, err := coordinator.CreateRecord(ctx, rec)
	if err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Created %s %q (%s)", created.Kind, created.Title, created.ID)))
	return nil
}
