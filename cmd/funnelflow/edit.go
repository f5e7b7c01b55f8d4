package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

func editCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "edit <record-id>",
		Short: "Edit fields of an existing record",
		Long: `Edit a record in place. Only the fields named by flags change; stage
transitions go through "move" instead.`,
		Args: cobra.ExactArgs(1),
		RunE: runEdit,
	}
	cmd.Flags().String("title", "", "new title")
	cmd.Flags().String("description", "", "new description")
	cmd.Flags().String("counterparty", "", "new counterparty name")
	cmd.Flags().String("owner", "", "new owner name")
	cmd.Flags().String("category", "", "new modality/billing mode")
	cmd.Flags().Float64("value", -1, "new estimated value")
	cmd.Flags().String("deadline", "", "new deadline (YYYY-MM-DD)")
	return cmd
}

func runEdit(cmd *cobra.Command, args []string) error {
	patch, err := patchFromFlags(cmd)
	if err != nil {
		return err
	}
	if patch.Empty() {
		return fmt.Errorf("nothing to change: pass at least one field flag")
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

	if err := coordinator.EditRecord(ctx, args[0], patch); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Updated record %s", args[0])))
	return nil
}

func patchFromFlags(cmd *cobra.Command) (model.FieldPatch, error) {
	var patch model.FieldPatch

	stringFlags := map[string]**string{
		"title":        &patch.Title,
		"description":  &patch.Description,
		"counterparty": &patch.CounterpartyName,
		"owner":        &patch.OwnerName,
		"category":     &patch.Category,
	}
	for name, target := range stringFlags {
		if cmd.Flags().Changed(name) {
			value, _ := cmd.Flags().GetString(name)
			*target = &value
		}
	}
	if cmd.Flags().Changed("value") {
		value, _ := cmd.Flags().GetFloat64("value")
		patch.EstimatedValue = &value
	}
	if cmd.Flags().Changed("deadline") {
		raw, _ := cmd.Flags().GetString("deadline")
		deadline, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return patch, fmt.Errorf("bad deadline: %w", err)
		}
		patch.Deadline = &deadline
	}

	return patch, nil
}
