package main

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/service"
)

func deleteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "delete <record-id>",
		Short: "Delete a record permanently",
		Args:  cobra.ExactArgs(1),
		RunE:  runDelete,
	}
	cmd.Flags().Bool("yes", false, "skip the confirmation prompt")
	return cmd
}

func runDelete(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	coordinator, b, err := initCoordinator(ctx, store, cli.NewNotifier(), service.Predicate{})
	if err != nil {
		return err
	}

	rec, ok := b.Get(args[0])
	if !ok {
		return fmt.Errorf("record %s not found", args[0])
	}

	if confirmed, _ := cmd.Flags().GetBool("yes"); !confirmed {
		fmt.Printf("Delete %s %q? This cannot be undone. [y/N] ", rec.Kind, rec.Title)
		reader := bufio.NewReader(os.Stdin)
		answer, _ := reader.ReadString('\n')
		if strings.ToLower(strings.TrimSpace(answer)) != "y" {
			fmt.Println(cli.FormatInfo("Aborted."))
			return nil
		}
	}

	if err := coordinator.DeleteRecord(ctx, args[0]); err != nil {
		return err
	}

	fmt.Println(cli.FormatSuccess(fmt.Sprintf("Deleted %s %q", rec.Kind, rec.Title)))
	return nil
}
