package main

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"funnelflow/internal/board"
	"funnelflow/internal/engine"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
	"funnelflow/internal/tui"
)

func boardCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "board [kind]",
		Short: "Open the interactive Kanban board",
		Long: `Open the Kanban board for one record kind. Cards can be moved between
stage columns; every move is validated, applied optimistically, and rolled
back if it cannot be persisted.`,
		Args: cobra.MaximumNArgs(1),
		RunE: runBoard,
	}
	return cmd
}

func runBoard(cmd *cobra.Command, args []string) error {
	raw := "opportunity"
	if len(args) == 1 {
		raw = args[0]
	}
	kind, err := parseKind(raw)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	store, err := initStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	b := board.NewManager()
	validator := pipeline.NewValidator(transitionPolicy())

	// The TUI model doubles as the notifier so toasts land on the status
	// line instead of corrupting the rendered board.
	coordinator := engine.New(b, store, nil, validator)
	view := tui.NewModel(coordinator, b, kind)
	coordinator.SetNotifier(view)

	if err := coordinator.Refresh(ctx, service.Predicate{Kind: &kind}); err != nil {
		return err
	}

	program := tea.NewProgram(view, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := program.Run(); err != nil {
		return fmt.Errorf("board session failed: %w", err)
	}
	return nil
}
