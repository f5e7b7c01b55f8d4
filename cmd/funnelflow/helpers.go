package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"funnelflow/internal/board"
	"funnelflow/internal/cli"
	"funnelflow/internal/config"
	"funnelflow/internal/engine"
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
	"funnelflow/internal/storage"
)

// initStore opens the database and brings the schema up to date.
func initStore(ctx context.Context) (*storage.SQLiteStore, error) {
	dbPath := viper.GetString("database.path")
	if dbPath == "" {
		dbPath = "$HOME/.local/share/funnelflow/funnelflow.db"
	}
	dbPath = config.ExpandPath(dbPath)

	store, err := storage.NewSQLiteStore(dbPath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// initCoordinator wires the board, store, notifier, and validator together
// and loads the records matching the predicate.
func initCoordinator(ctx context.Context, store service.RecordStore, notifier service.Notifier, pred service.Predicate) (*engine.Coordinator, *board.Manager, error) {
	b := board.NewManager()
	validator := pipeline.NewValidator(transitionPolicy())
	coordinator := engine.New(b, store, notifier, validator)

	if err := coordinator.Refresh(ctx, pred); err != nil {
		return nil, nil, err
	}
	return coordinator, b, nil
}

// transitionPolicy reads the configured validator strictness. Permissive is
// the default: board drags may move a card between any columns.
func transitionPolicy() pipeline.Policy {
	if viper.GetString("pipeline.policy") == "stepwise" {
		return pipeline.PolicyStepwise
	}
	return pipeline.PolicyPermissive
}

// parseKind maps a CLI argument to a record kind.
func parseKind(raw string) (model.Kind, error) {
	kind := model.Kind(strings.ToLower(strings.TrimSpace(raw)))
	if !kind.Valid() {
		return "", fmt.Errorf("unknown kind %q (expected opportunity or bidding)", raw)
	}
	return kind, nil
}

// addFilterFlags registers the shared filter flags used by list and stats.
func addFilterFlags(cmd *cobra.Command) {
	cmd.Flags().String("kind", "", "restrict to one record kind (opportunity, bidding)")
	cmd.Flags().String("term", "", "free-text search over title, counterparty, and description")
	cmd.Flags().String("stage", "", "exact stage match")
	cmd.Flags().String("counterparty", "", "exact counterparty match")
	cmd.Flags().String("owner", "", "exact owner match")
	cmd.Flags().String("category", "", "exact category/modality match")
	cmd.Flags().String("deadline-from", "", "deadline range start (YYYY-MM-DD, inclusive)")
	cmd.Flags().String("deadline-to", "", "deadline range end (YYYY-MM-DD, inclusive)")
	cmd.Flags().Float64("value-min", -1, "minimum estimated value (inclusive)")
	cmd.Flags().Float64("value-max", -1, "maximum estimated value (inclusive)")
}

// predicateFromFlags builds the filter predicate from the shared flags.
func predicateFromFlags(cmd *cobra.Command) (service.Predicate, error) {
	var pred service.Predicate

	if raw, _ := cmd.Flags().GetString("kind"); raw != "" {
		kind, err := parseKind(raw)
		if err != nil {
			return pred, err
		}
		pred.Kind = &kind
	}
	pred.Term, _ = cmd.Flags().GetString("term")
	if raw, _ := cmd.Flags().GetString("stage"); raw != "" {
		stage := model.Stage(raw)
		pred.Stage = &stage
	}
	if raw, _ := cmd.Flags().GetString("counterparty"); raw != "" {
		pred.Counterparty = &raw
	}
	if raw, _ := cmd.Flags().GetString("owner"); raw != "" {
		pred.Owner = &raw
	}
	if raw, _ := cmd.Flags().GetString("category"); raw != "" {
		pred.Category = &raw
	}
	if raw, _ := cmd.Flags().GetString("deadline-from"); raw != "" {
		from, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return pred, fmt.Errorf("bad deadline-from: %w", err)
		}
		pred.DeadlineFrom = &from
	}
	if raw, _ := cmd.Flags().GetString("deadline-to"); raw != "" {
		to, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return pred, fmt.Errorf("bad deadline-to: %w", err)
		}
		pred.DeadlineTo = &to
	}
	if v, _ := cmd.Flags().GetFloat64("value-min"); v >= 0 {
		pred.ValueMin = &v
	}
	if v, _ := cmd.Flags().GetFloat64("value-max"); v >= 0 {
		pred.ValueMax = &v
	}

	return pred, nil
}

// formatValue renders an estimated value, or a dash when absent.
func formatValue(rec model.Record) string {
	if rec.EstimatedValue == nil {
		return "-"
	}
	return fmt.Sprintf("%.2f", *rec.EstimatedValue)
}

// formatDeadline renders a deadline, or a dash when absent.
func formatDeadline(rec model.Record) string {
	if rec.Deadline == nil {
		return "-"
	}
	return rec.Deadline.Format("2006-01-02")
}

// renderRecordTable prints records as a styled table.
func renderRecordTable(records []model.Record) {
	if len(records) == 0 {
		fmt.Println(cli.SubtleStyle.Render("No records match."))
		return
	}

	header := fmt.Sprintf("%-36s  %-11s  %-20s  %-18s  %-10s  %12s  %-10s",
		"ID", "KIND", "TITLE", "COUNTERPARTY", "STAGE", "VALUE", "DEADLINE")
	fmt.Println(cli.TableHeaderStyle.Render(header))

	for _, rec := range records {
		fmt.Printf("%-36s  %-11s  %-20s  %-18s  %-10s  %12s  %-10s\n",
			rec.ID, rec.Kind, truncate(rec.Title, 20), truncate(rec.CounterpartyName, 18),
			rec.Stage, formatValue(rec), formatDeadline(rec))
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
