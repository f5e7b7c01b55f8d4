package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"funnelflow/internal/cli"
	"funnelflow/internal/model"
	"funnelflow/internal/stats"
)

func statsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Show aggregate statistics",
		Long: `Summarize the records matching a filter: counts, value totals, success
rate, upcoming deadlines, and breakdowns by stage and category. Statistics
are recomputed from the record set on every run, never cached.`,
		RunE: runStats,
	}
	addFilterFlags(cmd)
	return cmd
}

func runStats(cmd *cobra.Command, _ []string) error {
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

	summary := stats.Summarize(records, time.Now())

	fmt.Println(cli.TitleStyle.Render("Pipeline statistics"))
	fmt.Printf("Total records:        %d\n", summary.Total)
	fmt.Printf("Active:               %d\n", summary.Active)
	fmt.Printf("Won:                  %d\n", summary.Won)
	fmt.Printf("Lost / not won:       %d\n", summary.Lost)
	fmt.Printf("Archived:             %d\n", summary.Archived)
	fmt.Printf("Estimated value:      %.2f\n", summary.TotalEstimatedValue)
	fmt.Printf("Success rate:         %.1f%%\n", summary.SuccessRate)
	fmt.Printf("Deadlines this week:  %d\n", summary.UpcomingDeadlineCount)

	if len(summary.ByStage) > 0 {
		fmt.Println(cli.BoldStyle.Render("\nBy stage"))
		keys := make([]string, 0, len(summary.ByStage))
		for k := range summary.ByStage {
			keys = append(keys, string(k))
		}
		sort.Strings(keys)
		printBreakdown(keys, func(k string) int { return summary.ByStage[model.Stage(k)] })
	}
	if len(summary.ByCategory) > 0 {
		fmt.Println(cli.BoldStyle.Render("\nBy category"))
		keys := make([]string, 0, len(summary.ByCategory))
		for k := range summary.ByCategory {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		printBreakdown(keys, func(k string) int { return summary.ByCategory[k] })
	}

	return nil
}

func printBreakdown(keys []string, count func(string) int) {
	for _, k := range keys {
		fmt.Printf("  %-24s %d\n", k, count(k))
	}
}
