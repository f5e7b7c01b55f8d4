// Package stats computes derived metrics over a record collection. Summarize
// is a pure function of its input: callers recompute from scratch after every
// board change instead of patching counters incrementally, so the displayed
// numbers can never drift from the board contents.
package stats

import (
	"time"

	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
)

// UpcomingWindow is the forward-looking deadline horizon, inclusive of both
// endpoints.
const UpcomingWindow = 7 * 24 * time.Hour

// Stats holds the aggregate metrics for one record collection.
type Stats struct {
	ByCategory            map[string]int
	ByStage               map[model.Stage]int
	Total                 int
	Active                int
	Won                   int
	Lost                  int
	Archived              int
	UpcomingDeadlineCount int
	TotalEstimatedValue   float64
	SuccessRate           float64 // percentage, 0 when no terminal records exist
}

// Summarize computes the metrics for the given records relative to now.
// It never mutates its input and is deterministic for a fixed (records, now).
func Summarize(records []model.Record, now time.Time) Stats {
	s := Stats{
		ByCategory: make(map[string]int),
		ByStage:    make(map[model.Stage]int),
	}

	horizon := now.Add(UpcomingWindow)
	terminal := 0

	for i := range records {
		rec := &records[i]
		s.Total++

		if rec.Category != "" {
			s.ByCategory[rec.Category]++
		}
		// Records carrying a stage outside their kind's catalog count toward
		// Total but are excluded from every stage-keyed metric.
		known := pipeline.Contains(rec.Kind, rec.Stage)
		if known {
			s.ByStage[rec.Stage]++
		}
		archived := known && rec.Stage == pipeline.StageArchived
		losing := known && rec.Stage == pipeline.LosingStage(rec.Kind)

		switch {
		case known && rec.Stage == pipeline.StageWon:
			s.Won++
			terminal++
		case losing:
			s.Lost++
			terminal++
		case archived:
			s.Archived++
			terminal++
		case known:
			s.Active++
		}

		// Value total covers records still in play or already won; archived
		// and lost records drop out.
		if rec.EstimatedValue != nil && !archived && !losing {
			s.TotalEstimatedValue += *rec.EstimatedValue
		}

		if rec.Deadline != nil && !rec.Deadline.Before(now) && !rec.Deadline.After(horizon) {
			s.UpcomingDeadlineCount++
		}
	}

	if terminal > 0 {
		s.SuccessRate = float64(s.Won) / float64(terminal) * 100
	}

	return s
}
