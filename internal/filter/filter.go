// Package filter derives the visible subset of records from a declarative
// predicate. Matching is pure and order-preserving; the board stays the
// source of truth.
package filter

import (
	"strings"
	"time"

	"funnelflow/internal/model"
	"funnelflow/internal/service"
)

// Apply returns the records matching every clause of the predicate, in the
// order they were given. An empty result is valid, not an error.
func Apply(records []model.Record, pred service.Predicate) []model.Record {
	out := make([]model.Record, 0, len(records))
	for i := range records {
		if Matches(&records[i], pred) {
			out = append(out, records[i])
		}
	}
	return out
}

// Matches reports whether a single record satisfies the predicate. Absent
// clauses impose no restriction; absent optional fields never match a
// clause that inspects them.
func Matches(rec *model.Record, pred service.Predicate) bool {
	if pred.Kind != nil && rec.Kind != *pred.Kind {
		return false
	}
	if pred.Stage != nil && rec.Stage != *pred.Stage {
		return false
	}
	if pred.Counterparty != nil && rec.CounterpartyName != *pred.Counterparty {
		return false
	}
	if pred.Owner != nil && rec.OwnerName != *pred.Owner {
		return false
	}
	if pred.Category != nil && rec.Category != *pred.Category {
		return false
	}
	if !matchesTerm(rec, pred.Term) {
		return false
	}
	if !matchesDeadline(rec, pred.DeadlineFrom, pred.DeadlineTo) {
		return false
	}
	if !matchesValue(rec, pred.ValueMin, pred.ValueMax) {
		return false
	}
	return true
}

// matchesTerm performs a case-insensitive substring search over title,
// counterparty name, and description. Description may be empty; an empty
// field simply never matches.
func matchesTerm(rec *model.Record, term string) bool {
	term = strings.TrimSpace(term)
	if term == "" {
		return true
	}
	needle := strings.ToLower(term)
	for _, haystack := range []string{rec.Title, rec.CounterpartyName, rec.Description} {
		if haystack == "" {
			continue
		}
		if strings.Contains(strings.ToLower(haystack), needle) {
			return true
		}
	}
	return false
}

// matchesDeadline applies an inclusive date range. A record without a
// deadline does not match a range clause.
func matchesDeadline(rec *model.Record, from, to *time.Time) bool {
	if from == nil && to == nil {
		return true
	}
	if rec.Deadline == nil {
		return false
	}
	if from != nil && rec.Deadline.Before(*from) {
		return false
	}
	if to != nil && rec.Deadline.After(*to) {
		return false
	}
	return true
}

// matchesValue applies an inclusive numeric range. A record without an
// estimated value does not match a range clause; absent is distinct from
// zero.
func matchesValue(rec *model.Record, minV, maxV *float64) bool {
	if minV == nil && maxV == nil {
		return true
	}
	if rec.EstimatedValue == nil {
		return false
	}
	if minV != nil && *rec.EstimatedValue < *minV {
		return false
	}
	if maxV != nil && *rec.EstimatedValue > *maxV {
		return false
	}
	return true
}
