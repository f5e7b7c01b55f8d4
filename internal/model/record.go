// Package model defines the core domain types shared across the application.
package model

import (
	"fmt"
	"strings"
	"time"
)

// Kind distinguishes the two record families tracked by the pipeline.
type Kind string

const (
	// KindOpportunity is a commercial sales lead.
	KindOpportunity Kind = "opportunity"
	// KindBidding is a public-procurement tender.
	KindBidding Kind = "bidding"
)

// Valid reports whether the kind is one of the known record families.
func (k Kind) Valid() bool {
	return k == KindOpportunity || k == KindBidding
}

// Stage identifies one named step in a record's pipeline.
type Stage string

// Record represents a single opportunity or bidding moving through its pipeline.
type Record struct {
	CreatedAt        time.Time
	UpdatedAt        time.Time
	Deadline         *time.Time
	EstimatedValue   *float64
	CounterpartyID   *string
	OwnerID          *string
	ID               string
	Kind             Kind
	Stage            Stage
	Title            string
	Description      string // optional free text
	CounterpartyName string
	OwnerName        string
	Category         string // modality for biddings, billing mode for opportunities
}

// Validate checks the structural invariants that hold for every record.
// Stage membership in the kind's catalog is enforced separately by the
// pipeline package, which owns the catalog.
func (r *Record) Validate() error {
	if strings.TrimSpace(r.ID) == "" {
		return fmt.Errorf("record ID is required")
	}
	if !r.Kind.Valid() {
		return fmt.Errorf("unknown record kind %q", r.Kind)
	}
	if strings.TrimSpace(string(r.Stage)) == "" {
		return fmt.Errorf("record stage is required")
	}
	if strings.TrimSpace(r.Title) == "" {
		return fmt.Errorf("record title is required")
	}
	if r.EstimatedValue != nil && *r.EstimatedValue < 0 {
		return fmt.Errorf("estimated value must be non-negative, got %.2f", *r.EstimatedValue)
	}
	if !r.CreatedAt.IsZero() && !r.UpdatedAt.IsZero() && r.UpdatedAt.Before(r.CreatedAt) {
		return fmt.Errorf("updated at %s precedes created at %s", r.UpdatedAt.Format(time.RFC3339), r.CreatedAt.Format(time.RFC3339))
	}
	return nil
}

// HasValue reports whether an estimated value has been set.
// An absent value is distinct from an explicit zero.
func (r *Record) HasValue() bool {
	return r.EstimatedValue != nil
}

// Value returns the estimated value, or 0 when absent.
func (r *Record) Value() float64 {
	if r.EstimatedValue == nil {
		return 0
	}
	return *r.EstimatedValue
}

// Clone returns a deep copy of the record, so callers can hand out
// snapshots without sharing pointer fields.
func (r *Record) Clone() Record {
	out := *r
	if r.Deadline != nil {
		d := *r.Deadline
		out.Deadline = &d
	}
	if r.EstimatedValue != nil {
		v := *r.EstimatedValue
		out.EstimatedValue = &v
	}
	if r.CounterpartyID != nil {
		id := *r.CounterpartyID
		out.CounterpartyID = &id
	}
	if r.OwnerID != nil {
		id := *r.OwnerID
		out.OwnerID = &id
	}
	return out
}

// FieldPatch carries the subset of editable record fields for a partial
// update. Nil pointers leave the corresponding field untouched.
type FieldPatch struct {
	Title            *string
	Description      *string
	CounterpartyName *string
	CounterpartyID   *string
	OwnerName        *string
	OwnerID          *string
	EstimatedValue   *float64
	Deadline         *time.Time
	Category         *string
}

// Empty reports whether the patch carries no changes at all.
func (p FieldPatch) Empty() bool {
	return p.Title == nil && p.Description == nil &&
		p.CounterpartyName == nil && p.CounterpartyID == nil &&
		p.OwnerName == nil && p.OwnerID == nil &&
		p.EstimatedValue == nil && p.Deadline == nil && p.Category == nil
}

// ApplyTo merges the patch into the record in place.
func (p FieldPatch) ApplyTo(r *Record) {
	if p.Title != nil {
		r.Title = *p.Title
	}
	if p.Description != nil {
		r.Description = *p.Description
	}
	if p.CounterpartyName != nil {
		r.CounterpartyName = *p.CounterpartyName
	}
	if p.CounterpartyID != nil {
		r.CounterpartyID = p.CounterpartyID
	}
	if p.OwnerName != nil {
		r.OwnerName = *p.OwnerName
	}
	if p.OwnerID != nil {
		r.OwnerID = p.OwnerID
	}
	if p.EstimatedValue != nil {
		r.EstimatedValue = p.EstimatedValue
	}
	if p.Deadline != nil {
		r.Deadline = p.Deadline
	}
	if p.Category != nil {
		r.Category = *p.Category
	}
}
