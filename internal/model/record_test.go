package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validRecord() Record {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	return Record{
		ID:        "rec-1",
		Kind:      KindOpportunity,
		Stage:     Stage("new-lead"),
		Title:     "Fleet renewal",
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestRecordValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Record)
		wantErr string
	}{
		{
			name:   "valid record",
			mutate: func(_ *Record) {},
		},
		{
			name:    "missing ID",
			mutate:  func(r *Record) { r.ID = "  " },
			wantErr: "record ID is required",
		},
		{
			name:    "unknown kind",
			mutate:  func(r *Record) { r.Kind = "invoice" },
			wantErr: "unknown record kind",
		},
		{
			name:    "missing stage",
			mutate:  func(r *Record) { r.Stage = "" },
			wantErr: "record stage is required",
		},
		{
			name:    "missing title",
			mutate:  func(r *Record) { r.Title = "" },
			wantErr: "record title is required",
		},
		{
			name: "negative value",
			mutate: func(r *Record) {
				v := -10.0
				r.EstimatedValue = &v
			},
			wantErr: "estimated value must be non-negative",
		},
		{
			name: "updated before created",
			mutate: func(r *Record) {
				r.UpdatedAt = r.CreatedAt.Add(-time.Hour)
			},
			wantErr: "precedes created at",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := validRecord()
			tt.mutate(&rec)

			err := rec.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestKindValid(t *testing.T) {
	assert.True(t, KindOpportunity.Valid())
	assert.True(t, KindBidding.Valid())
	assert.False(t, Kind("").Valid())
	assert.False(t, Kind("Opportunity").Valid())
}

func TestRecordValue(t *testing.T) {
	rec := validRecord()
	assert.False(t, rec.HasValue())
	assert.Equal(t, 0.0, rec.Value())

	v := 0.0
	rec.EstimatedValue = &v
	assert.True(t, rec.HasValue(), "explicit zero is distinct from absent")
	assert.Equal(t, 0.0, rec.Value())
}

func TestRecordClone(t *testing.T) {
	rec := validRecord()
	deadline := time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC)
	value := 1200.0
	counterparty := "cp-9"
	rec.Deadline = &deadline
	rec.EstimatedValue = &value
	rec.CounterpartyID = &counterparty

	clone := rec.Clone()
	require.Equal(t, rec, clone)

	*clone.Deadline = clone.Deadline.AddDate(0, 1, 0)
	*clone.EstimatedValue = 99.0
	*clone.CounterpartyID = "cp-other"

	assert.Equal(t, deadline, *rec.Deadline, "clone must not share deadline storage")
	assert.Equal(t, 1200.0, *rec.EstimatedValue)
	assert.Equal(t, "cp-9", *rec.CounterpartyID)
}

func TestFieldPatch(t *testing.T) {
	t.Run("empty patch", func(t *testing.T) {
		assert.True(t, FieldPatch{}.Empty())

		title := "x"
		assert.False(t, FieldPatch{Title: &title}.Empty())
	})

	t.Run("apply changes only named fields", func(t *testing.T) {
		rec := validRecord()
		rec.Description = "original"

		title := "Fleet renewal FY27"
		value := 5400.0
		patch := FieldPatch{Title: &title, EstimatedValue: &value}
		patch.ApplyTo(&rec)

		assert.Equal(t, "Fleet renewal FY27", rec.Title)
		require.NotNil(t, rec.EstimatedValue)
		assert.Equal(t, 5400.0, *rec.EstimatedValue)
		assert.Equal(t, "original", rec.Description, "untouched fields keep their values")
		assert.Equal(t, Stage("new-lead"), rec.Stage)
	})

	t.Run("apply can blank a field", func(t *testing.T) {
		rec := validRecord()
		rec.Description = "to be removed"

		empty := ""
		FieldPatch{Description: &empty}.ApplyTo(&rec)
		assert.Empty(t, rec.Description)
	})
}
