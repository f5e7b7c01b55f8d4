package filter

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
)

func strPtr(s string) *string          { return &s }
func f64Ptr(f float64) *float64        { return &f }
func stagePtr(s model.Stage) *model.Stage { return &s }
func timePtr(t time.Time) *time.Time   { return &t }

func fixtureRecords() []model.Record {
	day := func(d int) *time.Time {
		t := time.Date(2026, 4, d, 0, 0, 0, 0, time.UTC)
		return &t
	}
	return []model.Record{
		{
			ID: "r1", Kind: model.KindOpportunity, Stage: pipeline.StageNewLead,
			Title: "ERP rollout", CounterpartyName: "Acme Industrial",
			OwnerName: "dana", Category: "recurring",
			EstimatedValue: f64Ptr(50000), Deadline: day(10),
		},
		{
			ID: "r2", Kind: model.KindOpportunity, Stage: pipeline.StageProposalSent,
			Title: "Website revamp", CounterpartyName: "Borealis Ltda",
			OwnerName: "marcos", Category: "one-off",
			Description:    "Full redesign of the public site",
			EstimatedValue: f64Ptr(12000), Deadline: day(20),
		},
		{
			ID: "r3", Kind: model.KindBidding, Stage: pipeline.StageAwaitingAuction,
			Title: "Municipal fleet maintenance", CounterpartyName: "City of Santos",
			OwnerName: "dana", Category: "pregao",
			// No estimated value and no deadline: absent, not zero.
		},
	}
}

func TestApplyNoClausesReturnsEverything(t *testing.T) {
	records := fixtureRecords()
	got := Apply(records, service.Predicate{})
	require.Len(t, got, 3)
	assert.Equal(t, "r1", got[0].ID, "order must be preserved")
	assert.Equal(t, "r3", got[2].ID)
}

func TestApplyTermMatching(t *testing.T) {
	records := fixtureRecords()

	t.Run("matches title case-insensitively", func(t *testing.T) {
		got := Apply(records, service.Predicate{Term: "erp"})
		require.Len(t, got, 1)
		assert.Equal(t, "r1", got[0].ID)
	})

	t.Run("matches counterparty name", func(t *testing.T) {
		got := Apply(records, service.Predicate{Term: "santos"})
		require.Len(t, got, 1)
		assert.Equal(t, "r3", got[0].ID)
	})

	t.Run("matches description when present", func(t *testing.T) {
		got := Apply(records, service.Predicate{Term: "redesign"})
		require.Len(t, got, 1)
		assert.Equal(t, "r2", got[0].ID)
	})

	t.Run("absent description never matches and never panics", func(t *testing.T) {
		got := Apply(records, service.Predicate{Term: "nonexistent phrase"})
		assert.Empty(t, got)
	})
}

func TestApplyExactClauses(t *testing.T) {
	records := fixtureRecords()

	got := Apply(records, service.Predicate{Stage: stagePtr(pipeline.StageProposalSent)})
	require.Len(t, got, 1)
	assert.Equal(t, "r2", got[0].ID)

	got = Apply(records, service.Predicate{Owner: strPtr("dana")})
	assert.Len(t, got, 2)

	got = Apply(records, service.Predicate{Category: strPtr("pregao")})
	require.Len(t, got, 1)
	assert.Equal(t, "r3", got[0].ID)

	kind := model.KindBidding
	got = Apply(records, service.Predicate{Kind: &kind})
	require.Len(t, got, 1)
	assert.Equal(t, "r3", got[0].ID)
}

func TestApplyRanges(t *testing.T) {
	records := fixtureRecords()

	t.Run("value range is inclusive", func(t *testing.T) {
		got := Apply(records, service.Predicate{ValueMin: f64Ptr(12000), ValueMax: f64Ptr(50000)})
		assert.Len(t, got, 2)
	})

	t.Run("absent value does not match a range clause", func(t *testing.T) {
		got := Apply(records, service.Predicate{ValueMin: f64Ptr(0)})
		assert.Len(t, got, 2, "r3 has no value and must be excluded")
	})

	t.Run("deadline range is inclusive on both endpoints", func(t *testing.T) {
		got := Apply(records, service.Predicate{
			DeadlineFrom: timePtr(time.Date(2026, 4, 10, 0, 0, 0, 0, time.UTC)),
			DeadlineTo:   timePtr(time.Date(2026, 4, 20, 0, 0, 0, 0, time.UTC)),
		})
		assert.Len(t, got, 2)
	})

	t.Run("absent deadline does not match a range clause", func(t *testing.T) {
		got := Apply(records, service.Predicate{
			DeadlineFrom: timePtr(time.Date(2020, 1, 1, 0, 0, 0, 0, time.UTC)),
		})
		assert.Len(t, got, 2)
	})
}

// Conjunction of clauses must equal sequential application of the clauses.
func TestApplyComposability(t *testing.T) {
	records := fixtureRecords()

	combined := Apply(records, service.Predicate{
		Owner: strPtr("dana"),
		Term:  "fleet",
	})
	sequential := Apply(Apply(records, service.Predicate{Owner: strPtr("dana")}), service.Predicate{Term: "fleet"})

	assert.Equal(t, sequential, combined)
	require.Len(t, combined, 1)
	assert.Equal(t, "r3", combined[0].ID)
}

func TestApplyDoesNotMutateInput(t *testing.T) {
	records := fixtureRecords()
	snapshot := fixtureRecords()

	_ = Apply(records, service.Predicate{Term: "erp", Owner: strPtr("dana")})
	assert.Equal(t, snapshot, records)
}
