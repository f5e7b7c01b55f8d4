// Package importer loads records in bulk from CSV exports of other CRMs.
package importer

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/schollz/progressbar/v3"

	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
)

// Expected header columns, in any order. Only kind and title are required
// per row; everything else is optional.
const (
	colKind         = "kind"
	colTitle        = "title"
	colStage        = "stage"
	colDescription  = "description"
	colCounterparty = "counterparty"
	colOwner        = "owner"
	colValue        = "estimated_value"
	colDeadline     = "deadline"
	colCategory     = "category"
)

// Result summarizes one import run.
type Result struct {
	Imported int
	Skipped  int
}

// Importer reads CSV rows and creates records through the store.
type Importer struct {
	store       service.RecordStore
	progressOut io.Writer
	clock       func() time.Time
}

// New creates an importer. progressOut may be nil to disable the bar.
func New(store service.RecordStore, progressOut io.Writer) *Importer {
	return &Importer{
		store:       store,
		progressOut: progressOut,
		clock:       time.Now,
	}
}

// Import reads all rows from r and creates a record for each valid one.
// Invalid rows are skipped with a warning rather than aborting the run.
func (i *Importer) Import(ctx context.Context, r io.Reader) (Result, error) {
	reader := csv.NewReader(r)
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV header: %w", err)
	}
	columns := make(map[string]int, len(header))
	for idx, name := range header {
		columns[strings.ToLower(strings.TrimSpace(name))] = idx
	}
	for _, required := range []string{colKind, colTitle} {
		if _, ok := columns[required]; !ok {
			return Result{}, fmt.Errorf("CSV is missing required column %q", required)
		}
	}

	rows, err := reader.ReadAll()
	if err != nil {
		return Result{}, fmt.Errorf("failed to read CSV rows: %w", err)
	}

	bar := i.newProgressBar(len(rows))

	var result Result
	for n, row := range rows {
		if bar != nil {
			_ = bar.Add(1)
		}
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		rec, rowErr := i.recordFromRow(columns, row)
		if rowErr != nil {
			slog.Warn("Skipping CSV row", "row", n+2, "error", rowErr)
			result.Skipped++
			continue
		}

		if _, createErr := i.store.Create(ctx, rec); createErr != nil {
			slog.Warn("Skipping CSV row, store rejected it", "row", n+2, "error", createErr)
			result.Skipped++
			continue
		}
		result.Imported++
	}

	return result, nil
}

func (i *Importer) recordFromRow(columns map[string]int, row []string) (model.Record, error) {
	field := func(name string) string {
		idx, ok := columns[name]
		if !ok || idx >= len(row) {
			return ""
		}
		return strings.TrimSpace(row[idx])
	}

	kind := model.Kind(strings.ToLower(field(colKind)))
	if !kind.Valid() {
		return model.Record{}, fmt.Errorf("unknown kind %q", field(colKind))
	}

	stage := model.Stage(field(colStage))
	if stage == "" {
		stage = pipeline.InitialStage(kind)
	}
	if !pipeline.Contains(kind, stage) {
		return model.Record{}, fmt.Errorf("stage %q is not in the %s catalog", stage, kind)
	}

	now := i.clock()
	rec := model.Record{
		ID:               uuid.NewString(),
		Kind:             kind,
		Stage:            stage,
		Title:            field(colTitle),
		Description:      field(colDescription),
		CounterpartyName: field(colCounterparty),
		OwnerName:        field(colOwner),
		Category:         field(colCategory),
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if raw := field(colValue); raw != "" {
		value, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return model.Record{}, fmt.Errorf("bad estimated value %q: %w", raw, err)
		}
		if value < 0 {
			return model.Record{}, errors.New("estimated value must be non-negative")
		}
		rec.EstimatedValue = &value
	}

	if raw := field(colDeadline); raw != "" {
		deadline, err := time.Parse("2006-01-02", raw)
		if err != nil {
			return model.Record{}, fmt.Errorf("bad deadline %q: %w", raw, err)
		}
		rec.Deadline = &deadline
	}

	if err := rec.Validate(); err != nil {
		return model.Record{}, err
	}
	return rec, nil
}

func (i *Importer) newProgressBar(total int) *progressbar.ProgressBar {
	if i.progressOut == nil || total == 0 {
		return nil
	}
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(i.progressOut),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetDescription("Importing records..."),
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(i.progressOut)
		}),
	)
}
