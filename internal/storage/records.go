package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"funnelflow/internal/common"
	"funnelflow/internal/model"
	"funnelflow/internal/pipeline"
	"funnelflow/internal/service"
)

const recordColumns = `id, kind, stage, title, description, counterparty_name, counterparty_id,
	owner_name, owner_id, estimated_value, deadline, category, created_at, updated_at`

// Create inserts a new record and returns its id.
func (s *SQLiteStore) Create(ctx context.Context, rec model.Record) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateRecord(&rec); err != nil {
		return "", err
	}
	if !pipeline.Contains(rec.Kind, rec.Stage) {
		return "", fmt.Errorf("stage %q is not in the %s catalog", rec.Stage, rec.Kind)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO records (`+recordColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rec.ID, string(rec.Kind), string(rec.Stage), rec.Title,
		nullString(rec.Description), nullString(rec.CounterpartyName), rec.CounterpartyID,
		nullString(rec.OwnerName), rec.OwnerID, rec.EstimatedValue, rec.Deadline,
		nullString(rec.Category), rec.CreatedAt.UTC(), rec.UpdatedAt.UTC(),
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: record %s", common.ErrDuplicateEntry, rec.ID)
		}
		return "", fmt.Errorf("failed to insert record: %w", err)
	}

	return rec.ID, nil
}

// UpdateStatus moves a record to a new stage, re-validating the transition
// against the catalog so a bad client can never persist an illegal move.
func (s *SQLiteStore) UpdateStatus(ctx context.Context, id string, stage model.Stage) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var kind, current string
	err = tx.QueryRowContext(ctx, `SELECT kind, stage FROM records WHERE id = ?`, id).Scan(&kind, &current)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%w: record %s", common.ErrNotFound, id)
	}
	if err != nil {
		return fmt.Errorf("failed to read current stage: %w", err)
	}

	decision := storeValidator.Validate(model.Kind(kind), model.Stage(current), stage)
	switch decision.Outcome {
	case pipeline.AcceptedNoop:
		return nil
	case pipeline.Rejected:
		return fmt.Errorf("%w: %s", common.ErrInvalidTransition, decision.Reason)
	}

	_, err = tx.ExecContext(ctx, `
		UPDATE records SET stage = ?, updated_at = ? WHERE id = ?
	`, string(stage), time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to update stage: %w", err)
	}

	return tx.Commit()
}

// storeValidator guards writes with the same permissive policy the board
// uses, so the store and the UI can never disagree on legality.
var storeValidator = pipeline.NewValidator(pipeline.PolicyPermissive)

// UpdateFields applies a partial edit to a record.
func (s *SQLiteStore) UpdateFields(ctx context.Context, id string, patch model.FieldPatch) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}
	if patch.Empty() {
		return nil
	}

	set := []string{"updated_at = ?"}
	args := []any{time.Now().UTC()}

	appendSet := func(column string, value any) {
		set = append(set, column+" = ?")
		args = append(args, value)
	}
	if patch.Title != nil {
		appendSet("title", *patch.Title)
	}
	if patch.Description != nil {
		appendSet("description", nullString(*patch.Description))
	}
	if patch.CounterpartyName != nil {
		appendSet("counterparty_name", nullString(*patch.CounterpartyName))
	}
	if patch.CounterpartyID != nil {
		appendSet("counterparty_id", *patch.CounterpartyID)
	}
	if patch.OwnerName != nil {
		appendSet("owner_name", nullString(*patch.OwnerName))
	}
	if patch.OwnerID != nil {
		appendSet("owner_id", *patch.OwnerID)
	}
	if patch.EstimatedValue != nil {
		appendSet("estimated_value", *patch.EstimatedValue)
	}
	if patch.Deadline != nil {
		appendSet("deadline", patch.Deadline.UTC())
	}
	if patch.Category != nil {
		appendSet("category", nullString(*patch.Category))
	}

	args = append(args, id)
	res, err := s.db.ExecContext(ctx, `UPDATE records SET `+strings.Join(set, ", ")+` WHERE id = ?`, args...)
	if err != nil {
		return fmt.Errorf("failed to update record fields: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %s", common.ErrNotFound, id)
	}
	return nil
}

// Delete removes a record.
func (s *SQLiteStore) Delete(ctx context.Context, id string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(id, "id"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, `DELETE FROM records WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("%w: record %s", common.ErrNotFound, id)
	}
	return nil
}

// Query returns records matching the predicate, ordered by creation time.
// The WHERE clauses mirror the in-memory filter semantics: absent clauses
// impose no restriction, and records missing an optional field never match
// a range clause on that field.
func (s *SQLiteStore) Query(ctx context.Context, pred service.Predicate) ([]model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	where := []string{"1=1"}
	args := []any{}

	if pred.Kind != nil {
		where = append(where, "kind = ?")
		args = append(args, string(*pred.Kind))
	}
	if pred.Stage != nil {
		where = append(where, "stage = ?")
		args = append(args, string(*pred.Stage))
	}
	if pred.Counterparty != nil {
		where = append(where, "counterparty_name = ?")
		args = append(args, *pred.Counterparty)
	}
	if pred.Owner != nil {
		where = append(where, "owner_name = ?")
		args = append(args, *pred.Owner)
	}
	if pred.Category != nil {
		where = append(where, "category = ?")
		args = append(args, *pred.Category)
	}
	if term := strings.TrimSpace(pred.Term); term != "" {
		needle := "%" + strings.ToLower(term) + "%"
		where = append(where, "(LOWER(title) LIKE ? OR LOWER(IFNULL(counterparty_name,'')) LIKE ? OR LOWER(IFNULL(description,'')) LIKE ?)")
		args = append(args, needle, needle, needle)
	}
	if pred.DeadlineFrom != nil {
		where = append(where, "deadline IS NOT NULL AND deadline >= ?")
		args = append(args, pred.DeadlineFrom.UTC())
	}
	if pred.DeadlineTo != nil {
		where = append(where, "deadline IS NOT NULL AND deadline <= ?")
		args = append(args, pred.DeadlineTo.UTC())
	}
	if pred.ValueMin != nil {
		where = append(where, "estimated_value IS NOT NULL AND estimated_value >= ?")
		args = append(args, *pred.ValueMin)
	}
	if pred.ValueMax != nil {
		where = append(where, "estimated_value IS NOT NULL AND estimated_value <= ?")
		args = append(args, *pred.ValueMax)
	}

	query := `SELECT ` + recordColumns + ` FROM records WHERE ` +
		strings.Join(where, " AND ") + ` ORDER BY created_at, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query records: %w", err)
	}
	defer func() { _ = rows.Close() }()

	records := []model.Record{}
	for rows.Next() {
		rec, scanErr := scanRecord(rows)
		if scanErr != nil {
			return nil, scanErr
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate records: %w", err)
	}

	return records, nil
}

// GetByID fetches one record.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*model.Record, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(id, "id"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `SELECT `+recordColumns+` FROM records WHERE id = ?`, id)
	rec, err := scanRecord(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: record %s", common.ErrNotFound, id)
	}
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (model.Record, error) {
	var (
		rec            model.Record
		kind, stage    string
		description    sql.NullString
		counterparty   sql.NullString
		counterpartyID sql.NullString
		ownerName      sql.NullString
		ownerID        sql.NullString
		value          sql.NullFloat64
		deadline       sql.NullTime
		category       sql.NullString
	)

	err := row.Scan(
		&rec.ID, &kind, &stage, &rec.Title, &description, &counterparty, &counterpartyID,
		&ownerName, &ownerID, &value, &deadline, &category, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Record{}, err
	}
	if err != nil {
		return model.Record{}, fmt.Errorf("failed to scan record: %w", err)
	}

	rec.Kind = model.Kind(kind)
	rec.Stage = model.Stage(stage)
	rec.Description = description.String
	rec.CounterpartyName = counterparty.String
	rec.OwnerName = ownerName.String
	rec.Category = category.String
	if counterpartyID.Valid {
		rec.CounterpartyID = &counterpartyID.String
	}
	if ownerID.Valid {
		rec.OwnerID = &ownerID.String
	}
	if value.Valid {
		rec.EstimatedValue = &value.Float64
	}
	if deadline.Valid {
		d := deadline.Time.UTC()
		rec.Deadline = &d
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	rec.UpdatedAt = rec.UpdatedAt.UTC()

	return rec, nil
}

func nullString(s string) any {
	if strings.TrimSpace(s) == "" {
		return nil
	}
	return s
}
