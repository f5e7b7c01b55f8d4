package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"funnelflow/internal/model"
)

// Validation errors.
var (
	ErrNilContext   = errors.New("context cannot be nil")
	ErrEmptyString  = errors.New("string parameter cannot be empty")
	ErrInvalidRange = errors.New("range minimum exceeds maximum")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRecord checks a record before it is written.
func validateRecord(rec *model.Record) error {
	if rec == nil {
		return errors.New("record cannot be nil")
	}
	return rec.Validate()
}
