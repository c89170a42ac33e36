package pg

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
)

type ViolationKind string

const (
	ViolationUnique     ViolationKind = "unique"
	ViolationForeignKey ViolationKind = "foreign_key"
	ViolationCheck      ViolationKind = "check"
	ViolationNotNull    ViolationKind = "not_null"
	ViolationType       ViolationKind = "type"
)

var violationByCode = map[string]ViolationKind{
	"23505": ViolationUnique,
	"23503": ViolationForeignKey,
	"23514": ViolationCheck,
	"23502": ViolationNotNull,
	"22P02": ViolationType,
	"42804": ViolationType,
}

// ConstraintViolation is a store error the caller can branch on without
// reading the driver message.
type ConstraintViolation struct {
	Field      string
	Constraint string
	Kind       ViolationKind
	Err        error
}

func (e *ConstraintViolation) Error() string {
	field := e.Field
	if field == "" {
		field = e.Constraint
	}
	return fmt.Sprintf("%s violation on %s: %v", e.Kind, field, e.Err)
}

func (e *ConstraintViolation) Unwrap() error {
	return e.Err
}

// Classify turns known postgres integrity errors into *ConstraintViolation.
// Any other error is returned unchanged.
func Classify(err error) error {
	if err == nil {
		return nil
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		return err
	}
	kind, ok := violationByCode[pgErr.Code]
	if !ok {
		return err
	}
	return &ConstraintViolation{
		Field:      pgErr.ColumnName,
		Constraint: pgErr.ConstraintName,
		Kind:       kind,
		Err:        err,
	}
}

func IsViolation(err error, kind ViolationKind) bool {
	var cv *ConstraintViolation
	return errors.As(err, &cv) && cv.Kind == kind
}
