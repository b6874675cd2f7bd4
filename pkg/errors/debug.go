package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the log-only view of an error: its typed code, the unwrap
// chain and, when the root cause came from Postgres, the server's fields.
// None of it is sent to clients.
type Diagnostics struct {
	Message string
	Code    Code
	Chain   []string

	PGCode       string
	PGConstraint string
	PGTable      string
	PGColumn     string
	PGDetail     string
}

// Diagnose walks err once. Both pgx and lib/pq errors are recognised since
// the API pool runs on pgx while goose migrations go through lib/pq.
func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}
	d := Diagnostics{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T", e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.PGCode, d.PGConstraint = pgxErr.Code, pgxErr.ConstraintName
		d.PGTable, d.PGColumn, d.PGDetail = pgxErr.TableName, pgxErr.ColumnName, pgxErr.Detail
	case errors.As(err, &pqErr):
		d.PGCode, d.PGConstraint = string(pqErr.Code), pqErr.Constraint
		d.PGTable, d.PGColumn, d.PGDetail = pqErr.Table, pqErr.Column, pqErr.Detail
	}
	return d
}

// Fields flattens the diagnostics into log fields, leaving out empty ones.
func (d Diagnostics) Fields() map[string]any {
	fields := map[string]any{"error_chain": d.Chain}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	for key, value := range map[string]string{
		"pg_code":       d.PGCode,
		"pg_constraint": d.PGConstraint,
		"pg_table":      d.PGTable,
		"pg_column":     d.PGColumn,
		"pg_detail":     d.PGDetail,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
