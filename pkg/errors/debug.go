package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"
)

// ErrorDump flattens an error chain for structured logging, including any
// Postgres driver details found along the chain.
type ErrorDump struct {
	TopMessage string `json:"top_message"`
	Code       Code   `json:"code,omitempty"`

	Chain []string `json:"chain,omitempty"`

	PGCode       string `json:"pg_code,omitempty"`
	PGConstraint string `json:"pg_constraint,omitempty"`
	PGTable      string `json:"pg_table,omitempty"`
	PGColumn     string `json:"pg_column,omitempty"`
	PGDetail     string `json:"pg_detail,omitempty"`
	PGMessage    string `json:"pg_message,omitempty"`
}

func Dump(err error) ErrorDump {
	if err == nil {
		return ErrorDump{}
	}

	d := ErrorDump{TopMessage: err.Error()}

	if te := As(err); te != nil {
		d.Code = te.Code()
	}

	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgcErr *pgconn.PgError
	if errors.As(err, &pgcErr) {
		d.PGCode = pgcErr.Code
		d.PGConstraint = pgcErr.ConstraintName
		d.PGTable = pgcErr.TableName
		d.PGColumn = pgcErr.ColumnName
		d.PGDetail = pgcErr.Detail
		d.PGMessage = pgcErr.Message
		return d
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		d.PGCode = string(pqErr.Code)
		d.PGConstraint = pqErr.Constraint
		d.PGTable = pqErr.Table
		d.PGColumn = pqErr.Column
		d.PGDetail = pqErr.Detail
		d.PGMessage = pqErr.Message
	}

	return d
}
