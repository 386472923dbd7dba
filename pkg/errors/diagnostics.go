package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// Diagnostics is the log-only view of a failure: its code, the unwrap chain
// and whatever the Postgres driver reported. None of it reaches a response.
type Diagnostics struct {
	Message    string
	Code       Code
	Chain      []string
	SQLState   string
	Condition  string
	Constraint string
	Table      string
	Column     string
	Detail     string
	DBMessage  string
}

// Conditions the storefront's write paths can hit; other states log the raw
// SQLSTATE only.
var sqlStateConditions = map[string]string{
	"23505": "unique_violation",
	"23503": "foreign_key_violation",
	"23514": "check_violation",
	"40001": "serialization_failure",
	"40P01": "deadlock_detected",
	"55P03": "lock_not_available",
	"57014": "query_canceled",
}

// Diagnose inspects err for the storefront code and either pgx or lib/pq
// driver detail.
func Diagnose(err error) Diagnostics {
	if err == nil {
		return Diagnostics{}
	}

	d := Diagnostics{Message: err.Error()}
	if typed := As(err); typed != nil {
		d.Code = typed.Code()
	}
	for e := err; e != nil; e = errors.Unwrap(e) {
		d.Chain = append(d.Chain, fmt.Sprintf("%T: %v", e, e))
	}

	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case errors.As(err, &pgxErr):
		d.SQLState = pgxErr.Code
		d.Constraint = pgxErr.ConstraintName
		d.Table = pgxErr.TableName
		d.Column = pgxErr.ColumnName
		d.Detail = pgxErr.Detail
		d.DBMessage = pgxErr.Message
	case errors.As(err, &pqErr):
		d.SQLState = string(pqErr.Code)
		d.Constraint = pqErr.Constraint
		d.Table = pqErr.Table
		d.Column = pqErr.Column
		d.Detail = pqErr.Detail
		d.DBMessage = pqErr.Message
	}
	d.Condition = sqlStateConditions[d.SQLState]
	return d
}

// Transient reports whether the same transaction may succeed on retry, as
// with a checkout that lost a lock race.
func (d Diagnostics) Transient() bool {
	switch d.Condition {
	case "serialization_failure", "deadlock_detected", "lock_not_available":
		return true
	}
	return false
}

// LogFields flattens the diagnostics for structured logging, leaving out
// empty values.
func (d Diagnostics) LogFields() map[string]any {
	fields := map[string]any{"error": d.Message}
	if d.Code != "" {
		fields["error_code"] = string(d.Code)
	}
	if len(d.Chain) > 0 {
		fields["error_chain"] = d.Chain
	}
	if d.SQLState == "" {
		return fields
	}
	fields["sql_state"] = d.SQLState
	fields["db_transient"] = d.Transient()
	for key, value := range map[string]string{
		"db_condition":  d.Condition,
		"db_constraint": d.Constraint,
		"db_table":      d.Table,
		"db_column":     d.Column,
		"db_detail":     d.Detail,
		"db_message":    d.DBMessage,
	} {
		if value != "" {
			fields[key] = value
		}
	}
	return fields
}
