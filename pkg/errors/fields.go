package errors

import (
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err into structured log fields: its message, code,
// unwrap chain and, for Postgres failures from the SQL cart store, the
// server's error details.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}

	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
		fields["retryable"] = MetadataFor(typed.Code()).Retryable
	}

	var chain []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T: %v", e, e))
	}
	fields["error_chain"] = chain

	for k, v := range postgresFields(err) {
		fields[k] = v
	}
	return fields
}

func postgresFields(err error) map[string]string {
	if pgErr := (*pgconn.PgError)(nil); errors.As(err, &pgErr) {
		return map[string]string{
			"pg_code":       pgErr.Code,
			"pg_constraint": pgErr.ConstraintName,
			"pg_table":      pgErr.TableName,
			"pg_detail":     pgErr.Detail,
		}
	}
	if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) {
		return map[string]string{
			"pg_code":       string(pqErr.Code),
			"pg_constraint": pqErr.Constraint,
			"pg_table":      pqErr.Table,
			"pg_detail":     pqErr.Detail,
		}
	}
	return nil
}
