package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
)

// LogFields flattens err for a structured log line: message, code, the
// unwrap chain and, for postgres errors from pgx or lib/pq, the server
// fields. Empty values are left out.
func LogFields(err error) map[string]any {
	if err == nil {
		return map[string]any{}
	}
	fields := map[string]any{"error": err.Error()}
	if typed := As(err); typed != nil {
		fields["error_code"] = string(typed.Code())
	}

	var chain []string
	for e := err; e != nil; e = stdErrors.Unwrap(e) {
		chain = append(chain, fmt.Sprintf("%T", e))
	}
	fields["error_chain"] = chain

	put := func(key, value string) {
		if value != "" {
			fields[key] = value
		}
	}
	var pgxErr *pgconn.PgError
	var pqErr *pq.Error
	switch {
	case stdErrors.As(err, &pgxErr):
		put("pg_code", pgxErr.Code)
		put("pg_constraint", pgxErr.ConstraintName)
		put("pg_table", pgxErr.TableName)
		put("pg_detail", pgxErr.Detail)
	case stdErrors.As(err, &pqErr):
		put("pg_code", string(pqErr.Code))
		put("pg_constraint", pqErr.Constraint)
		put("pg_table", pqErr.Table)
		put("pg_detail", pqErr.Detail)
	}
	return fields
}
