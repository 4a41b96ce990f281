package db

import (
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
)

func TestIsUniqueViolation(t *testing.T) {
	pgErr := &pgconn.PgError{Code: "23505", ConstraintName: "tools_slug_key", Detail: "Key (slug)=(graderank) already exists."}
	wrapped := fmt.Errorf("insert tool: %w", pgErr)

	cases := []struct {
		name       string
		err        error
		constraint string
		want       bool
	}{
		{"nil", nil, "", false},
		{"pg any", wrapped, "", true},
		{"pg matching constraint", wrapped, "slug", true},
		{"pg other constraint", wrapped, "website_url", false},
		{"pg value mentions other key", &pgconn.PgError{Code: "23505", ConstraintName: "tools_website_url_key", Detail: "Key (website_url)=(https://slugify.io) already exists."}, "slug", false},
		{"pg other code", &pgconn.PgError{Code: "23503"}, "", false},
		{"sqlite", errors.New("UNIQUE constraint failed: tools.website_url"), "website_url", true},
		{"sqlite other column", errors.New("UNIQUE constraint failed: tools.website_url"), "slug", false},
		{"pq text", errors.New(`pq: duplicate key value violates unique constraint "users_email_key"`), "email", true},
		{"unrelated", errors.New("connection refused"), "", false},
	}
	for _, tc := range cases {
		if got := IsUniqueViolation(tc.err, tc.constraint); got != tc.want {
			t.Fatalf("%s: expected %v, got %v", tc.name, tc.want, got)
		}
	}
}
