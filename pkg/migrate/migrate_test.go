package migrate

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"testing/fstest"
	"time"
)

func TestEmbeddedMigrationsAreValid(t *testing.T) {
	fsys, err := Source("")
	if err != nil {
		t.Fatalf("Source: %v", err)
	}
	if err := ValidateFS(fsys); err != nil {
		t.Fatalf("ValidateFS: %v", err)
	}
	if _, err := fsys.Open("20260301120000_create_users.sql"); err != nil {
		t.Fatalf("expected users migration embedded: %v", err)
	}
}

func TestValidateFSRejects(t *testing.T) {
	up := "-- +goose Up\nSELECT 1;\n-- +goose Down\nSELECT 1;\n"
	cases := map[string]fstest.MapFS{
		"bad name": {
			"create_tools.sql": {Data: []byte(up)},
		},
		"duplicate version": {
			"20260101000000_a.sql": {Data: []byte(up)},
			"20260101000000_b.sql": {Data: []byte(up)},
		},
		"missing down": {
			"20260101000000_a.sql": {Data: []byte("-- +goose Up\nSELECT 1;\n")},
		},
	}
	for name, fsys := range cases {
		if err := ValidateFS(fsys); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	ok := fstest.MapFS{
		"20260101000000_a.sql": {Data: []byte(up)},
		"README.md":            {Data: []byte("notes")},
	}
	if err := ValidateFS(ok); err != nil {
		t.Fatalf("expected valid fs, got %v", err)
	}
}

func TestCreateSQLMigration(t *testing.T) {
	dir := t.TempDir()
	now := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)

	path, err := createAt(dir, "Add Tool Ratings!", now)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if filepath.Base(path) != "20260302093000_add_tool_ratings.sql" {
		t.Fatalf("unexpected file name %q", filepath.Base(path))
	}
	body, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if !strings.Contains(string(body), "-- +goose Down") {
		t.Fatalf("template missing down section:\n%s", body)
	}
	if err := ValidateDir(dir); err != nil {
		t.Fatalf("created migration must validate: %v", err)
	}

	if _, err := createAt(dir, "add tool ratings", now); err == nil {
		t.Fatal("expected existing file to be kept")
	}
	if _, err := createAt(dir, "!!!", now); err == nil {
		t.Fatal("expected empty name to fail")
	}
}

func TestSourceRejectsMissingDir(t *testing.T) {
	if _, err := Source(filepath.Join(t.TempDir(), "nope")); err == nil {
		t.Fatal("expected missing dir to fail")
	}
}
