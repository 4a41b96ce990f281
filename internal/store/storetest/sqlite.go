// Package storetest provides sqlite backed gateways for tests.
package storetest

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/angelmondragon/aitools-scraper/internal/store"
	"github.com/angelmondragon/aitools-scraper/pkg/db"
)

// Schema mirrors the postgres migrations with sqlite column types.
const Schema = `
CREATE TABLE IF NOT EXISTS users (
  id TEXT PRIMARY KEY,
  company_name TEXT NOT NULL,
  email TEXT NOT NULL UNIQUE,
  password_hash TEXT NOT NULL,
  role TEXT NOT NULL DEFAULT 'user',
  source TEXT NOT NULL DEFAULT 'listed',
  company_logo_url TEXT NOT NULL DEFAULT '',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE TABLE IF NOT EXISTS tools (
  id TEXT PRIMARY KEY,
  name TEXT NOT NULL,
  tagline TEXT NOT NULL,
  description TEXT NOT NULL,
  slug TEXT NOT NULL DEFAULT '',
  website_url TEXT NOT NULL,
  tags TEXT NOT NULL DEFAULT '{}',
  app_store_url TEXT NOT NULL DEFAULT '',
  play_store_url TEXT NOT NULL DEFAULT '',
  logo_url TEXT NOT NULL DEFAULT '',
  status TEXT NOT NULL DEFAULT 'pending',
  is_featured INTEGER NOT NULL DEFAULT 0,
  source TEXT NOT NULL DEFAULT 'submitted',
  submitted_by TEXT,
  total_rating_sum REAL DEFAULT 0,
  number_of_ratings INTEGER DEFAULT 0,
  average_rating REAL DEFAULT 0,
  analytics TEXT,
  comment_stats TEXT,
  media_stats TEXT,
  visual TEXT NOT NULL DEFAULT '{}',
  created_at DATETIME,
  updated_at DATETIME
);
CREATE UNIQUE INDEX IF NOT EXISTS tools_website_url_key ON tools (website_url);
CREATE UNIQUE INDEX IF NOT EXISTS tools_slug_key ON tools (slug) WHERE slug <> '';
`

// OpenSQLite returns a gateway over a private in-memory database seeded with
// Schema, plus the raw connection for fixtures.
func OpenSQLite(t testing.TB) (*store.SQLGateway, *gorm.DB) {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.NewReplacer("/", "_", " ", "_").Replace(t.Name()))
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{SkipDefaultTransaction: true})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	for _, stmt := range strings.Split(Schema, ";") {
		if strings.TrimSpace(stmt) == "" {
			continue
		}
		if err := conn.Exec(stmt).Error; err != nil {
			t.Fatalf("apply schema: %v", err)
		}
	}
	t.Cleanup(func() {
		if sqlDB, err := conn.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return store.NewSQLGateway(db.Wrap(conn), time.Second), conn
}
