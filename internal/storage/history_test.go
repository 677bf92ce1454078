/*
 * Copyright (c) 2025 by Alexander Drost, Oldenburg, Germany.
 * This file is licensed to you under the Apache License, Version 2.0 (the "License"); you may not use this file except in compliance with the License.  You may obtain a copy of the License at
 *   http://www.apache.org/licenses/LICENSE-2.0
 * Unless required by applicable law or agreed to in writing, software distributed under the License is distributed on an
 * "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.  See the License for the specific language governing permissions and limitations under the License.
 */

package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func openTemp(t *testing.T) (*History, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "sub", "history.db")
	h, err := Open(context.Background(), path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = h.Close() })
	return h, path
}

func sampleEntry(title string) Entry {
	return Entry{
		Title:          title,
		Author:         "someone",
		TitlePosition:  "bottom_center",
		AuthorPosition: "top_center",
		Blend:          "overlay",
		Alpha:          0.8,
		LineLength:     20,
		Format:         "png",
		SourceFormat:   "jpeg",
		Width:          600,
		Height:         900,
		Bytes:          12345,
		SHA256:         "abc",
		ElapsedMs:      42,
	}
}

func TestHistory_RecordAndGet(t *testing.T) {
	h, path := openTemp(t)
	if h.Driver() != "sqlite" {
		t.Fatalf("driver = %q", h.Driver())
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("db file not created: %v", err)
	}
	ctx := context.Background()
	at := time.Date(2025, 3, 1, 12, 0, 0, 500, time.UTC)
	e := sampleEntry("First")
	e.CreatedAt = at
	id, err := h.Record(ctx, e)
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := h.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.ID != id || !got.CreatedAt.Equal(at) || got.Status != StatusOK {
		t.Fatalf("unexpected entry header: %+v", got)
	}
	e.ID, e.Status = id, StatusOK
	got.CreatedAt = e.CreatedAt
	if got != e {
		t.Fatalf("round trip mismatch:\n got %+v\nwant %+v", got, e)
	}
	if _, err := h.Get(ctx, id+100); !errors.Is(err, ErrNotFound) {
		t.Fatalf("missing id: err = %v", err)
	}
}

func TestHistory_RecentNewestFirst(t *testing.T) {
	h, _ := openTemp(t)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		if _, err := h.Record(ctx, sampleEntry(fmt.Sprintf("t%d", i))); err != nil {
			t.Fatalf("Record %d: %v", i, err)
		}
	}
	failed := sampleEntry("broken")
	failed.Status, failed.Error = StatusFailed, "decode image: bad"
	if _, err := h.Record(ctx, failed); err != nil {
		t.Fatalf("Record failed entry: %v", err)
	}
	got, err := h.Recent(ctx, 3)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(got) != 3 || got[0].Title != "broken" || got[1].Title != "t4" || got[2].Title != "t3" {
		t.Fatalf("Recent order wrong: %+v", got)
	}
	if got[0].Status != StatusFailed || got[0].Error == "" {
		t.Fatalf("failure not recorded: %+v", got[0])
	}
	all, err := h.Recent(ctx, 0)
	if err != nil || len(all) != 6 {
		t.Fatalf("Recent(0) = %d entries, %v", len(all), err)
	}
}

func TestHistory_ReopenKeepsData(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	ctx := context.Background()
	h, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	if _, err := h.Record(ctx, sampleEntry("kept")); err != nil {
		t.Fatalf("Record: %v", err)
	}
	_ = h.Close()

	h2, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer h2.Close()
	got, err := h2.Recent(ctx, 10)
	if err != nil || len(got) != 1 || got[0].Title != "kept" {
		t.Fatalf("after reopen: %+v, %v", got, err)
	}
}

// TestMigrations_UpgradeV1ToV2 opens a schema-1 database and expects the
// sha256 column and indexes to be added.
func TestMigrations_UpgradeV1ToV2(t *testing.T) {
	path := filepath.Join(t.TempDir(), "history.db")
	dsn := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(2000)", filepath.ToSlash(path))
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	v1 := (&History{d: dialectSQLite}).migration(1)
	stmts := append([]string{
		`CREATE TABLE version (id INTEGER PRIMARY KEY CHECK(id=1), schema INTEGER NOT NULL, app TEXT, created_at TEXT NOT NULL, updated_at TEXT NOT NULL);`,
		`INSERT INTO version(id, schema, app, created_at, updated_at) VALUES(1, 1, 'test', '2020-01-01T00:00:00Z', '2020-01-01T00:00:00Z');`,
	}, v1...)
	for _, q := range stmts {
		if _, err := db.ExecContext(ctx, q); err != nil {
			t.Fatalf("seed v1 schema: %v (q=%s)", err, q)
		}
	}
	_ = db.Close()

	h, err := Open(ctx, path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	var schema int
	if err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&schema); err != nil {
		t.Fatalf("read schema: %v", err)
	}
	if schema != schemaVersion {
		t.Fatalf("schema = %d, want %d", schema, schemaVersion)
	}
	var n int
	if err := h.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM sqlite_master WHERE type='index' AND name='idx_renders_sha256'`).Scan(&n); err != nil || n != 1 {
		t.Fatalf("sha256 index missing: n=%d err=%v", n, err)
	}
	if _, err := h.Record(ctx, sampleEntry("after migration")); err != nil {
		t.Fatalf("Record after migration: %v", err)
	}
}

func TestRebind(t *testing.T) {
	q := `SELECT a FROM t WHERE b=? AND c=?`
	if got := dialectSQLite.rebind(q); got != q {
		t.Fatalf("sqlite rebind changed query: %s", got)
	}
	if got := dialectPostgres.rebind(q); got != `SELECT a FROM t WHERE b=$1 AND c=$2` {
		t.Fatalf("postgres rebind = %s", got)
	}
}

func TestIsPostgresDSN(t *testing.T) {
	for dsn, want := range map[string]bool{
		"postgres://u:p@localhost/db":   true,
		" PostgreSQL://localhost/db":    true,
		"/var/lib/bookcover/history.db": false,
		"history.db":                    false,
	} {
		if got := IsPostgresDSN(dsn); got != want {
			t.Fatalf("IsPostgresDSN(%q) = %v", dsn, got)
		}
	}
}

func TestOpenRequiresDSN(t *testing.T) {
	if _, err := Open(context.Background(), "  "); err == nil {
		t.Fatalf("expected error for empty dsn")
	}
}

// TestHistory_Postgres runs against a live server when BKC_TEST_PG_DSN is set.
func TestHistory_Postgres(t *testing.T) {
	dsn := os.Getenv("BKC_TEST_PG_DSN")
	if dsn == "" {
		t.Skip("BKC_TEST_PG_DSN not set")
	}
	ctx := context.Background()
	h, err := Open(ctx, dsn)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer h.Close()
	if h.Driver() != "postgres" {
		t.Fatalf("driver = %q", h.Driver())
	}
	id, err := h.Record(ctx, sampleEntry("pg"))
	if err != nil {
		t.Fatalf("Record: %v", err)
	}
	got, err := h.Get(ctx, id)
	if err != nil || got.Title != "pg" {
		t.Fatalf("Get: %+v, %v", got, err)
	}
}
