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
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "bookcover/internal/log"
	"bookcover/internal/version"

	_ "github.com/jackc/pgx/v5/stdlib"
	// Pure-Go SQLite driver (CGO-free)
	_ "modernc.org/sqlite"
)

const (
	// schemaVersion tracks the history schema.
	// Bump this when you perform breaking schema changes and add migrations.
	schemaVersion = 2
)

// ErrNotFound is returned by Get for an unknown id.
var ErrNotFound = errors.New("history entry not found")

// Status of a recorded render.
const (
	StatusOK     = "ok"
	StatusFailed = "failed"
)

// Entry is one render attempt.
type Entry struct {
	ID             int64
	CreatedAt      time.Time
	Title          string
	Author         string
	TitlePosition  string
	AuthorPosition string
	Blend          string
	Alpha          float64
	LineLength     int
	Format         string
	SourceFormat   string
	Width          int
	Height         int
	Bytes          int
	SHA256         string
	ElapsedMs      int64
	Status         string
	Error          string
}

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

func (d dialect) String() string {
	if d == dialectPostgres {
		return "postgres"
	}
	return "sqlite"
}

// rebind rewrites '?' placeholders to $n for PostgreSQL.
func (d dialect) rebind(q string) string {
	if d != dialectPostgres {
		return q
	}
	var b strings.Builder
	b.Grow(len(q) + 8)
	n := 0
	for i := 0; i < len(q); i++ {
		if q[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(q[i])
	}
	return b.String()
}

// History is a render log backed by database/sql.
type History struct {
	db *sql.DB
	d  dialect
}

// IsPostgresDSN reports whether dsn selects the PostgreSQL backend.
func IsPostgresDSN(dsn string) bool {
	s := strings.ToLower(strings.TrimSpace(dsn))
	return strings.HasPrefix(s, "postgres://") || strings.HasPrefix(s, "postgresql://")
}

// Open connects to dsn, creating the schema and running migrations.
// A postgres:// URL uses pgx; anything else is a SQLite file path whose
// directory is created if needed.
func Open(ctx context.Context, dsn string) (*History, error) {
	l := applog.WithOperation(applog.WithComponent("storage"), "history_open")
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, errors.New("history dsn is required")
	}

	var (
		db  *sql.DB
		d   dialect
		err error
	)
	if IsPostgresDSN(dsn) {
		d = dialectPostgres
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			return nil, fmt.Errorf("open postgres: %w", err)
		}
	} else {
		d = dialectSQLite
		if err := os.MkdirAll(filepath.Dir(dsn), 0o755); err != nil {
			return nil, fmt.Errorf("create history dir: %w", err)
		}
		// Use a URI with shared cache and set busy timeout. Convert to forward slashes for SQLite URI.
		uri := fmt.Sprintf("file:%s?cache=shared&_pragma=busy_timeout(5000)", filepath.ToSlash(dsn))
		db, err = sql.Open("sqlite", uri)
		if err != nil {
			return nil, fmt.Errorf("open sqlite: %w", err)
		}
		// Set reasonable connection pool limits for embedded usage.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}
	l = l.With(slog.String("driver", d.String()))

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		l.Error("history ping failed", slog.Any("err", err))
		return nil, fmt.Errorf("connect history db: %w", err)
	}
	if d == dialectSQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA journal_mode=WAL;"); err != nil {
			_ = db.Close()
			l.Error("enable WAL failed", slog.Any("err", err))
			return nil, fmt.Errorf("enable WAL: %w", err)
		}
	}

	h := &History{db: db, d: d}
	if err := h.ensureVersion(ctx); err != nil {
		_ = db.Close()
		l.Error("ensure version failed", slog.Any("err", err))
		return nil, err
	}
	if err := h.migrate(ctx); err != nil {
		_ = db.Close()
		l.Error("run migrations failed", slog.Any("err", err))
		return nil, err
	}
	l.Debug("history ready")
	return h, nil
}

// Driver names the backend in use: "sqlite" or "postgres".
func (h *History) Driver() string { return h.d.String() }

// Close releases the database.
func (h *History) Close() error { return h.db.Close() }

func (h *History) exec(ctx context.Context, q string, args ...any) (sql.Result, error) {
	return h.db.ExecContext(ctx, h.d.rebind(q), args...)
}

func (h *History) ensureVersion(ctx context.Context) error {
	ddl := `CREATE TABLE IF NOT EXISTS version (
		id          INTEGER PRIMARY KEY CHECK(id=1),
		schema      INTEGER NOT NULL,
		app         TEXT,
		created_at  TEXT NOT NULL,
		updated_at  TEXT NOT NULL
	)`
	if _, err := h.exec(ctx, ddl); err != nil {
		return fmt.Errorf("create version table: %w", err)
	}
	now := time.Now().UTC().Format(time.RFC3339)
	var cur int
	err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur)
	switch {
	case errors.Is(err, sql.ErrNoRows):
		// fresh database: migrations start from zero
		if _, err := h.exec(ctx, `INSERT INTO version (id, schema, app, created_at, updated_at) VALUES(1, 0, ?, ?, ?)`, version.String(), now, now); err != nil {
			return fmt.Errorf("insert version: %w", err)
		}
	case err != nil:
		return fmt.Errorf("read version: %w", err)
	default:
		if _, err := h.exec(ctx, `UPDATE version SET app=?, updated_at=? WHERE id=1`, version.String(), now); err != nil {
			return fmt.Errorf("update version: %w", err)
		}
	}
	return nil
}

// migration returns the statements that move the schema to step.
func (h *History) migration(step int) []string {
	switch step {
	case 1:
		id := "id INTEGER PRIMARY KEY AUTOINCREMENT"
		if h.d == dialectPostgres {
			id = "id BIGSERIAL PRIMARY KEY"
		}
		return []string{`CREATE TABLE IF NOT EXISTS renders (
			` + id + `,
			created_at      TEXT    NOT NULL,
			title           TEXT    NOT NULL,
			author          TEXT    NOT NULL,
			title_position  TEXT    NOT NULL,
			author_position TEXT    NOT NULL,
			blend           TEXT    NOT NULL,
			alpha           DOUBLE PRECISION NOT NULL,
			line_length     INTEGER NOT NULL,
			format          TEXT    NOT NULL,
			source_format   TEXT    NOT NULL,
			width           INTEGER NOT NULL,
			height          INTEGER NOT NULL,
			bytes           INTEGER NOT NULL,
			elapsed_ms      BIGINT  NOT NULL,
			status          TEXT    NOT NULL,
			error           TEXT    NOT NULL
		)`}
	case 2:
		// output hash for spotting identical re-renders
		return []string{
			`ALTER TABLE renders ADD COLUMN sha256 TEXT NOT NULL DEFAULT ''`,
			`CREATE INDEX IF NOT EXISTS idx_renders_created ON renders(created_at)`,
			`CREATE INDEX IF NOT EXISTS idx_renders_sha256 ON renders(sha256)`,
		}
	}
	return nil
}

// migrate applies incremental schema migrations up to schemaVersion.
func (h *History) migrate(ctx context.Context) error {
	var cur int
	if err := h.db.QueryRowContext(ctx, `SELECT schema FROM version WHERE id=1`).Scan(&cur); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	for cur < schemaVersion {
		next := cur + 1
		tx, err := h.db.BeginTx(ctx, nil)
		if err != nil {
			return fmt.Errorf("begin migration %d: %w", next, err)
		}
		for _, q := range h.migration(next) {
			if _, err := tx.ExecContext(ctx, q); err != nil {
				_ = tx.Rollback()
				return fmt.Errorf("migration %d stmt failed: %w", next, err)
			}
		}
		if _, err := tx.ExecContext(ctx, h.d.rebind(`UPDATE version SET schema=?, updated_at=? WHERE id=1`), next, time.Now().UTC().Format(time.RFC3339)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("migration %d update version: %w", next, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("migration %d commit: %w", next, err)
		}
		cur = next
	}
	return nil
}

const entryColumns = `id, created_at, title, author, title_position, author_position, blend, alpha,
	line_length, format, source_format, width, height, bytes, sha256, elapsed_ms, status, error`

// Record stores e and returns its id. A zero CreatedAt is set to now and an
// empty Status to StatusOK.
func (h *History) Record(ctx context.Context, e Entry) (int64, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now()
	}
	if e.Status == "" {
		e.Status = StatusOK
	}
	q := `INSERT INTO renders (created_at, title, author, title_position, author_position, blend, alpha,
		line_length, format, source_format, width, height, bytes, sha256, elapsed_ms, status, error)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?) RETURNING id`
	var id int64
	err := h.db.QueryRowContext(ctx, h.d.rebind(q),
		e.CreatedAt.UTC().Format(time.RFC3339Nano), e.Title, e.Author, e.TitlePosition, e.AuthorPosition,
		e.Blend, e.Alpha, e.LineLength, e.Format, e.SourceFormat, e.Width, e.Height, e.Bytes, e.SHA256,
		e.ElapsedMs, e.Status, e.Error,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("insert render: %w", err)
	}
	return id, nil
}

// Recent returns up to n entries, newest first. n <= 0 means 20.
func (h *History) Recent(ctx context.Context, n int) ([]Entry, error) {
	if n <= 0 {
		n = 20
	}
	rows, err := h.db.QueryContext(ctx, h.d.rebind(`SELECT `+entryColumns+` FROM renders ORDER BY id DESC LIMIT ?`), n)
	if err != nil {
		return nil, fmt.Errorf("query renders: %w", err)
	}
	defer func() { _ = rows.Close() }()
	var out []Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate renders: %w", err)
	}
	return out, nil
}

// Get returns the entry with the given id.
func (h *History) Get(ctx context.Context, id int64) (Entry, error) {
	row := h.db.QueryRowContext(ctx, h.d.rebind(`SELECT `+entryColumns+` FROM renders WHERE id=?`), id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Entry{}, fmt.Errorf("%d: %w", id, ErrNotFound)
	}
	return e, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(s scanner) (Entry, error) {
	var (
		e  Entry
		ts string
	)
	err := s.Scan(&e.ID, &ts, &e.Title, &e.Author, &e.TitlePosition, &e.AuthorPosition, &e.Blend, &e.Alpha,
		&e.LineLength, &e.Format, &e.SourceFormat, &e.Width, &e.Height, &e.Bytes, &e.SHA256, &e.ElapsedMs,
		&e.Status, &e.Error)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Entry{}, err
		}
		return Entry{}, fmt.Errorf("scan render: %w", err)
	}
	if e.CreatedAt, err = time.Parse(time.RFC3339Nano, ts); err != nil {
		return Entry{}, fmt.Errorf("parse created_at %q: %w", ts, err)
	}
	return e, nil
}
