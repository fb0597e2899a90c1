// SPDX-License-Identifier: MPL-2.0

// Package audit persists mod admission verdicts in SQLite.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/modgate/modgate/internal/audit/migrations"
	"github.com/modgate/modgate/pkg/modloader"
)

const selectAdmissions = `SELECT id, run_id, path, sha256, module, policy_fingerprint,
		        accepted, unreadable, reasons, scanned_at
		   FROM admissions`

// ErrNotConfigured is returned by methods of a nil or closed Store.
var ErrNotConfigured = errors.New("audit store is not configured")

type (
	// Store is a SQLite-backed modloader.Auditor.
	Store struct {
		db *sql.DB
	}

	// Record is one stored admission.
	Record struct {
		ID int64
		modloader.AuditEntry
	}
)

var _ modloader.Auditor = (*Store)(nil)

// Open opens (creating if needed) the audit database at path and applies
// the embedded migrations.
func Open(ctx context.Context, path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("audit path is required")
	}
	clean := filepath.Clean(path)
	if err := os.MkdirAll(filepath.Dir(clean), 0o755); err != nil {
		return nil, fmt.Errorf("create audit directory: %w", err)
	}

	dsn := clean + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)&_pragma=synchronous(NORMAL)"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(ctx, db, migrations.FS); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the database handle.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}

// Record inserts one admission verdict.
func (s *Store) Record(ctx context.Context, e modloader.AuditEntry) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if s == nil || s.db == nil {
		return ErrNotConfigured
	}
	if strings.TrimSpace(e.RunID) == "" {
		return errors.New("run id is required")
	}
	if strings.TrimSpace(e.Path) == "" {
		return errors.New("path is required")
	}

	reasons := e.Reasons
	if reasons == nil {
		reasons = []string{}
	}
	encoded, err := json.Marshal(reasons)
	if err != nil {
		return fmt.Errorf("encode reasons: %w", err)
	}
	scannedAt := e.ScannedAt
	if scannedAt.IsZero() {
		scannedAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO admissions (
		   run_id, path, sha256, module, policy_fingerprint,
		   accepted, unreadable, reasons, scanned_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.RunID, e.Path, e.SHA256, e.Module, e.PolicyFingerprint,
		e.Accepted, e.Unreadable, string(encoded), scannedAt.UTC().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("insert admission: %w", err)
	}
	return nil
}

// Recent returns up to limit admissions, newest first. A non-positive
// limit returns every row.
func (s *Store) Recent(ctx context.Context, limit int) ([]Record, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if s == nil || s.db == nil {
		return nil, ErrNotConfigured
	}
	if limit <= 0 {
		limit = -1
	}

	rows, err := s.db.QueryContext(ctx,
		selectAdmissions+`
		  ORDER BY scanned_at DESC, id DESC
		  LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query admissions: %w", err)
	}
	defer rows.Close()

	var out []Record
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate admissions: %w", err)
	}
	return out, nil
}

// LastVerdict returns the newest admission recorded for a file digest.
// The boolean is false when the digest was never seen.
func (s *Store) LastVerdict(ctx context.Context, sha256 string) (Record, bool, error) {
	if err := ctx.Err(); err != nil {
		return Record{}, false, err
	}
	if s == nil || s.db == nil {
		return Record{}, false, ErrNotConfigured
	}

	r, err := scanRecord(s.db.QueryRowContext(ctx,
		selectAdmissions+`
		  WHERE sha256 = ?
		  ORDER BY scanned_at DESC, id DESC
		  LIMIT 1`, sha256))
	if errors.Is(err, sql.ErrNoRows) {
		return Record{}, false, nil
	}
	if err != nil {
		return Record{}, false, err
	}
	return r, true, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (Record, error) {
	var (
		r         Record
		reasons   string
		scannedAt int64
	)
	if err := row.Scan(&r.ID, &r.RunID, &r.Path, &r.SHA256, &r.Module, &r.PolicyFingerprint,
		&r.Accepted, &r.Unreadable, &reasons, &scannedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Record{}, err
		}
		return Record{}, fmt.Errorf("scan admission: %w", err)
	}
	if err := json.Unmarshal([]byte(reasons), &r.Reasons); err != nil {
		return Record{}, fmt.Errorf("decode reasons of admission %d: %w", r.ID, err)
	}
	r.ScannedAt = time.UnixMilli(scannedAt).UTC()
	return r, nil
}
