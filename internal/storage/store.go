// Package storage persists the navigation tree and its change journal in a
// SQLite file.
package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"github.com/gyaneshwarpardhi/navtree/internal/event"
	"github.com/gyaneshwarpardhi/navtree/internal/tree"
)

const (
	driverName  = "sqlite"
	maxAttempts = 5
)

// Store is a SQLite-backed snapshot store. Every save replaces the node
// table and appends one change record in the same transaction.
type Store struct {
	path string
	db   *sql.DB
	mu   sync.Mutex
}

// Open creates or opens the database at path and migrates it.
func Open(ctx context.Context, path string) (*Store, error) {
	cleanPath := strings.TrimSpace(path)
	if cleanPath == "" {
		return nil, fmt.Errorf("store path must not be empty")
	}
	if info, err := os.Stat(cleanPath); err == nil && info.IsDir() {
		return nil, fmt.Errorf("store path %q is a directory, expected file", cleanPath)
	}
	dir := filepath.Dir(cleanPath)
	if dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create store directory %q: %w", dir, err)
		}
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(2000)&_pragma=journal_mode(WAL)&_pragma=foreign_keys(ON)", cleanPath)
	db, err := sql.Open(driverName, dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store %q: %w", cleanPath, err)
	}
	db.SetMaxOpenConns(1)
	db.SetConnMaxLifetime(0)
	db.SetConnMaxIdleTime(0)

	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("ping sqlite store %q: %w", cleanPath, err)
	}
	if err := EnsureSchema(ctx, db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("initialize sqlite schema %q: %w", cleanPath, err)
	}
	return &Store{path: cleanPath, db: db}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Ping checks that the database is reachable.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// SaveSnapshot replaces the stored tree with nodes and journals change.
func (s *Store) SaveSnapshot(ctx context.Context, nodes []*tree.Node, change *event.Change) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.withRetry("save snapshot", func() error {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return err
		}
		defer func() { _ = tx.Rollback() }()

		if _, err := tx.ExecContext(ctx, `DELETE FROM nodes`); err != nil {
			return err
		}
		stmt, err := tx.PrepareContext(ctx, `
INSERT INTO nodes (
  id, name, slug, parent_id, visible, sibling_order, is_root,
  menu_level, lft, rgt, content_kind, content
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, n := range nodes {
			kind, payload, err := tree.EncodeContent(n.Content)
			if err != nil {
				return fmt.Errorf("node %s: %w", n.ID, err)
			}
			var parent, content any
			if n.HasParent() {
				parent = int64(n.ParentID)
			}
			if payload != nil {
				content = string(payload)
			}
			if _, err := stmt.ExecContext(ctx,
				int64(n.ID), n.Name, n.Slug, parent, n.Visible, n.SiblingOrder, n.IsRoot,
				n.MenuLevel, n.Left, n.Right, string(kind), content,
			); err != nil {
				return fmt.Errorf("insert node %s: %w", n.ID, err)
			}
		}

		if change != nil {
			if _, err := tx.ExecContext(ctx, `
INSERT INTO changes (id, version, op, node_id, name, detail, at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)`,
				change.ID, int64(change.Version), string(change.Op), change.NodeID,
				change.Name, change.Detail, change.At.UTC().Format(time.RFC3339Nano),
			); err != nil {
				return fmt.Errorf("insert change: %w", err)
			}
		}
		return tx.Commit()
	})
}

// LoadTree returns the stored nodes as a tree store. Intervals and levels
// are returned as saved.
func (s *Store) LoadTree(ctx context.Context) (*tree.Store, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var rows *sql.Rows
	err := s.withRetry("load nodes", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, `
SELECT id, name, slug, parent_id, visible, sibling_order, is_root,
       menu_level, lft, rgt, content_kind, content
FROM nodes ORDER BY lft, sibling_order, id`)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := tree.NewStore()
	for rows.Next() {
		var (
			id      int64
			parent  sql.NullInt64
			kind    string
			content sql.NullString
			n       tree.Node
		)
		if err := rows.Scan(
			&id, &n.Name, &n.Slug, &parent, &n.Visible, &n.SiblingOrder, &n.IsRoot,
			&n.MenuLevel, &n.Left, &n.Right, &kind, &content,
		); err != nil {
			return nil, fmt.Errorf("scan node: %w", err)
		}
		n.ID = tree.ID(id)
		if parent.Valid {
			n.ParentID = tree.ID(parent.Int64)
		}
		var payload []byte
		if content.Valid {
			payload = []byte(content.String)
		}
		if n.Content, err = tree.DecodeContent(tree.Kind(kind), payload); err != nil {
			return nil, fmt.Errorf("node %d: %w", id, err)
		}
		out.Put(&n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate nodes: %w", err)
	}
	return out, nil
}

// Changes returns up to limit journal entries, newest first. A non-positive
// limit returns all of them.
func (s *Store) Changes(ctx context.Context, limit int) ([]event.Change, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	query := `SELECT id, version, op, node_id, name, detail, at_utc FROM changes ORDER BY version DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	var rows *sql.Rows
	err := s.withRetry("load changes", func() error {
		var qErr error
		rows, qErr = s.db.QueryContext(ctx, query, args...)
		return qErr
	})
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	changes := make([]event.Change, 0)
	for rows.Next() {
		var (
			c       event.Change
			op      string
			version int64
			at      string
		)
		if err := rows.Scan(&c.ID, &version, &op, &c.NodeID, &c.Name, &c.Detail, &at); err != nil {
			return nil, fmt.Errorf("scan change: %w", err)
		}
		c.Op = event.Op(op)
		c.Version = uint64(version)
		if c.At, err = time.Parse(time.RFC3339Nano, at); err != nil {
			return nil, fmt.Errorf("change %s: parse time: %w", c.ID, err)
		}
		changes = append(changes, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate changes: %w", err)
	}
	return changes, nil
}

// LatestVersion returns the version of the last journaled change, or zero.
func (s *Store) LatestVersion(ctx context.Context) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var v int64
	err := s.db.QueryRowContext(ctx, `SELECT COALESCE(MAX(version), 0) FROM changes`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("latest version: %w", err)
	}
	return uint64(v), nil
}

func (s *Store) withRetry(op string, fn func() error) error {
	var lastErr error
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		err := fn()
		if err == nil {
			return nil
		}
		lastErr = err
		if !isLockError(err) || attempt == maxAttempts {
			break
		}
		time.Sleep(time.Duration(attempt*25) * time.Millisecond)
	}
	return fmt.Errorf("%s: %w", op, lastErr)
}

func isLockError(err error) bool {
	if err == nil || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "database is locked") || strings.Contains(msg, "busy")
}
