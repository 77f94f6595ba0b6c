package realtime

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"unicode/utf8"
)

// Set replaces the subtree at path with value. A nil value, JSON null, or an
// empty object removes the subtree.
func (d *DB) Set(ctx context.Context, path string, value any) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("set %s: marshal: %w", p, err)
	}

	leaves := make(map[string][]byte)
	if err := flatten(p, raw, leaves); err != nil {
		return fmt.Errorf("set %s: %w", p, err)
	}

	if err := d.replace(ctx, p, leaves); err != nil {
		return fmt.Errorf("set %s: %w", p, err)
	}
	return nil
}

// Push writes value under a new child key of path and returns the key.
func (d *DB) Push(ctx context.Context, path string, value any) (string, error) {
	p, err := cleanPath(path)
	if err != nil {
		return "", err
	}

	key := d.keys.Generate()
	if err := d.Set(ctx, child(p, key), value); err != nil {
		return "", fmt.Errorf("push %s: %w", p, err)
	}
	return key, nil
}

// Remove deletes the subtree at path. Removing a missing path is a no-op.
func (d *DB) Remove(ctx context.Context, path string) error {
	p, err := cleanPath(path)
	if err != nil {
		return err
	}

	if err := d.replace(ctx, p, nil); err != nil {
		return fmt.Errorf("remove %s: %w", p, err)
	}
	return nil
}

// replace deletes the subtree at p and any leaf ancestors, then inserts
// leaves, in one transaction. Listeners are notified after commit.
func (d *DB) replace(ctx context.Context, p string, leaves map[string][]byte) error {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	// Taking the revision first holds the write lock for the whole
	// transaction, so revisions commit in order across processes.
	var rev int64
	if err := tx.QueryRowContext(ctx, "UPDATE revision SET rev = rev + 1 WHERE id = 1 RETURNING rev").Scan(&rev); err != nil {
		return fmt.Errorf("next revision: %w", err)
	}

	if err := d.deleteSubtree(ctx, tx, p); err != nil {
		return err
	}

	for _, a := range ancestors(p) {
		if _, err := tx.ExecContext(ctx, d.Rebind("DELETE FROM nodes WHERE path = ?"), a); err != nil {
			return fmt.Errorf("delete ancestor %s: %w", a, err)
		}
	}

	for leafPath, value := range leaves {
		_, err := tx.ExecContext(ctx, d.Rebind(`
			INSERT INTO nodes (path, value, rev)
			VALUES (?, ?, ?)
			ON CONFLICT (path) DO UPDATE SET value = excluded.value, rev = excluded.rev
		`), leafPath, string(value), rev)
		if err != nil {
			return fmt.Errorf("insert %s: %w", leafPath, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	d.clock.Observe(rev)

	slog.Debug("realtime write", "path", p, "leaves", len(leaves), "rev", rev)
	d.hub.notify(p)
	return nil
}

func (d *DB) deleteSubtree(ctx context.Context, tx *sql.Tx, p string) error {
	if p == "/" {
		if _, err := tx.ExecContext(ctx, "DELETE FROM nodes"); err != nil {
			return fmt.Errorf("delete subtree: %w", err)
		}
		return nil
	}

	prefix := descendantPrefix(p)
	_, err := tx.ExecContext(ctx, d.Rebind(`DELETE FROM nodes WHERE path = ? OR substr(path, 1, ?) = ?`),
		p, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return fmt.Errorf("delete subtree: %w", err)
	}
	return nil
}

// flatten splits raw into one entry per leaf under p. Objects recurse;
// scalars and arrays are leaves; null and {} produce nothing.
func flatten(p string, raw json.RawMessage, out map[string][]byte) error {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}

	if trimmed[0] != '{' {
		out[p] = append([]byte(nil), trimmed...)
		return nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(trimmed, &obj); err != nil {
		return fmt.Errorf("decode object at %s: %w", p, err)
	}
	for k, v := range obj {
		if err := validateKey(k); err != nil {
			return fmt.Errorf("%w: %s: %v", ErrInvalidPath, p, err)
		}
		if err := flatten(child(p, k), v, out); err != nil {
			return err
		}
	}
	return nil
}
