package viewstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	_ "github.com/mattn/go-sqlite3"

	"github.com/gcbaptista/quicksearch/index"
)

// SQLite stores index rows in a SQLite database, one table shared by all
// identities. Each UpsertPostings batch commits in a single transaction
// together with its checkpoint.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens or creates a SQLite database at dbPath and initializes the schema.
// Parent directories are created if they do not exist.
func NewSQLite(dbPath string) (*SQLite, error) {
	if dir := filepath.Dir(dbPath); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to enable WAL: %w", err)
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLite{db: db}, nil
}

func initSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS index_rows (
		identity TEXT NOT NULL,
		row_key TEXT NOT NULL,
		doc_id TEXT NOT NULL,
		field INTEGER NOT NULL,
		norms TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_rows_key ON index_rows(identity, row_key, doc_id, field);
	CREATE INDEX IF NOT EXISTS idx_rows_doc ON index_rows(identity, doc_id);

	CREATE TABLE IF NOT EXISTS index_checkpoints (
		identity TEXT PRIMARY KEY,
		seq INTEGER NOT NULL
	);
	`
	_, err := db.Exec(schema)
	return err
}

// UpsertPostings replaces the rows of every document in batch and stores the checkpoint.
func (s *SQLite) UpsertPostings(ctx context.Context, identity string, batch []index.DocRows, checkpoint uint64) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	del, err := tx.PrepareContext(ctx, `DELETE FROM index_rows WHERE identity = ? AND doc_id = ?`)
	if err != nil {
		return err
	}
	defer del.Close()

	ins, err := tx.PrepareContext(ctx,
		`INSERT INTO index_rows (identity, row_key, doc_id, field, norms) VALUES (?, ?, ?, ?, ?)`,
	)
	if err != nil {
		return err
	}
	defer ins.Close()

	for _, doc := range batch {
		if _, err := del.ExecContext(ctx, identity, doc.ID); err != nil {
			return err
		}
		for _, row := range doc.Rows {
			var norms sql.NullString
			if row.Norms != nil {
				data, err := json.Marshal(row.Norms)
				if err != nil {
					return fmt.Errorf("failed to marshal norms: %w", err)
				}
				norms = sql.NullString{String: string(data), Valid: true}
			}
			if _, err := ins.ExecContext(ctx, identity, row.Key, row.ID, row.Field, norms); err != nil {
				return err
			}
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO index_checkpoints (identity, seq) VALUES (?, ?)
		 ON CONFLICT(identity) DO UPDATE SET seq = MAX(seq, excluded.seq)`,
		identity, int64(checkpoint),
	)
	if err != nil {
		return err
	}
	return tx.Commit()
}

// QueryPostings returns the rows under each key in key order, then document id.
func (s *SQLite) QueryPostings(ctx context.Context, identity string, keys []string) ([]index.Row, error) {
	stmt, err := s.db.PrepareContext(ctx,
		`SELECT row_key, doc_id, field, norms FROM index_rows
		 WHERE identity = ? AND row_key = ?
		 ORDER BY doc_id, field, rowid`,
	)
	if err != nil {
		return nil, err
	}
	defer stmt.Close()

	result := make([]index.Row, 0)
	for _, key := range keys {
		rows, err := stmt.QueryContext(ctx, identity, key)
		if err != nil {
			return nil, err
		}
		result, err = scanRows(rows, result)
		if err != nil {
			return nil, err
		}
	}
	return result, nil
}

func scanRows(rows *sql.Rows, result []index.Row) ([]index.Row, error) {
	defer rows.Close()
	for rows.Next() {
		var row index.Row
		var norms sql.NullString
		if err := rows.Scan(&row.Key, &row.ID, &row.Field, &norms); err != nil {
			return nil, err
		}
		if norms.Valid {
			if err := json.Unmarshal([]byte(norms.String), &row.Norms); err != nil {
				return nil, fmt.Errorf("failed to unmarshal norms: %w", err)
			}
		}
		result = append(result, row)
	}
	return result, rows.Err()
}

// Checkpoint returns the stored change sequence, 0 for unknown identities.
func (s *SQLite) Checkpoint(ctx context.Context, identity string) (uint64, error) {
	var seq int64
	err := s.db.QueryRowContext(ctx,
		`SELECT seq FROM index_checkpoints WHERE identity = ?`, identity,
	).Scan(&seq)
	if err == sql.ErrNoRows {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return uint64(seq), nil
}

// Destroy removes every row and the checkpoint of identity.
func (s *SQLite) Destroy(ctx context.Context, identity string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM index_rows WHERE identity = ?`, identity); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM index_checkpoints WHERE identity = ?`, identity); err != nil {
		return err
	}
	return tx.Commit()
}

// Identities lists the identities with a stored checkpoint.
func (s *SQLite) Identities(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT identity FROM index_checkpoints ORDER BY identity`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	names := make([]string, 0)
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// Persist is a no-op: every batch is committed as it is written.
func (s *SQLite) Persist() error {
	return nil
}

// Close closes the database.
func (s *SQLite) Close() error {
	return s.db.Close()
}
