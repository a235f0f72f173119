// Package store persists symbol-index snapshots to SQLite so the CLI can
// answer symbol queries without re-scanning an unchanged project.
package store

import (
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Store is the SQLite data access layer for snapshots.
type Store struct {
	db *sql.DB
}

// NewStore opens a SQLite database at dbPath with WAL mode enabled.
func NewStore(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_foreign_keys=ON&_busy_timeout=30000")
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}
	return &Store{db: db}, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// DB returns the underlying *sql.DB for use in transactions.
func (s *Store) DB() *sql.DB {
	return s.db
}

// Migrate creates the snapshot tables and indexes. Idempotent.
func (s *Store) Migrate() error {
	_, err := s.db.Exec(schemaDDL)
	if err != nil {
		return fmt.Errorf("migrate: %w", err)
	}
	return nil
}

const schemaDDL = `
CREATE TABLE IF NOT EXISTS snapshots (
  id          INTEGER PRIMARY KEY,
  project     TEXT NOT NULL UNIQUE,
  created_at  TIMESTAMP NOT NULL
);

CREATE TABLE IF NOT EXISTS files (
  id           INTEGER PRIMARY KEY,
  snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  path         TEXT NOT NULL,
  language     TEXT NOT NULL,
  hash         TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS symbols (
  id           INTEGER PRIMARY KEY,
  snapshot_id  INTEGER NOT NULL REFERENCES snapshots(id) ON DELETE CASCADE,
  name         TEXT NOT NULL,
  kind         TEXT NOT NULL,
  container    TEXT,
  path         TEXT NOT NULL,
  start_line   INTEGER,
  start_col    INTEGER,
  end_line     INTEGER,
  end_col      INTEGER
);

CREATE INDEX IF NOT EXISTS idx_files_snapshot ON files(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_symbols_snapshot ON symbols(snapshot_id);
CREATE INDEX IF NOT EXISTS idx_symbols_name ON symbols(snapshot_id, name);
`

// FileRecord is one scanned file with its content hash.
type FileRecord struct {
	Path     string
	Language string
	Hash     string
}

// SymbolRow is one flattened symbol record as persisted.
type SymbolRow struct {
	Name      string
	Kind      string
	Container string
	Path      string
	StartLine int
	StartCol  int
	EndLine   int
	EndCol    int
}

// SaveSnapshot replaces the snapshot for project with a fresh one,
// atomically: the old snapshot stays readable until the transaction
// commits.
func (s *Store) SaveSnapshot(project string, createdAt time.Time, files []FileRecord, symbols []SymbolRow) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("save snapshot: begin: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM snapshots WHERE project = ?`, project); err != nil {
		return fmt.Errorf("save snapshot: clear old: %w", err)
	}
	res, err := tx.Exec(`INSERT INTO snapshots (project, created_at) VALUES (?, ?)`,
		project, createdAt)
	if err != nil {
		return fmt.Errorf("save snapshot: insert: %w", err)
	}
	snapID, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("save snapshot: id: %w", err)
	}

	fileStmt, err := tx.Prepare(
		`INSERT INTO files (snapshot_id, path, language, hash) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare files: %w", err)
	}
	defer fileStmt.Close()
	for _, f := range files {
		if _, err := fileStmt.Exec(snapID, f.Path, f.Language, f.Hash); err != nil {
			return fmt.Errorf("save snapshot: file %s: %w", f.Path, err)
		}
	}

	symStmt, err := tx.Prepare(
		`INSERT INTO symbols (snapshot_id, name, kind, container, path,
		   start_line, start_col, end_line, end_col)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("save snapshot: prepare symbols: %w", err)
	}
	defer symStmt.Close()
	for _, r := range symbols {
		if _, err := symStmt.Exec(snapID, r.Name, r.Kind, r.Container, r.Path,
			r.StartLine, r.StartCol, r.EndLine, r.EndCol); err != nil {
			return fmt.Errorf("save snapshot: symbol %s: %w", r.Name, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("save snapshot: commit: %w", err)
	}
	return nil
}

// SnapshotInfo describes a stored snapshot.
type SnapshotInfo struct {
	Project   string
	CreatedAt time.Time
	FileCount int
	SymCount  int
}

// SnapshotInfo returns metadata for a project's snapshot, or
// ErrNoSnapshot when the project was never snapshotted.
func (s *Store) SnapshotInfo(project string) (*SnapshotInfo, error) {
	var info SnapshotInfo
	var snapID int64
	err := s.db.QueryRow(
		`SELECT id, project, created_at FROM snapshots WHERE project = ?`, project,
	).Scan(&snapID, &info.Project, &info.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, ErrNoSnapshot
	}
	if err != nil {
		return nil, fmt.Errorf("snapshot info: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM files WHERE snapshot_id = ?`, snapID,
	).Scan(&info.FileCount); err != nil {
		return nil, fmt.Errorf("snapshot info: files: %w", err)
	}
	if err := s.db.QueryRow(
		`SELECT COUNT(*) FROM symbols WHERE snapshot_id = ?`, snapID,
	).Scan(&info.SymCount); err != nil {
		return nil, fmt.Errorf("snapshot info: symbols: %w", err)
	}
	return &info, nil
}

// SnapshotSymbols loads every symbol row of a project's snapshot, ordered
// by path then line.
func (s *Store) SnapshotSymbols(project string) ([]SymbolRow, error) {
	snapID, err := s.snapshotID(project)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT name, kind, container, path, start_line, start_col, end_line, end_col
		 FROM symbols WHERE snapshot_id = ? ORDER BY path, start_line`, snapID)
	if err != nil {
		return nil, fmt.Errorf("snapshot symbols: %w", err)
	}
	defer rows.Close()

	var out []SymbolRow
	for rows.Next() {
		var r SymbolRow
		var container sql.NullString
		if err := rows.Scan(&r.Name, &r.Kind, &container, &r.Path,
			&r.StartLine, &r.StartCol, &r.EndLine, &r.EndCol); err != nil {
			return nil, fmt.Errorf("snapshot symbols: scan: %w", err)
		}
		r.Container = container.String
		out = append(out, r)
	}
	return out, rows.Err()
}

// FileHashes returns path -> content hash for a project's snapshot, for
// change detection against the working tree.
func (s *Store) FileHashes(project string) (map[string]string, error) {
	snapID, err := s.snapshotID(project)
	if err != nil {
		return nil, err
	}
	rows, err := s.db.Query(
		`SELECT path, hash FROM files WHERE snapshot_id = ?`, snapID)
	if err != nil {
		return nil, fmt.Errorf("file hashes: %w", err)
	}
	defer rows.Close()

	hashes := make(map[string]string)
	for rows.Next() {
		var path, hash string
		if err := rows.Scan(&path, &hash); err != nil {
			return nil, fmt.Errorf("file hashes: scan: %w", err)
		}
		hashes[path] = hash
	}
	return hashes, rows.Err()
}

func (s *Store) snapshotID(project string) (int64, error) {
	var id int64
	err := s.db.QueryRow(
		`SELECT id FROM snapshots WHERE project = ?`, project).Scan(&id)
	if err == sql.ErrNoRows {
		return 0, ErrNoSnapshot
	}
	if err != nil {
		return 0, fmt.Errorf("lookup snapshot: %w", err)
	}
	return id, nil
}
