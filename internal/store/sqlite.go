package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/google/uuid"
	orderedmap "github.com/wk8/go-ordered-map/v2"
	_ "modernc.org/sqlite"

	"github.com/agentic-research/monfs/api"
)

var tableRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// SQLiteStore keeps one row per record in a single table named after the
// collection. The register field is mirrored into its own column so the
// template filter runs in SQL; the full field set is an ordered JSON object.
type SQLiteStore struct {
	db    *sql.DB
	table string

	qFindOne string
	qTmpl    string
	qInst    string
	qAll     string
	qInsert  string
}

// OpenSQLite opens (creating if needed) the database at dbPath.
func OpenSQLite(dbPath, table string) (*SQLiteStore, error) {
	if !tableRe.MatchString(table) {
		return nil, fmt.Errorf("invalid table name %q", table)
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", dbPath, err)
	}
	// One writer; readers share the same handle.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode = WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode on %s: %w", dbPath, err)
	}

	schema := strings.ReplaceAll(`
	CREATE TABLE IF NOT EXISTS {t} (
		id TEXT PRIMARY KEY,
		type TEXT NOT NULL,
		enabled INTEGER NOT NULL DEFAULT 1,
		register TEXT,
		fields JSON NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_{t}_type_register ON {t}(type, register);
	`, "{t}", table)
	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}

	cols := "id, type, enabled, fields"
	return &SQLiteStore{
		db:       db,
		table:    table,
		qFindOne: fmt.Sprintf("SELECT %s FROM %s WHERE id = ?", cols, table),
		qTmpl:    fmt.Sprintf("SELECT %s FROM %s WHERE type = ? AND register = '0' ORDER BY rowid", cols, table),
		qInst:    fmt.Sprintf("SELECT %s FROM %s WHERE type = ? AND (register IS NULL OR register <> '0') ORDER BY rowid", cols, table),
		qAll:     fmt.Sprintf("SELECT %s FROM %s ORDER BY rowid", cols, table),
		qInsert:  fmt.Sprintf("INSERT INTO %s (id, type, enabled, register, fields) VALUES (?, ?, ?, ?, ?)", table),
	}, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (*api.Record, error) {
	var (
		id, typ string
		enabled int
		raw     string
	)
	if err := row.Scan(&id, &typ, &enabled, &raw); err != nil {
		return nil, err
	}
	fields := orderedmap.New[string, string]()
	if err := json.Unmarshal([]byte(raw), fields); err != nil {
		return nil, fmt.Errorf("decode fields of %s: %w", id, err)
	}
	return &api.Record{
		ID:     id,
		Meta:   api.Meta{Type: typ, Enabled: enabled != 0},
		Fields: fields,
	}, nil
}

func (s *SQLiteStore) FindOne(ctx context.Context, id string) (*api.Record, error) {
	rec, err := scanRecord(s.db.QueryRowContext(ctx, s.qFindOne, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s: %w", id, err)
	}
	return rec, nil
}

func (s *SQLiteStore) Find(ctx context.Context, f Filter) ([]*api.Record, error) {
	q := s.qInst
	if f.Template {
		q = s.qTmpl
	}
	return s.query(ctx, q, f.Type)
}

func (s *SQLiteStore) All(ctx context.Context) ([]*api.Record, error) {
	return s.query(ctx, s.qAll)
}

func (s *SQLiteStore) query(ctx context.Context, q string, args ...any) ([]*api.Record, error) {
	rows, err := s.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query %s: %w", s.table, err)
	}
	defer func() { _ = rows.Close() }()

	var out []*api.Record
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return out, nil
}

func (s *SQLiteStore) Insert(ctx context.Context, rec *api.Record) (string, error) {
	if err := checkInsert(rec); err != nil {
		return "", err
	}
	id := rec.ID
	if id == "" {
		id = uuid.NewString()
	}

	fields := rec.Fields
	if fields == nil {
		fields = orderedmap.New[string, string]()
	}
	raw, err := json.Marshal(fields)
	if err != nil {
		return "", fmt.Errorf("encode fields: %w", err)
	}

	var register *string
	if v, ok := rec.Get(api.RegisterKey); ok {
		register = &v
	}
	enabled := 0
	if rec.Meta.Enabled {
		enabled = 1
	}

	if _, err := s.db.ExecContext(ctx, s.qInsert, id, rec.Meta.Type, enabled, register, string(raw)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return "", fmt.Errorf("%w: %s", ErrDuplicateID, id)
		}
		return "", fmt.Errorf("insert into %s: %w", s.table, err)
	}
	return id, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

var _ Store = (*SQLiteStore)(nil)
