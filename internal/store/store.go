// Package store keeps a history of company lookups in SQLite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/ppiankov/dossier/internal/model"
)

// timeLayout sorts lexicographically in time order
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// ErrNotFound is returned by Get for unknown lookup ids
var ErrNotFound = errors.New("lookup not found")

// Lookup is one saved company lookup
type Lookup struct {
	ID         string              `json:"id"`
	Company    string              `json:"company"`
	Country    string              `json:"country,omitempty"`
	Query      string              `json:"query"`
	Narrative  string              `json:"narrative"`
	References string              `json:"references"`
	Record     model.CompanyRecord `json:"record"`
	Table      model.DisplayTable  `json:"table"`
	Notices    []model.Notice      `json:"notices,omitempty"`
	Degraded   bool                `json:"degraded"`
	Score      int                 `json:"score"`
	Confidence string              `json:"confidence,omitempty"`
	CreatedAt  time.Time           `json:"created_at"`
	Duration   time.Duration       `json:"duration"`
}

// Store manages the lookup history database.
type Store struct {
	db *sql.DB
}

// Open opens or creates the history database at path
func Open(path string) (*Store, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite3", path+"?_journal_mode=WAL&_foreign_keys=on")
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	s := &Store{db: db}
	if err := s.createSchema(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	return s, nil
}

// Close releases the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

func (s *Store) createSchema() error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS lookups (
			id TEXT PRIMARY KEY,
			company TEXT NOT NULL,
			country TEXT NOT NULL DEFAULT '',
			query TEXT NOT NULL,
			narrative TEXT NOT NULL,
			refs TEXT NOT NULL,
			record TEXT NOT NULL,
			display TEXT NOT NULL,
			notices TEXT NOT NULL,
			degraded INTEGER NOT NULL,
			score INTEGER NOT NULL DEFAULT 0,
			confidence TEXT NOT NULL DEFAULT '',
			created_at TEXT NOT NULL,
			duration_ms INTEGER NOT NULL
		)`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_created_at ON lookups(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_lookups_company ON lookups(company COLLATE NOCASE)`,
	}

	for _, stmt := range statements {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("executing schema statement: %w", err)
		}
	}
	return nil
}

// Save inserts or replaces a lookup
func (s *Store) Save(ctx context.Context, l Lookup) error {
	if l.ID == "" {
		return errors.New("lookup id is required")
	}

	record, err := json.Marshal(l.Record)
	if err != nil {
		return fmt.Errorf("marshaling record: %w", err)
	}
	display, err := json.Marshal(l.Table)
	if err != nil {
		return fmt.Errorf("marshaling table: %w", err)
	}
	notices := l.Notices
	if notices == nil {
		notices = []model.Notice{}
	}
	noticesJSON, err := json.Marshal(notices)
	if err != nil {
		return fmt.Errorf("marshaling notices: %w", err)
	}

	createdAt := l.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now()
	}

	_, err = s.db.ExecContext(ctx,
		`INSERT OR REPLACE INTO lookups
			(id, company, country, query, narrative, refs, record, display, notices, degraded, score, confidence, created_at, duration_ms)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		l.ID, l.Company, l.Country, l.Query, l.Narrative, l.References,
		string(record), string(display), string(noticesJSON),
		l.Degraded, l.Score, l.Confidence, createdAt.UTC().Format(timeLayout), l.Duration.Milliseconds(),
	)
	if err != nil {
		return fmt.Errorf("inserting lookup %s: %w", l.ID, err)
	}
	return nil
}

// List returns the most recent lookups first. company, when non-empty,
// filters case-insensitively. limit <= 0 means 50.
func (s *Store) List(ctx context.Context, company string, limit int) ([]Lookup, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `SELECT id, company, country, query, narrative, refs, record, display, notices, degraded, score, confidence, created_at, duration_ms
		FROM lookups`
	args := []any{}
	if company != "" {
		query += ` WHERE company = ? COLLATE NOCASE`
		args = append(args, company)
	}
	query += ` ORDER BY created_at DESC LIMIT ?`
	args = append(args, limit)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying lookups: %w", err)
	}
	defer rows.Close()

	var lookups []Lookup
	for rows.Next() {
		l, err := scanLookup(rows)
		if err != nil {
			return nil, err
		}
		lookups = append(lookups, *l)
	}
	return lookups, rows.Err()
}

// Get returns one lookup by id
func (s *Store) Get(ctx context.Context, id string) (*Lookup, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, company, country, query, narrative, refs, record, display, notices, degraded, score, confidence, created_at, duration_ms
		FROM lookups WHERE id = ?`, id)

	l, err := scanLookup(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%s: %w", id, ErrNotFound)
	}
	return l, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scanLookup(row scanner) (*Lookup, error) {
	var (
		l                        Lookup
		record, display, notices string
		createdAt                string
		durationMS               int64
	)

	err := row.Scan(&l.ID, &l.Company, &l.Country, &l.Query, &l.Narrative, &l.References,
		&record, &display, &notices, &l.Degraded, &l.Score, &l.Confidence, &createdAt, &durationMS)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scanning lookup: %w", err)
	}

	if err := json.Unmarshal([]byte(record), &l.Record); err != nil {
		return nil, fmt.Errorf("decoding record of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(display), &l.Table); err != nil {
		return nil, fmt.Errorf("decoding table of %s: %w", l.ID, err)
	}
	if err := json.Unmarshal([]byte(notices), &l.Notices); err != nil {
		return nil, fmt.Errorf("decoding notices of %s: %w", l.ID, err)
	}

	l.CreatedAt, err = time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("parsing created_at of %s: %w", l.ID, err)
	}
	l.Duration = time.Duration(durationMS) * time.Millisecond

	return &l, nil
}
