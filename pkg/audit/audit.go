package audit

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

var nowFunc = time.Now

// timeLayout is fixed width so created_at sorts correctly as text.
const timeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Entry records one write to the record store.
type Entry struct {
	ID        string    `json:"id"`
	Mode      string    `json:"mode"`
	FileName  string    `json:"file_name"`
	Rows      int       `json:"rows"`
	Actor     string    `json:"actor"`
	CreatedAt time.Time `json:"created_at"`
}

// Log is an upload history kept in SQLite. A nil *Log records nothing.
type Log struct {
	db *sql.DB
}

func Open(path string) (*Log, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}
	// Keeps ":memory:" databases on a single connection.
	db.SetMaxOpenConns(1)

	uploadsTable := `
	CREATE TABLE IF NOT EXISTS uploads (
		id TEXT PRIMARY KEY,
		mode TEXT NOT NULL,
		file_name TEXT,
		rows INTEGER NOT NULL,
		actor TEXT,
		created_at TEXT NOT NULL
	);
	`
	if _, err := db.Exec(uploadsTable); err != nil {
		db.Close()
		return nil, fmt.Errorf("create uploads table: %w", err)
	}
	return &Log{db: db}, nil
}

func (l *Log) Close() error {
	if l == nil {
		return nil
	}
	return l.db.Close()
}

// Record stores e, filling in its ID and timestamp.
func (l *Log) Record(ctx context.Context, e Entry) (Entry, error) {
	e.ID = uuid.NewString()
	e.CreatedAt = nowFunc().UTC()
	if l == nil {
		return e, nil
	}
	_, err := l.db.ExecContext(ctx,
		`INSERT INTO uploads (id, mode, file_name, rows, actor, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.Mode, e.FileName, e.Rows, e.Actor, e.CreatedAt.Format(timeLayout))
	if err != nil {
		return e, fmt.Errorf("record upload: %w", err)
	}
	return e, nil
}

// Recent returns up to limit entries, newest first.
func (l *Log) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if l == nil {
		return nil, nil
	}
	rows, err := l.db.QueryContext(ctx,
		`SELECT id, mode, file_name, rows, actor, created_at FROM uploads ORDER BY created_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var created string
		if err := rows.Scan(&e.ID, &e.Mode, &e.FileName, &e.Rows, &e.Actor, &created); err != nil {
			return nil, err
		}
		if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
