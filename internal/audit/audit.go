// Package audit persists every top-level command an evaluator runs to
// a local SQLite file, grounded in storage/storage.go's
// github.com/zond/sqly + modernc.org/sqlite pairing (pure Go, no cgo —
// the same reason the teacher depends on modernc.org/sqlite rather
// than mattn/go-sqlite3): sqly's struct-tag-driven
// CreateTableIfNotExists/Upsert replace a hand-rolled CREATE
// TABLE/INSERT pair the same way storage.go's File/FileSync/User rows
// do. Row payloads are encoded with github.com/goccy/go-json and
// timestamps with github.com/ncruces/go-strftime, matching the
// ambient stack's JSON and logging conventions (SPEC_FULL.md §2–§3).
package audit

import (
	"context"
	"time"

	"github.com/ncruces/go-strftime"
	"github.com/zond/sqly"

	goccy "github.com/goccy/go-json"

	"github.com/alush-lang/alush"

	_ "modernc.org/sqlite"
)

// commandRow is one audited command. Id is the autoincrementing
// primary key sqly.Upsert uses to decide insert-vs-update, the same
// `sqly:"pkey,autoinc"` shape storage.go's FileSync row uses for an
// append-only log of its own.
type commandRow struct {
	Id        int64 `sqly:"pkey,autoinc"`
	SessionID string
	At        string
	Source    string
	Result    string
	Error     string
}

// Log is an open audit database. A process may share one Log across
// every evaluator session it serves (each session supplies its own
// session ID per row); sqly.DB serializes writes the same way
// storage.Storage's *sqly.DB does.
type Log struct {
	db *sqly.DB
}

// Open creates (or appends to) the audit database at path, ensuring
// the command table exists via sqly.CreateTableIfNotExists — the same
// call storage.New makes for each of its own row types.
func Open(path string) (*Log, error) {
	db, err := sqly.Open("sqlite", path)
	if err != nil {
		return nil, alush.WithStack(err)
	}
	if err := db.CreateTableIfNotExists(context.Background(), commandRow{}); err != nil {
		db.Close()
		return nil, alush.WithStack(err)
	}
	return &Log{db: db}, nil
}

// Close closes the underlying database handle.
func (l *Log) Close() error {
	return l.db.Close()
}

// payload is the JSON shape persisted in the result/error columns —
// kept small and flat rather than reusing eval's rendering types, so
// the audit schema never needs to change when the value universe does.
type payload struct {
	Rendered string `json:"rendered,omitempty"`
}

// Record appends one executed command to the log via sqly.Upsert
// (Id left zero, so it always inserts a fresh autoincremented row —
// the same "zero pkey means new row" convention logSync relies on for
// FileSync). rendered is the command's wire-format result (empty if
// evalErr is non-nil).
func (l *Log) Record(sessionID, source, rendered string, evalErr error) error {
	row := commandRow{
		SessionID: sessionID,
		At:        strftime.Format("%Y-%m-%d %H:%M:%S", time.Now().UTC()),
		Source:    source,
	}

	if evalErr == nil {
		b, err := goccy.Marshal(payload{Rendered: rendered})
		if err != nil {
			return alush.WithStack(err)
		}
		row.Result = string(b)
	} else {
		b, err := goccy.Marshal(payload{Rendered: evalErr.Error()})
		if err != nil {
			return alush.WithStack(err)
		}
		row.Error = string(b)
	}

	return alush.WithStack(l.db.Upsert(context.Background(), &row, false))
}
