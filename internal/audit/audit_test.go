package audit

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"
)

func TestRecordRoundTripsThroughSQLite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	log, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer log.Close()

	if err := log.Record("sess-1", "+ 1 2", "3", nil); err != nil {
		t.Fatalf("Record (success): %v", err)
	}
	if err := log.Record("sess-1", "/ 1 0", "", errors.New("division by zero")); err != nil {
		t.Fatalf("Record (error): %v", err)
	}

	type row struct {
		SessionID string
		Source    string
		Result    string
		Error     string
	}
	var rows []row
	// sqly names the table after the row type and the columns after its
	// exported fields directly (storage.go's own queries, e.g. "DELETE
	// FROM FileSync WHERE Id = ?", address columns the same way), so
	// this reads back through plain sqlx against the same *sqly.DB.
	if err := sqlx.SelectContext(context.Background(), log.db, &rows, `SELECT SessionID, Source, Result, Error FROM commandRow ORDER BY Id`); err != nil {
		t.Fatalf("select: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	if rows[0].SessionID != "sess-1" || rows[0].Source != "+ 1 2" {
		t.Fatalf("got %+v", rows[0])
	}
	if rows[0].Result == "" {
		t.Fatalf("expected a non-empty result payload for a successful command")
	}
	if rows[1].Error == "" {
		t.Fatalf("expected a non-empty error payload for a failed command")
	}
}

func TestOpenCreatesSchemaIdempotently(t *testing.T) {
	path := filepath.Join(t.TempDir(), "audit.db")
	log1, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	log1.Close()

	log2, err := Open(path)
	if err != nil {
		t.Fatalf("reopening an existing audit db should not error: %v", err)
	}
	defer log2.Close()

	if err := log2.Record("sess-2", "println 'hi'", "hi", nil); err != nil {
		t.Fatalf("Record: %v", err)
	}
}
