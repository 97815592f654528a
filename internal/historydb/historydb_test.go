package historydb

import (
	"errors"
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	db, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestRecordAndFinishSuccess(t *testing.T) {
	db := openTestDB(t)

	id, err := db.Record("avtr_test", "My Avatar", "alice", []string{"windows", "android"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	if err := db.Finish(id, OutcomeSucceeded, nil); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	rows, err := db.ForBlueprint("avtr_test")
	if err != nil {
		t.Fatalf("ForBlueprint: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 row, got %d", len(rows))
	}
	if rows[0].Outcome != OutcomeSucceeded {
		t.Fatalf("Outcome = %q", rows[0].Outcome)
	}
	if len(rows[0].Platforms) != 2 || rows[0].Platforms[0] != "windows" {
		t.Fatalf("Platforms = %v", rows[0].Platforms)
	}
}

func TestFinishRecordsErrorMessage(t *testing.T) {
	db := openTestDB(t)

	id, err := db.Record("avtr_fail", "Broken", "bob", []string{"windows"})
	if err != nil {
		t.Fatalf("Record: %v", err)
	}

	failure := errors.New("blueprint id already in use")
	if err := db.Finish(id, OutcomeFailed, failure); err != nil {
		t.Fatalf("Finish: %v", err)
	}

	rows, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 1 || rows[0].ErrorMsg != failure.Error() {
		t.Fatalf("unexpected rows: %+v", rows)
	}
}

func TestRecentOrdersNewestFirst(t *testing.T) {
	db := openTestDB(t)

	first, _ := db.Record("avtr_a", "A", "alice", nil)
	db.Finish(first, OutcomeSucceeded, nil)
	second, _ := db.Record("avtr_b", "B", "alice", nil)
	db.Finish(second, OutcomeSucceeded, nil)

	rows, err := db.Recent(10)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if rows[0].BlueprintID != "avtr_b" {
		t.Fatalf("expected newest first, got %q", rows[0].BlueprintID)
	}
}
