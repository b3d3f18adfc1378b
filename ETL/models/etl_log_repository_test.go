package models

import (
	"database/sql"
	"testing"
	"time"

	_ "modernc.org/sqlite"
)

func newTestRepository(t *testing.T) *SQLETLLogRepository {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("failed to open sqlite: %v", err)
	}
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := NewSQLETLLogRepository(db)
	if err := repo.CreateETLLogTable(); err != nil {
		t.Fatalf("failed to create table: %v", err)
	}
	return repo
}

func TestRunLogLifecycle(t *testing.T) {
	repo := newTestRepository(t)

	last, err := repo.GetLastSuccessfulRun()
	if err != nil || last != nil {
		t.Fatalf("expected no successful runs yet, got %+v %v", last, err)
	}

	start := time.Date(2024, 6, 1, 10, 0, 0, 0, time.UTC)
	id, err := repo.CreateLogEntry(start)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(id) != 36 {
		t.Fatalf("expected uuid run id, got %q", id)
	}

	run := &ETLRunLog{
		ID:             id,
		StartTime:      start,
		EndTime:        start.Add(3 * time.Second),
		FilesRead:      3,
		RowsNormalized: 40,
		ZonesLoaded:    5,
		PeriodsLoaded:  6,
	}
	if err := repo.UpdateLogEntrySuccess(run); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if run.ExecutionTimeSeconds != 3 {
		t.Fatalf("expected execution time 3s, got %v", run.ExecutionTimeSeconds)
	}

	failedStart := start.Add(time.Hour)
	failedID, err := repo.CreateLogEntry(failedStart)
	if err != nil {
		t.Fatal(err)
	}
	failed := &ETLRunLog{ID: failedID, StartTime: failedStart, EndTime: failedStart.Add(time.Second), ErrorMessage: "файл не найден"}
	if err := repo.UpdateLogEntryFailure(failed); err != nil {
		t.Fatal(err)
	}

	last, err = repo.GetLastSuccessfulRun()
	if err != nil {
		t.Fatal(err)
	}
	if last == nil || last.ID != id || last.ZonesLoaded != 5 || last.Status != RunStatusSuccess {
		t.Fatalf("unexpected last successful run %+v", last)
	}

	recent, err := repo.GetRecentRuns(10)
	if err != nil {
		t.Fatal(err)
	}
	if len(recent) != 2 || recent[0].ID != failedID || recent[0].ErrorMessage != "файл не найден" {
		t.Fatalf("expected newest failed run first, got %+v", recent)
	}

	monitor, err := repo.GetETLStateMonitor()
	if err != nil {
		t.Fatal(err)
	}
	if monitor.TotalSuccessfulRuns != 1 || monitor.TotalFailedRuns != 1 || monitor.TotalZonesLoaded != 5 {
		t.Fatalf("unexpected monitor %+v", monitor)
	}
}
