package database

import (
	"path/filepath"
	"testing"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func ptr(s string) *string { return &s }

func TestSettingsLifecycle(t *testing.T) {
	db := openTestDB(t)

	v, err := db.Get("polarify_token")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v != "" {
		t.Errorf("expected empty value for missing key, got %q", v)
	}

	if err := db.Set("polarify_token", "first"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.Set("polarify_token", "second"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if v, _ := db.Get("polarify_token"); v != "second" {
		t.Errorf("expected 'second', got %q", v)
	}

	db.Set("polarify_user", `{"id":1}`)
	if err := db.Clear(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, key := range []string{"polarify_token", "polarify_user"} {
		if v, _ := db.Get(key); v != "" {
			t.Errorf("expected %s cleared, got %q", key, v)
		}
	}
}

func TestSubmissionJournal(t *testing.T) {
	db := openTestDB(t)

	_, err := db.InsertSubmission(&Submission{
		RequestID: "r1", ProjectID: "1", Source: "raw",
		DateFrom: ptr("2025-01-01"), DateTo: ptr("2025-12-31"),
		OpinionsCount: 3, AvgSentiment: 0.4, PositiveCount: 2, NeutralCount: 1,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	_, err = db.InsertSubmission(&Submission{
		RequestID: "r2", ProjectID: "2", Source: "feed", Origin: ptr("https://example.com/feed"),
		Error: ptr("backend unavailable"),
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	all, err := db.GetRecentSubmissions("", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(all) != 2 {
		t.Fatalf("expected 2 submissions, got %d", len(all))
	}
	if all[0].RequestID != "r2" {
		t.Errorf("expected newest first, got %q", all[0].RequestID)
	}

	one, _ := db.GetRecentSubmissions("1", 10)
	if len(one) != 1 || one[0].OpinionsCount != 3 {
		t.Errorf("expected one submission for project 1, got %+v", one)
	}

	stats, err := db.GetStats()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stats.Submissions != 2 || stats.Failed != 1 || stats.Opinions != 3 || stats.Projects != 2 {
		t.Errorf("unexpected stats: %+v", stats)
	}
}

func TestSubmissionRejectsUnknownSource(t *testing.T) {
	db := openTestDB(t)
	if _, err := db.InsertSubmission(&Submission{RequestID: "r", ProjectID: "1", Source: "email"}); err == nil {
		t.Error("expected CHECK constraint error")
	}
}
