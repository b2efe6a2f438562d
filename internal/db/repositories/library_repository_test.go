package repositories

import (
	"context"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
)

var libraryCols = []string{
	"content_id", "title", "media_kind", "purchased_at", "amount_cents",
	"duration_seconds", "position_seconds", "completed", "progress_updated_at",
}

func newLibraryRepo(t *testing.T) (*LibraryRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return NewLibraryRepository(sqlx.NewDb(db, "sqlmock")), mock
}

func sampleLibraryRows() *sqlmock.Rows {
	kind := "video"
	pos := int64(300)
	done := false
	now := time.Now()
	return sqlmock.NewRows(libraryCols).
		AddRow("content-1", "Intro to Jazz Piano", kind, now, int64(999),
			int64(5400), pos, done, now).
		AddRow("content-2", "Advanced Voicings", kind, now, int64(1999),
			int64(7200), nil, nil, nil)
}

func TestLibraryList_All(t *testing.T) {
	repo, mock := newLibraryRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(2))
	mock.ExpectQuery("SELECT c.id AS content_id.*ORDER BY p.created_at DESC").
		WithArgs("user-1", 20, 0).
		WillReturnRows(sampleLibraryRows())

	items, total, err := repo.List(context.Background(), "user-1", LibraryFilterAll, LibrarySortRecent, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 2 {
		t.Errorf("total = %d, want 2", total)
	}
	if len(items) != 2 {
		t.Fatalf("len(items) = %d, want 2", len(items))
	}
	if items[0].ContentID != "content-1" {
		t.Errorf("items[0].ContentID = %s", items[0].ContentID)
	}
	if items[1].PositionSeconds != nil {
		t.Error("never-started item should have nil position")
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLibraryList_InProgressFilter(t *testing.T) {
	repo, mock := newLibraryRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\).*pp.completed = FALSE").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT c.id AS content_id.*pp.completed = FALSE").
		WithArgs("user-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(libraryCols))

	_, total, err := repo.List(context.Background(), "user-1", LibraryFilterInProgress, LibrarySortRecent, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if total != 1 {
		t.Errorf("total = %d, want 1", total)
	}
}

func TestLibraryList_TitleSort(t *testing.T) {
	repo, mock := newLibraryRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WithArgs("user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery("SELECT c.id AS content_id.*ORDER BY c.title ASC").
		WithArgs("user-1", 20, 0).
		WillReturnRows(sqlmock.NewRows(libraryCols))

	_, _, err := repo.List(context.Background(), "user-1", LibraryFilterAll, LibrarySortTitle, 20, 0)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("unmet expectations: %v", err)
	}
}

func TestLibraryList_InvalidFilter(t *testing.T) {
	repo, _ := newLibraryRepo(t)

	_, _, err := repo.List(context.Background(), "user-1", LibraryFilter("bogus"), LibrarySortRecent, 20, 0)
	if err == nil {
		t.Fatal("expected error for invalid filter")
	}
}

func TestLibraryList_InvalidSort(t *testing.T) {
	repo, _ := newLibraryRepo(t)

	_, _, err := repo.List(context.Background(), "user-1", LibraryFilterAll, LibrarySort("bogus"), 20, 0)
	if err == nil {
		t.Fatal("expected error for invalid sort")
	}
}

func TestLibraryList_CountError(t *testing.T) {
	repo, mock := newLibraryRepo(t)

	mock.ExpectQuery("SELECT COUNT\\(\\*\\)").
		WillReturnError(errDB)

	_, _, err := repo.List(context.Background(), "user-1", LibraryFilterAll, LibrarySortRecent, 20, 0)
	if err == nil {
		t.Fatal("expected error, got nil")
	}
}
