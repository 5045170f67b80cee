package database

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/nao1215/boardwatch/internal/model"
)

// setupTestDB creates a temporary database for testing.
func setupTestDB(t *testing.T) *BoardDB {
	t.Helper()

	db, err := Open(t.TempDir(), DefaultOptions())
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func TestOpen(t *testing.T) {
	t.Parallel()

	t.Run("creates database in new directory", func(t *testing.T) {
		t.Parallel()

		dbDir := filepath.Join(t.TempDir(), "newdir", "subdir")
		db, err := Open(dbDir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to open database: %v", err)
		}
		defer db.Close()

		if _, err := os.Stat(filepath.Join(dbDir, FileName)); err != nil {
			t.Errorf("database file was not created: %v", err)
		}
		if db.Path() != filepath.Join(dbDir, FileName) {
			t.Errorf("unexpected path %q", db.Path())
		}
	})

	t.Run("CreateIfNotExists=false returns error when database does not exist", func(t *testing.T) {
		t.Parallel()

		_, err := Open(t.TempDir(), Options{CreateIfNotExists: false})
		if !errors.Is(err, ErrDatabaseNotFound) {
			t.Errorf("expected ErrDatabaseNotFound, got %v", err)
		}
	})

	t.Run("CreateIfNotExists=false opens existing database", func(t *testing.T) {
		t.Parallel()

		dir := t.TempDir()
		db, err := Open(dir, DefaultOptions())
		if err != nil {
			t.Fatalf("failed to create database: %v", err)
		}
		_ = db.Close()

		db, err = Open(dir, Options{CreateIfNotExists: false, EnableWAL: true})
		if err != nil {
			t.Fatalf("failed to reopen database: %v", err)
		}
		_ = db.Close()
	})
}

func TestSavePost(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	first := time.Date(2024, 11, 22, 4, 0, 0, 0, time.UTC)
	post := model.NewPost("http://board.example/", 1, "22/11 4:00", "hello", first)

	isNew, err := db.SavePost(ctx, post)
	if err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if !isNew {
		t.Error("expected first save to report a new post")
	}

	again := model.NewPost("http://board.example/", 3, "22/11 4:00", "hello", first.Add(time.Hour))
	isNew, err = db.SavePost(ctx, again)
	if err != nil {
		t.Fatalf("SavePost: %v", err)
	}
	if isNew {
		t.Error("expected second save of the same content to report a known post")
	}

	rec, err := db.GetPost(ctx, post.ID)
	if err != nil {
		t.Fatalf("GetPost: %v", err)
	}
	if rec == nil {
		t.Fatal("expected stored post")
	}
	if rec.SeenCount != 2 {
		t.Errorf("expected seen count 2, got %d", rec.SeenCount)
	}
	if !rec.FirstSeen.Equal(first) {
		t.Errorf("expected first seen %v, got %v", first, rec.FirstSeen)
	}
	if !rec.LastSeen.Equal(first.Add(time.Hour)) {
		t.Errorf("expected last seen %v, got %v", first.Add(time.Hour), rec.LastSeen)
	}
	if rec.Body != "hello" || rec.Header != "22/11 4:00" {
		t.Errorf("unexpected content %q / %q", rec.Header, rec.Body)
	}
}

func TestGetPostMissing(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	rec, err := db.GetPost(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rec != nil {
		t.Errorf("expected nil record, got %+v", rec)
	}
}

func TestListPosts(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()
	base := time.Date(2024, 11, 22, 0, 0, 0, 0, time.UTC)

	posts := []*model.Post{
		model.NewPost("http://a.example/", 1, "h1", "oldest", base),
		model.NewPost("http://a.example/", 2, "h2", "middle", base.Add(time.Minute)),
		model.NewPost("http://b.example/", 1, "h3", "newest", base.Add(2*time.Minute)),
	}
	for _, p := range posts {
		if _, err := db.SavePost(ctx, p); err != nil {
			t.Fatalf("SavePost: %v", err)
		}
	}

	t.Run("all sources newest first", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListPosts(ctx, "", 0)
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(got) != 3 {
			t.Fatalf("expected 3 posts, got %d", len(got))
		}
		if got[0].Body != "newest" || got[2].Body != "oldest" {
			t.Errorf("unexpected order: %q, %q, %q", got[0].Body, got[1].Body, got[2].Body)
		}
	})

	t.Run("filtered by source with limit", func(t *testing.T) {
		t.Parallel()

		got, err := db.ListPosts(ctx, "http://a.example/", 1)
		if err != nil {
			t.Fatalf("ListPosts: %v", err)
		}
		if len(got) != 1 || got[0].Body != "middle" {
			t.Errorf("expected only the middle post, got %+v", got)
		}
	})

	t.Run("sources", func(t *testing.T) {
		t.Parallel()

		sources, err := db.ListSources(ctx)
		if err != nil {
			t.Fatalf("ListSources: %v", err)
		}
		if len(sources) != 2 || sources[0] != "http://a.example/" || sources[1] != "http://b.example/" {
			t.Errorf("unexpected sources %v", sources)
		}
	})
}

func TestSaveFetch(t *testing.T) {
	t.Parallel()

	db := setupTestDB(t)
	ctx := context.Background()

	ok := model.NewBoardReport("http://board.example/")
	ok.StatusCode = 200
	ok.BytesRead = 1234
	ok.Fragments = 113
	ok.Skipped = 1
	ok.Duration = 1500 * time.Millisecond
	ok.AddPost(&model.Post{ID: "a", New: true})
	ok.AddPost(&model.Post{ID: "b"})

	failed := model.NewBoardReport("http://board.example/")
	failed.StartedAt = ok.StartedAt.Add(time.Second)
	failed.SetError(errors.New("connection refused"))

	for _, r := range []*model.BoardReport{ok, failed} {
		if _, err := db.SaveFetch(ctx, r); err != nil {
			t.Fatalf("SaveFetch: %v", err)
		}
	}

	got, err := db.ListFetches(ctx, "http://board.example/", 0)
	if err != nil {
		t.Fatalf("ListFetches: %v", err)
	}
	if len(got) != 2 {
		t.Fatalf("expected 2 fetches, got %d", len(got))
	}

	latest, earlier := got[0], got[1]
	if latest.Status != model.StatusFailed || latest.Error != "connection refused" {
		t.Errorf("unexpected latest fetch %+v", latest)
	}
	if earlier.Status != model.StatusOK {
		t.Errorf("expected ok status, got %q", earlier.Status)
	}
	if earlier.BytesRead != 1234 || earlier.Fragments != 113 || earlier.Posts != 2 || earlier.New != 1 || earlier.Skipped != 1 {
		t.Errorf("unexpected counters %+v", earlier)
	}
	if earlier.Duration != 1500*time.Millisecond {
		t.Errorf("expected duration 1.5s, got %v", earlier.Duration)
	}
	if earlier.StatusCode != 200 {
		t.Errorf("expected status 200, got %d", earlier.StatusCode)
	}

	limited, err := db.ListFetches(ctx, "", 1)
	if err != nil {
		t.Fatalf("ListFetches: %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("expected 1 fetch with limit, got %d", len(limited))
	}
}

func TestParseTimestamp(t *testing.T) {
	t.Parallel()

	want := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	for _, s := range []string{
		"2024-01-02T03:04:05.000000000Z",
		"2024-01-02T03:04:05Z",
		"2024-01-02 03:04:05",
	} {
		if got := parseTimestamp(s); !got.Equal(want) {
			t.Errorf("parseTimestamp(%q) = %v, expected %v", s, got, want)
		}
	}
	if !parseTimestamp("yesterday").IsZero() {
		t.Error("expected zero time for unknown format")
	}
	if formatTimestamp(want) != "2024-01-02T03:04:05.000000000Z" {
		t.Errorf("unexpected format %q", formatTimestamp(want))
	}
}
