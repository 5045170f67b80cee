package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // SQLite driver

	"github.com/nao1215/boardwatch/internal/model"
)

// FileName is the database file created inside the data directory.
const FileName = "boardwatch.db"

// ErrDatabaseNotFound is returned by Open when the database does not exist
// and CreateIfNotExists is false.
var ErrDatabaseNotFound = errors.New("database not found")

// BoardDB stores post history and fetch records.
// It is safe for concurrent use; writes are serialized by the single
// connection.
type BoardDB struct {
	db     *sql.DB
	dbPath string
}

// Options configures BoardDB behavior.
type Options struct {
	// CreateIfNotExists creates the directory and database file.
	CreateIfNotExists bool

	// EnableWAL enables Write-Ahead Logging.
	EnableWAL bool
}

// DefaultOptions returns the default database options.
func DefaultOptions() Options {
	return Options{
		CreateIfNotExists: true,
		EnableWAL:         true,
	}
}

// Open opens or creates the BoardDB in dbDir.
func Open(dbDir string, opts Options) (*BoardDB, error) {
	dbPath := filepath.Join(dbDir, FileName)

	dsn := dbPath + "?mode=rw"
	if opts.CreateIfNotExists {
		if err := os.MkdirAll(dbDir, 0750); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
		dsn = dbPath + "?mode=rwc"
	} else if _, err := os.Stat(dbPath); errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("%w at %s", ErrDatabaseNotFound, dbPath)
	} else if err != nil {
		return nil, fmt.Errorf("failed to check database path: %w", err)
	}

	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// SQLite has a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	bdb := &BoardDB{db: db, dbPath: dbPath}

	if opts.EnableWAL {
		if _, err := db.ExecContext(context.Background(), "PRAGMA journal_mode=WAL"); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("failed to enable WAL mode: %w", err)
		}
	}

	if err := bdb.createTables(); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("failed to create tables: %w", err)
	}

	return bdb, nil
}

// Close closes the database connection.
func (bdb *BoardDB) Close() error {
	return bdb.db.Close()
}

// Path returns the database file path.
func (bdb *BoardDB) Path() string {
	return bdb.dbPath
}

func (bdb *BoardDB) createTables() error {
	schema := `
	-- Posts are keyed by the SHA3 content ID
	CREATE TABLE IF NOT EXISTS posts (
		id TEXT PRIMARY KEY,
		source TEXT NOT NULL,
		header TEXT NOT NULL,
		body TEXT NOT NULL,
		first_seen TEXT NOT NULL,
		last_seen TEXT NOT NULL,
		seen_count INTEGER NOT NULL DEFAULT 1
	);

	CREATE INDEX IF NOT EXISTS idx_posts_source ON posts(source);
	CREATE INDEX IF NOT EXISTS idx_posts_first_seen ON posts(first_seen);

	-- Fetches record one row per board request
	CREATE TABLE IF NOT EXISTS fetches (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		source TEXT NOT NULL,
		started_at TEXT NOT NULL,
		status_code INTEGER,
		bytes_read INTEGER,
		fragments INTEGER,
		posts INTEGER,
		skipped INTEGER,
		new_posts INTEGER,
		duration_ms INTEGER,
		status TEXT NOT NULL,
		error TEXT
	);

	CREATE INDEX IF NOT EXISTS idx_fetches_source ON fetches(source);
	CREATE INDEX IF NOT EXISTS idx_fetches_started_at ON fetches(started_at);
	`

	_, err := bdb.db.ExecContext(context.Background(), schema)
	return err
}

// PostRecord is a stored post.
type PostRecord struct {
	ID        string
	Source    string
	Header    string
	Body      string
	FirstSeen time.Time
	LastSeen  time.Time
	SeenCount int
}

// SavePost records p. It returns true if the post was not stored before;
// otherwise it bumps the post's last-seen time and counter.
func (bdb *BoardDB) SavePost(ctx context.Context, p *model.Post) (bool, error) {
	if p.ID == "" {
		p.ComputeID()
	}
	seen := formatTimestamp(p.FetchedAt)

	tx, err := bdb.db.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	result, err := tx.ExecContext(ctx, `
	INSERT OR IGNORE INTO posts (id, source, header, body, first_seen, last_seen)
	VALUES (?, ?, ?, ?, ?, ?)
	`, p.ID, p.Source, p.Header, p.Body, seen, seen)
	if err != nil {
		return false, fmt.Errorf("failed to insert post: %w", err)
	}
	inserted, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to read insert result: %w", err)
	}

	if inserted == 0 {
		if _, err := tx.ExecContext(ctx, `
		UPDATE posts SET last_seen = ?, seen_count = seen_count + 1
		WHERE id = ?
		`, seen, p.ID); err != nil {
			return false, fmt.Errorf("failed to update post: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("failed to commit post: %w", err)
	}
	return inserted > 0, nil
}

// GetPost returns the post with the given ID, or nil if there is none.
func (bdb *BoardDB) GetPost(ctx context.Context, id string) (*PostRecord, error) {
	row := bdb.db.QueryRowContext(ctx, `
	SELECT id, source, header, body, first_seen, last_seen, seen_count
	FROM posts WHERE id = ?
	`, id)

	rec, err := scanPost(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get post: %w", err)
	}
	return rec, nil
}

// ListPosts returns the newest posts first. An empty source lists every
// board; a limit of zero or less lists everything.
func (bdb *BoardDB) ListPosts(ctx context.Context, source string, limit int) ([]PostRecord, error) {
	query := `
	SELECT id, source, header, body, first_seen, last_seen, seen_count
	FROM posts
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY first_seen DESC, rowid DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := bdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	var results []PostRecord
	for rows.Next() {
		rec, err := scanPost(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		results = append(results, *rec)
	}
	return results, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanPost(row rowScanner) (*PostRecord, error) {
	var (
		rec       PostRecord
		firstSeen string
		lastSeen  string
	)
	if err := row.Scan(&rec.ID, &rec.Source, &rec.Header, &rec.Body, &firstSeen, &lastSeen, &rec.SeenCount); err != nil {
		return nil, err
	}
	rec.FirstSeen = parseTimestamp(firstSeen)
	rec.LastSeen = parseTimestamp(lastSeen)
	return &rec, nil
}

// FetchRecord is a stored fetch summary.
type FetchRecord struct {
	ID         int64
	Source     string
	StartedAt  time.Time
	StatusCode int
	BytesRead  int64
	Fragments  int
	Posts      int
	Skipped    int
	New        int
	Duration   time.Duration
	Status     model.Status
	Error      string
}

// SaveFetch records the outcome of one board fetch.
func (bdb *BoardDB) SaveFetch(ctx context.Context, r *model.BoardReport) (int64, error) {
	result, err := bdb.db.ExecContext(ctx, `
	INSERT INTO fetches (source, started_at, status_code, bytes_read, fragments, posts, skipped, new_posts, duration_ms, status, error)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		r.Source,
		formatTimestamp(r.StartedAt),
		r.StatusCode,
		r.BytesRead,
		r.Fragments,
		len(r.Posts),
		r.Skipped,
		r.New,
		r.Duration.Milliseconds(),
		string(r.Status()),
		r.ErrorMessage,
	)
	if err != nil {
		return 0, fmt.Errorf("failed to save fetch: %w", err)
	}
	return result.LastInsertId()
}

// ListFetches returns the newest fetches first, filtered like ListPosts.
func (bdb *BoardDB) ListFetches(ctx context.Context, source string, limit int) ([]FetchRecord, error) {
	query := `
	SELECT id, source, started_at, status_code, bytes_read, fragments, posts, skipped, new_posts, duration_ms, status, error
	FROM fetches
	WHERE 1=1
	`
	args := make([]any, 0, 2)
	if source != "" {
		query += " AND source = ?"
		args = append(args, source)
	}
	query += " ORDER BY started_at DESC, id DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := bdb.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query fetches: %w", err)
	}
	defer rows.Close()

	var results []FetchRecord
	for rows.Next() {
		var (
			rec        FetchRecord
			startedAt  string
			durationMS int64
			status     string
			errMsg     sql.NullString
		)
		if err := rows.Scan(
			&rec.ID,
			&rec.Source,
			&startedAt,
			&rec.StatusCode,
			&rec.BytesRead,
			&rec.Fragments,
			&rec.Posts,
			&rec.Skipped,
			&rec.New,
			&durationMS,
			&status,
			&errMsg,
		); err != nil {
			return nil, fmt.Errorf("failed to scan fetch: %w", err)
		}
		rec.StartedAt = parseTimestamp(startedAt)
		rec.Duration = time.Duration(durationMS) * time.Millisecond
		rec.Status = model.Status(status)
		rec.Error = errMsg.String
		results = append(results, rec)
	}
	return results, rows.Err()
}

// ListSources returns every board that has stored posts or fetches.
func (bdb *BoardDB) ListSources(ctx context.Context) ([]string, error) {
	rows, err := bdb.db.QueryContext(ctx, `
	SELECT source FROM posts
	UNION
	SELECT source FROM fetches
	ORDER BY source
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to list sources: %w", err)
	}
	defer rows.Close()

	var sources []string
	for rows.Next() {
		var source string
		if err := rows.Scan(&source); err != nil {
			return nil, fmt.Errorf("failed to scan source: %w", err)
		}
		sources = append(sources, source)
	}
	return sources, rows.Err()
}

// timestampLayout is fixed-width so that stored timestamps sort as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

func formatTimestamp(t time.Time) string {
	if t.IsZero() {
		t = time.Now()
	}
	return t.UTC().Format(timestampLayout)
}

// timestampFormats are tried in order by parseTimestamp.
var timestampFormats = []string{
	timestampLayout,
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05", // SQLite CURRENT_TIMESTAMP
}

// parseTimestamp returns the zero time if s matches no known format.
func parseTimestamp(s string) time.Time {
	for _, format := range timestampFormats {
		if t, err := time.Parse(format, s); err == nil {
			return t
		}
	}
	return time.Time{}
}
