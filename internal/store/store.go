// Package store persists parsed records in SQLite, one table per collection.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/ppiankov/lawparse/internal/model"
)

// Collections.
const (
	Constitutions = "constitutions"
	Laws          = "laws"
)

// ConstitutionLevel is the catalog level stored in the constitutions
// collection.
const ConstitutionLevel = "宪法"

var collections = []string{Constitutions, Laws}

var (
	// ErrNotFound is returned by Get for unknown ids.
	ErrNotFound = errors.New("record not found")

	// ErrExists is returned by Save when the id is already stored.
	ErrExists = errors.New("record already exists")
)

const schema = `
CREATE TABLE IF NOT EXISTS %[1]s (
	id TEXT PRIMARY KEY,
	title TEXT NOT NULL,
	level TEXT NOT NULL DEFAULT '',
	office TEXT NOT NULL DEFAULT '',
	status TEXT NOT NULL DEFAULT '',
	publish_date TEXT NOT NULL DEFAULT '',
	articles INTEGER NOT NULL,
	doc TEXT NOT NULL,
	created_at INTEGER NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_%[1]s_title ON %[1]s(title);
`

// Summary is the indexed part of a stored record.
type Summary struct {
	ID          string `db:"id" json:"_id"`
	Title       string `db:"title" json:"title"`
	Level       string `db:"level" json:"level"`
	PublishDate string `db:"publish_date" json:"publish_date"`
	Articles    int    `db:"articles" json:"articles"`
}

// Store is a SQLite-backed record store.
type Store struct {
	db     *sqlx.DB
	logger *slog.Logger
	now    func() time.Time
}

// Open opens (and creates if needed) the database at path.
func Open(path string, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	dsn := path
	if path != ":memory:" && !strings.Contains(path, "?") {
		dsn = path + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(10000)"
	}

	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	// one connection: writes serialize anyway and :memory: is per connection
	db.SetMaxOpenConns(1)

	for _, c := range collections {
		if _, err := db.Exec(fmt.Sprintf(schema, c)); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("init %s: %w", c, err)
		}
	}

	logger.Debug("store opened", "path", path)
	return &Store{db: db, logger: logger, now: time.Now}, nil
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// CollectionFor returns the collection a record of the given level lives in.
func CollectionFor(level string) string {
	if strings.TrimSpace(level) == ConstitutionLevel {
		return Constitutions
	}
	return Laws
}

func checkCollection(c string) error {
	for _, known := range collections {
		if c == known {
			return nil
		}
	}
	return fmt.Errorf("unknown collection %q", c)
}

// Exists reports whether id is stored in collection.
func (s *Store) Exists(ctx context.Context, collection, id string) (bool, error) {
	if err := checkCollection(collection); err != nil {
		return false, err
	}
	query, args, err := sq.Select("COUNT(1)").From(collection).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return false, err
	}
	var n int
	if err := s.db.GetContext(ctx, &n, query, args...); err != nil {
		return false, fmt.Errorf("exists %s/%s: %w", collection, id, err)
	}
	return n > 0, nil
}

// Save inserts a record into the collection for its level.
func (s *Store) Save(ctx context.Context, rec *model.Record) error {
	if rec == nil || rec.ID == "" {
		return fmt.Errorf("save: record has no id")
	}
	collection := CollectionFor(rec.Level)

	doc, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal %s: %w", rec.ID, err)
	}

	query, args, err := sq.Insert(collection).
		Options("OR IGNORE").
		Columns("id", "title", "level", "office", "status", "publish_date", "articles", "doc", "created_at").
		Values(rec.ID, rec.Title, rec.Level, rec.Office, rec.Status, rec.PublishDate, rec.ArticleCount(), string(doc), s.now().Unix()).
		ToSql()
	if err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("save %s/%s: %w", collection, rec.ID, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrExists
	}

	s.logger.Debug("record stored", "collection", collection, "id", rec.ID, "title", rec.Title)
	return nil
}

// Get loads a record by id.
func (s *Store) Get(ctx context.Context, collection, id string) (*model.Record, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	query, args, err := sq.Select("doc").From(collection).Where(sq.Eq{"id": id}).ToSql()
	if err != nil {
		return nil, err
	}

	var doc string
	if err := s.db.GetContext(ctx, &doc, query, args...); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get %s/%s: %w", collection, id, err)
	}

	var rec model.Record
	if err := json.Unmarshal([]byte(doc), &rec); err != nil {
		return nil, fmt.Errorf("decode %s/%s: %w", collection, id, err)
	}
	return &rec, nil
}

// List returns the summaries of a collection ordered by publish date.
func (s *Store) List(ctx context.Context, collection string) ([]Summary, error) {
	if err := checkCollection(collection); err != nil {
		return nil, err
	}
	query, args, err := sq.Select("id", "title", "level", "publish_date", "articles").
		From(collection).
		OrderBy("publish_date", "id").
		ToSql()
	if err != nil {
		return nil, err
	}

	var out []Summary
	if err := s.db.SelectContext(ctx, &out, query, args...); err != nil {
		return nil, fmt.Errorf("list %s: %w", collection, err)
	}
	return out, nil
}
