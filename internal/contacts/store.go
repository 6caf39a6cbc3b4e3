package contacts

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite"

	"github.com/vango-dev/uiregistry/internal/errors"
	"github.com/vango-dev/uiregistry/pkg/tablequery"
)

//go:embed migrations/*.sql
var migrations embed.FS

// goose keeps its base FS and dialect in package globals.
var gooseMu sync.Mutex

// Store persists contacts, companies, emails and phones.
type Store struct {
	db      *sql.DB
	dialect tablequery.Dialect
	logger  *slog.Logger
	now     func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		s.logger = l
	}
}

// Open connects to a database. driver is "pgx" for PostgreSQL or "sqlite".
func Open(ctx context.Context, driver, dsn string, opts ...Option) (*Store, error) {
	var dialect tablequery.Dialect
	switch driver {
	case "pgx":
		dialect = tablequery.Postgres
	case "sqlite":
		dialect = tablequery.SQLite
	default:
		return nil, errors.New("E122").WithResource(driver)
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, errors.New("E030").WithResource(driver).Wrap(err)
	}
	if dialect == tablequery.SQLite {
		// One connection keeps :memory: databases shared and serializes writers.
		db.SetMaxOpenConns(1)
	}
	if err := db.PingContext(ctx); err != nil {
		_ = db.Close()
		return nil, errors.New("E030").WithResource(driver).Wrap(err)
	}
	if dialect == tablequery.SQLite {
		if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = ON"); err != nil {
			_ = db.Close()
			return nil, errors.New("E030").WithResource(driver).Wrap(err)
		}
	}

	s := New(db, dialect, opts...)
	s.logger.Debug("contacts store opened", "driver", driver)
	return s, nil
}

// New wraps an open database.
func New(db *sql.DB, dialect tablequery.Dialect, opts ...Option) *Store {
	s := &Store{
		db:      db,
		dialect: dialect,
		logger:  slog.Default(),
		now:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close closes the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// Dialect returns the SQL dialect of the store.
func (s *Store) Dialect() tablequery.Dialect {
	return s.dialect
}

func (s *Store) gooseDialect() string {
	if s.dialect == tablequery.SQLite {
		return "sqlite3"
	}
	return "postgres"
}

// Migrate applies pending migrations.
func (s *Store) Migrate(ctx context.Context) error {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	goose.SetLogger(goose.NopLogger())
	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return errors.New("E031").Wrap(err)
	}
	if err := goose.UpContext(ctx, s.db, "migrations"); err != nil {
		return errors.New("E031").Wrap(err)
	}

	s.logger.Info("contacts migrations applied")
	return nil
}

// Version returns the current migration version.
func (s *Store) Version(ctx context.Context) (int64, error) {
	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations)
	if err := goose.SetDialect(s.gooseDialect()); err != nil {
		return 0, errors.New("E031").Wrap(err)
	}
	v, err := goose.GetDBVersionContext(ctx, s.db)
	if err != nil {
		return 0, errors.New("E031").Wrap(err)
	}
	return v, nil
}

// rebind rewrites ? placeholders for the store dialect.
func (s *Store) rebind(query string) string {
	if s.dialect != tablequery.Postgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString(s.dialect.Placeholder(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// placeholders returns "?, ?, ..." for n arguments.
func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}

func (s *Store) withTx(ctx context.Context, fn func(tx *sql.Tx) error) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return errors.New("E032").Wrap(err)
	}
	if err := fn(tx); err != nil {
		_ = tx.Rollback()
		return err
	}
	if err := tx.Commit(); err != nil {
		return errors.New("E032").Wrap(err)
	}
	return nil
}

// queryFailed wraps a driver error unless it already carries a code.
func queryFailed(err error, what string) error {
	if _, ok := errors.As(err); ok {
		return err
	}
	return errors.New("E032").WithResource(what).Wrap(err)
}

// timestamp scans the time representations drivers return.
type timestamp struct {
	t *time.Time
}

var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999Z07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// Scan implements sql.Scanner.
func (ts timestamp) Scan(v any) error {
	switch x := v.(type) {
	case nil:
		*ts.t = time.Time{}
		return nil
	case time.Time:
		*ts.t = x
		return nil
	case []byte:
		return ts.parse(string(x))
	case string:
		return ts.parse(x)
	}
	return fmt.Errorf("cannot scan %T into timestamp", v)
}

func (ts timestamp) parse(s string) error {
	for _, layout := range timeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			*ts.t = t
			return nil
		}
	}
	return fmt.Errorf("cannot parse timestamp %q", s)
}
