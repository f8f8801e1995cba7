package database

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"portfolio/internal/types"
	"time"

	"github.com/golang-migrate/migrate/v4"
	"github.com/golang-migrate/migrate/v4/database/sqlite"
	"github.com/golang-migrate/migrate/v4/source/iofs"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// timeLayout is fixed width so that lexical order of stored timestamps
// matches chronological order.
const timeLayout = "2006-01-02T15:04:05.000000Z"

// Sink receives every pageview after it has been committed.
type Sink interface {
	Push(pv types.Pageview)
}

type Database struct {
	db   *sqlx.DB
	now  func() time.Time
	sink Sink
}

type Option func(*Database)

// WithClock replaces time.Now as the source of row timestamps.
func WithClock(now func() time.Time) Option {
	return func(d *Database) { d.now = now }
}

func WithSink(sink Sink) Option {
	return func(d *Database) { d.sink = sink }
}

// ConnectSQLite opens (creating if needed) the analytics database file and
// brings its schema up to date. Writers take the file lock when their
// transaction begins, so concurrent pageviews for one visitor serialize.
func ConnectSQLite(path string, opts ...Option) (*Database, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir: %w", err)
		}
	}

	dsn := path + "?_pragma=busy_timeout(10000)&_pragma=journal_mode(WAL)&_txlock=immediate"
	db, err := sqlx.Connect("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	d := &Database{db: db, now: time.Now}
	for _, opt := range opts {
		opt(d)
	}

	if err := d.RunMigrations(); err != nil {
		db.Close()
		return nil, err
	}

	return d, nil
}

func (d *Database) RunMigrations() error {
	src, err := iofs.New(migrationsFS, "migrations")
	if err != nil {
		return err
	}

	driver, err := sqlite.WithInstance(d.db.DB, &sqlite.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", src,
		"sqlite", driver)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply migrations: %w", err)
	}

	slog.Info("Database migrations applied successfully")
	return nil
}

func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

func (d *Database) Close() error {
	return d.db.Close()
}

func (d *Database) clock() time.Time {
	return d.now().UTC()
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(timeLayout, s)
}

// cutoffDays returns the lower bound for a trailing window of days days.
func (d *Database) cutoffDays(days int) string {
	return formatTime(d.clock().AddDate(0, 0, -days))
}
