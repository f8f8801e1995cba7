package database

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"log/slog"
	"portfolio/internal/metrics"
	"portfolio/internal/types"
	"time"

	"github.com/ClickHouse/clickhouse-go/v2"
	"github.com/golang-migrate/migrate/v4"
	clickmigrations "github.com/golang-migrate/migrate/v4/database/clickhouse"
	"github.com/golang-migrate/migrate/v4/source/iofs"
)

//go:embed migrations/clickhouse/*.sql
var migrationsClickHouseFS embed.FS

const (
	mirrorBufferSize    = 1000
	mirrorBatchSize     = 100
	mirrorFlushInterval = 5 * time.Second
)

// ClickHouse is an append-only copy of the pageview stream for long-range
// analysis outside the dashboard.
type ClickHouse struct {
	db *sql.DB
}

func ConnectClickHouse(ctx context.Context, addr, user, pass, dbName string) (*ClickHouse, error) {
	conn := clickhouse.OpenDB(&clickhouse.Options{
		Addr: []string{addr},
		Auth: clickhouse.Auth{
			Database: dbName,
			Username: user,
			Password: pass,
		},
		DialTimeout: time.Second * 30,
		Compression: &clickhouse.Compression{
			Method: clickhouse.CompressionLZ4,
		},
	})
	if err := conn.PingContext(ctx); err != nil {
		conn.Close()
		return nil, fmt.Errorf("ping clickhouse: %w", err)
	}

	c := &ClickHouse{db: conn}
	if err := c.runMigrations(); err != nil {
		conn.Close()
		return nil, err
	}
	return c, nil
}

func (c *ClickHouse) runMigrations() error {
	d, err := iofs.New(migrationsClickHouseFS, "migrations/clickhouse")
	if err != nil {
		return err
	}

	driver, err := clickmigrations.WithInstance(c.db, &clickmigrations.Config{})
	if err != nil {
		return err
	}

	m, err := migrate.NewWithInstance(
		"iofs", d,
		"clickhouse", driver,
	)
	if err != nil {
		return err
	}

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("apply clickhouse migrations: %w", err)
	}

	slog.Info("ClickHouse migrations applied successfully")
	return nil
}

// InsertPageviews writes one batch. Rows that fail individually are logged
// and skipped so a single bad row does not lose the batch.
func (c *ClickHouse) InsertPageviews(ctx context.Context, rows []types.Pageview) error {
	tx, err := c.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO pageviews (
		timestamp, path, referrer_domain, visitor_id, country, city, browser, os,
		device_type, is_bot, response_time_ms, status_code, utm_source, utm_campaign
	) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, pv := range rows {
		ts, err := parseTime(pv.Timestamp)
		if err != nil {
			slog.Error("skipping pageview with bad timestamp", "error", err, "timestamp", pv.Timestamp)
			continue
		}
		_, err = stmt.ExecContext(ctx,
			ts, pv.Path, pv.ReferrerDomain, pv.VisitorID, pv.Country, pv.City, pv.Browser, pv.OS,
			pv.DeviceType, boolInt(pv.IsBot), uint32(max(pv.ResponseTimeMs, 0)), uint16(pv.StatusCode),
			pv.UTMSource, pv.UTMCampaign)
		if err != nil {
			slog.Error("failed to exec insert for pageview", "error", err, "path", pv.Path)
			continue
		}
	}
	return tx.Commit()
}

func (c *ClickHouse) Close() error {
	return c.db.Close()
}

// Mirror buffers committed pageviews and hands them to insert in batches.
type Mirror struct {
	buffer chan types.Pageview
	insert func(ctx context.Context, rows []types.Pageview) error
	size   int
	every  time.Duration
}

func NewMirror(insert func(ctx context.Context, rows []types.Pageview) error) *Mirror {
	return &Mirror{
		buffer: make(chan types.Pageview, mirrorBufferSize),
		insert: insert,
		size:   mirrorBatchSize,
		every:  mirrorFlushInterval,
	}
}

// Push never blocks; when the buffer is full the row is dropped.
func (m *Mirror) Push(pv types.Pageview) {
	select {
	case m.buffer <- pv:
	default:
		metrics.MirrorDropped.Inc()
		slog.Warn("Mirror buffer full, dropping pageview", "path", pv.Path)
	}
}

// Run flushes batches until ctx is done, then flushes what is left.
func (m *Mirror) Run(ctx context.Context) {
	var batch []types.Pageview
	ticker := time.NewTicker(m.every)
	defer ticker.Stop()

	flush := func(ctx context.Context) {
		if len(batch) == 0 {
			return
		}
		if err := m.insert(ctx, batch); err != nil {
			slog.Warn("Mirror insert error", "error", err, "rows", len(batch))
		} else {
			metrics.MirrorFlushed.Add(float64(len(batch)))
		}
		batch = nil
	}

	for {
		select {
		case pv := <-m.buffer:
			batch = append(batch, pv)
			if len(batch) >= m.size {
				flush(ctx)
			}
		case <-ticker.C:
			flush(ctx)
		case <-ctx.Done():
		drain:
			for {
				select {
				case pv := <-m.buffer:
					batch = append(batch, pv)
				default:
					break drain
				}
			}
			shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
			flush(shutdownCtx)
			cancel()
			return
		}
	}
}
