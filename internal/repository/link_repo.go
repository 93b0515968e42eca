package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/lib/pq"
	"github.com/mattn/go-sqlite3"

	"github.com/darkodi/url-diet/internal/config"
	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/migrations"
	"github.com/darkodi/url-diet/internal/model"
)

var (
	ErrNotFound     = errors.New("link not found")
	ErrDuplicateKey = errors.New("short key already exists")
)

// LinkRepository is the MetadataStore: link rows and redirect logs in a
// relational database (PostgreSQL in production, SQLite for development).
type LinkRepository struct {
	db     *sql.DB
	driver string
}

// NewLinkRepository opens the database, applies migrations and returns the
// repository. The repository owns the connection.
func NewLinkRepository(cfg *config.DatabaseConfig, log *logger.Logger) (*LinkRepository, error) {
	db, err := sql.Open(cfg.Driver, cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", cfg.Driver, err)
	}

	if cfg.Driver == "sqlite3" {
		// One connection: SQLite serialises writers anyway, and ":memory:"
		// databases exist per connection.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)
	}

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping %s: %w", cfg.Driver, err)
	}

	if err := migrations.Up(db, cfg.Driver, log); err != nil {
		db.Close()
		return nil, err
	}

	return &LinkRepository{db: db, driver: cfg.Driver}, nil
}

// Create inserts a new link row. A second row for the same key fails with
// ErrDuplicateKey.
func (r *LinkRepository) Create(ctx context.Context, link *model.Link) error {
	_, err := r.db.ExecContext(ctx, r.rebind(
		"INSERT INTO links (short_key, long_url, created_at, total_clicks) VALUES (?, ?, ?, ?)"),
		link.ShortKey, link.LongURL, link.CreatedAt, link.TotalClicks,
	)
	if isUniqueViolation(err) {
		return ErrDuplicateKey
	}
	if err != nil {
		return fmt.Errorf("insert link %s: %w", link.ShortKey, err)
	}
	return nil
}

// EnsureLink inserts link unless a row for its key exists and reports
// whether it inserted. Safe to repeat.
func (r *LinkRepository) EnsureLink(ctx context.Context, link *model.Link) (bool, error) {
	result, err := r.db.ExecContext(ctx, r.rebind(
		"INSERT INTO links (short_key, long_url, created_at, total_clicks) VALUES (?, ?, ?, ?) "+
			"ON CONFLICT (short_key) DO NOTHING"),
		link.ShortKey, link.LongURL, link.CreatedAt, link.TotalClicks,
	)
	if err != nil {
		return false, fmt.Errorf("ensure link %s: %w", link.ShortKey, err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("ensure link %s: %w", link.ShortKey, err)
	}
	return n == 1, nil
}

func (r *LinkRepository) GetByKey(ctx context.Context, key string) (*model.Link, error) {
	link := &model.Link{}
	var lastClick sql.NullInt64
	err := r.db.QueryRowContext(ctx, r.rebind(
		"SELECT short_key, long_url, created_at, total_clicks, last_click FROM links WHERE short_key = ?"),
		key,
	).Scan(&link.ShortKey, &link.LongURL, &link.CreatedAt, &link.TotalClicks, &lastClick)

	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select link %s: %w", key, err)
	}
	if lastClick.Valid {
		link.LastClick = &lastClick.Int64
	}
	return link, nil
}

// RecordRedirect appends the log entry and bumps the link's counters in one
// transaction. The link row is not required to exist.
func (r *LinkRepository) RecordRedirect(ctx context.Context, entry *model.RedirectLogEntry) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	_, err = tx.ExecContext(ctx, r.rebind(
		"INSERT INTO redirect_logs (short_key, clicked_at, ip_hash, user_agent, referrer) VALUES (?, ?, ?, ?, ?)"),
		entry.ShortKey, entry.Timestamp, entry.IPHash, entry.UserAgent, entry.Referrer,
	)
	if err != nil {
		return rollback(tx, fmt.Errorf("insert redirect log %s: %w", entry.ShortKey, err))
	}

	_, err = tx.ExecContext(ctx, r.rebind(
		"UPDATE links SET total_clicks = total_clicks + 1, last_click = ? WHERE short_key = ?"),
		entry.Timestamp, entry.ShortKey,
	)
	if err != nil {
		return rollback(tx, fmt.Errorf("update link %s: %w", entry.ShortKey, err))
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit redirect %s: %w", entry.ShortKey, err)
	}
	return nil
}

// CountRedirectLogs returns how many log rows exist for key
func (r *LinkRepository) CountRedirectLogs(ctx context.Context, key string) (int64, error) {
	var n int64
	err := r.db.QueryRowContext(ctx, r.rebind(
		"SELECT COUNT(*) FROM redirect_logs WHERE short_key = ?"), key,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count redirect logs %s: %w", key, err)
	}
	return n, nil
}

func (r *LinkRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func (r *LinkRepository) Close() error {
	return r.db.Close()
}

// ============================================================
// HELPERS
// ============================================================

// rebind rewrites ? placeholders to $n for PostgreSQL
func (r *LinkRepository) rebind(query string) string {
	if r.driver != "postgres" {
		return query
	}

	var b strings.Builder
	b.Grow(len(query) + 8)
	n := 0
	for i := 0; i < len(query); i++ {
		if query[i] == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteByte(query[i])
	}
	return b.String()
}

func rollback(tx *sql.Tx, err error) error {
	if rbErr := tx.Rollback(); rbErr != nil {
		return fmt.Errorf("%w (rollback: %v)", err, rbErr)
	}
	return err
}

func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}

	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}

	var liteErr sqlite3.Error
	if errors.As(err, &liteErr) {
		return liteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey ||
			liteErr.ExtendedCode == sqlite3.ErrConstraintUnique
	}
	return false
}
