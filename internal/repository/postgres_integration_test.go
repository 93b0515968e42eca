//go:build integration

package repository

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	tc "github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/darkodi/url-diet/internal/config"
	"github.com/darkodi/url-diet/internal/logger"
	"github.com/darkodi/url-diet/internal/model"
)

func setupPostgresRepo(t *testing.T) (*LinkRepository, string) {
	t.Helper()
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("urldiet"),
		tcpostgres.WithUsername("urldiet"),
		tcpostgres.WithPassword("urldiet"),
		tc.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	repo, err := NewLinkRepository(&config.DatabaseConfig{Driver: "postgres", DSN: dsn}, logger.Discard())
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	return repo, dsn
}

func TestPostgres_LinkLifecycle(t *testing.T) {
	ctx := context.Background()
	repo, _ := setupPostgresRepo(t)

	link := &model.Link{ShortKey: "pg000001", LongURL: "https://example.com", CreatedAt: 1700000000}
	require.NoError(t, repo.Create(ctx, link))
	assert.ErrorIs(t, repo.Create(ctx, link), ErrDuplicateKey)

	inserted, err := repo.EnsureLink(ctx, link)
	require.NoError(t, err)
	assert.False(t, inserted)

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func(ts int64) {
			defer wg.Done()
			assert.NoError(t, repo.RecordRedirect(ctx, &model.RedirectLogEntry{
				ShortKey:  "pg000001",
				Timestamp: ts,
				IPHash:    "ab",
			}))
		}(1700000100 + int64(i))
	}
	wg.Wait()

	got, err := repo.GetByKey(ctx, "pg000001")
	require.NoError(t, err)
	assert.Equal(t, int64(10), got.TotalClicks)
	require.NotNil(t, got.LastClick)

	n, err := repo.CountRedirectLogs(ctx, "pg000001")
	require.NoError(t, err)
	assert.Equal(t, int64(10), n)

	_, err = repo.GetByKey(ctx, "missing0")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgres_MigrationsAreIdempotent(t *testing.T) {
	ctx := context.Background()
	repo, dsn := setupPostgresRepo(t)
	require.NoError(t, repo.Create(ctx, &model.Link{ShortKey: "keep0000", LongURL: "https://example.com", CreatedAt: 1}))

	// A second instance against the same database finds nothing to apply
	again, err := NewLinkRepository(&config.DatabaseConfig{Driver: "postgres", DSN: dsn}, logger.Discard())
	require.NoError(t, err)
	defer again.Close()

	got, err := again.GetByKey(ctx, "keep0000")
	require.NoError(t, err)
	assert.Equal(t, "https://example.com", got.LongURL)
}
