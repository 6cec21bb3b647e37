package core

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupActivityDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx := context.Background()
	container, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("testdb"),
		tcpostgres.WithUsername("test"),
		tcpostgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)

	pool, err := pgxpool.New(ctx, connStr)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func TestPgAuditor_Postgres(t *testing.T) {
	pool := setupActivityDB(t)
	ctx := ContextWithIPAddress(context.Background(), "198.51.100.7")

	a, err := NewPgAuditor(ctx, pool)
	require.NoError(t, err)

	// Setup is idempotent.
	_, err = NewPgAuditor(ctx, pool)
	require.NoError(t, err)

	svc := NewService(Options{Auditor: a})
	_, err = svc.Ingest(ctx, "sess-1", csvUpload("a,b\n1,2\n1,2"))
	require.NoError(t, err)
	_, err = svc.PreviewRemoveDuplicates(ctx, "sess-1")
	require.NoError(t, err)
	_, err = svc.Commit(ctx, "sess-1")
	require.NoError(t, err)

	rows, err := pool.Query(ctx,
		`SELECT action, row_count, col_count, ip_address FROM dataset_activity
		 WHERE session_id = $1 ORDER BY created_at, action`, "sess-1")
	require.NoError(t, err)
	defer rows.Close()

	type rec struct {
		action string
		rows   int32
		cols   int32
		ip     *string
	}
	var got []rec
	for rows.Next() {
		var r rec
		require.NoError(t, rows.Scan(&r.action, &r.rows, &r.cols, &r.ip))
		got = append(got, r)
	}
	require.NoError(t, rows.Err())

	require.Len(t, got, 3)
	actions := []string{got[0].action, got[1].action, got[2].action}
	assert.ElementsMatch(t, []string{"ingest", "edit_preview", "edit_commit"}, actions)
	for _, r := range got {
		require.NotNil(t, r.ip)
		assert.Equal(t, "198.51.100.7", *r.ip)
		assert.Equal(t, int32(2), r.cols)
	}
}
