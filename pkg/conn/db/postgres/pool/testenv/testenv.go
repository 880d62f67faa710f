// Package testenv gives tests pools to a real postgres.
//
// The database is specified by the environment variable EOFLOW_TEST_DATABASE, as a connection url.
// Tests using it are skipped without the variable.
//
// Tables are truncated between tests. Do not run packages using the same database in parallel (go test -p 1).
package testenv

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v4/pgxpool"
	kpool "github.com/opst/eoflow/pkg/conn/db/postgres/pool"
	"github.com/opst/eoflow/pkg/conn/db/postgres/schema"
	logtest "github.com/sirupsen/logrus/hooks/test"
)

const EnvDatabase = "EOFLOW_TEST_DATABASE"

// PoolBroaker gives pools.
type PoolBroaker interface {
	// GetPool returns a pool.
	//
	// Tables are cleared before returning and after t.
	GetPool(ctx context.Context, t *testing.T) kpool.Pool
}

type pg struct {
	pool *pgxpool.Pool
}

func (p *pg) GetPool(ctx context.Context, t *testing.T) kpool.Pool {
	t.Helper()
	t.Cleanup(func() {
		ClearTables(context.Background(), p.pool, t)
	})
	ClearTables(ctx, p.pool, t)
	return kpool.Wrap(p.pool)
}

// NewPoolBroaker connects to the test database, and upgrades its schema to the latest.
//
// The connection is closed after t.
func NewPoolBroaker(ctx context.Context, t *testing.T) PoolBroaker {
	t.Helper()

	url := os.Getenv(EnvDatabase)
	if url == "" {
		t.Skipf("%s is not set", EnvDatabase)
	}

	pool, err := pgxpool.Connect(ctx, url)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(pool.Close)

	logger, _ := logtest.NewNullLogger()
	if err := schema.New(kpool.Wrap(pool), logger).Upgrade(ctx); err != nil {
		t.Fatalf("schema: %v", err)
	}
	return &pg{pool: pool}
}

func ClearTables(ctx context.Context, p *pgxpool.Pool, t *testing.T) {
	t.Helper()

	for _, command := range []string{
		// others go by cascade.
		`truncate "job" cascade`,
		`truncate "workflow_node" cascade`,
		`truncate "component" cascade`,
	} {
		if _, err := p.Exec(ctx, command); err != nil {
			t.Errorf("failed to clear tables: %v", err)
		}
	}
}
