package integration

import (
	"context"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/gorm"

	"github.com/quizdesk/quizdesk/pkg/db"
	"github.com/quizdesk/quizdesk/pkg/store"
	gormstore "github.com/quizdesk/quizdesk/pkg/store/gorm"
	"github.com/quizdesk/quizdesk/pkg/store/memory"
)

// TestContext holds the record store shared by every device of a run
type TestContext struct {
	DB          *gorm.DB
	Container   testcontainers.Container
	DatabaseURL string
	Postgres    bool
}

// NewTestContext creates a test context. With INTEGRATION_TEST set, the
// record store is a migrated PostgreSQL testcontainer; otherwise every
// scenario gets a fresh in-memory store.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	if os.Getenv("INTEGRATION_TEST") == "" {
		log.Println("Using in-memory record store (set INTEGRATION_TEST=1 for PostgreSQL)")
		return &TestContext{}, nil
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("quizdesk_test"),
		tcpostgres.WithUsername("quizdesk"),
		tcpostgres.WithPassword("quizdesk"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	if _, err := db.Migrate(connStr); err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	database, err := db.Connect(db.Config{URL: connStr})
	if err != nil {
		_ = pgContainer.Terminate(ctx)
		return nil, err
	}

	return &TestContext{
		DB:          database,
		Container:   pgContainer,
		DatabaseURL: connStr,
		Postgres:    true,
	}, nil
}

// NewRecordStore returns an empty record store for one scenario.
func (tc *TestContext) NewRecordStore() (store.RecordStore, error) {
	if !tc.Postgres {
		return memory.NewRecordStore(), nil
	}
	if err := tc.DB.Exec("TRUNCATE users").Error; err != nil {
		return nil, fmt.Errorf("failed to reset users: %w", err)
	}
	return gormstore.NewRecordStore(tc.DB), nil
}

// Close cleans up all test resources
func (tc *TestContext) Close(ctx context.Context) {
	if tc.DB != nil {
		if raw, err := tc.DB.DB(); err == nil {
			_ = raw.Close()
		}
	}
	if tc.Container != nil {
		_ = tc.Container.Terminate(ctx)
	}
}
