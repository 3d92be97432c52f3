//go:build integration || e2e

package integration

import (
	"context"
	"fmt"
	"time"

	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/welldanyogia/icd-messaging-backend/internal/config"
	"github.com/welldanyogia/icd-messaging-backend/internal/database"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// Postgres is a throwaway PostgreSQL container with the message schema migrated
type Postgres struct {
	Container testcontainers.Container
	DB        *gorm.DB
}

// StartPostgres launches postgres:16-alpine and migrates it
func StartPostgres(ctx context.Context) (*Postgres, error) {
	req := testcontainers.ContainerRequest{
		Image:        "postgres:16-alpine",
		ExposedPorts: []string{"5432/tcp"},
		Env: map[string]string{
			"POSTGRES_USER":     "test",
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_DB":       "icd_messaging_test",
		},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		return nil, fmt.Errorf("start postgres: %w", err)
	}

	host, err := container.Host(ctx)
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	port, err := container.MappedPort(ctx, "5432")
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	dsn := fmt.Sprintf("host=%s port=%s user=test password=test dbname=icd_messaging_test sslmode=disable",
		host, port.Port())
	db, err := database.Connect(database.Options{
		Driver:   config.DriverPostgres,
		URL:      dsn,
		LogLevel: logger.Silent,
	})
	if err != nil {
		container.Terminate(ctx)
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		container.Terminate(ctx)
		return nil, err
	}

	return &Postgres{Container: container, DB: db}, nil
}

// Truncate empties every message table
func (p *Postgres) Truncate() error {
	return p.DB.Exec("TRUNCATE TABLE read_receipts, message_departments, messages CASCADE").Error
}

// Stop closes the connection and removes the container
func (p *Postgres) Stop(ctx context.Context) {
	database.Close(p.DB)
	p.Container.Terminate(ctx)
}
