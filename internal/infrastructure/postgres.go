package infrastructure

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

type PostgresClient struct {
	Pool *pgxpool.Pool
}

func NewPostgresClient(ctx context.Context, connString string) (*PostgresClient, error) {
	config, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, fmt.Errorf("unable to parse connection string: %w", err)
	}

	// Pool configuration
	config.MaxConns = 10
	config.MinConns = 2
	config.MaxConnLifetime = time.Hour
	config.MaxConnIdleTime = 30 * time.Minute

	pool, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("unable to create connection pool: %w", err)
	}

	// Verify connection
	if err := pool.Ping(ctx); err != nil {
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	client := &PostgresClient{Pool: pool}

	if err := client.Migrate(ctx); err != nil {
		return nil, fmt.Errorf("migration failed: %w", err)
	}

	return client, nil
}

// Migrate creates the shared (public schema) tables: tenant/channel catalog,
// admin users and the events table. Tenant-partition tables are created per
// schema by the TenantManager.
func (p *PostgresClient) Migrate(ctx context.Context) error {
	_, err := p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS users (
			id SERIAL PRIMARY KEY,
			username VARCHAR(50) UNIQUE NOT NULL,
			password_hash VARCHAR(255) NOT NULL,
			role VARCHAR(20) DEFAULT 'operator',
			tenant_id INT DEFAULT 0,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create users table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS tenants (
			id SERIAL PRIMARY KEY,
			name VARCHAR(256) NOT NULL,
			schema_name VARCHAR(64) UNIQUE NOT NULL,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create tenants table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS channels (
			id SERIAL PRIMARY KEY,
			tenant_id INT NOT NULL REFERENCES tenants(id),
			channel_type VARCHAR(32) NOT NULL,
			token VARCHAR(64) UNIQUE NOT NULL,
			settings JSONB,
			is_active BOOLEAN DEFAULT TRUE,
			created_at TIMESTAMPTZ DEFAULT NOW()
		);
	`)
	if err != nil {
		return fmt.Errorf("create channels table: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		CREATE TABLE IF NOT EXISTS events (
			id BIGSERIAL PRIMARY KEY,
			event_type VARCHAR(64) NOT NULL,
			payload JSONB NOT NULL,
			status VARCHAR(16) NOT NULL DEFAULT 'pending',
			retry_count INT NOT NULL DEFAULT 0,
			max_retries INT NOT NULL DEFAULT 2,
			processing_id VARCHAR(50),
			processing_started_at TIMESTAMPTZ,
			processed_at TIMESTAMPTZ,
			next_retry_at TIMESTAMPTZ,
			error_message VARCHAR(2000),
			error_trace TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_events_status_created
			ON events (status, created_at);
	`)
	if err != nil {
		return fmt.Errorf("create events table: %w", err)
	}

	// Push channel: NOTIFY 'events' with the row id on insert and on every
	// transition back to pending (retry requeue, manual requeue).
	_, err = p.Pool.Exec(ctx, `
		CREATE OR REPLACE FUNCTION notify_events() RETURNS TRIGGER
		LANGUAGE plpgsql AS $$
		BEGIN
			IF TG_OP = 'INSERT' OR
			   (TG_OP = 'UPDATE' AND OLD.status IS DISTINCT FROM NEW.status AND NEW.status = 'pending')
			THEN
				PERFORM pg_notify('events', NEW.id::text);
			END IF;
			RETURN NEW;
		END;
		$$;
	`)
	if err != nil {
		return fmt.Errorf("create notify_events function: %w", err)
	}

	_, err = p.Pool.Exec(ctx, `
		DROP TRIGGER IF EXISTS events_notify_trigger ON events;
		CREATE TRIGGER events_notify_trigger
			AFTER INSERT OR UPDATE OF status ON events
			FOR EACH ROW EXECUTE PROCEDURE notify_events();
	`)
	if err != nil {
		return fmt.Errorf("create events notify trigger: %w", err)
	}

	return nil
}

func (p *PostgresClient) Close() {
	p.Pool.Close()
}
