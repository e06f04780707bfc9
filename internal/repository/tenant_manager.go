package repository

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk/internal/entities"
)

type TenantManager struct {
	db *pgxpool.Pool
}

func NewTenantManager(db *pgxpool.Pool) *TenantManager {
	return &TenantManager{db: db}
}

// sanitizeSchemaName ensures schema name is safe for SQL
func sanitizeSchemaName(name string) string {
	reg := regexp.MustCompile("[^a-zA-Z0-9_]+")
	return strings.ToLower(reg.ReplaceAllString(name, "_"))
}

// CreateTenant registers the tenant and provisions its data partition: a
// dedicated schema with the conversational tables. Catalog row and schema
// are created in one transaction.
func (t *TenantManager) CreateTenant(ctx context.Context, name string) (*entities.Tenant, error) {
	tx, err := t.db.Begin(ctx)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	tenant := &entities.Tenant{Name: name}
	err = tx.QueryRow(ctx,
		"INSERT INTO tenants (name, schema_name) VALUES ($1, '') RETURNING id",
		name).Scan(&tenant.ID)
	if err != nil {
		return nil, fmt.Errorf("insert tenant: %w", err)
	}

	tenant.SchemaName = fmt.Sprintf("t_%d", tenant.ID)
	if _, err := tx.Exec(ctx,
		"UPDATE tenants SET schema_name = $1 WHERE id = $2",
		tenant.SchemaName, tenant.ID); err != nil {
		return nil, fmt.Errorf("set tenant schema name: %w", err)
	}

	if err := createPartitionTables(ctx, tx, tenant.SchemaName); err != nil {
		return nil, err
	}

	return tenant, tx.Commit(ctx)
}

func createPartitionTables(ctx context.Context, tx pgx.Tx, schemaName string) error {
	schemaName = sanitizeSchemaName(schemaName)

	if _, err := tx.Exec(ctx, fmt.Sprintf("CREATE SCHEMA IF NOT EXISTS %s", schemaName)); err != nil {
		return fmt.Errorf("failed to create schema: %w", err)
	}

	tables := []string{
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.clients (
				id BIGSERIAL PRIMARY KEY,
				channel_user_id VARCHAR(256),
				override_id VARCHAR(256),
				display_name VARCHAR(256),
				email VARCHAR(256),
				phone VARCHAR(64),
				is_blocked BOOLEAN DEFAULT FALSE,
				created_at TIMESTAMPTZ DEFAULT NOW()
			)
		`, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.conversations (
				id BIGSERIAL PRIMARY KEY,
				channel_id INT NOT NULL,
				client_id BIGINT NOT NULL REFERENCES %s.clients(id),
				chat_id VARCHAR(256),
				last_message TEXT,
				messages_count INT NOT NULL DEFAULT 0,
				status VARCHAR(16) NOT NULL DEFAULT 'active',
				created_at TIMESTAMPTZ DEFAULT NOW(),
				updated_at TIMESTAMPTZ DEFAULT NOW(),
				UNIQUE (channel_id, client_id)
			)
		`, schemaName, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.messages (
				id BIGSERIAL PRIMARY KEY,
				conversation_id BIGINT NOT NULL REFERENCES %s.conversations(id),
				direction VARCHAR(16) NOT NULL,
				content TEXT NOT NULL,
				raw_json JSONB,
				created_at TIMESTAMPTZ DEFAULT NOW()
			)
		`, schemaName, schemaName),
		fmt.Sprintf(`
			CREATE TABLE IF NOT EXISTS %s.decision_audits (
				id BIGSERIAL PRIMARY KEY,
				conversation_id BIGINT NOT NULL REFERENCES %s.conversations(id),
				step_kind VARCHAR(64) NOT NULL,
				confidence DOUBLE PRECISION NOT NULL,
				slots_json JSONB,
				created_at TIMESTAMPTZ DEFAULT NOW()
			)
		`, schemaName, schemaName),
	}

	for _, ddl := range tables {
		if _, err := tx.Exec(ctx, ddl); err != nil {
			return fmt.Errorf("failed to create table: %w", err)
		}
	}
	return nil
}

// DropTenantSchema removes a tenant's schema and all data
func (t *TenantManager) DropTenantSchema(ctx context.Context, schemaName string) error {
	schemaName = sanitizeSchemaName(schemaName)
	_, err := t.db.Exec(ctx, fmt.Sprintf("DROP SCHEMA IF EXISTS %s CASCADE", schemaName))
	return err
}

func (t *TenantManager) GetByID(ctx context.Context, id int) (*entities.Tenant, error) {
	var tenant entities.Tenant
	err := t.db.QueryRow(ctx,
		"SELECT id, name, schema_name FROM tenants WHERE id = $1", id).
		Scan(&tenant.ID, &tenant.Name, &tenant.SchemaName)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get tenant %d: %w", id, err)
	}
	return &tenant, nil
}

func (t *TenantManager) List(ctx context.Context) ([]entities.Tenant, error) {
	rows, err := t.db.Query(ctx, "SELECT id, name, schema_name FROM tenants ORDER BY id")
	if err != nil {
		return nil, fmt.Errorf("list tenants: %w", err)
	}
	defer rows.Close()

	tenants := []entities.Tenant{}
	for rows.Next() {
		var tenant entities.Tenant
		if err := rows.Scan(&tenant.ID, &tenant.Name, &tenant.SchemaName); err != nil {
			return nil, err
		}
		tenants = append(tenants, tenant)
	}
	return tenants, rows.Err()
}
