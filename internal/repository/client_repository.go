package repository

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk/internal/entities"
)

const clientColumns = "id, channel_user_id, override_id, display_name, email, phone, is_blocked, created_at"

// qualifyTenantTable returns the schema-qualified table name, failing fast
// when the tenant context was never set.
func qualifyTenantTable(tc entities.TenantContext, table string) (string, error) {
	if err := tc.Validate(); err != nil {
		return "", err
	}
	return fmt.Sprintf("%s.%s", sanitizeSchemaName(tc.Schema), table), nil
}

type ClientRepository struct {
	db *pgxpool.Pool
}

func NewClientRepository(db *pgxpool.Pool) *ClientRepository {
	return &ClientRepository{db: db}
}

func (r *ClientRepository) FindByOverrideID(ctx context.Context, tc entities.TenantContext, overrideID string) (*entities.Client, error) {
	return r.findOne(ctx, tc, "override_id = $1", overrideID)
}

func (r *ClientRepository) FindByChannelUserID(ctx context.Context, tc entities.TenantContext, channelUserID string) (*entities.Client, error) {
	return r.findOne(ctx, tc, "channel_user_id = $1", channelUserID)
}

// FindByEmail matches the email, and the phone too when one is supplied.
func (r *ClientRepository) FindByEmail(ctx context.Context, tc entities.TenantContext, email, phone string) (*entities.Client, error) {
	if phone != "" {
		return r.findOne(ctx, tc, "email = $1 AND phone = $2", email, phone)
	}
	return r.findOne(ctx, tc, "email = $1", email)
}

func (r *ClientRepository) FindByPhone(ctx context.Context, tc entities.TenantContext, phone string) (*entities.Client, error) {
	return r.findOne(ctx, tc, "phone = $1", phone)
}

func (r *ClientRepository) findOne(ctx context.Context, tc entities.TenantContext, where string, args ...interface{}) (*entities.Client, error) {
	table, err := qualifyTenantTable(tc, "clients")
	if err != nil {
		return nil, err
	}

	var c entities.Client
	var channelUserID, overrideID, displayName, email, phone *string
	err = r.db.QueryRow(ctx,
		fmt.Sprintf("SELECT %s FROM %s WHERE %s ORDER BY id LIMIT 1", clientColumns, table, where),
		args...).
		Scan(&c.ID, &channelUserID, &overrideID, &displayName, &email, &phone, &c.IsBlocked, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil // Not found
	}
	if err != nil {
		return nil, fmt.Errorf("find client: %w", err)
	}
	assignIfSet(&c.ChannelUserID, channelUserID)
	assignIfSet(&c.OverrideID, overrideID)
	assignIfSet(&c.DisplayName, displayName)
	assignIfSet(&c.Email, email)
	assignIfSet(&c.Phone, phone)
	return &c, nil
}

func (r *ClientRepository) Create(ctx context.Context, tc entities.TenantContext, client *entities.Client) error {
	table, err := qualifyTenantTable(tc, "clients")
	if err != nil {
		return err
	}
	err = r.db.QueryRow(ctx, fmt.Sprintf(`
		INSERT INTO %s (channel_user_id, override_id, display_name, email, phone)
		VALUES (NULLIF($1,''), NULLIF($2,''), NULLIF($3,''), NULLIF($4,''), NULLIF($5,''))
		RETURNING id, created_at
	`, table),
		client.ChannelUserID, client.OverrideID, client.DisplayName, client.Email, client.Phone).
		Scan(&client.ID, &client.CreatedAt)
	if err != nil {
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func assignIfSet(dst *string, src *string) {
	if src != nil {
		*dst = *src
	}
}
