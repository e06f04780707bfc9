package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"supportdesk/internal/entities"
)

// ErrChannelNotFound means the token does not map to an active channel.
var ErrChannelNotFound = errors.New("channel not found")

type ChannelRepository struct {
	db *pgxpool.Pool
}

func NewChannelRepository(db *pgxpool.Pool) *ChannelRepository {
	return &ChannelRepository{db: db}
}

// ResolveToken maps a channel token to its resolved context, joining the
// tenant catalog for the partition schema. Inactive channels do not resolve.
func (r *ChannelRepository) ResolveToken(ctx context.Context, token string) (entities.ChannelContext, error) {
	var cc entities.ChannelContext
	err := r.db.QueryRow(ctx, `
		SELECT c.id, c.tenant_id, t.schema_name, c.channel_type, c.settings
		FROM channels c
		JOIN tenants t ON t.id = c.tenant_id
		WHERE c.token = $1 AND c.is_active
	`, token).Scan(&cc.ChannelID, &cc.TenantID, &cc.Schema, &cc.ChannelType, &cc.Settings)
	if err == pgx.ErrNoRows {
		return entities.ChannelContext{}, ErrChannelNotFound
	}
	if err != nil {
		return entities.ChannelContext{}, fmt.Errorf("resolve channel token: %w", err)
	}
	return cc, nil
}

// Create mints a token and stores the channel.
func (r *ChannelRepository) Create(ctx context.Context, channel *entities.Channel) error {
	channel.Token = uuid.NewString()
	channel.IsActive = true
	err := r.db.QueryRow(ctx, `
		INSERT INTO channels (tenant_id, channel_type, token, settings, is_active)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at
	`, channel.TenantID, channel.ChannelType, channel.Token, channel.Settings, channel.IsActive).
		Scan(&channel.ID, &channel.CreatedAt)
	if err != nil {
		return fmt.Errorf("create channel: %w", err)
	}
	return nil
}

func (r *ChannelRepository) GetByID(ctx context.Context, id int) (*entities.Channel, error) {
	var c entities.Channel
	err := r.db.QueryRow(ctx, `
		SELECT id, tenant_id, channel_type, token, settings, is_active, created_at
		FROM channels WHERE id = $1
	`, id).Scan(&c.ID, &c.TenantID, &c.ChannelType, &c.Token, &c.Settings, &c.IsActive, &c.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get channel %d: %w", id, err)
	}
	return &c, nil
}

func (r *ChannelRepository) ListByTenant(ctx context.Context, tenantID int) ([]entities.Channel, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, tenant_id, channel_type, token, settings, is_active, created_at
		FROM channels WHERE tenant_id = $1 ORDER BY id
	`, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list channels: %w", err)
	}
	defer rows.Close()

	channels := []entities.Channel{}
	for rows.Next() {
		var c entities.Channel
		if err := rows.Scan(&c.ID, &c.TenantID, &c.ChannelType, &c.Token, &c.Settings, &c.IsActive, &c.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, c)
	}
	return channels, rows.Err()
}

// SetActive toggles a channel. The caller invalidates any token cache; a
// stale cached resolution is bounded by the cache TTL.
func (r *ChannelRepository) SetActive(ctx context.Context, id int, active bool) error {
	_, err := r.db.Exec(ctx, "UPDATE channels SET is_active = $2 WHERE id = $1", id, active)
	return err
}
