package usecases

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

// ClientService resolves inbound identifiers to a stored client,
// creating one when nothing matches.
type ClientService struct {
	store interfaces.ClientStore
	log   zerolog.Logger
}

func NewClientService(store interfaces.ClientStore, log zerolog.Logger) *ClientService {
	return &ClientService{store: store, log: log}
}

// GetOrCreate runs the dedup chain in priority order: explicit override
// id, channel user id, email (narrowed by phone when both are present),
// then phone alone. The first match wins; later identifiers are not
// consulted once one hits.
func (s *ClientService) GetOrCreate(ctx context.Context, tc entities.TenantContext, ids entities.ClientIdentifiers) (*entities.Client, error) {
	if ids.Empty() {
		return nil, fmt.Errorf("no client identifiers supplied")
	}

	if ids.OverrideID != "" {
		client, err := s.store.FindByOverrideID(ctx, tc, ids.OverrideID)
		if err != nil {
			return nil, fmt.Errorf("find client by override id: %w", err)
		}
		if client != nil {
			return client, nil
		}
		s.log.Warn().Str("override_id", ids.OverrideID).Msg("client override id did not match, falling through")
	}

	if ids.ChannelUserID != "" {
		client, err := s.store.FindByChannelUserID(ctx, tc, ids.ChannelUserID)
		if err != nil {
			return nil, fmt.Errorf("find client by channel user id: %w", err)
		}
		if client != nil {
			return client, nil
		}
	}

	if ids.Email != "" {
		client, err := s.store.FindByEmail(ctx, tc, ids.Email, ids.Phone)
		if err != nil {
			return nil, fmt.Errorf("find client by email: %w", err)
		}
		if client != nil {
			return client, nil
		}
	}

	if ids.Phone != "" {
		client, err := s.store.FindByPhone(ctx, tc, ids.Phone)
		if err != nil {
			return nil, fmt.Errorf("find client by phone: %w", err)
		}
		if client != nil {
			return client, nil
		}
	}

	client := &entities.Client{
		ChannelUserID: ids.ChannelUserID,
		OverrideID:    ids.OverrideID,
		DisplayName:   ids.DisplayName,
		Email:         ids.Email,
		Phone:         ids.Phone,
	}
	if err := s.store.Create(ctx, tc, client); err != nil {
		return nil, fmt.Errorf("create client: %w", err)
	}
	s.log.Info().Int64("client_id", client.ID).Int("tenant_id", tc.TenantID).Msg("created new client")
	return client, nil
}
