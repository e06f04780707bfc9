package usecases

import (
	"context"
	"errors"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

type fakeClientStore struct {
	byOverride map[string]*entities.Client
	byChannel  map[string]*entities.Client
	byEmail    map[string]*entities.Client
	byPhone    map[string]*entities.Client

	lookups []string
	created *entities.Client
	findErr error
}

func (s *fakeClientStore) FindByOverrideID(_ context.Context, _ entities.TenantContext, overrideID string) (*entities.Client, error) {
	s.lookups = append(s.lookups, "override")
	return s.byOverride[overrideID], s.findErr
}

func (s *fakeClientStore) FindByChannelUserID(_ context.Context, _ entities.TenantContext, channelUserID string) (*entities.Client, error) {
	s.lookups = append(s.lookups, "channel")
	return s.byChannel[channelUserID], s.findErr
}

func (s *fakeClientStore) FindByEmail(_ context.Context, _ entities.TenantContext, email, phone string) (*entities.Client, error) {
	s.lookups = append(s.lookups, "email")
	if phone != "" {
		if c := s.byEmail[email]; c != nil && c.Phone == phone {
			return c, s.findErr
		}
		return nil, s.findErr
	}
	return s.byEmail[email], s.findErr
}

func (s *fakeClientStore) FindByPhone(_ context.Context, _ entities.TenantContext, phone string) (*entities.Client, error) {
	s.lookups = append(s.lookups, "phone")
	return s.byPhone[phone], s.findErr
}

func (s *fakeClientStore) Create(_ context.Context, _ entities.TenantContext, client *entities.Client) error {
	client.ID = 99
	s.created = client
	return nil
}

var testTenant = entities.TenantContext{TenantID: 1, Schema: "t_1"}

func TestGetOrCreateOverrideWinsOverEverything(t *testing.T) {
	store := &fakeClientStore{
		byOverride: map[string]*entities.Client{"crm-42": {ID: 1}},
		byChannel:  map[string]*entities.Client{"tg-7": {ID: 2}},
		byEmail:    map[string]*entities.Client{"a@b.c": {ID: 3}},
	}
	svc := NewClientService(store, zerolog.Nop())

	client, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{
		OverrideID:    "crm-42",
		ChannelUserID: "tg-7",
		Email:         "a@b.c",
	})
	require.NoError(t, err)
	require.EqualValues(t, 1, client.ID)
	require.Equal(t, []string{"override"}, store.lookups)
}

func TestGetOrCreateFallsThroughPriorityChain(t *testing.T) {
	store := &fakeClientStore{
		byPhone: map[string]*entities.Client{"+111": {ID: 4}},
	}
	svc := NewClientService(store, zerolog.Nop())

	client, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{
		OverrideID:    "stale-crm-id",
		ChannelUserID: "tg-7",
		Email:         "a@b.c",
		Phone:         "+111",
	})
	require.NoError(t, err)
	require.EqualValues(t, 4, client.ID)
	require.Equal(t, []string{"override", "channel", "email", "phone"}, store.lookups)
}

func TestGetOrCreateEmailNarrowedByPhone(t *testing.T) {
	store := &fakeClientStore{
		byEmail: map[string]*entities.Client{"a@b.c": {ID: 5, Phone: "+222"}},
	}
	svc := NewClientService(store, zerolog.Nop())

	// Same email but different phone: composite match misses, phone
	// lookup misses, a new client is created.
	client, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{
		Email: "a@b.c",
		Phone: "+333",
	})
	require.NoError(t, err)
	require.EqualValues(t, 99, client.ID)
	require.NotNil(t, store.created)

	// Matching phone resolves through the composite key.
	store.lookups = nil
	client, err = svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{
		Email: "a@b.c",
		Phone: "+222",
	})
	require.NoError(t, err)
	require.EqualValues(t, 5, client.ID)
	require.Equal(t, []string{"email"}, store.lookups)
}

func TestGetOrCreateCreatesWithAllIdentifiers(t *testing.T) {
	store := &fakeClientStore{}
	svc := NewClientService(store, zerolog.Nop())

	client, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{
		ChannelUserID: "tg-7",
		Email:         "a@b.c",
		Phone:         "+111",
		DisplayName:   "Ada",
	})
	require.NoError(t, err)
	require.EqualValues(t, 99, client.ID)
	require.Equal(t, "tg-7", store.created.ChannelUserID)
	require.Equal(t, "a@b.c", store.created.Email)
	require.Equal(t, "+111", store.created.Phone)
	require.Equal(t, "Ada", store.created.DisplayName)
}

func TestGetOrCreateRejectsEmptyIdentifiers(t *testing.T) {
	svc := NewClientService(&fakeClientStore{}, zerolog.Nop())
	_, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{})
	require.Error(t, err)
}

func TestGetOrCreatePropagatesLookupErrors(t *testing.T) {
	store := &fakeClientStore{findErr: errors.New("db down")}
	svc := NewClientService(store, zerolog.Nop())

	_, err := svc.GetOrCreate(context.Background(), testTenant, entities.ClientIdentifiers{ChannelUserID: "tg-7"})
	require.Error(t, err)
	require.Nil(t, store.created)
}
