package usecases

import (
	"testing"

	"github.com/stretchr/testify/require"

	"supportdesk/internal/entities"
)

func TestParserRegistryLookup(t *testing.T) {
	r := NewParserRegistry(NewTelegramParser(), NewWidgetParser())

	p, err := r.Get(entities.ChannelTelegram)
	require.NoError(t, err)
	require.Equal(t, entities.ChannelTelegram, p.ChannelType())

	_, err = r.Get(entities.ChannelWebhook)
	require.ErrorIs(t, err, ErrNoParser)
}

func TestParserRegistryDuplicatePanics(t *testing.T) {
	require.Panics(t, func() {
		NewParserRegistry(NewTelegramParser(), NewTelegramParser())
	})
}
