package usecases

import (
	"errors"
	"fmt"

	"supportdesk/internal/entities"
	"supportdesk/internal/interfaces"
)

// ErrNoParser means no parser is registered for an observed channel type.
// The key space is closed at deploy time, so this is a configuration
// error, never a transient one.
var ErrNoParser = errors.New("no parser registered for channel type")

// ParserRegistry maps channel types to their inbound parsers. Exactly one
// parser per type; duplicate registration is a fatal configuration error.
type ParserRegistry struct {
	parsers map[entities.ChannelType]interfaces.InboundParser
}

func NewParserRegistry(parsers ...interfaces.InboundParser) *ParserRegistry {
	registry := &ParserRegistry{parsers: make(map[entities.ChannelType]interfaces.InboundParser)}
	for _, p := range parsers {
		if _, dup := registry.parsers[p.ChannelType()]; dup {
			panic(fmt.Sprintf("parser already registered for channel type %q", p.ChannelType()))
		}
		registry.parsers[p.ChannelType()] = p
	}
	return registry
}

func (r *ParserRegistry) Get(channelType entities.ChannelType) (interfaces.InboundParser, error) {
	parser, ok := r.parsers[channelType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNoParser, channelType)
	}
	return parser, nil
}
