package entities

import "time"

// Client is an end-user identity inside a tenant partition, created lazily
// on first contact and deduplicated by ClientIdentifiers priority.
type Client struct {
	ID            int64     `json:"id"`
	ChannelUserID string    `json:"channel_user_id,omitempty"`
	OverrideID    string    `json:"override_id,omitempty"`
	DisplayName   string    `json:"display_name,omitempty"`
	Email         string    `json:"email,omitempty"`
	Phone         string    `json:"phone,omitempty"`
	IsBlocked     bool      `json:"is_blocked"`
	CreatedAt     time.Time `json:"created_at"`
}

// ClientIdentifiers are the candidate keys for client lookup. Matching
// order is fixed: OverrideID, then ChannelUserID, then Email(+Phone),
// then Phone alone.
type ClientIdentifiers struct {
	OverrideID    string
	ChannelUserID string
	Email         string
	Phone         string
	DisplayName   string
}

// Empty reports whether no identifier was supplied at all.
func (id ClientIdentifiers) Empty() bool {
	return id.OverrideID == "" && id.ChannelUserID == "" && id.Email == "" && id.Phone == ""
}
