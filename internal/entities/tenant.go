package entities

import "errors"

// ErrTenantNotSet signals a tenant-scoped query issued before the tenant
// context was resolved. This is a programming error, never retryable.
var ErrTenantNotSet = errors.New("tenant context not set")

// Tenant is an organization. Its conversational data lives in a dedicated
// schema; the row itself is in public.
type Tenant struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	SchemaName string `json:"schema_name"`
}

// TenantContext scopes one logical operation to a tenant's data partition.
// It is an explicit value threaded through every repository call, set once
// after channel resolution and read-only afterwards.
type TenantContext struct {
	TenantID int
	Schema   string
}

// Validate fails fast when the context was never set.
func (tc TenantContext) Validate() error {
	if tc.TenantID == 0 || tc.Schema == "" {
		return ErrTenantNotSet
	}
	return nil
}
