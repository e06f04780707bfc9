package entities

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTenantContextValidate(t *testing.T) {
	require.NoError(t, TenantContext{TenantID: 7, Schema: "t_7"}.Validate())

	require.ErrorIs(t, TenantContext{}.Validate(), ErrTenantNotSet)
	require.ErrorIs(t, TenantContext{TenantID: 7}.Validate(), ErrTenantNotSet)
	require.ErrorIs(t, TenantContext{Schema: "t_7"}.Validate(), ErrTenantNotSet)
}
