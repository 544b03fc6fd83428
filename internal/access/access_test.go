package access

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"vowly/pkg/requestcontext"
)

func TestActivityScope(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	tests := []struct {
		name  string
		roles []string
		want  Scope
	}{
		{"superadmin inherits admin", []string{"superadmin"}, ScopeAll},
		{"admin", []string{"admin"}, ScopeAll},
		{"role names are case insensitive", []string{" Admin "}, ScopeAll},
		{"customer", []string{"customer"}, ScopeOwn},
		{"widest role wins", []string{"customer", "admin"}, ScopeAll},
		{"unknown role", []string{"guest"}, ScopeNone},
		{"no roles", nil, ScopeNone},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := a.ActivityScope(requestcontext.Principal{Type: "user", ID: "1", Roles: tt.roles})
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestAllowed(t *testing.T) {
	a, err := NewAuthorizer()
	require.NoError(t, err)

	ok, err := a.Allowed(requestcontext.Principal{Roles: []string{"customer"}}, ObjectActivity, ActionReadAll)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = a.Allowed(requestcontext.Principal{Roles: []string{"superadmin"}}, ObjectActivity, ActionReadOwn)
	require.NoError(t, err)
	assert.True(t, ok)
}
