package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/go-redis/redismock/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewSessionManager(t *testing.T) {
	client, _ := redismock.NewClientMock()

	sessionManager := NewSessionManager(client)

	assert.IsType(t, &goredisstore.RedisStore{}, sessionManager.Store)
	assert.Equal(t, "session_id", sessionManager.Cookie.Name)
	assert.Equal(t, http.SameSiteLaxMode, sessionManager.Cookie.SameSite)
	assert.Equal(t, sessionIdleTimeout, sessionManager.IdleTimeout)
}

func TestSessionIDPrefersExplicitID(t *testing.T) {
	app, _ := newTestApplication()

	ctx, err := app.sessionManager.Load(context.Background(), "")
	require.NoError(t, err)

	app.sessionManager.Put(ctx, SessionKeyGuest.String(), true)
	guestToken, _, err := app.sessionManager.Commit(ctx)
	require.NoError(t, err)

	r := httptest.NewRequest(http.MethodGet, "/", nil).WithContext(ctx)

	tests := []struct {
		name     string
		explicit *string
		want     string
	}{
		{name: "should use the explicit session id", explicit: ptr("session-a"), want: "session-a"},
		{name: "should fall back to the guest token when empty", explicit: ptr(""), want: guestToken},
		{name: "should fall back to the guest token when absent", want: guestToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, app.sessionID(r, tt.explicit))
		})
	}
}
