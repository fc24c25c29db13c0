package app

import (
	"net/http"
	"time"

	"github.com/alexedwards/scs/goredisstore"
	"github.com/alexedwards/scs/v2"
	"github.com/redis/go-redis/v9"
)

const sessionIdleTimeout = 20 * time.Minute

type sessionKey string

const (
	SessionKeyGuest = sessionKey("guest")
)

func (s sessionKey) String() string {
	return string(s)
}

// NewSessionManager keeps guest sessions in Redis. A guest's session token
// is the identity that owns their seat locks.
func NewSessionManager(client *redis.Client) *scs.SessionManager {
	sessionManager := scs.New()

	sessionManager.Store = goredisstore.New(client)
	sessionManager.IdleTimeout = sessionIdleTimeout
	sessionManager.Cookie.Name = "session_id"
	sessionManager.Cookie.SameSite = http.SameSiteLaxMode

	return sessionManager
}

// sessionID picks the caller's session: the explicit id from the request
// when given, otherwise the guest session token.
func (app *Application) sessionID(r *http.Request, explicit *string) string {
	if explicit != nil && *explicit != "" {
		return *explicit
	}

	return app.sessionManager.Token(r.Context())
}
