package app

import (
	"context"
	"net/http"
	"time"

	"github.com/metinatakli/cinex-booking/api"
	"github.com/metinatakli/cinex-booking/internal/vcs"
)

const healthCheckTimeout = 2 * time.Second

// GetHealth reports UP when every configured backing store answers a ping.
// Stores the application was built without are not pinged.
func (app *Application) GetHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthCheckTimeout)
	defer cancel()

	status := api.UP
	deps := map[string]string{}

	check := func(name string, ping func(context.Context) error) {
		if err := ping(ctx); err != nil {
			app.contextGetLogger(r).Warn("health check failed", "dependency", name, "error", err)
			deps[name] = string(api.DOWN)
			status = api.DOWN
			return
		}

		deps[name] = string(api.UP)
	}

	if app.db != nil {
		check("postgres", app.db.Ping)
	}

	if app.redis != nil {
		check("redis", func(ctx context.Context) error { return app.redis.Ping(ctx).Err() })
	}

	resp := api.HealthcheckResponse{
		Status: status,
		SystemInfo: api.SystemInfo{
			Version:     vcs.Version(),
			Environment: app.config.Env,
		},
	}

	if len(deps) > 0 {
		resp.Dependencies = &deps
	}

	code := http.StatusOK
	if status == api.DOWN {
		code = http.StatusServiceUnavailable
	}

	app.writeJSON(w, code, resp, nil)
}
