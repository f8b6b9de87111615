package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/fabrichouse/inventory-backend/pkg/logger"
)

const (
	actorHeader  = "X-Actor"
	defaultActor = "system"
)

type contextKey string

const ctxActor contextKey = "actor"

// Actor reads the X-Actor header so ledger entries carry who performed each
// change. Requests without the header are attributed to "system".
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor := strings.TrimSpace(r.Header.Get(actorHeader))
			if actor == "" {
				actor = defaultActor
			}

			ctx := context.WithValue(r.Context(), ctxActor, actor)
			if logg != nil {
				ctx = logg.WithActor(ctx, actor)
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// ActorFromContext returns the request actor, defaulting to "system".
func ActorFromContext(ctx context.Context) string {
	if ctx == nil {
		return defaultActor
	}
	if v, ok := ctx.Value(ctxActor).(string); ok && v != "" {
		return v
	}
	return defaultActor
}
