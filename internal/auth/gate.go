package auth

import (
	"net/http"
	"strings"

	"github.com/julienschmidt/httprouter"

	apperrors "propdash/pkg/errors"
	httputil "propdash/pkg/http"
	"propdash/pkg/logger"
	"propdash/pkg/middleware"
)

const msgAuthRequired = "Authentication required"

// Gate guards routes with a bearer session token. Authenticated requests are
// rate limited per identity.
type Gate struct {
	sessions *SessionManager
	limiter  *middleware.KeyedRateLimiter
	log      *logger.Logger
}

// NewGate builds a Gate. limiter may be nil to disable per-identity limits.
func NewGate(sessions *SessionManager, limiter *middleware.KeyedRateLimiter, log *logger.Logger) *Gate {
	return &Gate{
		sessions: sessions,
		limiter:  limiter,
		log:      log,
	}
}

func (g *Gate) Require(next httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		token, ok := bearerToken(r)
		if !ok {
			g.reject(w, r, "missing bearer token")
			return
		}

		identity, err := g.sessions.Verify(token)
		if err != nil {
			g.reject(w, r, err.Error())
			return
		}

		if g.limiter != nil && !g.limiter.Allow(identity.ID) {
			g.limiter.Reject(w, r, identity.ID)
			return
		}

		next(w, r.WithContext(WithIdentity(r.Context(), identity)), ps)
	}
}

func (g *Gate) reject(w http.ResponseWriter, r *http.Request, reason string) {
	g.log.Warn("Unauthenticated request",
		"request_id", middleware.RequestIDFromContext(r.Context()),
		"method", r.Method,
		"path", r.URL.Path,
		"reason", reason,
	)
	w.Header().Set("WWW-Authenticate", `Bearer realm="propdash"`)
	if err := httputil.WriteError(w, apperrors.Unauthorized(msgAuthRequired)); err != nil {
		g.log.Error("failed to write error response", "handler", "Gate", "operation", "WriteError", "error", err)
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, ok := strings.Cut(header, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
