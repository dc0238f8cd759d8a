package auth

import (
	"net/http"

	"github.com/julienschmidt/httprouter"

	apperrors "propdash/pkg/errors"
	httputil "propdash/pkg/http"
	"propdash/pkg/logger"
	"propdash/pkg/middleware"
)

const (
	LoginPath = "/api/v1/auth/login"
	MePath    = "/api/v1/auth/me"
)

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type AuthHandler struct {
	service AuthService
	gate    *Gate
	limiter *middleware.KeyedRateLimiter
	log     *logger.Logger
}

// NewAuthHandler builds the login and whoami routes. loginLimiter charges
// login attempts to the remote address and may be nil.
func NewAuthHandler(service AuthService, gate *Gate, loginLimiter *middleware.KeyedRateLimiter, log *logger.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		gate:    gate,
		limiter: loginLimiter,
		log:     log,
	}
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	var req LoginRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Login", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	session, err := h.service.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if writeErr := httputil.WriteError(w, err); writeErr != nil {
			h.log.Error("failed to write error response", "handler", "Login", "operation", "WriteError", "error", writeErr)
		}
		return
	}

	if err := httputil.WriteSuccess(w, session); err != nil {
		h.log.Error("failed to write success response", "handler", "Login", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
	identity := IdentityFromContext(r.Context())
	if identity.IsZero() {
		if err := httputil.WriteError(w, apperrors.Unauthorized(msgAuthRequired)); err != nil {
			h.log.Error("failed to write error response", "handler", "Me", "operation", "WriteError", "error", err)
		}
		return
	}
	if err := httputil.WriteSuccess(w, identity); err != nil {
		h.log.Error("failed to write success response", "handler", "Me", "operation", "WriteSuccess", "error", err)
	}
}

func (h *AuthHandler) RegisterRoutes(router *httprouter.Router) {
	login := h.Login
	if h.limiter != nil {
		limited := middleware.RateLimit(h.limiter, middleware.ClientIP)
		login = func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
			limited(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				h.Login(w, r, ps)
			})).ServeHTTP(w, r)
		}
	}
	router.POST(LoginPath, login)
	router.GET(MePath, h.gate.Require(h.Me))
}
