package auth

import (
	"context"
	"errors"

	"propdash/internal/metrics"
	apperrors "propdash/pkg/errors"
	"propdash/pkg/logger"
	"propdash/pkg/model"
)

const msgInvalidLogin = "Invalid username or password"

type AuthService interface {
	Login(ctx context.Context, username, password string) (*Session, error)
}

type authService struct {
	store    CredentialStore
	sessions *SessionManager
	metrics  metrics.Recorder
	log      *logger.Logger
}

func NewAuthService(store CredentialStore, sessions *SessionManager, rec metrics.Recorder, log *logger.Logger) AuthService {
	if rec == nil {
		rec = metrics.Nop{}
	}
	return &authService{
		store:    store,
		sessions: sessions,
		metrics:  rec,
		log:      log,
	}
}

// Login never tells the caller whether the username or the password was wrong.
func (s *authService) Login(ctx context.Context, username, password string) (*Session, error) {
	identity, err := s.authenticate(ctx, username, password)
	if err != nil {
		s.metrics.RecordLogin(metrics.LoginRejected)
		return nil, err
	}

	session, err := s.sessions.Issue(identity)
	if err != nil {
		s.log.Error("Failed to issue session", "user", identity.ID, "error", err)
		return nil, apperrors.Internal("Failed to start session", err)
	}

	s.metrics.RecordLogin(metrics.LoginSucceeded)
	s.log.Info("User logged in", "user", identity.ID)
	return session, nil
}

func (s *authService) authenticate(ctx context.Context, username, password string) (model.Identity, error) {
	if username == "" || password == "" {
		return model.Identity{}, apperrors.Unauthorized(msgInvalidLogin)
	}

	cred, err := s.store.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, ErrUnknownUser) {
			equalizeTiming(password)
			s.log.Warn("Login rejected", "reason", "unknown user")
			return model.Identity{}, apperrors.Unauthorized(msgInvalidLogin)
		}
		s.log.Error("Credential lookup failed", "error", err)
		return model.Identity{}, apperrors.Unavailable("Credential store")
	}

	if !s.store.VerifyPassword(cred, password) {
		s.log.Warn("Login rejected", "reason", "password mismatch", "user", cred.Username)
		return model.Identity{}, apperrors.Unauthorized(msgInvalidLogin)
	}

	return model.Identity{ID: cred.Username, Name: cred.DisplayName()}, nil
}
