package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/api"
	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
	"github.com/hobbyhunter/storefront/hobbyhunter/mockdata"
	"github.com/hobbyhunter/storefront/hobbyhunter/models"
)

// SessionTTL is how long a mock session token is valid.
const SessionTTL = 24 * time.Hour

var ErrNoSession = errors.New("no active session")

// AuthRepository exchanges credentials for opaque tokens and keeps them in
// local state. Tokens are never interpreted here.
type AuthRepository interface {
	Login(ctx context.Context, creds models.Credentials) (models.Session, error)
	Register(ctx context.Context, reg models.Registration) (models.Session, error)
	Logout(ctx context.Context) error
	Refresh(ctx context.Context) (models.Session, error)
	Verify(ctx context.Context) (models.User, error)
	CurrentUserID(ctx context.Context) (string, error)
}

type authRepository struct {
	*BaseRepository
	state *mockdata.State
	store localstore.Store
}

func NewAuthRepository(base *BaseRepository, state *mockdata.State, store localstore.Store) AuthRepository {
	return &authRepository{BaseRepository: base, state: state, store: store}
}

func (r *authRepository) Login(ctx context.Context, creds models.Credentials) (models.Session, error) {
	if strings.TrimSpace(creds.Email) == "" || creds.Password == "" {
		return models.Session{}, &ValidationError{Entity: "credentials", Reasons: []string{"email and password are required"}}
	}

	session, err := run(ctx, r.BaseRepository, "login", creds.Email, func(ctx context.Context) (models.Session, error) {
		resp, err := api.Post[wireSession](ctx, r.client, "/auth/login", wireCredentials{Email: creds.Email, Password: creds.Password})
		if err != nil {
			return models.Session{}, err
		}
		return toSession(resp.Data), nil
	}, func(context.Context) (models.Session, error) {
		for _, u := range r.state.Users() {
			if strings.EqualFold(u.Email, creds.Email) {
				return r.mockSession(u), nil
			}
		}
		return models.Session{}, fmt.Errorf("account %s: %w", creds.Email, mockdata.ErrNotFound)
	})
	if err != nil {
		return models.Session{}, err
	}
	return session, r.saveSession(ctx, session)
}

func (r *authRepository) Register(ctx context.Context, reg models.Registration) (models.Session, error) {
	var reasons []string
	if !strings.Contains(reg.Email, "@") {
		reasons = append(reasons, "a valid email is required")
	}
	if strings.TrimSpace(reg.Username) == "" {
		reasons = append(reasons, "username is required")
	}
	if len(reg.Password) < 8 {
		reasons = append(reasons, "password must be at least 8 characters")
	}
	if len(reasons) > 0 {
		return models.Session{}, &ValidationError{Entity: "registration", Reasons: reasons}
	}

	session, err := run(ctx, r.BaseRepository, "register", reg.Email, func(ctx context.Context) (models.Session, error) {
		resp, err := api.Post[wireSession](ctx, r.client, "/auth/register", wireRegistration{
			Email:    reg.Email,
			Username: reg.Username,
			Password: reg.Password,
		})
		if err != nil {
			return models.Session{}, err
		}
		return toSession(resp.Data), nil
	}, func(context.Context) (models.Session, error) {
		u := r.state.CreateUser(models.User{
			Email:    reg.Email,
			Username: reg.Username,
			Profile:  models.Profile{DisplayName: reg.Username},
			Preferences: models.Preferences{
				EmailNotifications: true,
				Currency:           "USD",
			},
			Settings: models.Settings{Theme: "system", Language: "en"},
		})
		return r.mockSession(u), nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return session, r.saveSession(ctx, session)
}

// Logout clears local credentials even when the server call fails.
func (r *authRepository) Logout(ctx context.Context) error {
	err := exec(ctx, r.BaseRepository, "logout", "", func(ctx context.Context) error {
		_, err := api.Post[struct{}](ctx, r.client, "/auth/logout", nil)
		return err
	}, func(context.Context) error {
		return nil
	})

	for _, key := range []string{localstore.TokenKey, localstore.RefreshTokenKey, localstore.CurrentUserIDKey} {
		if delErr := r.store.Delete(ctx, key); delErr != nil {
			return delErr
		}
	}
	return err
}

func (r *authRepository) Refresh(ctx context.Context) (models.Session, error) {
	refreshToken, ok, err := r.store.Get(ctx, localstore.RefreshTokenKey)
	if err != nil {
		return models.Session{}, err
	}
	if !ok {
		return models.Session{}, ErrNoSession
	}

	session, err := run(ctx, r.BaseRepository, "refresh", "", func(ctx context.Context) (models.Session, error) {
		resp, err := api.Post[wireSession](ctx, r.client, "/auth/refresh", wireRefreshRequest{RefreshToken: refreshToken})
		if err != nil {
			return models.Session{}, err
		}
		return toSession(resp.Data), nil
	}, func(ctx context.Context) (models.Session, error) {
		userID, err := r.CurrentUserID(ctx)
		if err != nil {
			return models.Session{}, err
		}
		u, err := r.state.User(userID)
		if err != nil {
			return models.Session{}, err
		}
		return r.mockSession(u), nil
	})
	if err != nil {
		return models.Session{}, err
	}
	return session, r.saveSession(ctx, session)
}

// Verify resolves the stored token to its user.
func (r *authRepository) Verify(ctx context.Context) (models.User, error) {
	if _, ok, err := r.store.Get(ctx, localstore.TokenKey); err != nil {
		return models.User{}, err
	} else if !ok {
		return models.User{}, ErrNoSession
	}

	return run(ctx, r.BaseRepository, "verify", "", func(ctx context.Context) (models.User, error) {
		resp, err := api.Get[wireUser](ctx, r.client, "/auth/verify", nil)
		if err != nil {
			return models.User{}, err
		}
		return toUser(resp.Data), nil
	}, func(ctx context.Context) (models.User, error) {
		userID, err := r.CurrentUserID(ctx)
		if err != nil {
			return models.User{}, err
		}
		return r.state.User(userID)
	})
}

func (r *authRepository) CurrentUserID(ctx context.Context) (string, error) {
	id, ok, err := r.store.Get(ctx, localstore.CurrentUserIDKey)
	if err != nil {
		return "", err
	}
	if !ok || id == "" {
		return "", ErrNoSession
	}
	return id, nil
}

func (r *authRepository) mockSession(u models.User) models.Session {
	return models.Session{
		User:         u,
		Token:        "mock_" + mockdata.StableID("token", u.ID, r.state.Now().Format(time.RFC3339)),
		RefreshToken: "mock_" + mockdata.StableID("refresh", u.ID),
		ExpiresAt:    r.state.Now().Add(SessionTTL),
	}
}

func (r *authRepository) saveSession(ctx context.Context, s models.Session) error {
	if err := r.store.Set(ctx, localstore.TokenKey, s.Token); err != nil {
		return err
	}
	if s.RefreshToken != "" {
		if err := r.store.Set(ctx, localstore.RefreshTokenKey, s.RefreshToken); err != nil {
			return err
		}
	}
	return r.store.Set(ctx, localstore.CurrentUserIDKey, s.User.ID)
}
