package api

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/hobbyhunter/storefront/hobbyhunter/localstore"
)

// BearerToken attaches the stored access token, when there is one.
func BearerToken(store localstore.Store) RequestInterceptor {
	return func(req *http.Request) error {
		token, ok, err := store.Get(req.Context(), localstore.TokenKey)
		if err != nil {
			return err
		}
		if ok && token != "" && req.Header.Get("Authorization") == "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		return nil
	}
}

// ClearCredentialsOnAuthError drops stored tokens whenever any call fails
// with an auth_error.
func ClearCredentialsOnAuthError(store localstore.Store) ErrorInterceptor {
	return func(apiErr *Error) {
		if apiErr.Kind != KindAuth {
			return
		}

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		for _, key := range []string{localstore.TokenKey, localstore.RefreshTokenKey} {
			if err := store.Delete(ctx, key); err != nil {
				slog.Error("Failed to clear stored credentials",
					slog.String("type", "error"),
					slog.String("key", key),
					slog.Any("error", err))
			}
		}

		slog.Warn("Stored credentials cleared after auth error",
			slog.String("type", "api"),
			slog.Int("status", apiErr.Status))
	}
}
