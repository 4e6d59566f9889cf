package middleware

import (
	"context"
	"errors"
	"net/http"

	"storefront-be/internal/apperror"
	"storefront-be/internal/auth"
	"storefront-be/internal/logger"
	"storefront-be/internal/transport"
	"storefront-be/internal/user"
	"storefront-be/internal/utils"

	"go.uber.org/zap"
)

type TokenParser interface {
	Parse(token string) (*auth.CustomClaims, error)
}

type UserLookup interface {
	GetByID(ctx context.Context, id uint) (*user.User, error)
}

var errUserGone = apperror.Detail(auth.ErrInvalidToken, "Token is valid but user no longer exists")

// AuthMiddleware identifies the caller when a token is present. Requests
// without a token pass through anonymously; a bad token or a deactivated
// account is rejected.
func AuthMiddleware(tokens TokenParser, users UserLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := auth.ExtractAccessToken(r)
			if tokenStr == "" {
				next.ServeHTTP(w, r)
				return
			}

			claims, err := tokens.Parse(tokenStr)
			if err != nil {
				transport.Error(w, r, err)
				return
			}

			u, err := users.GetByID(r.Context(), claims.UserID)
			switch {
			case errors.Is(err, user.ErrUserNotFound):
				transport.Error(w, r, errUserGone)
				return
			case err != nil:
				transport.Error(w, r, err)
				return
			case !u.IsActive:
				logger.FromCtx(r.Context()).Info("rejected deactivated account", zap.Uint("user_id", u.ID))
				transport.Error(w, r, auth.ErrInactiveUser)
				return
			}

			ctx := utils.SetUserContext(r.Context(), u.ID, u.Email, string(u.Role))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := utils.GetUserIDFromContext(r.Context()); !ok {
			transport.Error(w, r, auth.ErrNoToken)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole must run after RequireAuth.
func RequireRole(role string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if utils.GetUserRoleFromContext(r.Context()) != role {
				transport.Error(w, r, auth.ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
