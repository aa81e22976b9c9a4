package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/clearflow/clearflow-api/internal/domain"
	jwtinfra "github.com/clearflow/clearflow-api/internal/infrastructure/jwt"
)

type contextKey string

const (
	ClaimsKey contextKey = "claims"
	UserKey   contextKey = "user"
	DeviceKey contextKey = "device"
)

type tokenVerifier interface {
	Verify(token string) (*jwtinfra.Claims, error)
}

type revocationRegistry interface {
	IsRevoked(ctx context.Context, token string) (bool, error)
}

type userLoader interface {
	Get(ctx context.Context, userID string) (*domain.User, error)
}

type deviceLoader interface {
	GetBySerial(ctx context.Context, serial string) (*domain.Device, error)
}

// Auth returns the authorization middleware. Checks run in a fixed order:
// header shape, revocation registry, signature and expiry, identity load,
// password epoch. Every rejection is a 401 so callers cannot probe which
// check failed.
func Auth(verifier tokenVerifier, registry revocationRegistry, users userLoader, devices deviceLoader) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if !strings.HasPrefix(authHeader, "Bearer ") {
				writeJSONError(w, http.StatusUnauthorized, "missing or invalid authorization header")
				return
			}
			tokenStr := strings.TrimPrefix(authHeader, "Bearer ")

			revoked, err := registry.IsRevoked(r.Context(), tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusInternalServerError, "authorization check failed")
				return
			}
			if revoked {
				writeJSONError(w, http.StatusUnauthorized, "token has been revoked")
				return
			}

			claims, err := verifier.Verify(tokenStr)
			if err != nil {
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}

			ctx := context.WithValue(r.Context(), ClaimsKey, claims)
			switch claims.TokenType {
			case jwtinfra.TokenTypeUser:
				u, err := users.Get(ctx, claims.UserID)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "account no longer exists")
					return
				}
				var epoch int64
				if u.PasswordChangedAt != nil {
					epoch = u.PasswordChangedAt.UnixMilli()
				}
				if claims.PasswordChangedAt != epoch {
					writeJSONError(w, http.StatusUnauthorized, "token no longer valid")
					return
				}
				ctx = context.WithValue(ctx, UserKey, u)
			case jwtinfra.TokenTypeDevice:
				d, err := devices.GetBySerial(ctx, claims.DeviceSerial)
				if err != nil {
					writeJSONError(w, http.StatusUnauthorized, "device no longer exists")
					return
				}
				ctx = context.WithValue(ctx, DeviceKey, d)
			default:
				writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
				return
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// RequireUser rejects requests authenticated with a device token. Used on
// dashboard routes where only an account holder makes sense.
func RequireUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := UserFromContext(r.Context()); !ok {
			writeJSONError(w, http.StatusForbidden, "user token required")
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ClaimsFromContext extracts the verified claims from the request context.
func ClaimsFromContext(ctx context.Context) (*jwtinfra.Claims, bool) {
	c, ok := ctx.Value(ClaimsKey).(*jwtinfra.Claims)
	return c, ok
}

// UserFromContext extracts the authenticated user, if the token was a user
// token.
func UserFromContext(ctx context.Context) (*domain.User, bool) {
	u, ok := ctx.Value(UserKey).(*domain.User)
	return u, ok
}

// DeviceFromContext extracts the authenticated device, if the token was a
// device token.
func DeviceFromContext(ctx context.Context) (*domain.Device, bool) {
	d, ok := ctx.Value(DeviceKey).(*domain.Device)
	return d, ok
}
