package middleware

import (
	"context"
	"errors"
	"log"
	"net/http"
	"strings"

	"garage-backend/internal/auth"
	"garage-backend/internal/session"
	"garage-backend/pkg/utils"
)

type contextKey string

const UserIDKey contextKey = "user_id"
const EmailKey contextKey = "email"
const ClaimsKey contextKey = "claims"
const SessionKey contextKey = "session"

var (
	errMissingToken = errors.New("authorization required")
	errBadFormat    = errors.New("invalid authorization format")
	errBadToken     = errors.New("invalid or expired token")
)

// SessionResolver turns a user id into the current session state.
type SessionResolver interface {
	Resolve(ctx context.Context, userID string) session.Session
}

type AuthMiddleware struct {
	jwtManager *auth.JWTManager
	revoker    auth.TokenRevoker
	sessions   SessionResolver
}

func NewAuthMiddleware(jwtManager *auth.JWTManager, revoker auth.TokenRevoker, sessions SessionResolver) *AuthMiddleware {
	return &AuthMiddleware{
		jwtManager: jwtManager,
		revoker:    revoker,
		sessions:   sessions,
	}
}

// tokenFromRequest reads "Bearer <token>" or, for websocket clients that
// cannot set headers, the access_token query parameter.
func tokenFromRequest(r *http.Request) (string, error) {
	authHeader := r.Header.Get("Authorization")
	if authHeader == "" {
		if t := r.URL.Query().Get("access_token"); t != "" {
			return t, nil
		}
		return "", errMissingToken
	}
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return "", errBadFormat
	}
	return parts[1], nil
}

func (m *AuthMiddleware) claims(r *http.Request) (*auth.Claims, error) {
	token, err := tokenFromRequest(r)
	if err != nil {
		return nil, err
	}
	claims, err := m.jwtManager.ValidateToken(token)
	if err != nil {
		return nil, errBadToken
	}
	if m.revoker != nil && claims.ID != "" {
		revoked, err := m.revoker.IsRevoked(r.Context(), claims.ID)
		if err != nil {
			log.Printf("[Auth] Revocation check failed: %v", err)
			return nil, errBadToken
		}
		if revoked {
			return nil, errBadToken
		}
	}
	return claims, nil
}

// UserIDFromRequest validates the request token and returns its user id.
func (m *AuthMiddleware) UserIDFromRequest(r *http.Request) (string, error) {
	claims, err := m.claims(r)
	if err != nil {
		return "", err
	}
	return claims.UserID, nil
}

// Authenticate is a middleware that validates JWT tokens
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims, err := m.claims(r)
		if err != nil {
			utils.Error(w, http.StatusUnauthorized, err.Error())
			return
		}

		recordUser(r.Context(), claims.UserID)
		ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
		ctx = context.WithValue(ctx, EmailKey, claims.Email)
		ctx = context.WithValue(ctx, ClaimsKey, claims)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireActive resolves the session from the profile on every request
// so role and activation changes apply immediately. Deactivated accounts
// only get to log out. Must run after Authenticate.
func (m *AuthMiddleware) RequireActive(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		userID, ok := GetUserIDFromContext(r.Context())
		if !ok {
			utils.Error(w, http.StatusUnauthorized, errMissingToken.Error())
			return
		}

		s := m.sessions.Resolve(r.Context(), userID)
		if s.State == session.Inactive {
			utils.JSON(w, http.StatusForbidden, map[string]interface{}{
				"error":   "account deactivated",
				"actions": []string{"logout"},
			})
			return
		}

		ctx := context.WithValue(r.Context(), SessionKey, s)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireRole is a middleware that ensures the user has one of the allowed roles.
// Must run after RequireActive.
func (m *AuthMiddleware) RequireRole(allowedRoles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			s, ok := GetSessionFromContext(r.Context())
			if !ok {
				utils.Error(w, http.StatusUnauthorized, errMissingToken.Error())
				return
			}
			for _, role := range allowedRoles {
				if s.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}
			utils.Error(w, http.StatusForbidden, "Forbidden: Insufficient permissions")
		})
	}
}

// GetUserIDFromContext extracts user ID from request context
func GetUserIDFromContext(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok && userID != ""
}

// GetEmailFromContext extracts email from request context
func GetEmailFromContext(ctx context.Context) (string, bool) {
	email, ok := ctx.Value(EmailKey).(string)
	return email, ok
}

func GetClaimsFromContext(ctx context.Context) (*auth.Claims, bool) {
	claims, ok := ctx.Value(ClaimsKey).(*auth.Claims)
	return claims, ok
}

// GetSessionFromContext returns the session resolved by RequireActive.
func GetSessionFromContext(ctx context.Context) (session.Session, bool) {
	s, ok := ctx.Value(SessionKey).(session.Session)
	return s, ok
}

// GetRoleFromContext extracts role from request context
func GetRoleFromContext(ctx context.Context) (string, bool) {
	s, ok := GetSessionFromContext(ctx)
	return s.Role, ok
}
