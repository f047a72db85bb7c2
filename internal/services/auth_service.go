package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/mail"
	"strings"

	"garage-backend/internal/apperr"
	"garage-backend/internal/auth"
	"garage-backend/internal/metrics"
	"garage-backend/internal/models"
	"garage-backend/internal/session"
)

const minPasswordLength = 6

// Limiter bounds login attempts per key.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

type AuthService struct {
	users    UserStore
	profiles ProfileStore
	settings SettingStore
	jwt      *auth.JWTManager
	revoker  auth.TokenRevoker
	limiter  Limiter
	events   AuthEventPublisher
	totp     *TOTPService
}

func NewAuthService(users UserStore, profiles ProfileStore, settings SettingStore, jwt *auth.JWTManager,
	revoker auth.TokenRevoker, limiter Limiter, events AuthEventPublisher, totp *TOTPService) *AuthService {
	if events == nil {
		events = nopPublisher{}
	}
	return &AuthService{
		users:    users,
		profiles: profiles,
		settings: settings,
		jwt:      jwt,
		revoker:  revoker,
		limiter:  limiter,
		events:   events,
		totp:     totp,
	}
}

// SeedSignupCode stores the bcrypt hash of code unless a code is already
// configured.
func (s *AuthService) SeedSignupCode(ctx context.Context, code string) error {
	code = strings.TrimSpace(code)
	if code == "" {
		return nil
	}
	hash, err := auth.HashPassword(code)
	if err != nil {
		return err
	}
	created, err := s.settings.SetIfAbsent(ctx, models.SettingSignupCodeHash, hash)
	if err != nil {
		return err
	}
	if created {
		log.Println("[Auth] Signup code configured")
	}
	return nil
}

// CheckSignupCode reports whether code matches the stored invitation code.
// The code itself never leaves the server.
func (s *AuthService) CheckSignupCode(ctx context.Context, code string) (bool, error) {
	code = strings.TrimSpace(code)
	if code == "" {
		return false, nil
	}
	hash, err := s.settings.Get(ctx, models.SettingSignupCodeHash)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return auth.VerifyPassword(hash, code), nil
}

// Signup creates the user with a pending, inactive staff profile.
func (s *AuthService) Signup(ctx context.Context, req models.SignupRequest) (*models.AuthResponse, error) {
	v := &apperr.ValidationError{}
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		v.Add("email", "invalid email address")
	}
	if len(req.Password) < minPasswordLength {
		v.Add("password", fmt.Sprintf("must be at least %d characters", minPasswordLength))
	}
	if strings.TrimSpace(req.SignupCode) == "" {
		v.Add("signup_code", "signup code is required")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	ok, err := s.CheckSignupCode(ctx, req.SignupCode)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, apperr.ErrInvalidSignupCode
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{Email: email, PasswordHash: hash}
	profile := &models.Profile{
		FullName: strings.TrimSpace(req.FullName),
		Role:     models.RoleStaff,
		IsActive: false,
	}
	if err := s.users.CreateWithProfile(ctx, user, profile); err != nil {
		return nil, err
	}
	log.Printf("[Auth] New account %s awaiting activation", email)

	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	s.events.AuthEvent(ctx, session.EventSignedIn, user.ID)
	return &models.AuthResponse{Token: token, Profile: profile}, nil
}

// Login checks the password. With TOTP enabled it returns a temporary
// token for the second step instead of an access token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest, clientIP string) (*models.AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if s.limiter != nil && !s.limiter.Allow(ctx, clientIP+"|"+email) {
		metrics.LoginAttempts.WithLabelValues("rate_limited").Inc()
		return nil, apperr.ErrRateLimited
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil || !auth.VerifyPassword(user.PasswordHash, req.Password) {
		if err != nil && !errors.Is(err, apperr.ErrNotFound) {
			log.Printf("[Auth] Login lookup failed: %v", err)
		}
		metrics.LoginAttempts.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: invalid email or password", apperr.ErrUnauthorized)
	}

	if user.TOTPEnabled {
		temp, err := s.jwt.GenerateTempToken(user.ID, user.Email)
		if err != nil {
			return nil, err
		}
		metrics.LoginAttempts.WithLabelValues("totp_required").Inc()
		return &models.AuthResponse{TOTPRequired: true, TempToken: temp}, nil
	}

	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s.issue(ctx, user)
}

// LoginTOTP completes a login started with a temporary token.
func (s *AuthService) LoginTOTP(ctx context.Context, req models.TOTPVerifyRequest) (*models.AuthResponse, error) {
	claims, err := s.jwt.ValidateTempToken(req.TempToken)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid or expired verification token", apperr.ErrUnauthorized)
	}
	user, err := s.users.Get(ctx, claims.UserID)
	if err != nil {
		return nil, fmt.Errorf("%w: unknown user", apperr.ErrUnauthorized)
	}
	if !s.totp.Check(user, req.Code) {
		metrics.LoginAttempts.WithLabelValues("failed").Inc()
		return nil, fmt.Errorf("%w: invalid code", apperr.ErrUnauthorized)
	}
	metrics.LoginAttempts.WithLabelValues("success").Inc()
	return s.issue(ctx, user)
}

// Refresh issues a fresh token for a still valid one.
func (s *AuthService) Refresh(ctx context.Context, claims *auth.Claims) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(claims.UserID, claims.Email)
	if err != nil {
		return nil, err
	}
	s.events.AuthEvent(ctx, session.EventTokenRefreshed, claims.UserID)
	return &models.AuthResponse{Token: token}, nil
}

// Logout revokes the token and returns the clean-slate session.
func (s *AuthService) Logout(ctx context.Context, claims *auth.Claims) session.Session {
	if s.revoker != nil && claims.ID != "" {
		if err := s.revoker.Revoke(ctx, claims.ID, s.jwt.Remaining(claims)); err != nil {
			log.Printf("[Auth] Failed to revoke token: %v", err)
		}
	}
	s.events.AuthEvent(ctx, session.EventSignedOut, claims.UserID)
	return session.Reset()
}

func (s *AuthService) issue(ctx context.Context, user *models.User) (*models.AuthResponse, error) {
	token, err := s.jwt.GenerateToken(user.ID, user.Email)
	if err != nil {
		return nil, err
	}
	resp := &models.AuthResponse{Token: token}
	if s.profiles != nil {
		if p, err := s.profiles.Get(ctx, user.ID); err == nil {
			resp.Profile = p
		}
	}
	s.events.AuthEvent(ctx, session.EventSignedIn, user.ID)
	return resp, nil
}
