package services

import (
	"context"
	"errors"

	"github.com/pquerna/otp"
	"github.com/pquerna/otp/totp"

	"garage-backend/internal/apperr"
	"garage-backend/internal/models"
)

// TOTP errors
var (
	ErrNoTOTPSecret    = errors.New("2FA setup not started")
	ErrTOTPNotEnabled  = errors.New("2FA is not enabled")
	ErrInvalidTOTPCode = errors.New("invalid verification code")
)

// TOTPService manages the optional authenticator-app second factor.
type TOTPService struct {
	users  UserStore
	issuer string
}

func NewTOTPService(users UserStore, issuer string) *TOTPService {
	if issuer == "" {
		issuer = "Garage"
	}
	return &TOTPService{users: users, issuer: issuer}
}

// Setup creates a new secret, stored but not yet enabled.
func (s *TOTPService) Setup(ctx context.Context, userID string) (*models.TOTPSetupResponse, error) {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	key, err := totp.Generate(totp.GenerateOpts{
		Issuer:      s.issuer,
		AccountName: user.Email,
		Period:      30,
		Digits:      otp.DigitsSix,
		Algorithm:   otp.AlgorithmSHA1,
	})
	if err != nil {
		return nil, err
	}
	if err := s.users.SetTOTP(ctx, userID, key.Secret(), false); err != nil {
		return nil, err
	}
	return &models.TOTPSetupResponse{
		Secret:      key.Secret(),
		URL:         key.URL(),
		Issuer:      s.issuer,
		AccountName: user.Email,
	}, nil
}

// Enable turns 2FA on once the user proves the authenticator works.
func (s *TOTPService) Enable(ctx context.Context, userID, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if user.TOTPSecret == "" {
		return apperr.Invalid("code", ErrNoTOTPSecret.Error())
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Invalid("code", ErrInvalidTOTPCode.Error())
	}
	return s.users.SetTOTP(ctx, userID, user.TOTPSecret, true)
}

// Disable turns 2FA off after a valid current code.
func (s *TOTPService) Disable(ctx context.Context, userID, code string) error {
	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return err
	}
	if !user.TOTPEnabled {
		return apperr.Invalid("code", ErrTOTPNotEnabled.Error())
	}
	if !totp.Validate(code, user.TOTPSecret) {
		return apperr.Invalid("code", ErrInvalidTOTPCode.Error())
	}
	return s.users.SetTOTP(ctx, userID, "", false)
}

// Check validates a login code for a user with 2FA enabled.
func (s *TOTPService) Check(user *models.User, code string) bool {
	return user.TOTPEnabled && user.TOTPSecret != "" && totp.Validate(code, user.TOTPSecret)
}
