package models

import "time"

// Roles a profile can carry.
const (
	RoleStaff   = "staff"
	RoleManager = "manager"
	RoleAdmin   = "admin"
)

// ValidRole reports whether r is one of the known roles.
func ValidRole(r string) bool {
	switch r {
	case RoleStaff, RoleManager, RoleAdmin:
		return true
	}
	return false
}

// User is the authentication identity. It never leaves the server.
type User struct {
	ID           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	TOTPSecret   string    `json:"-"`
	TOTPEnabled  bool      `json:"totp_enabled"`
	CreatedAt    time.Time `json:"created_at"`
}

// Profile is the staff record attached to a user; same id as the user.
type Profile struct {
	ID                string    `json:"id"`
	FullName          string    `json:"full_name"`
	Email             string    `json:"email"`
	Role              string    `json:"role"`
	IsActive          bool      `json:"is_active"`
	EmailNotification bool      `json:"email_notification"`
	CreatedAt         time.Time `json:"created_at"`
}

// UpdateProfileRequest is a partial update; nil fields are left unchanged
type UpdateProfileRequest struct {
	Role              *string `json:"role,omitempty"`
	IsActive          *bool   `json:"is_active,omitempty"`
	EmailNotification *bool   `json:"email_notification,omitempty"`
}

// SignupRequest represents the request body for signup
type SignupRequest struct {
	Email      string `json:"email"`
	Password   string `json:"password"`
	FullName   string `json:"full_name"`
	SignupCode string `json:"signup_code"`
}

// CheckSignupCodeRequest carries the invitation code to validate
type CheckSignupCodeRequest struct {
	Code string `json:"code"`
}

// LoginRequest represents the request body for login
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// AuthResponse represents the response after successful authentication
type AuthResponse struct {
	Token        string   `json:"token,omitempty"`
	TOTPRequired bool     `json:"totp_required,omitempty"`
	TempToken    string   `json:"temp_token,omitempty"`
	Profile      *Profile `json:"profile,omitempty"`
}
