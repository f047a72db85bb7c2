package handlers

import (
	"net/http"

	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"
)

type AuthHandler struct {
	Service *services.AuthService
}

func NewAuthHandler(s *services.AuthService) *AuthHandler {
	return &AuthHandler{Service: s}
}

// CheckSignupCode answers {"valid": bool}; the configured code is never
// sent to the client.
func (h *AuthHandler) CheckSignupCode(w http.ResponseWriter, r *http.Request) {
	var req models.CheckSignupCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	ok, err := h.Service.CheckSignupCode(r.Context(), req.Code)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]bool{"valid": ok})
}

func (h *AuthHandler) Signup(w http.ResponseWriter, r *http.Request) {
	var req models.SignupRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Service.Signup(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, resp)
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Service.Login(r.Context(), req, middleware.ClientIP(r))
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// LoginTOTP finishes a login that returned totp_required.
func (h *AuthHandler) LoginTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPVerifyRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	resp, err := h.Service.LoginTOTP(r.Context(), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "authorization required")
		return
	}
	resp, err := h.Service.Refresh(r.Context(), claims)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// Logout revokes the token and returns the reset session.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	claims, ok := middleware.GetClaimsFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "authorization required")
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"session": h.Service.Logout(r.Context(), claims),
	})
}
