package handlers

import (
	"net/http"

	"garage-backend/internal/middleware"
	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"
)

type TOTPHandler struct {
	TOTPService *services.TOTPService
}

func NewTOTPHandler(totpService *services.TOTPService) *TOTPHandler {
	return &TOTPHandler{TOTPService: totpService}
}

// SetupTOTP starts 2FA setup and returns the secret and otpauth URL
func (h *TOTPHandler) SetupTOTP(w http.ResponseWriter, r *http.Request) {
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	resp, err := h.TOTPService.Setup(r.Context(), userID)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, resp)
}

// EnableTOTP verifies the code and enables 2FA
func (h *TOTPHandler) EnableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		utils.Error(w, http.StatusBadRequest, "Verification code is required")
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.TOTPService.Enable(r.Context(), userID, req.Code); err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA enabled successfully"})
}

// DisableTOTP turns off 2FA after verifying a current code
func (h *TOTPHandler) DisableTOTP(w http.ResponseWriter, r *http.Request) {
	var req models.TOTPCodeRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	if req.Code == "" {
		utils.Error(w, http.StatusBadRequest, "Verification code is required")
		return
	}
	userID, _ := middleware.GetUserIDFromContext(r.Context())
	if err := h.TOTPService.Disable(r.Context(), userID, req.Code); err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]string{"message": "2FA disabled successfully"})
}
