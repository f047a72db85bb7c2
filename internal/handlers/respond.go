package handlers

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"

	"garage-backend/internal/apperr"
	"garage-backend/internal/middleware"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		utils.Error(w, http.StatusBadRequest, "Invalid request body")
		return false
	}
	return true
}

// actorFrom reads the caller resolved by the auth middleware.
func actorFrom(r *http.Request) services.Actor {
	s, _ := middleware.GetSessionFromContext(r.Context())
	return services.Actor{UserID: s.UserID, Role: s.Role}
}

// respondError maps service errors onto status codes. Unknown errors are
// logged and answered with a generic 500.
func respondError(w http.ResponseWriter, r *http.Request, err error) {
	var verr *apperr.ValidationError
	var failure *services.UpdateFailure

	switch {
	case errors.As(err, &failure):
		status := statusFor(failure.Err)
		if status == http.StatusInternalServerError {
			log.Printf("[HTTP] %s %s: %v", r.Method, r.URL.Path, failure.Err)
		}
		utils.JSON(w, status, map[string]interface{}{
			"error": messageFor(status, failure.Err),
			"team":  failure.Team,
		})
	case errors.As(err, &verr):
		utils.JSON(w, http.StatusBadRequest, map[string]interface{}{
			"error":  "validation failed",
			"fields": verr.FieldErrors,
		})
	default:
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("[HTTP] %s %s: %v", r.Method, r.URL.Path, err)
		}
		utils.Error(w, status, messageFor(status, err))
	}
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrDuplicatePhone), errors.Is(err, apperr.ErrDuplicateEmail):
		return http.StatusConflict
	case errors.Is(err, apperr.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden), errors.Is(err, services.ErrTeamAdminOnly),
		errors.Is(err, apperr.ErrInvalidSignupCode), errors.Is(err, apperr.ErrDeactivated):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrRateLimited):
		return http.StatusTooManyRequests
	}
	var verr *apperr.ValidationError
	if errors.As(err, &verr) {
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func messageFor(status int, err error) string {
	if status == http.StatusInternalServerError {
		return "Internal server error"
	}
	return err.Error()
}
