package handlers

import (
	"net/http"

	"garage-backend/internal/middleware"
	"garage-backend/internal/session"
	"garage-backend/pkg/utils"
)

type SessionHandler struct {
	Sessions middleware.SessionResolver
}

func NewSessionHandler(sessions middleware.SessionResolver) *SessionHandler {
	return &SessionHandler{Sessions: sessions}
}

// GetSession is reachable by deactivated accounts so the shell can show
// the deactivated message and the logout action.
func (h *SessionHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	userID, ok := middleware.GetUserIDFromContext(r.Context())
	if !ok {
		utils.Error(w, http.StatusUnauthorized, "authorization required")
		return
	}
	s := h.Sessions.Resolve(r.Context(), userID)
	utils.JSON(w, http.StatusOK, map[string]interface{}{
		"session":    s,
		"navigation": session.NavigationFor(s),
	})
}
