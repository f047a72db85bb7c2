package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"
)

type TeamHandler struct {
	Service *services.TeamService
}

func NewTeamHandler(s *services.TeamService) *TeamHandler {
	return &TeamHandler{Service: s}
}

func (h *TeamHandler) ListProfiles(w http.ResponseWriter, r *http.Request) {
	team, err := h.Service.List(r.Context(), actorFrom(r), r.URL.Query().Get("q"))
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, team)
}

// UpdateProfile applies a partial change. A failed write answers with the
// re-fetched team under "team".
func (h *TeamHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req models.UpdateProfileRequest
	if !decodeJSON(w, r, &req) {
		return
	}
	p, err := h.Service.Update(r.Context(), actorFrom(r), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, p)
}
