package handlers

import (
	"net/http"

	"github.com/gorilla/mux"

	"garage-backend/internal/models"
	"garage-backend/internal/services"
	"garage-backend/pkg/utils"
)

type CatalogHandler struct {
	Service *services.CatalogService
}

func NewCatalogHandler(s *services.CatalogService) *CatalogHandler {
	return &CatalogHandler{Service: s}
}

// ListServices returns the catalog; ?active=true gives the booking form list.
func (h *CatalogHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	list, err := h.Service.List(r.Context(), q.Get("q"), q.Get("active") == "true")
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, list)
}

func (h *CatalogHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceInput
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.Service.Create(r.Context(), actorFrom(r), req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusCreated, svc)
}

func (h *CatalogHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	var req models.ServiceInput
	if !decodeJSON(w, r, &req) {
		return
	}
	svc, err := h.Service.Update(r.Context(), actorFrom(r), mux.Vars(r)["id"], req)
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, svc)
}

func (h *CatalogHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	if err := h.Service.Delete(r.Context(), actorFrom(r), mux.Vars(r)["id"]); err != nil {
		respondError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
