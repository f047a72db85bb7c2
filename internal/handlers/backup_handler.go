package handlers

import (
	"errors"
	"net/http"

	"garage-backend/internal/backup"
	"garage-backend/pkg/utils"
)

// BackupHandler exposes on-demand backups. Service is nil when no bucket
// is configured.
type BackupHandler struct {
	Service *backup.Service
}

func NewBackupHandler(s *backup.Service) *BackupHandler {
	return &BackupHandler{Service: s}
}

func (h *BackupHandler) RunBackup(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		utils.Error(w, http.StatusServiceUnavailable, "backups are not configured")
		return
	}
	res, err := h.Service.Run(r.Context())
	if errors.Is(err, backup.ErrRunning) {
		utils.Error(w, http.StatusConflict, err.Error())
		return
	}
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, res)
}

func (h *BackupHandler) GetStatus(w http.ResponseWriter, r *http.Request) {
	if h.Service == nil {
		utils.JSON(w, http.StatusOK, map[string]interface{}{"enabled": false})
		return
	}
	st, err := h.Service.Status(r.Context())
	if err != nil {
		respondError(w, r, err)
		return
	}
	utils.JSON(w, http.StatusOK, map[string]interface{}{"enabled": true, "status": st})
}
