package handlers

import (
	"net/http"

	"garage-backend/internal/config"
	"garage-backend/internal/models"
	"garage-backend/pkg/utils"
)

type AppInfoHandler struct {
	info models.AppInfo
}

func NewAppInfoHandler(cfg *config.Config) *AppInfoHandler {
	return &AppInfoHandler{info: models.AppInfo{
		NamePart1:   cfg.Business.NamePart1,
		NamePart2:   cfg.Business.NamePart2,
		Description: cfg.Business.Description,
		Version:     cfg.Business.AppVersion,
	}}
}

func (h *AppInfoHandler) GetAppInfo(w http.ResponseWriter, r *http.Request) {
	utils.JSON(w, http.StatusOK, h.info)
}
