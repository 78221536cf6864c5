package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"otoil-backend/services"
	"otoil-backend/utils"
)

func (h *Handler) InstallPrompt(c *gin.Context) {
	kv, ok := h.deviceStore(c)
	if !ok {
		return
	}
	prefs := services.NewDevicePreferences(kv)
	c.JSON(http.StatusOK, gin.H{"show": prefs.ShouldShowInstallPrompt(c.Request.Context(), h.now())})
}

func (h *Handler) DismissInstallPrompt(c *gin.Context) {
	kv, ok := h.deviceStore(c)
	if !ok {
		return
	}
	prefs := services.NewDevicePreferences(kv)
	if err := prefs.DismissInstallPrompt(c.Request.Context(), h.now()); err != nil {
		log.WithError(err).Error("failed to store install prompt dismissal")
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}
	c.JSON(http.StatusOK, gin.H{"show": false})
}
