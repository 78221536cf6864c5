package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"otoil-backend/services"
	"otoil-backend/utils"
)

// Notifications returns the reminder list as the calling device sees it.
func (h *Handler) Notifications(c *gin.Context) {
	tracker, ok := h.tracker(c)
	if !ok {
		return
	}

	records, err := h.Records.List(c.Request.Context(), "")
	if err != nil {
		log.WithError(err).Error("failed to list records for notifications")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıtlar yüklenemedi.")
		return
	}

	snap := services.Snapshot{Records: records}
	if h.Feed != nil {
		snap.Version = h.Feed.Current().Version
	}
	c.JSON(http.StatusOK, h.pipeline(tracker).View(c.Request.Context(), snap))
}

func (h *Handler) AcknowledgeNotification(c *gin.Context) {
	tracker, ok := h.tracker(c)
	if !ok {
		return
	}
	ctx := c.Request.Context()

	if err := tracker.MarkAcknowledged(ctx, c.Param("id")); err != nil {
		log.WithError(err).WithField("recordId", c.Param("id")).Error("failed to store read state")
		utils.RespondWithError(c, http.StatusInternalServerError, err.Error())
		return
	}

	records, err := h.Records.List(ctx, "")
	if err != nil {
		log.WithError(err).Error("failed to list records for notifications")
		utils.RespondWithError(c, http.StatusInternalServerError, "Kayıtlar yüklenemedi.")
		return
	}
	reminders := services.BuildReminders(records, h.today())
	c.JSON(http.StatusOK, gin.H{"unreadCount": services.UnreadCount(reminders, tracker.Load(ctx))})
}
