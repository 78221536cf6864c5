package controllers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm/clause"

	"otoil-backend/models"
	"otoil-backend/utils"
)

type pushSubscriptionInput struct {
	Endpoint string `json:"endpoint" binding:"required"`
	Keys     struct {
		P256DH string `json:"p256dh" binding:"required"`
		Auth   string `json:"auth" binding:"required"`
	} `json:"keys" binding:"required"`
}

func (h *Handler) PutPushSubscription(c *gin.Context) {
	var input pushSubscriptionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	sub := models.PushSubscription{
		Endpoint: input.Endpoint,
		P256DH:   input.Keys.P256DH,
		Auth:     input.Keys.Auth,
		UserID:   c.GetString("userId"),
	}
	err := h.DB.WithContext(c.Request.Context()).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "endpoint"}},
		DoUpdates: clause.AssignmentColumns([]string{"p256dh", "auth", "user_id"}),
	}).Create(&sub).Error
	if err != nil {
		log.WithError(err).Error("failed to save push subscription")
		utils.RespondWithError(c, http.StatusInternalServerError, "failed to save subscription")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) DeletePushSubscription(c *gin.Context) {
	var input struct {
		Endpoint string `json:"endpoint" binding:"required"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}

	if err := h.DB.WithContext(c.Request.Context()).Where(&models.PushSubscription{Endpoint: input.Endpoint}).Delete(&models.PushSubscription{}).Error; err != nil {
		log.WithError(err).Error("failed to delete push subscription")
		utils.RespondWithError(c, http.StatusInternalServerError, "failed to delete subscription")
		return
	}

	c.Status(http.StatusNoContent)
}

func (h *Handler) VAPIDPublicKey(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"publicKey": h.Config.Push.PublicKey})
}
