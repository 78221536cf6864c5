package controllers

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"otoil-backend/models"
	"otoil-backend/services"
	"otoil-backend/utils"
)

const minPasswordLength = 6

type RegisterInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type LoginInput struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func userResponse(user models.User) gin.H {
	return gin.H{
		"id":    user.ID,
		"email": user.Email,
		"name":  user.Name,
	}
}

func authFailed(c *gin.Context, status int, code string, cause error) {
	err := utils.NewAuthError(code, cause)
	log.WithError(err).WithField("path", c.FullPath()).Warn("auth failed")
	utils.RespondWithAuthError(c, status, err)
}

func (h *Handler) Register(c *gin.Context) {
	var input RegisterInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input: "+err.Error())
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))

	if !utils.ValidateEmail(email) {
		authFailed(c, http.StatusBadRequest, utils.AuthInvalidEmail, nil)
		return
	}
	if len(input.Password) < minPasswordLength {
		authFailed(c, http.StatusBadRequest, utils.AuthWeakPassword, nil)
		return
	}

	var existing models.User
	result := h.DB.Where("email = ?", email).First(&existing)
	if result.Error == nil {
		authFailed(c, http.StatusConflict, utils.AuthEmailAlreadyInUse, nil)
		return
	} else if !errors.Is(result.Error, gorm.ErrRecordNotFound) {
		authFailed(c, http.StatusServiceUnavailable, utils.AuthNetworkFailed, result.Error)
		return
	}

	user := models.User{
		Email:    email,
		Name:     strings.TrimSpace(input.Name),
		Password: input.Password, // Will be hashed in BeforeCreate hook
	}
	if err := h.DB.Create(&user).Error; err != nil {
		authFailed(c, http.StatusServiceUnavailable, utils.AuthNetworkFailed, err)
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.Email)
	if err != nil {
		log.WithError(err).Error("failed to generate token")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "Registration successful",
		"token":   token,
		"user":    userResponse(user),
	})
}

func (h *Handler) Login(c *gin.Context) {
	var input LoginInput
	if err := c.ShouldBindJSON(&input); err != nil {
		utils.RespondWithError(c, http.StatusBadRequest, "Invalid input")
		return
	}
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if !utils.ValidateEmail(email) {
		authFailed(c, http.StatusBadRequest, utils.AuthInvalidEmail, nil)
		return
	}

	var user models.User
	if err := h.DB.Where("email = ?", email).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			authFailed(c, http.StatusUnauthorized, utils.AuthUserNotFound, nil)
		} else {
			authFailed(c, http.StatusServiceUnavailable, utils.AuthNetworkFailed, err)
		}
		return
	}

	if !utils.CheckPasswordHash(input.Password, user.Password) {
		authFailed(c, http.StatusUnauthorized, utils.AuthWrongPassword, nil)
		return
	}

	token, err := utils.GenerateToken(user.ID.String(), user.Email)
	if err != nil {
		log.WithError(err).Error("failed to generate token")
		utils.RespondWithError(c, http.StatusInternalServerError, "Failed to generate token")
		return
	}

	// Update last login
	now := time.Now()
	if err := h.DB.Model(&user).Update("last_login", &now).Error; err != nil {
		log.WithError(err).WithField("userId", user.ID).Warn("failed to update last login")
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"user":  userResponse(user),
	})
}

// Logout revokes the caller's token and closes its live connections.
func (h *Handler) Logout(c *gin.Context) {
	claims, ok := utils.CurrentClaims(c)
	if !ok {
		utils.RespondWithError(c, http.StatusUnauthorized, "Not signed in")
		return
	}
	services.SignOut(h.Revocations, h.Hub, sessionFromClaims(claims))
	c.JSON(http.StatusOK, gin.H{"message": "Signed out"})
}

func (h *Handler) Me(c *gin.Context) {
	userID := c.GetString("userId")

	var user models.User
	if err := h.DB.First(&user, "id = ?", userID).Error; err != nil {
		authFailed(c, http.StatusUnauthorized, utils.AuthUserNotFound, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"user": userResponse(user)})
}

func sessionFromClaims(claims *utils.Claims) services.Session {
	return services.Session{
		UserID:    claims.UserID,
		Email:     claims.Email,
		TokenID:   claims.TokenID,
		ExpiresAt: claims.ExpiresAt,
	}
}
