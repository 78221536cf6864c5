package routes

import (
	"slices"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"otoil-backend/config"
	"otoil-backend/controllers"
	"otoil-backend/utils"
)

func SetupRouter(h *controllers.Handler, cfg *config.Config) *gin.Engine {
	r := gin.New()

	origins := cfg.Server.AllowOrigins
	r.Use(cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Authorization", "Content-Type", "X-Device-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition"},
		AllowCredentials: true,
		AllowOriginFunc: func(origin string) bool {
			return slices.Contains(origins, origin)
		},
	}))

	r.Use(config.Recovery())
	r.Use(config.PerformanceLogger())
	r.Use(utils.RateLimiter(rate.Limit(cfg.Server.RateLimitPerSec), cfg.Server.RateLimitBurst))

	auth := r.Group("/auth")
	{
		auth.POST("/register", h.Register)
		auth.POST("/login", h.Login)

		auth.Use(utils.AuthMiddleware(h.Revocations))
		auth.GET("/me", h.Me)
		auth.POST("/logout", h.Logout)
	}

	api := r.Group("/api")
	api.Use(utils.AuthMiddleware(h.Revocations))
	{
		// Service records
		records := api.Group("/records")
		{
			records.GET("", h.ListRecords)
			records.POST("", h.CreateRecord)
			records.GET("/:id", h.GetRecord)
			records.PUT("/:id", h.UpdateRecord)
			records.GET("/:id/pdf", h.RecordPDF)
			records.GET("/:id/whatsapp", h.RecordWhatsApp)
		}

		// Reminders
		api.GET("/notifications", h.Notifications)
		api.POST("/notifications/:id/ack", h.AcknowledgeNotification)
		api.GET("/live", h.Live)

		// Web push
		push := api.Group("/push")
		{
			push.PUT("/subscriptions", h.PutPushSubscription)
			push.DELETE("/subscriptions", h.DeletePushSubscription)
			push.GET("/vapid_public_key", h.VAPIDPublicKey)
		}

		// Device preferences
		api.GET("/device/install-prompt", h.InstallPrompt)
		api.POST("/device/install-prompt/dismiss", h.DismissInstallPrompt)

		api.GET("/dashboard", h.Dashboard)
		api.POST("/dashboard/strategy", h.DashboardStrategy)
	}

	return r
}
