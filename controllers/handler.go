package controllers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"otoil-backend/config"
	"otoil-backend/services"
	"otoil-backend/store"
	"otoil-backend/utils"
)

const deviceHeader = "X-Device-ID"

// Dependencies are the shared services every handler may use.
type Dependencies struct {
	Config      *config.Config
	DB          *gorm.DB
	Records     store.RecordStore
	Devices     store.DeviceStores
	Feed        *services.RecordFeed
	Hub         *services.AuthStateHub
	Revocations *services.TokenRevocations
	ReadStates  *services.ReadStateHub
	PDF         *services.PDFRenderer
	Strategist  services.StrategyAdvisor
}

// Handler holds shared dependencies for API handlers.
type Handler struct {
	Dependencies
	now func() time.Time
}

func NewHandler(deps Dependencies) *Handler {
	return &Handler{Dependencies: deps, now: time.Now}
}

// WithClock replaces the clock that decides "today" for every handler.
func (h *Handler) WithClock(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) location() *time.Location {
	if h.Config != nil && h.Config.Reminders.Location != nil {
		return h.Config.Reminders.Location
	}
	return time.Local
}

func (h *Handler) today() time.Time {
	return h.now().In(h.location())
}

// deviceStore returns the key/value store of the calling browser. The id comes
// from the X-Device-ID header, or the deviceId query parameter on WebSocket
// upgrades where headers cannot be set.
func (h *Handler) deviceStore(c *gin.Context) (store.KeyValueStore, bool) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return nil, false
	}
	return h.Devices.ForDevice(deviceID), true
}

func (h *Handler) deviceID(c *gin.Context) (string, bool) {
	deviceID := c.GetHeader(deviceHeader)
	if deviceID == "" {
		deviceID = c.Query("deviceId")
	}
	if deviceID == "" || len(deviceID) > 64 {
		utils.RespondWithError(c, http.StatusBadRequest, deviceHeader+" header required")
		return "", false
	}
	return deviceID, true
}

// tracker returns the read state of the calling device. Marks made through it
// reach that device's live connections.
func (h *Handler) tracker(c *gin.Context) (*services.ReadStateTracker, bool) {
	deviceID, ok := h.deviceID(c)
	if !ok {
		return nil, false
	}
	tracker := services.NewReadStateTracker(h.Devices.ForDevice(deviceID))
	if h.ReadStates != nil {
		tracker.NotifyChanges(h.ReadStates, deviceID)
	}
	return tracker, true
}

func (h *Handler) pipeline(tracker *services.ReadStateTracker) *services.Pipeline {
	return services.NewPipeline(h.Feed, h.Hub, tracker, h.location()).WithClock(h.now)
}
