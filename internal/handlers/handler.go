package handlers

import (
	"venue_control/internal/logger"
	"venue_control/internal/service"

	"github.com/gin-gonic/gin"

	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

// Handler wires HTTP layer to services and logging.
type Handler struct {
	services *service.Service
	log      *logger.Logger
}

// NewHandler constructs a new HTTP handler with dependencies.
func NewHandler(services *service.Service, log *logger.Logger) *Handler {
	return &Handler{services: services, log: log}
}

// InitRoutes builds and returns the Gin router with all routes registered.
func (h *Handler) InitRoutes() *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery())

	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	router.GET("/health", h.health)

	h.registerAuthRoutes(router)
	h.registerAdminRoutes(router)

	return router
}

func (h *Handler) registerAuthRoutes(r *gin.Engine) {
	auth := r.Group("/auth")
	{
		auth.POST("/signup", h.signUp)
		auth.POST("/login", h.login)
		auth.POST("/refresh", h.refresh)
	}

	user := auth.Group("", h.requireAuth)
	{
		user.GET("/profile", h.profile)
		user.POST("/save_fcm_token", h.saveFCMToken)

		user.POST("/add_venue", h.addVenue)
		user.POST("/add_device", h.addDevice)
		user.POST("/device_state", h.deviceState)
		user.DELETE("/delete_venue", h.deleteVenue)
		user.DELETE("/delete_device", h.deleteDevice)

		user.POST("/set_schedule", h.setSchedule)
		user.GET("/get_schedules", h.getSchedules)
		user.DELETE("/delete_schedule", h.deleteSchedule)
		user.POST("/update_schedule_status", h.updateScheduleStatus)

		user.POST("/set_voice_key", h.setVoiceKey)
		user.GET("/voice_key_exists", h.voiceKeyExists)
		user.POST("/voice_command", h.voiceCommand)

		user.POST("/add_monitoring_venue", h.addMonitoringVenue)
		user.GET("/get_monitoring_data", h.getMonitoringData)
		user.DELETE("/delete_monitoring_venue", h.deleteMonitoringVenue)

		// Venue snapshots over WebSocket (HTTP upgrade), same port
		user.GET("/ws", h.wsConnect)
	}
}

func (h *Handler) registerAdminRoutes(r *gin.Engine) {
	admin := r.Group("/admin")
	{
		admin.POST("/sign-in", h.adminSignIn)

		tokens := admin.Group("/tokens", h.adminMiddleware)
		tokens.GET("", h.listAccessTokens)
		tokens.POST("", h.addAccessToken)
		tokens.DELETE("", h.deleteAccessToken)
	}
}
