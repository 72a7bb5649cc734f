package api

import (
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
	"golang.org/x/time/rate"

	"machine-service-backend/config"
	"machine-service-backend/internal/mw"
)

// NewRouter creates and configures a new Gin router.
func NewRouter(h *Handler, cfg config.ServerConfig) *gin.Engine {
	r := gin.Default()

	rateLimiter := mw.RateLimiter(rate.Limit(cfg.RateLimitPerSec), cfg.RateLimitBurst)

	// Every successful write flushes the whole cache, so reads never see
	// a queue or report older than the last change made through this server.
	cacheStore := cache.New(cfg.CacheTTL, 2*cfg.CacheTTL)
	caching := mw.Cache(cacheStore, cfg.CacheTTL)

	api := r.Group("/api")
	api.Use(rateLimiter, mw.FlushOnWrite(cacheStore))
	{
		api.GET("/workstations", caching, h.GetWorkstations)
		api.GET("/workstations/:station/queue", caching, h.GetQueue)
		api.POST("/workstations/:station/checkin", h.CheckIn)
		api.POST("/workstations/:station/checkout", h.CheckOut)

		api.GET("/machines/completed", caching, h.GetCompleted)
		api.GET("/machines/:barcode", caching, h.GetMachine)
		api.DELETE("/machines/:barcode", h.DeleteMachine)

		api.GET("/reports/export", caching, h.GetReport)

		api.GET("/backup", h.GetBackup)
		api.POST("/backup", h.PostBackup)

		api.GET("/operators", h.GetOperators)
		api.POST("/operators", h.PostOperator)
		api.GET("/operators/:epf", h.GetOperator)
		api.DELETE("/operators/:epf", h.DeleteOperator)

		api.GET("/subscriptions", h.GetSubscription)
		api.PUT("/subscriptions", h.PutSubscription)
		api.DELETE("/subscriptions", h.DeleteSubscription)
		api.GET("/vapid_public_key", h.GetVAPIDPublicKey)

		api.GET("/store/machines", h.GetStorePage)
		api.PUT("/store/machines", h.PutStoreMachines)
		api.DELETE("/store/machines/:barcode", h.DeleteStoreMachine)
	}

	return r
}
