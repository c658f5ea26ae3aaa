package router

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Nakkasenp65/register-item-delivery/config"
	"github.com/Nakkasenp65/register-item-delivery/internal/api/handler"
	"github.com/Nakkasenp65/register-item-delivery/internal/api/middleware"
	"github.com/Nakkasenp65/register-item-delivery/pkg/jwt"
	"github.com/Nakkasenp65/register-item-delivery/pkg/redis"
)

// HealthCheck pings one backing store
type HealthCheck func(ctx context.Context) error

// Setup builds the Gin engine.
// verifier and rdb may be nil: identity verification and rate limiting
// are then disabled.
func Setup(
	cfg *config.Config,
	h *handler.Handler,
	verifier *jwt.Verifier,
	rdb *redis.Client,
	checks map[string]HealthCheck,
	logger *zap.Logger,
) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// ── global middleware ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(logger, "/health"))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitMB << 20))

	// ── health ──
	r.GET("/health", healthHandler(checks))

	// ── API v1 ──
	v1 := r.Group("/api/v1")
	{
		// reference data, public
		locations := v1.Group("/locations")
		{
			locations.GET("/provinces", h.Location.ListProvinces)
			locations.GET("/provinces/:provinceId/districts", h.Location.ListDistricts)
			locations.GET("/provinces/:provinceId/districts/:districtId/sub-districts", h.Location.ListSubDistricts)
			locations.GET("/postal-codes", h.Location.ListPostalCodes)
			locations.GET("/postal-codes/resolve", h.Location.ResolvePostalCode)
		}

		// LIFF-facing routes; the ID token is optional
		liff := v1.Group("")
		liff.Use(middleware.LIFFIdentity(verifier))
		{
			deliveries := liff.Group("/deliveries")
			{
				deliveries.POST("",
					middleware.RateLimit(rdb, cfg.RateLimit.CreateLimit, cfg.RateLimit.CreateWindow),
					h.Delivery.Create,
				)
				deliveries.GET("/:id", h.Delivery.Get)
				deliveries.PUT("/:id", h.Delivery.Update)
				deliveries.PUT("/:id/address", h.Delivery.UpdateAddress)
				deliveries.GET("/:id/summary", h.Message.Summary)
				deliveries.POST("/:id/summary/push", h.Message.Push)
			}

			find := liff.Group("/find")
			{
				find.GET("", h.Delivery.Find)
				find.POST("", h.Delivery.Find)
				find.GET("/current", h.Delivery.Current)
			}
		}

		// staff
		admin := v1.Group("/admin")
		admin.Use(middleware.AdminKey(cfg.Admin.APIKey))
		{
			admin.GET("/deliveries/export", h.Export.ExportDeliveries)
			admin.PATCH("/deliveries/:id/status", h.Delivery.UpdateStatus)
		}
	}

	return r
}

// healthHandler 200 when every store answers, 503 otherwise
func healthHandler(checks map[string]HealthCheck) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 3*time.Second)
		defer cancel()

		status := http.StatusOK
		components := make(gin.H, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = http.StatusServiceUnavailable
				components[name] = "down"
				continue
			}
			components[name] = "ok"
		}

		overall := "ok"
		if status != http.StatusOK {
			overall = "degraded"
		}
		c.JSON(status, gin.H{"status": overall, "components": components})
	}
}
