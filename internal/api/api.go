// internal/api/api.go
package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/api/handlers"
	"github.com/andresuchdata/permitvault/backend-go/internal/api/middleware"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

type Services struct {
	Trigger        *handlers.TriggerHandler
	Verify         *handlers.VerifyHandler
	Orphans        *handlers.OrphanHandler
	MetricsHandler http.Handler
}

func NewRouter(services *Services, allowedOrigins []string, log zerolog.Logger) *gin.Engine {
	router := gin.New()

	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	if services == nil {
		return router
	}

	if services.MetricsHandler != nil {
		router.GET("/metrics", gin.WrapH(services.MetricsHandler))
	}

	if services.Verify != nil {
		router.Any("/verifyRecaptchaToken", middleware.PublicCORS(), services.Verify.VerifyToken)
	}

	if services.Trigger != nil {
		services.Trigger.RegisterRoutes(router.Group("/triggers"))
	}

	if services.Orphans != nil {
		apiGroup := router.Group("/api/v1", cors.New(opsCORSConfig(allowedOrigins)))
		orphanGroup := apiGroup.Group("/orphans")
		{
			orphanGroup.GET("", services.Orphans.ListPending)
			orphanGroup.POST("/sweep", services.Orphans.Sweep)
		}
	}

	return router
}

func opsCORSConfig(allowedOrigins []string) cors.Config {
	defaultOrigins := []string{"http://localhost:3000", "http://127.0.0.1:3000"}
	corsConfig := cors.Config{
		AllowOrigins:     defaultOrigins,
		AllowMethods:     []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
	if len(allowedOrigins) > 0 {
		normalizedOrigins, allowAll := normalizeAllowedOrigins(allowedOrigins)
		if allowAll {
			corsConfig.AllowOrigins = nil
			corsConfig.AllowOriginFunc = func(origin string) bool { return true }
		} else if len(normalizedOrigins) > 0 {
			corsConfig.AllowOrigins = normalizedOrigins
		}
	}
	return corsConfig
}

func normalizeAllowedOrigins(origins []string) ([]string, bool) {
	var (
		parsed   []string
		allowAll bool
	)
	for _, origin := range origins {
		parts := strings.Split(origin, ",")
		for _, part := range parts {
			trimmed := strings.TrimSpace(part)
			if trimmed == "" {
				continue
			}
			if trimmed == "*" {
				allowAll = true
				continue
			}
			parsed = append(parsed, trimmed)
		}
	}
	return parsed, allowAll
}
