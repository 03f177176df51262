package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Skufu/securemed/internal/analysis"
	"github.com/Skufu/securemed/internal/config"
	"github.com/Skufu/securemed/internal/metrics"
	"github.com/Skufu/securemed/internal/store"
)

type HealthChecker interface {
	Ping(ctx context.Context) error
}

type Analyzer interface {
	Analyze(ctx context.Context, in analysis.Input) (*analysis.Result, error)
}

// AnalysisStore persists finished analyses. Nil disables history.
type AnalysisStore interface {
	SaveAnalysis(ctx context.Context, rec store.AnalysisRecord) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (*store.AnalysisRecord, error)
}

type Deps struct {
	Analyzer Analyzer
	DB       HealthChecker
	Store    AnalysisStore
}

// multipart framing headroom on top of the file limit
const bodyOverhead = 1 << 20

func NewRouter(cfg *config.Config, deps Deps) *gin.Engine {
	router := gin.New()
	router.Use(
		gin.Logger(),
		gin.Recovery(),
		metrics.Middleware(),
		limitBodySize(cfg.Analysis.MaxUploadBytes()+bodyOverhead),
		cors.New(cors.Config{
			AllowOrigins:  cfg.CORSOrigins,
			AllowMethods:  []string{"GET", "POST", "OPTIONS"},
			AllowHeaders:  []string{"Origin", "Content-Type", "Authorization"},
			ExposeHeaders: []string{headerAnalysisID, headerDisclaimer},
			MaxAge:        12 * time.Hour,
		}),
	)

	router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	router.GET("/readyz", func(c *gin.Context) {
		if deps.DB == nil {
			c.JSON(http.StatusOK, gin.H{"status": "ok", "db": "disabled"})
			return
		}

		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()

		dbStatus := "ok"
		if err := deps.DB.Ping(ctx); err != nil {
			dbStatus = fmt.Sprintf("unhealthy: %v", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "degraded",
				"db":     dbStatus,
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "ok",
			"db":     dbStatus,
		})
	})

	router.GET("/metrics", gin.WrapH(metrics.Handler()))

	h := &handler{
		analyzer:    deps.Analyzer,
		store:       deps.Store,
		maxUploadMB: cfg.Analysis.MaxUploadMB,
		timeout:     cfg.Analysis.Timeout,
	}
	limiter := NewIPRateLimiter(cfg.RateLimit.RPS, cfg.RateLimit.Burst)

	ai := router.Group("/api/ai")
	ai.POST("/analyze", limiter.Middleware(), h.analyze)
	ai.POST("/analyze-text", limiter.Middleware(), h.analyzeText)
	if deps.Store != nil {
		ai.GET("/analyses/:id", h.getAnalysis)
	}

	return router
}

func limitBodySize(maxBytes int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxBytes)
		c.Next()
	}
}
