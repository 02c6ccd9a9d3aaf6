package api

import (
	"context"
	"crypto/subtle"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/config"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/harvest"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/report"
	"github.com/xv68yq687p-max/cyber-defenders-dashboard/internal/storage"
)

type Server struct {
	cfg          *config.Config
	store        *storage.Store
	orchestrator *harvest.Orchestrator
	compiler     *report.Compiler
}

func NewServer(cfg *config.Config, store *storage.Store, o *harvest.Orchestrator, c *report.Compiler) *Server {
	return &Server{cfg: cfg, store: store, orchestrator: o, compiler: c}
}

func (s *Server) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", s.health)
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := r.Group("/api/v1")
	{
		v1.POST("/harvest", s.adminOnly(), s.triggerHarvest)
		v1.GET("/news/:category", s.categoryNews)
		v1.GET("/weekly/:category", s.weeklyNews)
		v1.GET("/report", s.reportText)
		v1.GET("/last-update", s.lastUpdate)
	}
}

func (s *Server) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// adminOnly gates the on-demand trigger behind the admin token. Requests
// are rejected here before any fetch work begins.
func (s *Server) adminOnly() gin.HandlerFunc {
	token := []byte(s.cfg.AdminToken)
	return func(c *gin.Context) {
		got := []byte(c.GetHeader("X-Admin-Token"))
		if len(token) == 0 || subtle.ConstantTimeCompare(got, token) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
				"code":    "unauthorized",
				"message": "missing or invalid admin token",
			})
			return
		}
		c.Next()
	}
}

// triggerHarvest starts a cycle and returns immediately; the caller does
// not wait for completion. A cycle already in flight is not queued.
func (s *Server) triggerHarvest(c *gin.Context) {
	if s.orchestrator.InFlight() {
		c.JSON(http.StatusConflict, gin.H{
			"code":    "in_progress",
			"message": "harvest cycle already running",
		})
		return
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
		defer cancel()
		if err := s.orchestrator.Run(ctx); err != nil {
			log.Errorf("api: triggered harvest: %v", err)
		}
	}()

	c.JSON(http.StatusAccepted, gin.H{
		"code":    "accepted",
		"message": "harvest cycle started",
	})
}

func (s *Server) categoryNews(c *gin.Context) {
	category := c.Param("category")
	if _, ok := s.cfg.Find(category); !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "unknown_category", "message": "unknown category"})
		return
	}

	snap, err := s.store.Processed(c.Request.Context(), category)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":      "ok",
		"category":  category,
		"updatedAt": snap.UpdatedAt,
		"data":      snap.Items,
	})
}

func (s *Server) weeklyNews(c *gin.Context) {
	category := c.Param("category")
	if _, ok := s.cfg.Find(category); !ok {
		c.JSON(http.StatusNotFound, gin.H{"code": "unknown_category", "message": "unknown category"})
		return
	}

	items, err := s.orchestrator.Weekly(c.Request.Context(), category)
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"code":     "ok",
		"category": category,
		"data":     items,
	})
}

func (s *Server) reportText(c *gin.Context) {
	text, err := s.compiler.Compile(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.String(http.StatusOK, text)
}

func (s *Server) lastUpdate(c *gin.Context) {
	t, err := s.store.LastUpdate(c.Request.Context())
	if err != nil {
		s.internalError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"code": "ok", "lastUpdate": t})
}

func (s *Server) internalError(c *gin.Context, err error) {
	log.Errorf("api: %v", err)
	c.JSON(http.StatusInternalServerError, gin.H{
		"code":    "internal_error",
		"message": "internal server error",
	})
}
