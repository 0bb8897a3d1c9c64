package webserver

import (
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/stake-plus/sentinel/src/sentinel/components/stats"
	"github.com/stake-plus/sentinel/src/sentinel/config"
	"github.com/stake-plus/sentinel/src/sentinel/types"
	"gorm.io/gorm"
)

// New builds the staff read-only API: health, counter snapshots and the
// moderation action log.
func New(cfg config.Config, db *gorm.DB, st *stats.Stats) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	g.Use(cors.Default())

	g.GET("/v1/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := g.Group("/v1", RequireToken([]byte(cfg.JWTSecret)))

	auth.GET("/stats", func(c *gin.Context) {
		report, err := st.Report(time.Now())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": "stats unavailable"})
			return
		}
		c.JSON(http.StatusOK, report)
	})

	auth.GET("/actions", func(c *gin.Context) {
		limit := 100
		var actions []types.ModAction
		err := db.Order("created_at DESC").Limit(limit).Find(&actions).Error
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"err": "action log unavailable"})
			return
		}
		c.JSON(http.StatusOK, actions)
	})

	return g
}
