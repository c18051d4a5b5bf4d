package webserver

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/covert-ops/agency-comms/src/agency/config"
)

func New(cfg config.Config, db *gorm.DB, rdb *redis.Client) *gin.Engine {
	g := gin.New()
	g.Use(gin.Logger(), gin.Recovery())
	attachRoutes(g, cfg, db, rdb)
	return g
}

func attachRoutes(r *gin.Engine, cfg config.Config, db *gorm.DB, rdb *redis.Client) {
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"http://localhost:3000", cfg.FrontendURL},
		AllowMethods:     []string{"GET", "POST", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
	}))

	authH := NewAuth(db, []byte(cfg.JWTSecret))
	agentH := NewAgents(db, rdb)
	missionH := NewMissions(db, rdb)
	countryH := NewCountries(db)
	msgH := NewMessages(db)

	loginLimiter := NewRateLimiter(10, time.Minute)

	v1 := r.Group("/v1")
	{
		v1.POST("/auth/login", RateLimitMiddleware(loginLimiter), authH.Login)

		secured := v1.Group("")
		secured.Use(JWTMiddleware([]byte(cfg.JWTSecret)))

		secured.GET("/agents", agentH.List)
		secured.GET("/agents/:id", agentH.Get)
		secured.GET("/agents/:id/messages", agentH.Inbox)

		secured.GET("/countries", countryH.List)
		secured.GET("/countries/:id", countryH.Get)

		secured.GET("/missions", missionH.List)
		secured.GET("/missions/:id", missionH.Get)

		secured.GET("/messages", msgH.List)
		secured.DELETE("/messages/:id", msgH.Delete)

		// Mutations are operator actions, restricted to handlers.
		ops := secured.Group("")
		ops.Use(HandlerOnly(db))

		ops.POST("/agents", agentH.Create)
		ops.PATCH("/agents/:id", agentH.Update)
		ops.POST("/countries", countryH.Create)
		ops.POST("/missions", missionH.Create)
		ops.PATCH("/missions/:id", missionH.Update)
	}
}
