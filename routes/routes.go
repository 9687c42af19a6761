package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/samh164/ptappv3/config"
	"github.com/samh164/ptappv3/controllers"
	"github.com/samh164/ptappv3/middlewares"
	"github.com/samh164/ptappv3/services"
	"github.com/samh164/ptappv3/utils"
)

// SetupRouter wires every service and controller and returns the engine.
func SetupRouter(cfg *config.Config, db *gorm.DB, validator *utils.PlanValidator) *gin.Engine {
	r := gin.Default()

	hub := services.NewRealtimeHub()
	alerts := services.NewAlertService(db, hub)
	users := services.NewUserService(db, cfg.JWTSecret)
	journal := services.NewJournalService(db)
	catalog := services.NewExerciseDBService(cfg, db)
	plans := services.NewPlanStoreService(db, validator)
	llm := services.NewOpenAIService(cfg)
	history := &services.PlanHistory{Plans: plans, Journal: journal}
	generator := services.NewPlanGeneratorService(llm, catalog, history, validator,
		cfg.MaxGenerationAttempts, cfg.RetryBackoffBase)

	authCtl := controllers.NewAuthController(users)
	userCtl := controllers.NewUserController(users)
	planCtl := controllers.NewPlanController(users, generator, plans, alerts)
	journalCtl := controllers.NewJournalController(journal, alerts)
	exerciseCtl := controllers.NewExerciseController(catalog)
	alertCtl := controllers.NewAlertController(alerts)
	realtimeCtl := controllers.NewRealtimeController(hub)

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	auth := r.Group("/auth")
	{
		auth.POST("/register", authCtl.Register)
		auth.POST("/login", authCtl.Login)
	}

	protected := r.Group("/")
	protected.Use(middlewares.AuthMiddleware(cfg.JWTSecret))
	{
		protected.GET("/user/profile", userCtl.GetProfile)
		protected.PUT("/user/profile", userCtl.UpdateProfile)
		protected.DELETE("/user", userCtl.DeleteAccount)

		protected.POST("/plans/generate", planCtl.Generate)
		protected.GET("/plans/latest", planCtl.Latest)
		protected.GET("/plans", planCtl.List)

		protected.GET("/exercises", exerciseCtl.ByBodyPart)

		protected.POST("/journal", journalCtl.Create)
		protected.GET("/journal", journalCtl.List)
		protected.GET("/progress", journalCtl.Progress)

		protected.GET("/alerts", alertCtl.List)
		protected.GET("/ws", realtimeCtl.AlertsWS)
	}

	return r
}
