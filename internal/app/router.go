package app

import (
	"english_virtual_lab/docs"
	"english_virtual_lab/internal/config"
	"english_virtual_lab/internal/middleware"
	"english_virtual_lab/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c, cfg)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/me", c.auth.Me)
		authGroup.GET("/dashboard", c.dashboard.GetDashboard)

		authGroup.GET("/progress/:type", c.progress.List)

		profile := authGroup.Group("/profile")
		{
			profile.GET("", c.profile.Get)
			profile.PUT("", c.profile.Update)
			profile.PUT("/password", c.profile.ChangePassword)
		}

		a.registerQuizRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)

		public.GET("/catalog/:type", c.catalog.List)
		public.GET("/catalog/:type/categories", c.catalog.Categories)

		// 可选认证：匿名访问不记录进度
		public.POST("/progress/:type/:contentId/complete", middleware.TryAuthMiddleware(cfg), c.progress.Complete)
	}
}

func (a *App) registerQuizRoutes(group *gin.RouterGroup, c *controllers) {
	quiz := group.Group("/quiz")
	{
		quiz.POST("/attempts", c.quiz.Start)
		quiz.GET("/results", c.quiz.Results)

		current := quiz.Group("/attempts/current")
		current.GET("", c.quiz.Current)
		current.PUT("/answers/:index", c.quiz.SelectAnswer)
		current.POST("/next", c.quiz.Next)
		current.POST("/previous", c.quiz.Previous)
		current.POST("/submit", c.quiz.Submit)
		current.POST("/retake", c.quiz.Retake)
	}
}
