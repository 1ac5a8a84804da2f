package app

import (
	"contest_leaderboard/docs"
	"contest_leaderboard/internal/config"
	"contest_leaderboard/internal/middleware"
	"contest_leaderboard/internal/model"
	"contest_leaderboard/pkg/monitoring"

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

	// 2. 参赛者接口
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware(cfg))
	{
		authGroup.GET("/profile", c.auth.Profile)
		authGroup.POST("/submissions", middleware.RoleMiddleware(model.Contestant), c.submission.Submit)
	}

	// 3. 管理员接口
	a.registerAdminRoutes(router, c, cfg)
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/register", c.auth.Register)
		public.POST("/login", c.auth.Login)
		public.GET("/scoreboard", c.scoreboard.GetScoreboard)
		public.GET("/scoreboard/stats", c.scoreboard.GetStats)
		public.GET("/tasks", c.scoreboard.GetTasks)
		public.GET("/contest/status", c.contest.GetStatus)

		// 游客也能看实时排行榜，登录用户额外收到自己的提示
		public.GET("/ws", middleware.OptionalAuth(cfg), c.scoreboard.ServeWs)
	}
}

func (a *App) registerAdminRoutes(router *gin.Engine, c *controllers, cfg *config.Config) {
	admin := router.Group("/api/admin")
	admin.Use(middleware.AuthMiddleware(cfg), middleware.RoleMiddleware(model.Admin))
	{
		admin.PUT("/contest/status", c.contest.SetStatus)
		admin.POST("/contest/reset", c.contest.Reset)
		admin.POST("/scoreboard/refresh", c.scoreboard.Refresh)

		admin.POST("/tasks", c.task.CreateTask)
		admin.PUT("/tasks/:id", c.task.UpdateTask)
		admin.DELETE("/tasks/:id", c.task.DeleteTask)
		admin.POST("/tasks/:id/key", c.task.UploadKey)

		admin.PUT("/teams/:id", c.contest.UpdateTeam)
		admin.DELETE("/teams/:id", c.contest.DeleteTeam)
	}
}
