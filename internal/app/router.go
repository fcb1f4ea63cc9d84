package app

import (
	"learnsphere_backend/docs"
	"learnsphere_backend/internal/middleware"
	"learnsphere_backend/internal/model"
	"learnsphere_backend/pkg/monitoring"

	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
)

func (a *App) registerRoutes(router *gin.Engine, c *controllers) {
	docs.SwaggerInfo.BasePath = "/"
	router.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler, ginSwagger.URL("/swagger/doc.json")))

	router.GET("/metrics", monitoring.PrometheusHandler())

	// 1. 公共路由(无需登录)
	a.registerPublicRoutes(router, c)

	// 2. 需要授权的路由
	authGroup := router.Group("/api")
	authGroup.Use(middleware.AuthMiddleware())
	{
		authGroup.GET("/auth/me", c.auth.Me)
		authGroup.POST("/courses/:id/reviews", c.review.SubmitReview)
		authGroup.DELETE("/courses/:id/reviews/:reviewId", c.review.DeleteReview)

		// 学员接口
		a.registerLearnerRoutes(authGroup, c)

		// 讲师相关接口
		a.registerInstructorRoutes(authGroup, c)

		// 管理员相关接口
		a.registerAdminRoutes(authGroup, c)
	}
}

func (a *App) registerPublicRoutes(router *gin.Engine, c *controllers) {
	public := router.Group("/api")
	{
		public.GET("/health", c.health.HealthCheck)
		public.POST("/auth/signup", c.auth.Signup)
		public.POST("/auth/login", c.auth.Login)

		public.GET("/courses", c.course.ListCourses)
		public.GET("/courses/:id", c.course.GetCourse)
		public.GET("/courses/:id/reviews", c.review.ListReviews)
		public.GET("/badges", c.achievement.BadgeCatalog)
		public.GET("/lessons/:id/attachments", c.attachment.ListAttachments)
	}
}

func (a *App) registerLearnerRoutes(rg *gin.RouterGroup, c *controllers) {
	learner := rg.Group("/learner")
	{
		// 选课与进度
		learner.POST("/courses/:id/enroll", c.learning.Enroll)
		learner.GET("/my-courses", c.learning.MyCourses)
		learner.GET("/courses/:id/progress", c.learning.CourseProgress)
		learner.GET("/courses/:id/access", c.learning.CourseAccess)
		learner.POST("/courses/:id/complete", c.learning.CompleteCourse)
		learner.POST("/lessons/:id/start", c.learning.StartLesson)
		learner.POST("/lessons/:id/complete", c.learning.CompleteLesson)
		learner.PUT("/lessons/:id/position", c.learning.SavePosition)

		// 测验
		learner.GET("/quizzes/:id", c.quiz.GetQuiz)
		learner.POST("/quizzes/:id/submit", c.quiz.SubmitQuiz)
		learner.GET("/quizzes/:id/attempts", c.quiz.Attempts)

		// 成就、积分与徽章
		learner.GET("/achievements", c.achievement.Dashboard)
		learner.GET("/streak", c.achievement.Streak)
		learner.GET("/points", c.achievement.Points)
		learner.GET("/points/history", c.achievement.PointsHistory)
		learner.GET("/leaderboard", c.achievement.Leaderboard)
		learner.GET("/badges/new", c.achievement.NewBadges)
		learner.PUT("/badges/:id/viewed", c.achievement.MarkBadgeViewed)

		// 证书
		learner.GET("/certificates", c.certificate.ListCertificates)
		learner.GET("/certificates/:id", c.certificate.GetCertificate)
		learner.PUT("/certificates/:id/download", c.certificate.DownloadCertificate)
	}
}

func (a *App) registerInstructorRoutes(rg *gin.RouterGroup, c *controllers) {
	instructor := rg.Group("/instructor")
	instructor.Use(middleware.RoleMiddleware(model.Instructor))
	{
		instructor.GET("/courses", c.course.ListMyCourses)
		instructor.POST("/courses", c.course.CreateCourse)
		instructor.PUT("/courses/:id", c.course.UpdateCourse)
		instructor.DELETE("/courses/:id", c.course.DeleteCourse)
		instructor.GET("/courses/:id/students", c.course.Students)
		instructor.PUT("/courses/:id/students/:userId/paid", c.course.ConfirmPayment)
		instructor.POST("/courses/:id/lessons", c.course.AddLesson)
		instructor.PUT("/lessons/:id", c.course.UpdateLesson)
		instructor.DELETE("/lessons/:id", c.course.DeleteLesson)
		instructor.POST("/lessons/:id/quiz", c.course.CreateQuiz)
		instructor.POST("/lessons/:id/attachments", c.attachment.AddAttachment)
		instructor.DELETE("/lessons/:id/attachments/:attachmentId", c.attachment.DeleteAttachment)
	}
}

func (a *App) registerAdminRoutes(rg *gin.RouterGroup, c *controllers) {
	admin := rg.Group("/admin")
	admin.Use(middleware.RoleMiddleware(model.Admin))
	{
		admin.GET("/users", c.user.GetUsers)
		admin.PUT("/users/:id/role", c.user.UpdateRole)
	}
}
