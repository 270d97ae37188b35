package router

import (
	"github.com/gin-gonic/gin"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.uber.org/zap"

	"github.com/noah-isme/cbcs-registration/internal/handler"
	"github.com/noah-isme/cbcs-registration/internal/middleware"
	"github.com/noah-isme/cbcs-registration/internal/models"
	"github.com/noah-isme/cbcs-registration/internal/service"
	"github.com/noah-isme/cbcs-registration/pkg/errtrack"
	"github.com/noah-isme/cbcs-registration/pkg/logger"
	corsmiddleware "github.com/noah-isme/cbcs-registration/pkg/middleware/cors"
	reqidmiddleware "github.com/noah-isme/cbcs-registration/pkg/middleware/requestid"
)

// Handlers groups all handler instances for route setup.
type Handlers struct {
	Auth       *handler.AuthHandler
	Enrollment *handler.EnrollmentHandler
	Admin      *handler.AdminHandler
	Review     *handler.ReviewHandler
	Import     *handler.ImportHandler
	Metrics    *handler.MetricsHandler
}

// Options carries the cross-cutting dependencies of the engine.
type Options struct {
	APIPrefix      string
	AllowedOrigins []string
	EnableDocs     bool
	Logger         *zap.Logger
	Metrics        *service.MetricsService
	Reporter       *errtrack.Reporter
}

// New configures the Gin engine and every route group.
func New(auth middleware.Authenticator, h *Handlers, opts Options) *gin.Engine {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.APIPrefix == "" {
		opts.APIPrefix = "/api/v1"
	}
	if opts.Reporter == nil {
		opts.Reporter = errtrack.New("", "", opts.Logger)
	}

	r := gin.New()
	r.Use(reqidmiddleware.Middleware())
	r.Use(logger.GinMiddleware(opts.Logger))
	r.Use(opts.Reporter.Middleware())
	r.Use(corsmiddleware.New(opts.AllowedOrigins))
	r.Use(middleware.Metrics(opts.Metrics, "/health", "/ready", "/metrics"))

	r.GET("/health", h.Metrics.Health)
	r.GET("/ready", h.Metrics.Ready)
	r.GET("/metrics", h.Metrics.Prometheus)
	if opts.EnableDocs {
		r.GET("/docs/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))
	}

	audit := func(action string) gin.HandlerFunc {
		return middleware.Audit(opts.Logger, action)
	}
	requireJWT := middleware.JWT(auth)

	api := r.Group(opts.APIPrefix)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/login", h.Auth.Login)
		authGroup.POST("/logout", requireJWT, h.Auth.Logout)
		authGroup.GET("/me", requireJWT, h.Auth.Me)
	}

	student := api.Group("/student")
	student.Use(requireJWT, middleware.RequireRoles(models.UserTypeStudent))
	{
		student.GET("/dashboard", h.Enrollment.Dashboard)
		student.POST("/courses/:id", audit("enrollment.add"), h.Enrollment.AddCourse)
		student.DELETE("/courses/:id", audit("enrollment.remove"), h.Enrollment.RemoveCourse)
		student.POST("/enrollment/submit", audit("enrollment.submit"), h.Enrollment.Submit)
	}

	admin := api.Group("/admin")
	admin.Use(requireJWT, middleware.RequireRoles(models.UserTypeHOD, models.UserTypeAdmin))
	{
		admin.GET("/context", h.Admin.Context)
		admin.GET("/overview", h.Review.Overview)
		admin.GET("/metrics/summary", h.Metrics.Summary)

		admin.GET("/students", h.Admin.Students)
		admin.GET("/students/export", h.Admin.ExportStudents)
		admin.GET("/students/:id", h.Admin.StudentDetail)
		admin.GET("/students/:id/sheet", h.Admin.StudentSheet)

		admin.GET("/courses", h.Admin.Courses)
		admin.POST("/courses", audit("course.create"), h.Admin.CreateCourse)

		admin.POST("/imports/courses", audit("import.courses"), h.Import.ImportCourses)
		admin.POST("/imports/students", audit("import.students"), h.Import.ImportStudents)
		admin.GET("/imports/:id", h.Import.Job)

		admin.PUT("/reports/:id/decision", audit("review.decide"), h.Review.Decide)
	}

	return r
}
