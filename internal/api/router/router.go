package router

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"campus-planning/backend/config"
	"campus-planning/backend/internal/api/handler"
	"campus-planning/backend/internal/api/middleware"
	"campus-planning/backend/internal/metrics"
	"campus-planning/backend/pkg/jwt"
	"campus-planning/backend/pkg/redis"
)

// 写接口限流：每个 IP 每个路由每分钟
const (
	mutationRateLimit  = 120
	mutationRateWindow = time.Minute
)

// Deps 路由依赖；Redis、Registry 可为 nil
type Deps struct {
	Config   *config.Config
	Handler  *handler.Handler
	JWT      *jwt.Manager
	Redis    *redis.Client
	Metrics  *metrics.Metrics
	Registry *prometheus.Registry
	Logger   *zap.Logger
}

// Setup 初始化并返回 Gin 路由引擎
func Setup(d Deps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)

	cfg, h := d.Config, d.Handler
	r := gin.New()

	// ── 全局中间件 ──
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger(d.Logger, "/health", cfg.Metrics.Path))
	r.Use(middleware.Metrics(d.Metrics))
	r.Use(middleware.SecurityHeaders())
	r.Use(middleware.CORS(cfg.Server.CORS.AllowOrigins))
	r.Use(middleware.BodyLimit(cfg.Server.BodyLimitBytes, cfg.Server.UploadLimitBytes))

	// ── 健康检查 / 指标 ──
	r.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})
	if cfg.Metrics.Enabled && d.Registry != nil {
		r.GET(cfg.Metrics.Path, gin.WrapH(promhttp.HandlerFor(d.Registry, promhttp.HandlerOpts{})))
	}

	admin := middleware.RoleAuth(jwt.RoleAdmin)
	limit := middleware.RateLimit(d.Redis, mutationRateLimit, mutationRateWindow)

	// ── API v1（全部需要认证，写操作需要 admin） ──
	v1 := r.Group("/api/v1")
	v1.Use(middleware.JWTAuth(d.JWT))
	{
		// 课程模块
		courses := v1.Group("/courses")
		{
			courses.GET("", h.Course.ListCourses)
			courses.GET("/:id", h.Course.GetCourse)
			courses.GET("/:id/progress", h.Course.GetProgress)
			courses.POST("", admin, h.Course.CreateCourse)
			courses.PUT("/:id", admin, h.Course.UpdateCourse)
			courses.DELETE("/:id", admin, h.Course.DeleteCourse)
		}

		// 教师模块
		teachers := v1.Group("/teachers")
		{
			teachers.GET("", h.Teacher.ListTeachers)
			teachers.GET("/:id", h.Teacher.GetTeacher)
			teachers.POST("", admin, h.Teacher.CreateTeacher)
			teachers.PUT("/:id", admin, h.Teacher.UpdateTeacher)
			teachers.DELETE("/:id", admin, h.Teacher.DeleteTeacher)
		}

		// 班组模块
		groups := v1.Group("/groups")
		{
			groups.GET("", h.Group.ListGroups)
			groups.GET("/:id", h.Group.GetGroup)
			groups.POST("", admin, h.Group.CreateGroup)
			groups.PUT("/:id", admin, h.Group.UpdateGroup)
			groups.DELETE("/:id", admin, h.Group.DeleteGroup)
		}

		// 教室模块（含临时关闭）
		rooms := v1.Group("/rooms")
		{
			rooms.GET("", h.Room.ListRooms)
			rooms.GET("/:id", h.Room.GetRoom)
			rooms.POST("", admin, h.Room.CreateRoom)
			rooms.PUT("/:id", admin, h.Room.UpdateRoom)
			rooms.DELETE("/:id", admin, h.Room.DeleteRoom)
			rooms.GET("/:id/closures", h.Room.ListClosures)
			rooms.POST("/:id/closures", admin, h.Room.CreateClosure)
			rooms.DELETE("/:id/closures/:closure_id", admin, h.Room.DeleteClosure)
		}

		// 时间段模块
		timeSlots := v1.Group("/time-slots")
		{
			timeSlots.GET("", h.TimeSlot.ListTimeSlots)
			timeSlots.GET("/:id", h.TimeSlot.GetTimeSlot)
			timeSlots.POST("", admin, h.TimeSlot.CreateTimeSlot)
			timeSlots.PUT("/:id", admin, h.TimeSlot.UpdateTimeSlot)
			timeSlots.DELETE("/:id", admin, h.TimeSlot.DeleteTimeSlot)
		}

		// 可用性登记
		availability := v1.Group("/availability/:kind/:id")
		{
			availability.GET("", h.Availability.GetWeek)
			availability.GET("/check", h.Availability.Check)
			availability.POST("/toggle", admin, limit, h.Availability.Toggle)
			availability.PUT("/range", admin, limit, h.Availability.SetRange)
			availability.POST("/import-ics", admin, limit, h.Availability.ImportICS)
		}

		// 课次落位
		sessions := v1.Group("/sessions")
		{
			sessions.GET("", h.Session.ListSessions)
			sessions.GET("/change-logs", admin, h.Session.ListChangeLogs)
			sessions.GET("/:id", h.Session.GetSession)
			sessions.POST("/check", h.Session.Check)
			sessions.POST("", admin, limit, h.Session.CreateSession)
			sessions.PUT("/:id/move", admin, limit, h.Session.MoveSession)
			sessions.PUT("/:id/status", admin, limit, h.Session.UpdateStatus)
			sessions.DELETE("/:id", admin, limit, h.Session.RemoveSession)
		}

		// 周课表
		v1.GET("/timetable/weeks/:week", h.Timetable.GetWeek)

		// 导出
		export := v1.Group("/export")
		{
			export.GET("/xlsx", h.Export.ExportXLSX)
			export.GET("/ics", h.Export.ExportICS)
		}
	}

	return r
}
