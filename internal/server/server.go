package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	achievementdomain "github.com/smallbiznis/academy/internal/achievement/domain"
	certificatedomain "github.com/smallbiznis/academy/internal/certificate/domain"
	"github.com/smallbiznis/academy/internal/config"
	coursedomain "github.com/smallbiznis/academy/internal/course/domain"
	"github.com/smallbiznis/academy/internal/observability"
	obsmiddleware "github.com/smallbiznis/academy/internal/observability/logger"
	obstracing "github.com/smallbiznis/academy/internal/observability/tracing"
	progressdomain "github.com/smallbiznis/academy/internal/progress/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

// Module serves the HTTP API of whichever services the app provides.
var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Invoke(NewServer),
	fx.Invoke(Run),
)

func NewEngine(obsCfg observability.Config) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obsmiddleware.GinMiddleware(obsmiddleware.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config) *gin.Engine {
	if !obsCfg.Debug() {
		gin.SetMode(gin.ReleaseMode)
	}
	return NewEngine(obsCfg)
}

// Run serves r on the configured address for the lifetime of the app.
func Run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, log *zap.Logger, shutdowner fx.Shutdowner) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Error("http server stopped", zap.Error(err))
					_ = shutdowner.Shutdown(fx.ExitCode(1))
				}
			}()
			log.Info("http server listening", zap.String("addr", cfg.HTTPAddr))
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Params struct {
	fx.In

	Engine         *gin.Engine
	CourseSvc      coursedomain.Service      `optional:"true"`
	CertificateSvc certificatedomain.Service `optional:"true"`
	ProgressSvc    progressdomain.Service    `optional:"true"`
	AchievementSvc achievementdomain.Service `optional:"true"`
}

type Server struct {
	engine         *gin.Engine
	courseSvc      coursedomain.Service
	certificateSvc certificatedomain.Service
	progressSvc    progressdomain.Service
	achievementSvc achievementdomain.Service
}

func NewServer(p Params) *Server {
	s := &Server{
		engine:         p.Engine,
		courseSvc:      p.CourseSvc,
		certificateSvc: p.CertificateSvc,
		progressSvc:    p.ProgressSvc,
		achievementSvc: p.AchievementSvc,
	}
	s.RegisterRoutes()
	return s
}

// RegisterRoutes mounts the route groups whose services are present.
func (s *Server) RegisterRoutes() {
	api := s.engine.Group("/api")

	if s.courseSvc != nil {
		courses := api.Group("/courses")
		courses.POST("", s.CreateCourse)
		courses.GET("/:courseId", s.GetCourse)
		courses.POST("/:courseId/levels", s.CreateLevel)
		courses.POST("/:courseId/levels/:levelId/pass", RequireUser(), s.PassLevel)
		if s.certificateSvc != nil {
			courses.GET("/:courseId/certificate", s.GetCourseCertificate)
		}
	}

	if s.progressSvc != nil || s.achievementSvc != nil {
		users := api.Group("/users", RequireUser())
		if s.progressSvc != nil {
			users.GET("/progress", s.ListProgress)
		}
		if s.achievementSvc != nil {
			users.GET("/achievements", s.ListAchievements)
		}
	}
}
