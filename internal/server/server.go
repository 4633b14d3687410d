package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/campbright/enroll/internal/audit"
	auditdomain "github.com/campbright/enroll/internal/audit/domain"
	"github.com/campbright/enroll/internal/config"
	obslogger "github.com/campbright/enroll/internal/observability/logger"
	obsmetrics "github.com/campbright/enroll/internal/observability/metrics"
	"github.com/campbright/enroll/internal/payment"
	paymentdomain "github.com/campbright/enroll/internal/payment/domain"
	"github.com/campbright/enroll/internal/program"
	programdomain "github.com/campbright/enroll/internal/program/domain"
	"github.com/campbright/enroll/internal/providers/email"
	"github.com/campbright/enroll/internal/registration"
	registrationdomain "github.com/campbright/enroll/internal/registration/domain"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

var Module = fx.Module("http.server",
	config.Module,
	obsmetrics.Module,
	fx.Provide(registerGin),
	audit.Module,
	email.Module,
	program.Module,
	registration.Module,
	payment.Module,
	fx.Invoke(NewServer),
	fx.Invoke(run),
)

func NewEngine(log *zap.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(log))
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(log *zap.Logger) *gin.Engine {
	return NewEngine(log)
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine) {
	srv := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: r,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
					panic(err)
				}
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	})
}

type Server struct {
	engine          *gin.Engine
	cfg             config.Config
	db              *gorm.DB
	log             *zap.Logger
	genID           *snowflake.Node
	registrationSvc registrationdomain.Service
	programSvc      programdomain.Service
	paymentSvc      paymentdomain.Service
	auditSvc        auditdomain.Service
}

type ServerParams struct {
	fx.In

	Gin             *gin.Engine
	Cfg             config.Config
	DB              *gorm.DB
	Log             *zap.Logger
	GenID           *snowflake.Node
	RegistrationSvc registrationdomain.Service
	ProgramSvc      programdomain.Service
	PaymentSvc      paymentdomain.Service
	AuditSvc        auditdomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:          p.Gin,
		cfg:             p.Cfg,
		db:              p.DB,
		log:             p.Log.Named("http.server"),
		genID:           p.GenID,
		registrationSvc: p.RegistrationSvc,
		programSvc:      p.ProgramSvc,
		paymentSvc:      p.PaymentSvc,
		auditSvc:        p.AuditSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api")

	api.POST("/registrations", s.CreateRegistration)
	api.GET("/registrations/:registration_id", s.GetRegistration)

	api.GET("/programs", s.ListPrograms)
	api.POST("/programs", s.CreateProgram)
	api.GET("/programs/:program_id", s.GetProgram)
	api.PUT("/programs/:program_id/rates", s.UpdateProgramRates)

	pay := api.Group("/payment")
	{
		pay.POST("/:registration_id", s.CreateCheckoutSession)
		pay.POST("/mobile/:registration_id", s.ProcessMobileMoney)
		pay.POST("/webhook", s.HandlePaymentWebhook)
		pay.GET("/verify/:registration_id", s.VerifyPayment)
		pay.PUT("/manual/:registration_id", s.ManualOverride)
	}
}
