package server

import (
	"context"
	"net/http"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	"go.uber.org/fx"
	"go.uber.org/zap"

	calculationdomain "github.com/smallbiznis/taxflow/internal/calculation/domain"
	"github.com/smallbiznis/taxflow/internal/config"
	payrolldomain "github.com/smallbiznis/taxflow/internal/payroll/domain"
	"github.com/smallbiznis/taxflow/pkg/tenantctx"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	fx.Provide(NewServer),
	fx.Invoke(run),
)

// NewEngine builds the gin engine with the shared middleware chain.
func NewEngine() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(ErrorHandlingMiddleware())
	r.Use(TenantMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	return r
}

// TenantMiddleware scopes the request context to the tenant named by the
// X-Tenant-ID header. Requests without the header run against the global
// rate tables only.
func TenantMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		raw := c.GetHeader("X-Tenant-ID")
		if raw == "" {
			c.Next()
			return
		}

		tenantID, err := snowflake.ParseString(raw)
		if err != nil {
			AbortWithError(c, newValidationError("tenant_id", "invalid_tenant_id", "X-Tenant-ID must be a valid id"))
			return
		}

		c.Request = c.Request.WithContext(tenantctx.WithTenant(c.Request.Context(), tenantID))
		c.Next()
	}
}

func registerGin() *gin.Engine {
	return NewEngine()
}

type Server struct {
	engine     *gin.Engine
	cfg        config.Config
	log        *zap.Logger
	calcSvc    calculationdomain.Service
	payrollSvc payrolldomain.Service
}

type ServerParams struct {
	fx.In

	Gin        *gin.Engine
	Cfg        config.Config
	Log        *zap.Logger
	CalcSvc    calculationdomain.Service
	PayrollSvc payrolldomain.Service
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:     p.Gin,
		cfg:        p.Cfg,
		log:        p.Log.Named("server"),
		calcSvc:    p.CalcSvc,
		payrollSvc: p.PayrollSvc,
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	v1 := s.engine.Group("/v1")

	tax := v1.Group("/tax")
	{
		tax.POST("/calculations", s.CalculateTax)
		tax.GET("/rates", s.ListApplicableRates)
	}

	payroll := v1.Group("/payroll")
	{
		payroll.POST("/calculations", s.CalculatePayroll)
	}
}

func run(lc fx.Lifecycle, cfg config.Config, r *gin.Engine, _ *Server) {
	srv := &http.Server{
		Addr:    ":" + cfg.HTTPPort,
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
