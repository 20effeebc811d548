package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/smallbiznis/ecclesia/internal/audit"
	auditdomain "github.com/smallbiznis/ecclesia/internal/audit/domain"
	"github.com/smallbiznis/ecclesia/internal/authorization"
	"github.com/smallbiznis/ecclesia/internal/cemetery"
	cemeterydomain "github.com/smallbiznis/ecclesia/internal/cemetery/domain"
	"github.com/smallbiznis/ecclesia/internal/client"
	clientdomain "github.com/smallbiznis/ecclesia/internal/client/domain"
	"github.com/smallbiznis/ecclesia/internal/config"
	"github.com/smallbiznis/ecclesia/internal/ledger"
	"github.com/smallbiznis/ecclesia/internal/observability"
	obslogger "github.com/smallbiznis/ecclesia/internal/observability/logger"
	obsmetrics "github.com/smallbiznis/ecclesia/internal/observability/metrics"
	obstracing "github.com/smallbiznis/ecclesia/internal/observability/tracing"
	"github.com/smallbiznis/ecclesia/internal/ratelimit"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var Module = fx.Module("http.server",
	fx.Provide(registerGin),
	authorization.Module,
	audit.Module,
	client.Module,
	ledger.Module,
	cemetery.Module,
	ratelimit.Module,
	fx.Provide(NewServer),
	fx.Invoke(run),
)

func NewEngine(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(obslogger.GinMiddleware(obslogger.MiddlewareConfig{
		Debug:           obsCfg.Debug(),
		ErrorClassifier: classifyErrorForLog,
	}))
	r.Use(obstracing.GinMiddleware())
	if httpMetrics != nil {
		r.Use(httpMetrics.GinMiddleware())
	}
	r.Use(ErrorHandlingMiddleware())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

func registerGin(obsCfg observability.Config, httpMetrics *obsmetrics.HTTPMetrics) *gin.Engine {
	return NewEngine(obsCfg, httpMetrics)
}

func run(lc fx.Lifecycle, cfg config.Config, log *zap.Logger, s *Server) {
	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           s.Engine(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					log.Fatal("http server stopped", zap.Error(err))
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

type Server struct {
	engine      *gin.Engine
	cfg         config.Config
	cemeterySvc cemeterydomain.Service
	clientSvc   clientdomain.Service
	authzSvc    authorization.Service
	auditSvc    auditdomain.Service
	limiter     MutationLimiter
	obsMetrics  *obsmetrics.Metrics
}

type ServerParams struct {
	fx.In

	Gin         *gin.Engine
	Cfg         config.Config
	CemeterySvc cemeterydomain.Service
	ClientSvc   clientdomain.Service
	AuthzSvc    authorization.Service
	AuditSvc    auditdomain.Service
	Limiter     *ratelimit.ParishLimiter `optional:"true"`
	ObsMetrics  *obsmetrics.Metrics      `optional:"true"`
}

func NewServer(p ServerParams) *Server {
	svc := &Server{
		engine:      p.Gin,
		cfg:         p.Cfg,
		cemeterySvc: p.CemeterySvc,
		clientSvc:   p.ClientSvc,
		authzSvc:    p.AuthzSvc,
		auditSvc:    p.AuditSvc,
		obsMetrics:  p.ObsMetrics,
	}
	if p.Limiter != nil {
		svc.limiter = p.Limiter
	}

	svc.registerAPIRoutes()

	return svc
}

func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func (s *Server) registerAPIRoutes() {
	api := s.engine.Group("/api/v1", ParishContext(), ActorContext(), s.MutationRateLimit())

	// -------- Layout --------
	api.POST("/cemeteries", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.CreateCemetery)
	api.GET("/cemeteries", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutView), s.ListCemeteries)
	api.DELETE("/cemeteries/:id", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.DeleteCemetery)
	api.GET("/cemeteries/:id/parcels", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutView), s.ListParcels)
	api.POST("/parcels", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.CreateParcel)
	api.DELETE("/parcels/:id", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.DeleteParcel)
	api.GET("/parcels/:id/rows", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutView), s.ListRows)
	api.POST("/rows", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.CreateRow)
	api.DELETE("/rows/:id", s.authorize(authorization.ObjectLayout, authorization.ActionLayoutManage), s.DeleteRow)

	// -------- Graves --------
	api.POST("/graves", s.authorize(authorization.ObjectGrave, authorization.ActionGraveCreate), s.CreateGrave)
	api.GET("/graves/:id", s.authorize(authorization.ObjectGrave, authorization.ActionGraveView), s.GetGrave)
	api.PATCH("/graves/:id", s.authorize(authorization.ObjectGrave, authorization.ActionGraveUpdate), s.UpdateGrave)
	api.PUT("/graves/:id/maintenance", s.authorize(authorization.ObjectGrave, authorization.ActionGraveMaintenance), s.SetGraveMaintenance)
	api.DELETE("/graves/:id", s.authorize(authorization.ObjectGrave, authorization.ActionGraveDelete), s.DeleteGrave)

	// -------- Concessions --------
	api.POST("/concessions", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionCreate), s.CreateConcession)
	api.GET("/concessions", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionView), s.ListConcessions)
	api.GET("/concessions/:id", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionView), s.GetConcession)
	api.PATCH("/concessions/:id", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionUpdate), s.UpdateConcession)
	api.DELETE("/concessions/:id", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionDelete), s.DeleteConcession)
	api.POST("/jobs/expire-concessions", s.authorize(authorization.ObjectConcession, authorization.ActionConcessionExpire), s.ExpireConcessions)

	// -------- Payments --------
	api.GET("/concessions/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentView), s.ListPayments)
	api.POST("/concessions/:id/payments", s.authorize(authorization.ObjectPayment, authorization.ActionPaymentRecord), s.RecordPayment)

	// -------- Burials --------
	api.POST("/burials", s.authorize(authorization.ObjectBurial, authorization.ActionBurialCreate), s.CreateBurial)
	api.GET("/burials", s.authorize(authorization.ObjectBurial, authorization.ActionBurialView), s.ListBurials)
	api.GET("/burials/:id", s.authorize(authorization.ObjectBurial, authorization.ActionBurialView), s.GetBurial)
	api.DELETE("/burials/:id", s.authorize(authorization.ObjectBurial, authorization.ActionBurialDelete), s.DeleteBurial)

	// -------- Occupancy --------
	api.GET("/occupancy", s.authorize(authorization.ObjectOccupancy, authorization.ActionOccupancyView), s.QueryOccupancy)

	// -------- Clients --------
	api.POST("/clients", s.authorize(authorization.ObjectClient, authorization.ActionClientCreate), s.CreateClient)
	api.GET("/clients", s.authorize(authorization.ObjectClient, authorization.ActionClientView), s.ListClients)
	api.GET("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionClientView), s.GetClient)
	api.PATCH("/clients/:id", s.authorize(authorization.ObjectClient, authorization.ActionClientUpdate), s.UpdateClient)

	// -------- Administration --------
	api.GET("/audit-logs", s.authorize(authorization.ObjectAuditLog, authorization.ActionAuditLogView), s.ListAuditLogs)
	api.PUT("/members/:user_id", s.authorize(authorization.ObjectMember, authorization.ActionMemberManage), s.AssignMemberRole)
}
