package server

import (
	"context"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gasport/gasport-api/internal/client/bundler"
	"github.com/gasport/gasport-api/internal/client/chain"
	"github.com/gasport/gasport-api/internal/config"
	"github.com/gasport/gasport-api/internal/constants"
	"github.com/gasport/gasport-api/internal/db"
	"github.com/gasport/gasport-api/internal/handlers"
	"github.com/gasport/gasport-api/internal/logger"
	"github.com/gasport/gasport-api/internal/middleware"
	"github.com/gasport/gasport-api/internal/relayer"
	"github.com/gasport/gasport-api/internal/services"
	"github.com/gasport/gasport-api/internal/store"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server owns the HTTP engine and every client it serves requests with.
type Server struct {
	cfg        *config.Config
	engine     *gin.Engine
	httpServer *http.Server
	closers    []func()
}

// New wires the full request path: shared store, auth and delegation
// services, chain and bundler clients, the relayer signer and the HTTP
// surface. It fails fast on any unreachable dependency except the audit
// database, which is optional.
func New(ctx context.Context, cfg *config.Config) (*Server, error) {
	s := &Server{cfg: cfg}

	kv, err := s.openStore(ctx)
	if err != nil {
		return nil, err
	}

	chainClient, err := chain.Dial(ctx, cfg.ChainRPCURL, cfg.ChainID)
	if err != nil {
		return nil, err
	}
	s.closers = append(s.closers, chainClient.Close)

	bundlerClient := bundler.NewClient(cfg.BundlerURL, cfg.EntryPoint.Hex())

	signer, err := relayer.NewSigner(cfg.RelayerPrivateKey, cfg.EntryPoint, cfg.ChainID)
	if err != nil {
		return nil, err
	}

	var auditStore *db.AuditStore
	var auditLogger services.AuditLogger = db.NoopAuditStore{}
	if cfg.DatabaseURL != "" {
		auditStore, err = db.NewAuditStore(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		auditLogger = auditStore
		s.closers = append(s.closers, auditStore.Close)
	} else {
		logger.Warn("DATABASE_URL not set, execution audit log disabled")
	}

	nonces := services.NewNonceService(kv)
	auth := services.NewAuthorizationService(nonces)
	delegations := services.NewDelegationService(kv, cfg.DefaultPermissions, signer.Address().Hex())
	builder := services.NewOperationBuilder(cfg)
	executions := services.NewExecutionService(
		delegations,
		builder,
		bundlerClient,
		chainClient,
		signer,
		auditLogger,
		cfg.RelayerAccount,
	)

	limiter := middleware.NewLimiter(kv)

	if cfg.Stage == constants.StageProd {
		gin.SetMode(gin.ReleaseMode)
	}
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(configureCORS())
	engine.Use(middleware.CorrelationIDMiddleware())
	engine.Use(middleware.NewLocalRateLimiter(50, 100).Middleware())
	engine.Use(middleware.RequestLoggingMiddleware())

	health := handlers.NewHealthHandler()
	nonceHandler := handlers.NewNonceHandler(nonces)
	delegationHandler := handlers.NewDelegationHandler(auth, delegations)
	executionHandler := handlers.NewExecutionHandler(auth, delegations, executions, limiter, auditStore)

	engine.GET("/health", health.Health)

	v1 := engine.Group("/api/v1")
	{
		v1.GET("/auth/nonce", limiter.Middleware(middleware.NonceProfile), nonceHandler.GetNonce)
		v1.GET("/delegations/status", limiter.Middleware(middleware.ReadProfile), delegationHandler.GetStatus)
		v1.POST("/delegations", limiter.Middleware(middleware.DelegationWriteProfile), delegationHandler.CreateDelegation)
		v1.POST("/execute", limiter.Middleware(middleware.ExecuteProfile), executionHandler.Execute)
		v1.GET("/executions", limiter.Middleware(middleware.ReadProfile), executionHandler.ListExecutions)
	}

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s, nil
}

// openStore connects the shared KV backend. Local development may run
// without Redis; every other stage requires it.
func (s *Server) openStore(ctx context.Context) (store.KV, error) {
	rs, err := store.NewRedisStore(ctx, s.cfg.RedisURL)
	if err != nil {
		if s.cfg.Stage != constants.StageLocal {
			return nil, err
		}
		logger.Warn("Redis unreachable, falling back to in-process store", zap.Error(err))
		return store.NewMemoryStore(), nil
	}
	s.closers = append(s.closers, func() { _ = rs.Close() })
	return rs, nil
}

// Run serves until ctx is cancelled, then drains in-flight requests.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		logger.Info("HTTP server listening", zap.String("addr", s.httpServer.Addr))
		if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	err := s.httpServer.Shutdown(shutdownCtx)

	for _, closeFn := range s.closers {
		closeFn()
	}
	return err
}

// Engine exposes the router for handler tests.
func (s *Server) Engine() *gin.Engine {
	return s.engine
}

func configureCORS() gin.HandlerFunc {
	corsConfig := cors.DefaultConfig()

	originsEnv := os.Getenv("CORS_ALLOWED_ORIGINS")
	if originsEnv == "" {
		corsConfig.AllowOrigins = []string{"http://localhost:3000"}
	} else {
		origins := strings.Split(originsEnv, ",")
		for i, origin := range origins {
			origins[i] = strings.TrimSpace(origin)
		}
		corsConfig.AllowOrigins = origins
	}

	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Accept", "X-Correlation-ID"}
	corsConfig.ExposeHeaders = []string{"Retry-After", "X-Correlation-ID"}
	corsConfig.AllowCredentials = os.Getenv("CORS_ALLOW_CREDENTIALS") == "true"

	return cors.New(corsConfig)
}
