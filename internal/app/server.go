// internal/app/server.go
package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"calvino-service/internal/config"
	"calvino-service/internal/db"
	authHandler "calvino-service/internal/handlers/auth"
	wsHandler "calvino-service/internal/handlers/websocket"
	"calvino-service/internal/middleware"
	"calvino-service/internal/pkg/geo"
	"calvino-service/internal/pkg/jwt"
	"calvino-service/internal/pkg/session"
	"calvino-service/internal/repository/postgres"
	authUsecase "calvino-service/internal/service/auth"
	sessionUsecase "calvino-service/internal/service/session"
	"calvino-service/internal/websocket"
	wsHandlers "calvino-service/internal/websocket/handler"

	"github.com/gin-gonic/gin"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

type Server struct {
	cfg    config.AppConfig
	engine *gin.Engine
	logger *zap.Logger

	mu          sync.Mutex
	httpServer  *http.Server
	pool        *pgxpool.Pool
	redisClient *redis.Client
	stopHub     context.CancelFunc
}

func NewServer(cfg config.AppConfig) (*Server, error) {
	logger, err := newLogger(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to build logger: %w", err)
	}
	if !cfg.IsDev() {
		gin.SetMode(gin.ReleaseMode)
	}
	engine, err := newEngine(cfg)
	if err != nil {
		return nil, err
	}
	return &Server{cfg: cfg, engine: engine, logger: logger}, nil
}

// newEngine builds the gin engine. Client IPs feed login throttling and session
// metadata, so forwarding headers are honoured only from TrustedProxies.
func newEngine(cfg config.AppConfig) (*gin.Engine, error) {
	engine := gin.New()
	if err := engine.SetTrustedProxies(cfg.TrustedProxies); err != nil {
		return nil, fmt.Errorf("invalid TRUSTED_PROXIES: %w", err)
	}
	return engine, nil
}

func newLogger(cfg config.AppConfig) (*zap.Logger, error) {
	if cfg.IsDev() {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

// hubNotifier forwards session revocations to the websocket hub, which is
// built after the services that revoke sessions.
type hubNotifier struct {
	hub *websocket.Hub
}

func (n *hubNotifier) SessionRevoked(userID int64, sessionID, reason string) {
	if n.hub != nil {
		n.hub.SessionRevoked(userID, sessionID, reason)
	}
}

// Start wires every dependency and serves HTTP until Shutdown is called.
func (s *Server) Start(ctx context.Context) error {
	logger := s.logger

	// ----- PostgreSQL -----
	pool, err := db.ConnectDB(ctx, db.PostgresConfig{URL: s.cfg.DatabaseURL})
	if err != nil {
		return fmt.Errorf("failed to connect to PostgreSQL: %w", err)
	}
	s.mu.Lock()
	s.pool = pool
	s.mu.Unlock()
	logger.Info("connected to PostgreSQL")

	if err := db.Migrate(ctx, pool, logger); err != nil {
		return err
	}

	// ----- Redis -----
	redisClient, err := db.NewRedisClient(ctx, db.RedisConfig{
		Addr:     s.cfg.RedisAddr,
		Password: s.cfg.RedisPass,
		PoolSize: 10,
	})
	if err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}
	s.mu.Lock()
	s.redisClient = redisClient
	s.mu.Unlock()
	logger.Info("connected to Redis", zap.String("addr", s.cfg.RedisAddr))

	// ----- JWT Manager -----
	jwtManager, err := jwt.NewManager(s.cfg.JWT)
	if err != nil {
		return fmt.Errorf("failed to build JWT manager: %w", err)
	}

	// ----- Rate Limiter & Geolocation -----
	rateLimiter := session.NewRateLimiter(redisClient)
	locator := geo.NewLocator(s.cfg.Geo, logger)

	// ----- Repositories -----
	userRepo := postgres.NewUserRepository(pool)
	sessionRepo := postgres.NewSessionRepository(pool)
	activityRepo := postgres.NewActivityRepository(pool)

	// ----- Services (Usecases) -----
	notifier := &hubNotifier{}
	sessionService := sessionUsecase.NewSessionService(sessionRepo, locator, notifier, logger)
	authService := authUsecase.NewAuthService(
		userRepo,
		activityRepo,
		sessionService,
		jwtManager,
		rateLimiter,
		authUsecase.Config{RejectInactiveUsers: s.cfg.RejectInactiveUsers},
		logger,
	)

	// ----- WebSocket Hub -----
	hub := websocket.NewHub(authService, logger)
	hub.RegisterHandler(wsHandlers.NewSessionHandler(authService))
	notifier.hub = hub

	hubCtx, stopHub := context.WithCancel(context.Background())
	s.mu.Lock()
	s.stopHub = stopHub
	s.mu.Unlock()
	go hub.Run(hubCtx)

	// ----- Admin bootstrap -----
	if s.cfg.AdminEmail != "" {
		seedCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
		err := authService.EnsureAdminExists(seedCtx, s.cfg.AdminEmail, s.cfg.AdminPassword, s.cfg.AdminName)
		cancel()
		if err != nil {
			// startup continues without a seeded admin
			logger.Error("failed to ensure admin exists", zap.Error(err))
		}
	} else {
		logger.Warn("ADMIN_EMAIL not set, skipping admin bootstrap")
	}

	// ----- Middlewares -----
	s.engine.Use(
		middleware.LoggingMiddleware(logger),
		middleware.RecoveryMiddleware(logger),
		middleware.CORSMiddleware(s.cfg.AllowedOrigins),
	)

	// ----- Router -----
	SetupRouter(s.engine, &Handlers{
		AuthHandler:    authHandler.NewAuthHandler(authService, logger),
		WSHandler:      wsHandler.NewWebSocketHandler(hub, s.cfg.AllowedOrigins, logger),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		DB:             postgres.NewDB(pool),
	})

	// ----- Start HTTP -----
	httpServer := &http.Server{
		Addr:              s.cfg.HTTPAddr,
		Handler:           s.engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.mu.Lock()
	s.httpServer = httpServer
	s.mu.Unlock()
	logger.Info("server running", zap.String("addr", s.cfg.HTTPAddr))

	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests, drains in-flight ones and releases pools.
func (s *Server) Shutdown(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var err error
	if s.httpServer != nil {
		err = s.httpServer.Shutdown(ctx)
	}
	if s.stopHub != nil {
		s.stopHub()
	}
	if s.redisClient != nil {
		if cerr := s.redisClient.Close(); cerr != nil {
			s.logger.Warn("failed to close Redis client", zap.Error(cerr))
		}
	}
	if s.pool != nil {
		s.pool.Close()
	}
	_ = s.logger.Sync()
	return err
}
