package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mparicahua/taskFlow3-server/internal/api"
	"github.com/mparicahua/taskFlow3-server/internal/config"
	"github.com/mparicahua/taskFlow3-server/internal/db"
	"github.com/mparicahua/taskFlow3-server/internal/middleware"
	"github.com/mparicahua/taskFlow3-server/internal/observ"
	"github.com/mparicahua/taskFlow3-server/internal/repository/postgres"
	"github.com/mparicahua/taskFlow3-server/internal/repository/redisstore"
	"github.com/mparicahua/taskFlow3-server/internal/ws"
	"go.uber.org/zap"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	logger, err := observ.NewLogger(cfg.Env, cfg.LogLevel)
	if err != nil {
		return fmt.Errorf("create logger: %w", err)
	}
	defer logger.Sync()

	// Startup has no parent deadline — take as long as needed to connect.
	database, err := db.New(context.Background(), cfg.DatabaseURL, logger)
	if err != nil {
		return fmt.Errorf("connect to database: %w", err)
	}
	defer database.Close()

	redisClient, err := db.NewRedis(context.Background(), cfg.RedisURL, logger)
	if err != nil {
		return fmt.Errorf("connect to redis: %w", err)
	}
	defer redisClient.Close()

	// Repositories share one pool; the pool is goroutine-safe.
	pool := database.Pool()
	userRepo := postgres.NewUserStore(pool)
	roleRepo := postgres.NewRoleStore(pool)
	projectRepo := postgres.NewProjectStore(pool)
	membershipRepo := postgres.NewMembershipStore(pool)
	listRepo := postgres.NewListStore(pool)
	taskRepo := postgres.NewTaskStore(pool)
	tagRepo := postgres.NewTagStore(pool)
	sessionRepo := redisstore.NewSessionStore(redisClient)

	// Realtime layer: one registry instance owns all connection/room
	// state; the hub decides recipients; the gateway is what HTTP
	// handlers call after mutations commit.
	registry := ws.NewRegistry()
	hub := ws.NewHub(registry, membershipRepo, projectRepo, logger)
	gateway := ws.NewGateway(hub)
	wsHandler := ws.NewHandler(hub, cfg.JWTAccessSecret, logger)

	authHandler := api.NewAuthHandler(userRepo, sessionRepo, cfg, logger)
	userHandler := api.NewUserHandler(userRepo, roleRepo, logger)
	projectHandler := api.NewProjectHandler(projectRepo, membershipRepo, userRepo, roleRepo, gateway, logger)
	listHandler := api.NewListHandler(listRepo, projectRepo, logger)
	taskHandler := api.NewTaskHandler(taskRepo, listRepo, userRepo, logger)
	tagHandler := api.NewTagHandler(tagRepo, logger)

	if cfg.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	srv := gin.New()
	srv.Use(gin.Recovery())

	// Public: health checks and the token-issuing endpoints.
	srv.GET("/health", func(c *gin.Context) {
		if err := database.Health(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	authGroup := srv.Group("/api/auth")
	{
		authGroup.POST("/register", authHandler.Register)
		authGroup.POST("/login", authHandler.Login)
		authGroup.POST("/refresh", authHandler.Refresh)
	}

	// The websocket handshake authenticates via ?token= itself, before
	// the upgrade — it does not go through the header middleware.
	srv.GET("/ws", wsHandler.Serve)

	protected := srv.Group("/api")
	protected.Use(middleware.AuthMiddleware(cfg.JWTAccessSecret))
	{
		protected.GET("/auth/verify", authHandler.Verify)
		protected.POST("/auth/logout", authHandler.Logout)
		protected.POST("/auth/logout-all", authHandler.LogoutAll)

		protected.GET("/projects", projectHandler.List)
		protected.GET("/projects/mine", projectHandler.ListMine)
		protected.POST("/projects", projectHandler.Create)
		protected.PUT("/projects/:id", projectHandler.Update)
		protected.DELETE("/projects/:id", projectHandler.Delete)
		protected.POST("/projects/:id/members", projectHandler.AddMember)
		protected.DELETE("/projects/:id/members/:userId", projectHandler.RemoveMember)
		protected.DELETE("/projects/:id/members", projectHandler.RemoveAllMembers)

		protected.GET("/users", userHandler.List)
		protected.GET("/users/me", userHandler.GetMe)
		protected.GET("/users/roles", userHandler.ListRoles)
		protected.GET("/users/available/:projectId", userHandler.ListAvailable)

		protected.GET("/lists/project/:projectId", listHandler.ListByProject)
		protected.POST("/lists", listHandler.Create)
		protected.PUT("/lists/:id", listHandler.Update)

		protected.GET("/tasks/list/:listId", taskHandler.ListByList)
		protected.GET("/tasks/:id", taskHandler.Get)
		protected.POST("/tasks", taskHandler.Create)
		protected.PUT("/tasks/:id", taskHandler.Update)
		protected.PUT("/tasks/:id/move", taskHandler.Move)
		protected.DELETE("/tasks/:id", taskHandler.Delete)

		protected.GET("/tags", tagHandler.List)
	}

	httpServer := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: srv,
	}

	// Serve until SIGINT/SIGTERM, then drain for up to 10s. Websocket
	// connections are closed by the server shutdown; clients reconnect.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("starting TaskFlow server",
			zap.String("port", cfg.Port),
			zap.String("env", cfg.Env),
		)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}

	return nil
}
