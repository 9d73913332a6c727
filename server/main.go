package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chepyr/go-task-manager/internal/auth"
	"github.com/chepyr/go-task-manager/internal/config"
	"github.com/chepyr/go-task-manager/internal/db"
	"github.com/chepyr/go-task-manager/internal/handlers"
	"github.com/chepyr/go-task-manager/internal/logger"
	_ "github.com/lib/pq"
)

// websocket connection attempts allowed per client IP and minute
const wsConnectLimit = 30

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Invalid configuration: %v", err)
	}
	initLogger(cfg.Log)

	dbConn := initDB(cfg.Database)
	defer dbConn.Close()

	handler := initHandlers(cfg, dbConn)
	server := initServer(cfg.Server, handler)
	startServer(server)
}

func initLogger(cfg config.LogConfig) {
	logCfg := logger.DefaultConfig()
	logCfg.Level = cfg.Level
	logCfg.Format = cfg.Format
	logCfg.Output = cfg.Output
	logCfg.FilePath = cfg.FilePath
	if err := logger.Init(logCfg); err != nil {
		log.Fatalf("Failed to initialise logger: %v", err)
	}
}

func initDB(cfg config.DatabaseConfig) *sql.DB {
	dbConn, err := db.Connect(cfg.Driver, cfg.ConnString())
	if err != nil {
		logger.Error("Failed to connect to database", "driver", cfg.Driver, "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := db.InitSchema(ctx, dbConn); err != nil {
		logger.Error("Failed to initialise schema", "error", err)
		os.Exit(1)
	}
	logger.Info("Database ready", "driver", cfg.Driver)
	return dbConn
}

func initHandlers(cfg *config.Config, dbConn *sql.DB) *handlers.Handler {
	users := db.NewUserRepository(dbConn)
	return &handlers.Handler{
		Users:      users,
		Tasks:      db.NewTaskRepository(dbConn),
		Tags:       db.NewTagRepository(dbConn),
		Priorities: db.NewPriorityRepository(dbConn),
		Sessions: auth.NewJWTSessions(
			users, cfg.Session.Secret, cfg.Session.TTL, cfg.Session.SecureCookie),
		DB:          dbConn,
		RateLimiter: handlers.NewRateLimiter(cfg.Server.LoginRateLimit, cfg.Server.LoginRateWindow),
		WSLimiter:   handlers.NewRateLimiter(wsConnectLimit, time.Minute),
		WSHub:       handlers.NewWSHub(cfg.Server.AllowedOrigins...),
	}
}

func initServer(cfg config.ServerConfig, handler *handlers.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
}

func startServer(server *http.Server) {
	logger.Info("Starting task manager", "addr", server.Addr)

	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		logger.Error("Server shutdown failed", "error", err)
		return
	}
	logger.Info("Server stopped")
}
