package main

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"eventstorming-sync-server/internal/config"
	"eventstorming-sync-server/internal/handler"
	"eventstorming-sync-server/internal/metrics"
	"eventstorming-sync-server/internal/middleware"
	"eventstorming-sync-server/internal/presence"
	"eventstorming-sync-server/internal/repository"
	"eventstorming-sync-server/internal/service"
	"eventstorming-sync-server/internal/websocket"
	"eventstorming-sync-server/pkg/logger"

	_ "github.com/go-kivik/kivik/v4/couchdb"

	"github.com/go-kivik/kivik/v4"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	zapLogger, err := logger.New(cfg.Server.Env, cfg.Logging.Level)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer zapLogger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	collector := metrics.NewCollector("eventstorming")

	boardRepo, err := openBoardRepository(ctx, cfg, zapLogger)
	if err != nil {
		zapLogger.Fatal("failed to open board repository", zap.Error(err))
	}

	wsManager := websocket.NewManager(websocket.Options{
		MaxConnections: cfg.WebSocket.MaxConnections,
		SendBufferSize: cfg.WebSocket.SendBufferSize,
		MaxMessageSize: cfg.WebSocket.MaxMessageSize,
		WriteWait:      cfg.WebSocket.WriteWait,
		PongWait:       cfg.WebSocket.PongWait,
		PingPeriod:     cfg.WebSocket.PingPeriod,
	}, zapLogger, collector)
	go wsManager.Run(ctx)

	boardService := service.NewBoardService(boardRepo, zapLogger, collector)
	collabService := service.NewCollaborationService(presence.NewRegistry(), wsManager, zapLogger, collector)

	wsManager.SetMessageHandler(handler.NewWebSocketMessageHandler(collabService, wsManager))

	boardHandler := handler.NewBoardHandler(boardService)
	presenceHandler := handler.NewPresenceHandler(collabService)
	wsHandler := handler.NewWebSocketHandler(wsManager, cfg.WebSocket.ReadBufferSize, cfg.WebSocket.WriteBufferSize, zapLogger)

	r := mux.NewRouter()

	r.Use(middleware.LoggerMiddleware(zapLogger, collector))
	r.Use(middleware.CORSMiddleware(
		cfg.CORS.AllowedOrigins,
		cfg.CORS.AllowedMethods,
		cfg.CORS.AllowedHeaders,
	))

	api := r.PathPrefix("/api").Subrouter()

	api.HandleFunc("/boards", boardHandler.List).Methods("GET", "OPTIONS")
	api.HandleFunc("/boards", boardHandler.Create).Methods("POST", "OPTIONS")
	api.HandleFunc("/boards/{id}", boardHandler.Get).Methods("GET", "OPTIONS")
	api.HandleFunc("/boards/{id}", boardHandler.Replace).Methods("PUT", "OPTIONS")
	api.HandleFunc("/boards/{id}/participants", presenceHandler.Participants).Methods("GET", "OPTIONS")

	r.HandleFunc("/ws", wsHandler.HandleConnection)
	r.Handle("/metrics", collector.Handler()).Methods("GET")
	r.HandleFunc("/health", healthHandler).Methods("GET")

	addr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)

	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		zapLogger.Info("starting event storming sync server",
			zap.String("addr", addr),
			zap.String("env", cfg.Server.Env),
			zap.String("store", cfg.Store.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLogger.Fatal("server failed to start", zap.Error(err))
		}
	}()

	<-ctx.Done()
	zapLogger.Info("shutting down server")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		zapLogger.Error("server forced to shutdown", zap.Error(err))
		os.Exit(1)
	}

	zapLogger.Info("server stopped gracefully")
}

func openBoardRepository(ctx context.Context, cfg *config.Config, zapLogger *zap.Logger) (repository.BoardRepository, error) {
	var repo repository.BoardRepository

	switch cfg.Store.Kind {
	case config.StoreCouchDB:
		client, err := kivik.New("couch", cfg.Database.URL())
		if err != nil {
			return nil, fmt.Errorf("connect to CouchDB: %w", err)
		}

		exists, err := client.DBExists(ctx, cfg.Database.Name)
		if err != nil {
			return nil, fmt.Errorf("check database existence: %w", err)
		}
		if !exists {
			if err := client.CreateDB(ctx, cfg.Database.Name); err != nil {
				return nil, fmt.Errorf("create database: %w", err)
			}
			zapLogger.Info("created database", zap.String("db", cfg.Database.Name))
		}

		zapLogger.Info("using CouchDB board store",
			zap.String("host", cfg.Database.Host),
			zap.String("port", cfg.Database.Port),
			zap.String("db", cfg.Database.Name),
		)
		repo = repository.NewCouchDBBoardRepository(client, cfg.Database.Name)

	default:
		mem := repository.NewMemoryBoardRepository(cfg.Store.MemoryExpiration)
		go mem.RunJanitor(ctx, cfg.Store.JanitorInterval)
		zapLogger.Info("using in-memory board store", zap.Duration("expiration", cfg.Store.MemoryExpiration))
		repo = mem
	}

	if cfg.Store.CircuitBreaker {
		repo = repository.WithCircuitBreaker(repo, repository.DefaultBreakerConfig("board-repository"), zapLogger)
	}
	return repo, nil
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write([]byte(`{"status":"healthy","service":"eventstorming-sync-server"}`))
}
