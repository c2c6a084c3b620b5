package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/coder/websocket"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/joho/godotenv"

	"github.com/hunt-tickets/venuemap/internal/auth"
	"github.com/hunt-tickets/venuemap/internal/collab"
	"github.com/hunt-tickets/venuemap/internal/config"
	"github.com/hunt-tickets/venuemap/internal/db"
	"github.com/hunt-tickets/venuemap/internal/document"
	"github.com/hunt-tickets/venuemap/internal/export"
	"github.com/hunt-tickets/venuemap/internal/layout"
	mw "github.com/hunt-tickets/venuemap/internal/middleware"
	"github.com/hunt-tickets/venuemap/internal/queue"
)

func main() {
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})))

	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("load .env", "error", err)
	}

	cfg, err := config.Load()
	if err != nil {
		slog.Error("load config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := db.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("connect to database", "error", err)
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool); err != nil {
		slog.Error("migrate database", "error", err)
		os.Exit(1)
	}

	// Redis and RabbitMQ are optional; without them previews are rendered on
	// every request and saves are not announced.
	var previewCache export.Cache
	var layoutCache layout.PreviewCache
	if cfg.RedisURL != "" {
		client, err := export.DialRedis(ctx, cfg.RedisURL)
		if err != nil {
			slog.Error("connect to redis", "error", err)
			os.Exit(1)
		}
		defer client.Close()
		rc := export.NewRedisCache(client, cfg.PreviewCacheTTL)
		previewCache, layoutCache = rc, rc
	}

	var publisher layout.Publisher
	if cfg.AMQPURL != "" {
		p, err := queue.Dial(cfg.AMQPURL)
		if err != nil {
			slog.Error("connect to rabbitmq", "error", err)
			os.Exit(1)
		}
		defer p.Close()
		publisher = p
	}

	authService := auth.NewService(cfg.JWTSecret)
	authHandler := auth.NewHandler(authService)

	layoutService := layout.NewService(layout.NewPgStore(pool), publisher, layoutCache)
	layoutHandler := layout.NewHandler(layoutService)
	exportHandler := export.NewHandler(layoutService, previewCache)

	hub := collab.NewHub(
		func(ctx context.Context, eventID string) (*document.VenueMap, error) {
			return layoutService.Open(ctx, eventID, "")
		},
		func(ctx context.Context, userID string, doc *document.VenueMap) error {
			_, err := layoutService.Save(ctx, userID, doc)
			return err
		},
		cfg.HistoryLimit,
	)
	go hub.Run()

	r := mux.NewRouter()

	// Global middleware
	r.Use(mw.Recovery)
	r.Use(mw.Logger)
	r.Use(mw.CORS(cfg.Origins()))

	r.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`))
	}).Methods("GET")

	// Protected API routes
	api := r.PathPrefix("/api").Subrouter()
	api.Use(authService.AuthMiddleware)

	api.HandleFunc("/me", authHandler.Me).Methods("GET")
	api.HandleFunc("/events/{eventId}/layout", layoutHandler.Get).Methods("GET")
	api.HandleFunc("/events/{eventId}/layout", layoutHandler.Put).Methods("PUT")
	api.HandleFunc("/events/{eventId}/layout", layoutHandler.Delete).Methods("DELETE")
	api.HandleFunc("/events/{eventId}/layout/summary", layoutHandler.Summary).Methods("GET")
	api.HandleFunc("/events/{eventId}/layout/preview.png", exportHandler.Preview).Methods("GET")

	// WebSocket endpoint; browsers cannot set headers here, so the token
	// comes in the query string.
	r.HandleFunc("/ws/events/{eventId}", func(w http.ResponseWriter, r *http.Request) {
		handleWebSocket(w, r, hub, authService, cfg.Origins())
	})

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh

		slog.Info("shutting down server")

		// Stop hub first to save all dirty layouts
		hub.Stop()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		srv.Shutdown(shutdownCtx)
	}()

	slog.Info("server starting", "addr", addr, "redis", cfg.RedisURL != "", "amqp", cfg.AMQPURL != "")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}
}

func handleWebSocket(w http.ResponseWriter, r *http.Request, hub *collab.Hub, authSvc *auth.Service, origins []string) {
	eventID := mux.Vars(r)["eventId"]

	token := r.URL.Query().Get("token")
	if token == "" {
		http.Error(w, "missing token", http.StatusUnauthorized)
		return
	}
	identity, err := authSvc.ValidateToken(token)
	if err != nil {
		http.Error(w, "invalid token", http.StatusUnauthorized)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		OriginPatterns: origins,
	})
	if err != nil {
		slog.Error("websocket accept", "error", err)
		return
	}

	client := collab.NewClient(hub, conn, identity.UserID, identity.DisplayName, eventID, uuid.NewString())

	ctx := r.Context()
	if err := hub.Join(ctx, client); err != nil {
		slog.Error("join room", "error", err, "event", eventID, "user", identity.UserID)
		conn.Close(websocket.StatusInternalError, "could not open layout")
		return
	}

	go client.WritePump(ctx)
	client.ReadPump(ctx)
}
