package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"card-alerts-go/internal/alerts"
	"card-alerts-go/internal/config"
	"card-alerts-go/internal/handlers"
	"card-alerts-go/internal/notify"
	"card-alerts-go/internal/store"
)

func main() {
	// Load .env file
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		panic(err)
	}

	logger, err := initLogger(cfg)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	// Initialize PostgreSQL store
	pgStore, err := store.NewPostgresStore(cfg.DatabaseURL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to PostgreSQL", zap.Error(err))
	}
	defer pgStore.Close()

	ctx := context.Background()
	if err := pgStore.RunMigrations(ctx); err != nil {
		logger.Fatal("Failed to run migrations", zap.Error(err))
	}
	logger.Info("Database migrations completed")

	// Initialize Redis event feed
	feed := store.NewEventFeed(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}, logger)
	defer feed.Close()

	// Notification transports
	mailer := notify.NewMailer(notify.EmailConfig{
		Enabled:     cfg.SMTPEnabled(),
		Host:        cfg.SMTP.Host,
		Port:        cfg.SMTP.Port,
		Username:    cfg.SMTP.Username,
		Password:    cfg.SMTP.Password,
		From:        cfg.SMTP.From,
		NoVerify:    cfg.SMTP.NoVerify,
		IdleTimeout: cfg.SMTP.IdleTimeout,
	}, logger.With(zap.String("comp", "mailer")))
	chat := notify.NewChatClient(notify.ChatConfig{WebhookURL: cfg.ChatWebhookURL})
	pusher := notify.NewPusher(notify.PushConfig{
		VAPIDPublicKey:  cfg.Push.VAPIDPublicKey,
		VAPIDPrivateKey: cfg.Push.VAPIDPrivateKey,
		Subscriber:      cfg.Push.Subscriber,
	}, pgStore, logger.With(zap.String("comp", "push")))

	notifier := notify.NewService(mailer, chat, pusher, logger.With(zap.String("comp", "notifier")))
	if err := notifier.Open(); err != nil {
		logger.Fatal("Failed to start mailer", zap.Error(err))
	}
	defer notifier.Close()

	alertSvc := alerts.NewService(pgStore, pgStore, pgStore, notifier, pgStore, feed, logger.With(zap.String("comp", "alerts")))

	h := handlers.NewHandler(alertSvc, pgStore, pgStore, pgStore, feed, pusher, cfg.HTTP.SessionSecret, logger.With(zap.String("comp", "http")))

	bootstrapSuperuser(ctx, pgStore, logger)

	mux := http.NewServeMux()

	// Auth
	mux.HandleFunc("/api/login", h.LoginHandler)
	mux.HandleFunc("/api/logout", h.LogoutHandler)

	// Alerts
	mux.HandleFunc("/api/alerts", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.RequireActor(h.ListAlertsHandler)(w, r)
		case http.MethodPost:
			h.RequireActor(h.CreateAlertHandler)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/alerts/card/", h.RequireActor(h.ListAlertsByCardHandler))
	mux.HandleFunc("/api/alerts/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/unsubscribe") {
			h.RequireActor(h.UnsubscribeHandler)(w, r)
			return
		}
		switch r.Method {
		case http.MethodPut:
			h.RequireActor(h.UpdateAlertHandler)(w, r)
		case http.MethodDelete:
			h.RequireActor(h.DeleteAlertHandler)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})

	// User management (superuser)
	mux.HandleFunc("/api/users", func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			h.RequireSuperuser(h.GetUsersHandler)(w, r)
		case http.MethodPost:
			h.RequireSuperuser(h.CreateUserHandler)(w, r)
		default:
			http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		}
	})
	mux.HandleFunc("/api/users/", h.RequireSuperuser(h.DeleteUserHandler))
	mux.HandleFunc("/api/audit", h.RequireSuperuser(h.GetAuditLogsHandler))

	// Push subscriptions
	mux.HandleFunc("/api/push/key", h.GetVAPIDKeyHandler)
	mux.HandleFunc("/api/push/subscribe", h.RequireActor(h.SubscribePushHandler))

	// Event stream + metrics
	mux.HandleFunc("/events", h.SSEHandler)
	mux.Handle("/metrics", promhttp.Handler())

	server := &http.Server{Addr: cfg.HTTP.Addr, Handler: mux}

	errChan := make(chan error, 1)
	go func() {
		logger.Info("Listening", zap.String("addr", cfg.HTTP.Addr))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errChan <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigChan:
		logger.Info("Received signal, shutting down", zap.String("signal", sig.String()))
		if err := server.Shutdown(context.Background()); err != nil {
			logger.Error("Shutdown failed", zap.Error(err))
		}
	case err := <-errChan:
		logger.Fatal("Server error", zap.Error(err))
	}

	logger.Info("Alert service stopped")
}

func initLogger(cfg *config.Config) (*zap.Logger, error) {
	if cfg.Log.Format == "json" {
		return zap.NewProduction()
	}
	return zap.NewDevelopment()
}

// bootstrapSuperuser creates a default superuser on an empty user table
// so the service is reachable after first start.
func bootstrapSuperuser(ctx context.Context, users store.UserStore, logger *zap.Logger) {
	existing, err := users.GetUsers(ctx)
	if err != nil || len(existing) > 0 {
		return
	}
	user, err := users.CreateUser(ctx, "admin", "admin@example.com", "admin123", true)
	if err != nil {
		logger.Warn("Failed to create default superuser", zap.Error(err))
		return
	}
	logger.Info("Created default superuser", zap.String("username", user.Username))
}
