package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/vitalwatch/platform/internal/adapters/ehr"
	"github.com/vitalwatch/platform/internal/adapters/ehr/medis"
	"github.com/vitalwatch/platform/internal/alert"
	"github.com/vitalwatch/platform/internal/notification"
	"github.com/vitalwatch/platform/internal/patient"
	"github.com/vitalwatch/platform/internal/roster"
	"github.com/vitalwatch/platform/internal/scoring"
	"github.com/vitalwatch/platform/internal/shared/auth"
	"github.com/vitalwatch/platform/internal/shared/config"
	"github.com/vitalwatch/platform/internal/shared/database"
	"github.com/vitalwatch/platform/internal/shared/events"
	"github.com/vitalwatch/platform/internal/shared/logger"
	"github.com/vitalwatch/platform/internal/shared/metrics"
	secmiddleware "github.com/vitalwatch/platform/internal/shared/middleware"
	"github.com/vitalwatch/platform/internal/triage"
)

// App holds all application dependencies
type App struct {
	Config  *config.Config
	Logger  *zap.Logger
	DB      *database.DB
	Bus     *events.Bus
	Redis   *redis.Client
	Scoring *scoring.Client
}

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.Must(cfg.Server.Env)
	defer log.Sync()

	app := &App{Config: cfg, Logger: log}

	// Database (optional - the API runs read-only without it)
	db, err := database.New(ctx, cfg.Database)
	if err != nil {
		log.Warn("Database not available, running in limited mode", zap.Error(err))
	} else {
		app.DB = db
		defer db.Close()

		if err := database.Migrate(ctx, db.Pool); err != nil {
			log.Warn("Migration failed", zap.Error(err))
		}
	}

	// Event store (optional)
	bus, err := events.NewBus(ctx, cfg.EventStore, log)
	if err != nil {
		log.Warn("Event store not available, running without event streaming", zap.Error(err))
	} else {
		app.Bus = bus
		defer bus.Close()
		log.Info("Event bus initialized",
			zap.String("host", cfg.EventStore.Host),
			zap.Int("port", cfg.EventStore.Port),
		)
	}

	// Redis snapshot cache (optional)
	redisClient := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	pingCtx, pingCancel := context.WithTimeout(ctx, 2*time.Second)
	if err := redisClient.Ping(pingCtx).Err(); err != nil {
		log.Warn("Redis not available, roster snapshots will not be cached", zap.Error(err))
		redisClient.Close()
		redisClient = nil
	} else {
		app.Redis = redisClient
		defer redisClient.Close()
	}
	pingCancel()

	// Session store
	sessions := auth.NewSessionStore(auth.DefaultSessionConfig())
	defer sessions.Close()

	// Triage engine
	engine := triage.NewEngine(triage.Config{
		StabilityThreshold: cfg.Triage.StabilityThreshold,
		EmergencyInterval:  cfg.Triage.EmergencyInterval,
		PowerSaveInterval:  cfg.Triage.PowerSaveInterval,
		ShortageHighCount:  cfg.Triage.ShortageHighCount,
		ShortageHighRatio:  cfg.Triage.ShortageHighRatio,
	})

	// Scoring client
	if cfg.Scoring.Enabled {
		app.Scoring = scoring.NewClient(cfg.Scoring, log)
	}

	// Notification service
	notifier := notification.NewService(map[notification.Channel]notification.Provider{
		notification.ChannelPush:  notification.NewLogProvider(notification.ChannelPush, log),
		notification.ChannelSMS:   notification.NewLogProvider(notification.ChannelSMS, log),
		notification.ChannelEmail: notification.NewLogProvider(notification.ChannelEmail, log),
		notification.ChannelInApp: notification.NewLogProvider(notification.ChannelInApp, log),
	}, cfg.Notification, log)
	if err := notifier.Start(ctx); err != nil {
		log.Fatal("Failed to start notification service", zap.Error(err))
	}
	defer notifier.Stop()

	// DB-backed services
	var (
		patientHandler *patient.Handler
		alertHandler   *alert.Handler
		alertService   *alert.Service
		rosterHandler  *roster.Handler
	)
	if app.DB != nil {
		// Patient registry
		patientRepo := patient.NewRepository(app.DB.Pool)
		patientHandler = patient.NewHandler(patientRepo, app.Bus)

		// Alerts and escalation
		alertRepo := alert.NewRepository(app.DB.Pool)
		escalator := alert.NewEscalator(nil, alertRepo, alert.DefaultEscalationConfig(), log)
		alertService = alert.NewService(alertRepo, escalator, notifier, app.Bus, log)
		escalator.SetNotifier(alertService)
		alertHandler = alert.NewHandler(alertRepo, alertService)

		go func() {
			if err := escalator.Start(ctx); err != nil && err != context.Canceled {
				log.Error("Escalator stopped", zap.Error(err))
			}
		}()
		defer escalator.Stop()

		// Triage roster
		if app.Scoring != nil {
			var cache *roster.Cache
			if app.Redis != nil {
				cache = roster.NewCache(app.Redis, cfg.Triage.SnapshotTTL, log)
			}
			rosterService := roster.NewService(patientRepo, app.Scoring, engine, cache, log)
			rosterHandler = roster.NewHandler(rosterService, engine)

			monitor := roster.NewMonitor(rosterService, app.Bus, alertService, cfg.Triage.RosterPollInterval, log)
			go func() {
				if err := monitor.Start(ctx); err != nil && err != context.Canceled {
					log.Error("Roster monitor stopped", zap.Error(err))
				}
			}()
			defer monitor.Stop()
		} else {
			log.Warn("Scoring disabled, triage roster unavailable")
		}

		// EHR ingestion
		if cfg.EHR.Enabled {
			medisCfg := medis.DefaultConfig()
			medisCfg.Host = cfg.EHR.Host
			medisCfg.Port = cfg.EHR.Port
			medisCfg.User = cfg.EHR.User
			medisCfg.Password = cfg.EHR.Password
			medisCfg.Database = cfg.EHR.Database
			medisCfg.SSLMode = cfg.EHR.SSLMode
			medisCfg.FacilityName = cfg.EHR.Facility
			medisCfg.PollInterval = cfg.EHR.PollInterval

			adapter, err := medis.New(medisCfg)
			if err != nil {
				log.Error("Failed to create EHR adapter", zap.Error(err))
			} else if err := adapter.Start(ctx); err != nil {
				log.Warn("EHR adapter not available", zap.Error(err))
			} else {
				defer func() {
					stopCtx, stopCancel := context.WithTimeout(context.Background(), 10*time.Second)
					defer stopCancel()
					adapter.Stop(stopCtx)
				}()

				ingestor := ehr.NewIngestor(adapter, patientRepo, app.Bus, log)
				if err := ingestor.Start(ctx); err != nil {
					log.Error("Failed to start EHR ingestor", zap.Error(err))
				} else {
					log.Info("EHR ingestion started",
						zap.String("source_system", adapter.SourceSystem()),
						zap.String("facility", adapter.Facility()),
					)
				}
			}
		}
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(60 * time.Second))
	r.Use(secmiddleware.SecurityHeaders)
	r.Use(secmiddleware.RateLimiter(100, 200))
	r.Use(metrics.Middleware)
	r.Use(secmiddleware.CORS(secmiddleware.DefaultCORSConfig()))

	// Health checks (unauthenticated)
	r.Get("/health", healthHandler)
	r.Get("/ready", readyHandler(app))
	r.Handle("/metrics", metrics.Handler())

	// API info
	r.Get("/", infoHandler)

	// API routes
	r.Route("/api/v1", func(r chi.Router) {
		if cfg.Server.Env == "production" {
			r.Use(auth.Middleware(cfg.Auth, sessions))
		}

		if patientHandler != nil {
			r.Mount("/patients", patientHandler.Routes())
		}
		if alertHandler != nil {
			r.Mount("/alerts", alertHandler.Routes())
		}
		if rosterHandler != nil {
			r.Mount("/triage/roster", rosterHandler.Routes())
		}
	})

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown
	done := make(chan bool)
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		<-quit
		log.Info("Shutting down server")

		cancel()

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer shutdownCancel()

		if err := srv.Shutdown(shutdownCtx); err != nil {
			log.Error("Server shutdown error", zap.Error(err))
		}
		close(done)
	}()

	log.Info("VitalWatch triage platform starting",
		zap.String("env", cfg.Server.Env),
		zap.Int("port", cfg.Server.Port),
		zap.Bool("database", app.DB != nil),
		zap.Bool("event_store", app.Bus != nil),
		zap.Bool("redis", app.Redis != nil),
		zap.Bool("scoring", app.Scoring != nil),
		zap.Bool("ehr", cfg.EHR.Enabled),
	)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("Server error", zap.Error(err))
		os.Exit(1)
	}

	<-done
	log.Info("Server stopped")
}

func infoHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"name":    "VitalWatch Triage Platform",
		"version": "0.1.0",
		"docs":    "/api/v1",
	})
}

func healthHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(map[string]string{
		"status": "healthy",
	})
}

func readyHandler(app *App) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		checks := map[string]string{
			"server": "ready",
		}

		if app.DB != nil {
			if err := app.DB.Health(r.Context()); err != nil {
				checks["database"] = "not ready: " + err.Error()
			} else {
				checks["database"] = "ready"
			}
		} else {
			checks["database"] = "not configured"
		}

		if app.Bus != nil {
			if err := app.Bus.Health(); err != nil {
				checks["event_store"] = "not ready: " + err.Error()
			} else {
				checks["event_store"] = "ready"
			}
		} else {
			checks["event_store"] = "not configured"
		}

		if app.Redis != nil {
			if err := app.Redis.Ping(r.Context()).Err(); err != nil {
				checks["redis"] = "not ready: " + err.Error()
			} else {
				checks["redis"] = "ready"
			}
		} else {
			checks["redis"] = "not configured"
		}

		if app.Scoring != nil {
			if err := app.Scoring.Health(r.Context()); err != nil {
				checks["scoring"] = "not ready: " + err.Error()
			} else {
				checks["scoring"] = "ready"
			}
		} else {
			checks["scoring"] = "not configured"
		}

		allReady := true
		for _, status := range checks {
			if status != "ready" && status != "not configured" {
				allReady = false
				break
			}
		}

		status := http.StatusOK
		if !allReady {
			status = http.StatusServiceUnavailable
		}

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		json.NewEncoder(w).Encode(map[string]any{
			"status": map[bool]string{true: "ready", false: "not ready"}[allReady],
			"checks": checks,
		})
	}
}
