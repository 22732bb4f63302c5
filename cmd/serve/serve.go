package serve

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/pvewatch/pvewatch/pkg/alerts"
	alertshttp "github.com/pvewatch/pvewatch/pkg/alerts/http"
	"github.com/pvewatch/pvewatch/pkg/config"
	"github.com/pvewatch/pvewatch/pkg/db"
	"github.com/pvewatch/pvewatch/pkg/logger"
	"github.com/pvewatch/pvewatch/pkg/metrics"
	metricshttp "github.com/pvewatch/pvewatch/pkg/metrics/http"
	"github.com/pvewatch/pvewatch/pkg/monitor"
	monitorhttp "github.com/pvewatch/pvewatch/pkg/monitor/http"
	"github.com/pvewatch/pvewatch/pkg/notifications"
	"github.com/pvewatch/pvewatch/pkg/proxmox"
	"github.com/pvewatch/pvewatch/pkg/settings"
	"github.com/pvewatch/pvewatch/pkg/thresholds"
	thresholdshttp "github.com/pvewatch/pvewatch/pkg/thresholds/http"
	"github.com/pvewatch/pvewatch/pkg/workloads"
)

// Command builds the serve subcommand, the long-running monitoring daemon.
func Command(log *logger.Logger) *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the monitoring service",
		Long:  `Start the collection loop and the HTTP API server.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return run(configPath, log)
		},
	}

	cmd.Flags().StringVar(&configPath, "config", "", "Path to YAML config file")
	return cmd
}

func run(configPath string, log *logger.Logger) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if len(cfg.Proxmox.Nodes) == 0 {
		return errors.New("no nodes configured: set proxmox.nodes or PVEWATCH_NODES")
	}

	log, err = logger.New(&logger.Config{
		Level:      cfg.LogLevel,
		OutputPath: "stdout",
		Format:     "console",
	})
	if err != nil {
		return errors.Wrap(err, "failed to build logger")
	}

	database, err := db.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer database.Close()
	if err := db.RunMigrations(database); err != nil {
		return errors.Wrap(err, "failed to run migrations")
	}
	queries := db.New(database)

	client := proxmox.NewClient(proxmox.Config{
		APIURL:      cfg.Proxmox.APIURL,
		TokenID:     cfg.Proxmox.TokenID,
		TokenSecret: cfg.Proxmox.TokenSecret,
		InsecureTLS: cfg.Proxmox.InsecureTLS,
	})

	thresholdService := thresholds.NewService(queries, log)
	if err := thresholdService.EnsureDefaults(context.Background()); err != nil {
		return err
	}

	notifier := notifications.NewService(log.Named("notify"), buildChannels(cfg)...)
	if !notifier.Enabled() {
		log.Warn("No notification channels configured, alerts will only be recorded")
	}

	metricsService := metrics.NewService(queries, log, cfg.RetentionDays)
	alertStore := alerts.NewStore(queries, log)
	evaluator := alerts.NewEvaluator(thresholdService, alertStore, alerts.NewCooldownTracker(), notifier, log.Named("alerts"))
	detector := workloads.NewDetector(client, settings.NewService(queries, log), notifier, log.Named("workloads"))

	monitorService := monitor.NewService(monitor.Config{
		Nodes:    cfg.Proxmox.Nodes,
		Schedule: cfg.Schedule,
	}, client, metricsService, evaluator, alertStore, detector, log.Named("monitor"))

	if err := monitorService.Start(); err != nil {
		return err
	}
	defer monitorService.Stop()

	router := buildRouter(thresholdService, alertStore, metricsService, monitorService)
	server := &http.Server{
		Addr:    cfg.HTTPAddr,
		Handler: router,
	}

	serverErr := make(chan error, 1)
	go func() {
		log.Info("HTTP API listening", "addr", cfg.HTTPAddr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serverErr <- err
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-serverErr:
		return errors.Wrap(err, "http server failed")
	case sig := <-quit:
		log.Info("Shutting down", "signal", sig.String())
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("HTTP server shutdown failed", "error", err)
	}
	return nil
}

func buildChannels(cfg *config.Config) []notifications.Channel {
	var channels []notifications.Channel
	if cfg.Notify.WebhookURL != "" {
		channels = append(channels, notifications.NewWebhookChannel(cfg.Notify.WebhookURL))
	}
	if cfg.Notify.SMTP.Host != "" {
		channels = append(channels, notifications.NewSMTPChannel(notifications.SMTPConfig{
			Host:     cfg.Notify.SMTP.Host,
			Port:     cfg.Notify.SMTP.Port,
			Username: cfg.Notify.SMTP.Username,
			Password: cfg.Notify.SMTP.Password,
			From:     cfg.Notify.SMTP.From,
			To:       cfg.Notify.SMTP.To,
			TLS:      cfg.Notify.SMTP.TLS,
		}))
	}
	return channels
}

func buildRouter(
	thresholdService *thresholds.Service,
	alertStore *alerts.Store,
	metricsService *metrics.Service,
	monitorService *monitor.Service,
) chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Logger)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "PUT", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Content-Type"},
		AllowCredentials: false,
		MaxAge:           300,
	}))

	r.Route("/api/v1", func(r chi.Router) {
		thresholdshttp.NewHandler(thresholdService).RegisterRoutes(r)
		alertshttp.NewHandler(alertStore).RegisterRoutes(r)
		metricshttp.NewHandler(metricsService).RegisterRoutes(r)
		monitorhttp.NewHandler(monitorService).RegisterRoutes(r)
	})
	return r
}
