package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carevault/carevault/internal/config"
	"github.com/carevault/carevault/internal/domain/admin"
	"github.com/carevault/carevault/internal/domain/feedback"
	"github.com/carevault/carevault/internal/domain/heartrate"
	"github.com/carevault/carevault/internal/domain/patient"
	"github.com/carevault/carevault/internal/domain/reminder"
	"github.com/carevault/carevault/internal/domain/report"
	"github.com/carevault/carevault/internal/platform/auth"
	"github.com/carevault/carevault/internal/platform/blobstore"
	"github.com/carevault/carevault/internal/platform/db"
	"github.com/carevault/carevault/internal/platform/middleware"
	"github.com/carevault/carevault/internal/platform/notification"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "carevault-server",
		Short: "CareVault patient health record API server",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage database migrations",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s).\n", count)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool).Status(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
			for _, s := range statuses {
				status := "pending"
				appliedAt := ""
				if s.Applied {
					status = "applied"
					if s.AppliedAt != nil {
						appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
					}
				}
				fmt.Printf("%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
			}
			return nil
		},
	})

	return cmd
}

// remindCmd runs a single reminder cycle and exits, for external cron setups
// that prefer a CLI entry over the HTTP trigger.
func remindCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remind",
		Short: "Run one checkup reminder cycle",
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.DatabaseURL == "" {
				return fmt.Errorf("DATABASE_URL is required")
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			sender := buildSender(cfg, logger)
			sched := reminder.NewScheduler(patient.NewRepoPG(pool), sender,
				notification.NewTemplateEngine(), cfg.ReminderSendTimeout, logger)

			result, err := sched.RunCycle(ctx)
			if err != nil {
				return err
			}
			fmt.Printf("eligible=%d notified=%d failed=%d duration=%s\n",
				result.Eligible, result.Notified, result.Failed, result.Duration)
			return nil
		},
	}
}

// buildSender returns the SMTP sender when a relay is configured, or a mock
// that only logs in development.
func buildSender(cfg *config.Config, logger zerolog.Logger) notification.EmailSender {
	if cfg.SMTPHost != "" {
		return notification.NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.SMTPFrom)
	}
	logger.Warn().Msg("SMTP_HOST not set; outgoing email is disabled")
	return &notification.MockEmailSender{}
}

func runServer() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load config")
	}
	if err := cfg.Validate(); err != nil {
		logger.Fatal().Err(err).Msg("invalid config")
	}

	ctx := context.Background()
	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	blobs, err := blobstore.NewDiskStore(cfg.UploadDir)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to open upload directory")
	}

	codec := auth.NewCodec([]byte(cfg.JWTSecret), cfg.PatientTokenTTL, cfg.AdminTokenTTL)
	sender := buildSender(cfg, logger)
	templates := notification.NewTemplateEngine()

	// Echo server
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.RequestTimeout(30 * time.Second))
	e.Use(echomw.CORSWithConfig(echomw.CORSConfig{
		AllowOrigins: cfg.CORSOrigins,
		AllowMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete},
		AllowHeaders: []string{"Authorization", "Content-Type", "X-Request-ID"},
	}))

	// Repositories and services
	patientRepo := patient.NewRepoPG(pool)
	patientSvc := patient.NewService(patientRepo, codec, sender, templates, logger)

	adminSvc := admin.NewService(admin.NewRepoPG(pool), codec)
	reportSvc := report.NewService(report.NewRepoPG(pool), blobs)
	adminSvc.SetDashboardSources(patientSvc, reportSvc)
	heartrateSvc := heartrate.NewService(heartrate.NewRepoPG(pool))
	feedbackSvc := feedback.NewService(feedback.NewRepoPG(pool))

	sched := reminder.NewScheduler(patientRepo, sender, templates, cfg.ReminderSendTimeout, logger)

	// Route groups. Patients are gated by token alone; admin routes re-check
	// the account against the database on every request.
	apiV1 := e.Group("/api/v1")
	patients := apiV1.Group("", auth.RequireAuth(codec), auth.RequireRole(auth.RolePatient))
	admins := apiV1.Group("", auth.RequireAdmin(codec, adminSvc))

	patient.NewHandler(patientSvc, blobs).RegisterRoutes(apiV1, patients, admins)
	admin.NewHandler(adminSvc).RegisterRoutes(apiV1, admins)
	report.NewHandler(reportSvc).RegisterRoutes(patients, admins)
	heartrate.NewHandler(heartrateSvc).RegisterRoutes(patients, admins)
	feedback.NewHandler(feedbackSvc).RegisterRoutes(patients, admins)
	reminder.NewHandler(sched, patientRepo, cfg.SchedulerSecret).RegisterRoutes(apiV1, admins)

	e.GET("/health", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{
			"status":  "ok",
			"version": "0.1.0",
		})
	})

	// In-process reminder ticker
	tickerCtx, tickerCancel := context.WithCancel(ctx)
	defer tickerCancel()
	go sched.Run(tickerCtx, cfg.ReminderInterval)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	tickerCancel()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}
