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
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/carebot/carebot/internal/bot"
	"github.com/carebot/carebot/internal/config"
	"github.com/carebot/carebot/internal/domain/account"
	"github.com/carebot/carebot/internal/domain/care"
	"github.com/carebot/carebot/internal/domain/otp"
	"github.com/carebot/carebot/internal/domain/reminder"
	"github.com/carebot/carebot/internal/domain/session"
	"github.com/carebot/carebot/internal/platform/auth"
	"github.com/carebot/carebot/internal/platform/cache"
	"github.com/carebot/carebot/internal/platform/db"
	"github.com/carebot/carebot/internal/platform/middleware"
	"github.com/carebot/carebot/internal/platform/transport"
)

const version = "0.1.0"

func main() {
	rootCmd := &cobra.Command{
		Use:   "carebot-server",
		Short: "Conversational medical-records bot",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(migrateCmd())
	rootCmd.AddCommand(remindCmd())
	rootCmd.AddCommand(tokenCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the bot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
	}

	upCmd := &cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, dir).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Printf("Applied %d migration(s) successfully.\n", count)
			return nil
		},
	}
	upCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(upCmd)

	statusCmd := &cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, _ := cmd.Flags().GetString("dir")

			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, dir).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
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
	}
	statusCmd.Flags().String("dir", "./migrations", "Path to migrations directory")
	cmd.AddCommand(statusCmd)

	return cmd
}

// remindCmd is the periodic entrypoint: cron invokes it to queue upcoming
// reminders and dispatch the due ones.
func remindCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "remind",
		Short: "Scan appointments, queue reminders, and dispatch due ones",
		RunE: func(cmd *cobra.Command, args []string) error {
			lookaheadDays, _ := cmd.Flags().GetInt("lookahead-days")
			logger := newLogger()

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if lookaheadDays == 0 {
				lookaheadDays = cfg.ReminderLookaheadDays
			}

			ctx := context.Background()
			pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
			if err != nil {
				return err
			}
			defer pool.Close()

			sender := transport.NewWhatsAppSender(cfg.ProviderAPIURL, cfg.ProviderAccessToken, cfg.ProviderPhoneNumber, logger)
			dayOff, hourOff := cfg.ReminderOffsets()
			sched := reminder.NewScheduler(care.NewRepoPG(pool), reminder.NewRepoPG(pool), sender, dayOff, hourOff, logger)

			sum, err := sched.Run(ctx, time.Duration(lookaheadDays)*24*time.Hour)
			if err != nil {
				return err
			}
			sent, failed, err := sched.Dispatch(ctx, 500)
			if err != nil {
				return err
			}
			fmt.Printf("scanned=%d scheduled=%d skipped=%d cancelled=%d failed=%d sent=%d send_failed=%d\n",
				sum.Scanned, sum.Scheduled, sum.Skipped, sum.Cancelled, sum.Failed, sent, failed)
			return nil
		},
	}
	cmd.Flags().Int("lookahead-days", 0, "Days ahead to scan (default from config)")
	return cmd
}

// tokenCmd mints an operator token for the internal API.
func tokenCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "token",
		Short: "Issue an operational API token",
		RunE: func(cmd *cobra.Command, args []string) error {
			subject, _ := cmd.Flags().GetString("subject")
			ttlHours, _ := cmd.Flags().GetInt("ttl-hours")

			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if cfg.APIJWTSecret == "" {
				return fmt.Errorf("API_JWT_SECRET is not set")
			}

			token, err := auth.IssueToken([]byte(cfg.APIJWTSecret), subject,
				[]string{"operator"}, time.Duration(ttlHours)*time.Hour)
			if err != nil {
				return err
			}
			fmt.Println(token)
			return nil
		},
	}
	cmd.Flags().String("subject", "ops", "Token subject")
	cmd.Flags().Int("ttl-hours", 24, "Token lifetime in hours")
	return cmd
}

func runServer() error {
	logger := newLogger()

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

	redis, err := cache.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to session cache")
	}
	defer redis.Close()
	logger.Info().Msg("connected to session cache")

	// Domain wiring.
	store := session.NewCacheStore(redis)
	resolver := account.NewResolverPG(pool)
	authenticator := otp.NewAuthenticator(resolver, cfg.OTPTTL(), cfg.OTPMaxAttempts)
	data := care.NewRepoPG(pool)
	sender := transport.NewWhatsAppSender(cfg.ProviderAPIURL, cfg.ProviderAccessToken, cfg.ProviderPhoneNumber, logger)

	registry := bot.DefaultRegistry(authenticator, sender, data, version, time.Now())
	engine := bot.NewEngine(store, registry, cfg.SessionTTL(), logger)

	reminderRepo := reminder.NewRepoPG(pool)
	dayOff, hourOff := cfg.ReminderOffsets()
	sched := reminder.NewScheduler(data, reminderRepo, sender, dayOff, hourOff, logger)

	// HTTP server.
	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))
	e.Use(middleware.BodyLimit("1M"))
	e.Use(middleware.RateLimit(middleware.DefaultRateLimitConfig()))

	webhook := transport.NewWebhook(engine, sender, cfg.WebhookSecret, cfg.WebhookVerifyToken, logger)
	webhook.RegisterRoutes(e)

	internal := e.Group("/internal", auth.Middleware([]byte(cfg.APIJWTSecret)))
	reminder.NewHandler(sched, reminderRepo, time.Duration(cfg.ReminderLookaheadDays)*24*time.Hour).
		RegisterRoutes(internal)

	e.GET("/healthz", db.HealthHandler(pool))
	e.GET("/version", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"version": version})
	})

	// Serve with graceful shutdown.
	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("port", cfg.Port).Msg("server starting")
		errCh <- e.Start(":" + cfg.Port)
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			return err
		}
	case sig := <-quit:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := e.Shutdown(shutdownCtx); err != nil {
			return err
		}
	}
	return nil
}
