package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"golang.org/x/sync/errgroup"

	"github.com/billflow/billflow/cmd/billflow/cli"
	"github.com/billflow/billflow/internal/app"
	"github.com/billflow/billflow/internal/auth"
	"github.com/billflow/billflow/internal/billing"
	"github.com/billflow/billflow/internal/observability"
	"github.com/billflow/billflow/internal/platform/cache"
	"github.com/billflow/billflow/internal/platform/db"
	"github.com/billflow/billflow/jobs"
)

const usage = `usage: billflow [serve | migrate | jobs trigger <task> | jobs stats]`

func main() {
	if app.InTestMode() {
		slog.Default().Info("test mode detected, skipping runtime startup")
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}

	logger := app.NewLogger(cfg)
	slog.SetDefault(logger)

	if err := run(ctx, cfg, logger, os.Args[1:], os.Stdout); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("billflow", slog.Any("error", err))
		stop()
		os.Exit(1)
	}
}

func run(ctx context.Context, cfg *app.Config, logger *slog.Logger, args []string, out io.Writer) error {
	if len(args) == 0 || args[0] == "serve" {
		return serve(ctx, cfg, logger)
	}
	switch args[0] {
	case "migrate":
		pool, err := db.New(ctx, cfg.PGDSN)
		if err != nil {
			return err
		}
		defer pool.Close()
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
		logger.Info("migrations applied")
		return nil
	case "jobs":
		jobsCLI := cli.NewJobsCLI(cfg.RedisAddr)
		defer func() {
			if err := jobsCLI.Close(); err != nil {
				logger.Warn("jobs cli close", slog.Any("error", err))
			}
		}()
		return runJobs(ctx, jobsCLI, args[1:], out)
	default:
		return fmt.Errorf("unknown command %q\n%s", args[0], usage)
	}
}

func runJobs(ctx context.Context, c *cli.JobsCLI, args []string, out io.Writer) error {
	switch {
	case len(args) == 2 && args[0] == "trigger":
		info, err := c.Trigger(ctx, args[1])
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "enqueued %s id=%s queue=%s\n", info.Type, info.ID, info.Queue)
		return err
	case len(args) == 1 && args[0] == "stats":
		stats, err := c.InspectQueue(ctx)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(out, "queue=%s pending=%d active=%d scheduled=%d retry=%d archived=%d\n",
			stats.Queue, stats.Pending, stats.Active, stats.Scheduled, stats.Retry, stats.Archived)
		return err
	default:
		return errors.New(usage)
	}
}

func serve(ctx context.Context, cfg *app.Config, logger *slog.Logger) error {
	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		return err
	}
	defer pool.Close()

	if cfg.DBAutoMigrate {
		if err := db.Migrate(ctx, pool); err != nil {
			return err
		}
	}

	var redisClient *redis.Client
	if client, err := cache.New(ctx, cache.Options{Addr: cfg.RedisAddr}); err != nil {
		logger.Warn("redis unavailable, recovery cooldown disabled", slog.Any("error", err))
	} else {
		redisClient = client
		defer func() {
			if err := redisClient.Close(); err != nil {
				logger.Warn("redis close", slog.Any("error", err))
			}
		}()
	}

	metrics := observability.NewMetrics()
	redisOpts := asynq.RedisClientOpt{Addr: cfg.RedisAddr}
	serviceCfg := auth.ServiceConfig{
		RecoveryTokenTTL: cfg.RecoveryTokenTTL,
		Events:           metrics,
		Logger:           logger,
	}
	if redisClient != nil {
		serviceCfg.Throttle = auth.NewRecoveryThrottle(redisClient, cfg.RecoveryCooldown)
	}
	switch cfg.RecoveryDelivery {
	case app.RecoveryDeliveryQueue:
		mailQueue := jobs.NewClient(redisOpts)
		defer func() {
			if err := mailQueue.Close(); err != nil {
				logger.Warn("mail queue close", slog.Any("error", err))
			}
		}()
		serviceCfg.Notifier = auth.QueueNotifier{Queue: mailQueue, ResetURL: cfg.RecoveryURL, TTL: cfg.RecoveryTokenTTL}
	default:
		if cfg.IsProduction() {
			logger.Warn("recovery tokens are written to the log; set RECOVERY_DELIVERY=queue")
		}
		serviceCfg.Notifier = auth.LogNotifier{Logger: logger}
	}

	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTTTL)
	authService := auth.NewService(auth.NewRepository(pool), auth.NewHasher(cfg.BcryptCost), tokens, serviceCfg)
	authenticator := auth.Authenticator{Tokens: tokens, Logger: logger, Events: metrics}
	authHandler := auth.NewHandler(logger, authService, authenticator)

	billingService := billing.NewService(billing.NewRepository(pool), billing.ServiceConfig{PhoneRegion: cfg.PhoneRegion})
	billingHandler := billing.NewHandler(logger, billingService, authenticator.Middleware)

	inspector := asynq.NewInspector(redisOpts)
	defer func() {
		if err := inspector.Close(); err != nil {
			logger.Warn("inspector close", slog.Any("error", err))
		}
	}()
	jobHandler := jobs.NewHandler(inspector, logger)

	router := app.NewRouter(app.RouterParams{
		Logger:         logger,
		Config:         cfg,
		AuthHandler:    authHandler,
		BillingHandler: billingHandler,
		JobHandler:     jobHandler,
		Metrics:        metrics,
		Ready: func(r *http.Request) error {
			return pool.Ping(r.Context())
		},
	})

	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.AppReadTimeout,
		WriteTimeout: cfg.AppWriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting http server", slog.String("addr", server.Addr))
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	return g.Wait()
}
