package main

import (
	"context"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"github.com/buidl-renaissance/appblocks/config"
	"github.com/buidl-renaissance/appblocks/internal/health"
	"github.com/buidl-renaissance/appblocks/internal/metrics"
	"github.com/buidl-renaissance/appblocks/internal/service"
	"github.com/buidl-renaissance/appblocks/internal/storage/postgres"
	"github.com/buidl-renaissance/appblocks/internal/tasks"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.ReadWorkerConfig()
	if err != nil {
		panic(err)
	}

	logger := logrus.StandardLogger()

	redisOptions := asynq.RedisClientOpt{
		Addr:     cfg.Redis.Host + ":" + cfg.Redis.Port,
		Username: cfg.Redis.User,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	}

	backendDB, err := postgres.NewPostgresBackend(cfg.Database.DSN, false)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize database: %v", err))
	}

	catalogService, err := service.NewCatalogService(backendDB)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize catalog service: %v", err))
	}

	installationService, err := service.NewInstallationService(backendDB, catalogService)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize installation service: %v", err))
	}

	upstreamService, err := service.NewUpstreamService(backendDB)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize upstream service: %v", err))
	}

	workerService, err := service.NewWorkerService(installationService, upstreamService)
	if err != nil {
		panic(fmt.Sprintf("failed to initialize worker service: %v", err))
	}

	collector := metrics.NewInstallationCollector(
		backendDB,
		metrics.NewInstallationMetrics(),
		logger,
		time.Minute,
	)
	collector.Start()
	defer collector.Stop()

	srv := asynq.NewServer(
		redisOptions,
		asynq.Config{
			Logger:      logger,
			Concurrency: cfg.Concurrency,
			Queues: map[string]int{
				tasks.QueueName: 10,
			},
		},
	)

	mux := asynq.NewServeMux()
	mux.HandleFunc(tasks.TypeInstallationTouch, workerService.HandleInstallationTouch)
	mux.HandleFunc(tasks.TypeProviderHealthCheck, workerService.HandleProviderHealthCheck)
	mux.HandleFunc(tasks.TypeInstallationExpiry, workerService.HandleInstallationExpiry)

	scheduler := asynq.NewScheduler(redisOptions, &asynq.SchedulerOpts{Logger: logger})
	healthSweep, err := tasks.NewHealthSweepTask()
	if err != nil {
		panic(fmt.Sprintf("failed to build health sweep task: %v", err))
	}
	if _, err := scheduler.Register("@every 10m", healthSweep, asynq.Queue(tasks.QueueName)); err != nil {
		panic(fmt.Sprintf("failed to register health sweep: %v", err))
	}
	if _, err := scheduler.Register("@every 5m", tasks.NewExpiryTask(), asynq.Queue(tasks.QueueName)); err != nil {
		panic(fmt.Sprintf("failed to register expiry sweep: %v", err))
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return health.New(cfg.HealthPort).Start(ctx, logger)
	})

	g.Go(func() error {
		metricsMux := http.NewServeMux()
		metricsMux.Handle("/metrics", promhttp.Handler())
		metricsServer := &http.Server{
			Addr:    fmt.Sprintf(":%d", cfg.MetricsPort),
			Handler: metricsMux,
		}
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			_ = metricsServer.Shutdown(shutdownCtx)
		}()
		logger.Infof("metrics server listening on :%d", cfg.MetricsPort)
		if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	g.Go(func() error {
		return scheduler.Run()
	})

	g.Go(func() error {
		return srv.Run(mux)
	})

	g.Go(func() error {
		<-ctx.Done()
		srv.Shutdown()
		scheduler.Shutdown()
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Fatalf("worker exited: %v", err)
	}
}
