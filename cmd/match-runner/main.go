// cmd/match-runner/main.go
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"net/http"
	_ "net/http/pprof"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"match-engine/internal/common/aws"
	"match-engine/internal/common/clock"
	"match-engine/internal/common/config"
	"match-engine/internal/common/database"
	"match-engine/internal/common/logger"
	"match-engine/internal/common/observability"
	"match-engine/internal/engine/aiscorer"
	"match-engine/internal/engine/analysiscache"
	"match-engine/internal/engine/batch"
	"match-engine/internal/engine/hybrid"
	"match-engine/internal/engine/rulescorer"
	"match-engine/internal/notify"
	"match-engine/internal/trigger"
)

// retryWithBackoff attempts to execute a function with exponential backoff
func retryWithBackoff(operation func() error, maxRetries int, initialDelay time.Duration, log *zap.Logger, operationName string) error {
	var err error
	delay := initialDelay

	for i := 0; i < maxRetries; i++ {
		err = operation()
		if err == nil {
			return nil
		}

		if i < maxRetries-1 {
			log.Warn(fmt.Sprintf("%s failed, retrying...", operationName),
				zap.Error(err),
				zap.Int("attempt", i+1),
				zap.Int("maxRetries", maxRetries),
				zap.Duration("nextRetryIn", delay),
			)
			time.Sleep(delay)
			delay *= 2
		}
	}

	return fmt.Errorf("%s failed after %d attempts: %w", operationName, maxRetries, err)
}

func main() {
	once := flag.Bool("once", false, "run a single batch sweep and exit (cron mode)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config load failed: %v\n", err)
		os.Exit(1)
	}

	zapLog := logger.New(cfg.Logging.Level, cfg.Logging.Format)
	defer zapLog.Sync()
	log := logger.NewZapAdapter(zapLog)

	zapLog.Info("starting match runner",
		zap.String("environment", cfg.App.Environment),
		zap.Bool("once", *once),
	)

	obs := observability.New("match-runner")
	defer obs.Shutdown()

	ctx := context.Background()

	// --- Init PostgreSQL with retry ---
	var pg *database.PostgresClient
	err = retryWithBackoff(func() error {
		var err error
		pg, err = database.NewPostgres(cfg.Database.Postgres)
		if err != nil {
			return err
		}
		return pg.Ping(ctx)
	}, 15, 2*time.Second, zapLog, "PostgreSQL connection")
	if err != nil {
		zapLog.Fatal("postgres failed after retries", zap.Error(err))
	}
	defer pg.Close()
	zapLog.Info("PostgreSQL connected")

	// --- Init Redis with retry; the cache degrades to memory when absent ---
	var analysisCache analysiscache.Cache
	clk := clock.New()

	var rdb *database.RedisClient
	err = retryWithBackoff(func() error {
		var err error
		rdb, err = database.NewRedis(cfg.Database.Redis)
		if err != nil {
			return err
		}
		return rdb.Ping(ctx)
	}, 5, 2*time.Second, zapLog, "Redis connection")
	if err != nil {
		zapLog.Warn("redis unavailable, falling back to in-memory analysis cache", zap.Error(err))
		analysisCache = analysiscache.NewMemoryCache(clk)
	} else {
		defer rdb.Close()
		zapLog.Info("Redis connected")
		redisCache := analysiscache.NewRedisCache(rdb.Client, clk, log)
		if cfg.AI.CacheTTLDays > 0 {
			redisCache = redisCache.WithWindow(time.Duration(cfg.AI.CacheTTLDays) * 24 * time.Hour)
		}
		analysisCache = redisCache
	}

	// --- Scoring pipeline ---
	ruleScorer := rulescorer.NewScorer(clk)

	aiClient := aiscorer.NewClientFromConfig(cfg.AI)
	if aiClient == nil {
		zapLog.Info("no AI transport configured, running rule-only")
	}
	aiScorer := aiscorer.NewScorer(&aiscorer.Config{MaxRetries: cfg.AI.MaxRetries}, aiClient, log).
		WithObservability(obs)

	matcher := hybrid.NewMatcher(&hybrid.Config{
		GateScore:   cfg.Batch.AIGateScore,
		NotifyScore: cfg.Batch.NotifyScore,
	}, ruleScorer, aiScorer, analysisCache, log)

	recordStore := notify.NewMatchRecordStore(pg.DB, log)

	runner := batch.NewRunner(&batch.Config{Workers: cfg.Batch.Workers}, matcher, recordStore, log)

	// --- Notification channels ---
	var channels []notify.Channel

	if cfg.Notifications.Email.Enabled {
		sesClient, err := aws.NewSESClient(ctx, cfg.Notifications.AWS.Region)
		if err != nil {
			zapLog.Warn("SES init failed, email channel disabled", zap.Error(err))
		} else {
			channels = append(channels, notify.NewEmailChannel(sesClient, cfg.Notifications.Email.FromEmail))
		}
	}

	if cfg.Notifications.InApp.Enabled {
		channels = append(channels, notify.NewInAppChannel(pg.DB))
	}

	if cfg.Notifications.Webhook.Enabled {
		if cfg.Notifications.Webhook.SNSTopic != "" {
			snsClient, err := aws.NewSNSClient(ctx, cfg.Notifications.AWS.Region)
			if err != nil {
				zapLog.Warn("SNS init failed, webhook channel disabled", zap.Error(err))
			} else {
				channels = append(channels, notify.NewSNSChannel(snsClient, cfg.Notifications.Webhook.SNSTopic))
			}
		} else {
			channels = append(channels, notify.NewWebhookChannel(
				cfg.Notifications.Webhook.URL,
				time.Duration(cfg.Notifications.Webhook.Timeout)*time.Millisecond,
			))
		}
	}

	dispatcher := notify.NewDispatcher(recordStore, channels, clk, log)

	handler := trigger.NewHandler(
		cfg,
		trigger.NewPostgresProfileProvider(pg.DB),
		trigger.NewPostgresCatalogProvider(pg.DB),
		runner,
		dispatcher,
		clk,
		obs,
		log,
	)

	if *once {
		summary := handler.RunBatch(ctx)
		out, _ := json.Marshal(summary)
		fmt.Println(string(out))
		if !summary.Success {
			os.Exit(1)
		}
		return
	}

	// --- HTTP server: trigger endpoint + metrics + pprof ---
	mux := http.NewServeMux()
	mux.Handle("/internal/match/run", handler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})

	server := &http.Server{
		Addr:    cfg.Trigger.ListenAddress,
		Handler: mux,
	}

	go func() {
		zapLog.Info("trigger server listening", zap.String("address", cfg.Trigger.ListenAddress))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			zapLog.Fatal("trigger server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	zapLog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		zapLog.Error("server shutdown failed", zap.Error(err))
	}
}
