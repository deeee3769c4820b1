package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"credit-service/internal/conf"

	"github.com/gaoyong06/go-pkg/logger"
	"github.com/go-kratos/kratos/v2/config"
	"github.com/go-kratos/kratos/v2/config/file"
	"github.com/go-kratos/kratos/v2/log"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/robfig/cron/v3"
	_ "go.uber.org/automaxprocs"
)

// DefaultAuditSpec runs the ledger audit daily at 03:30.
const DefaultAuditSpec = "0 30 3 * * *"

var (
	flagconf string
)

func init() {
	flag.StringVar(&flagconf, "conf", "../../configs/config.yaml", "config path, eg: -conf config.yaml")
}

func main() {
	flag.Parse()

	c := config.New(
		config.WithSource(
			file.NewSource(flagconf),
		),
	)
	defer c.Close()

	if err := c.Load(); err != nil {
		panic(err)
	}

	var bc conf.Bootstrap
	if err := c.Scan(&bc); err != nil {
		panic(err)
	}

	logConfig := &logger.Config{
		Level:         "info",
		Format:        "json",
		Output:        "stdout",
		FilePath:      "logs/credit-cron.log",
		MaxSize:       100,
		MaxAge:        30,
		MaxBackups:    10,
		Compress:      true,
		EnableConsole: true,
	}
	if bc.Log != nil && bc.Log.Level != "" {
		logConfig.Level = bc.Log.Level
	}

	loggerInstance := log.With(logger.NewLogger(logConfig),
		"ts", log.DefaultTimestamp,
		"caller", log.DefaultCaller,
		"service.name", "credit-cron",
	)
	logHelper := log.NewHelper(loggerInstance)

	app, cleanup, err := wireApp(&bc, loggerInstance)
	if err != nil {
		panic(err)
	}
	defer cleanup()

	spec := DefaultAuditSpec
	var metricsAddr string
	if bc.Cron != nil {
		if bc.Cron.AuditSpec != "" {
			spec = bc.Cron.AuditSpec
		}
		metricsAddr = bc.Cron.MetricsAddr
	}

	cronScheduler := cron.New(cron.WithSeconds())

	// 账本审计：重放流水并核对余额
	_, err = cronScheduler.AddFunc(spec, func() {
		logHelper.Info("[CRON] Starting ledger audit...")
		ctx, cancel := context.WithTimeout(context.Background(), 30*time.Minute)
		defer cancel()

		drifted, err := app.audit.VerifyAll(ctx)
		if err != nil {
			logHelper.Errorf("[CRON] Ledger audit failed: %v", err)
			return
		}
		for _, r := range drifted {
			logHelper.Errorf("[CRON] Ledger drift: account=%s balance=%d replayed=%d first_mismatch=%s",
				r.AccountID, r.Balance, r.ReplayedBalance, r.FirstMismatch)
		}
		logHelper.Infof("[CRON] Finished ledger audit, drifted=%d", len(drifted))
	})
	if err != nil {
		logHelper.Errorf("Failed to add ledger audit job: %v", err)
		os.Exit(1)
	}

	var metricsServer *http.Server
	if metricsAddr != "" {
		mux := http.NewServeMux()
		mux.Handle("/metrics", promhttp.Handler())
		metricsServer = &http.Server{Addr: metricsAddr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
		go func() {
			if err := metricsServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
				logHelper.Errorf("metrics listener: %v", err)
			}
		}()
	}

	cronScheduler.Start()
	logHelper.Info("========================================")
	logHelper.Info("Cron jobs started successfully")
	logHelper.Infof("  - Ledger audit: %s", spec)
	logHelper.Info("========================================")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logHelper.Info("Shutting down gracefully...")

	ctx := cronScheduler.Stop()
	select {
	case <-ctx.Done():
		logHelper.Info("Cron jobs stopped gracefully")
	case <-time.After(5 * time.Second):
		logHelper.Info("Cron jobs forced to stop after timeout")
	}
	if metricsServer != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = metricsServer.Shutdown(shutdownCtx)
	}
}
