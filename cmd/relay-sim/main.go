package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/betbot/swapx/internal/metrics"
	"github.com/betbot/swapx/internal/relaysim"
	"github.com/betbot/swapx/pkg/config"
	"github.com/betbot/swapx/pkg/logger"
	"github.com/betbot/swapx/pkg/shutdown"
)

func main() {
	// .env 不存在时直接使用真实环境变量
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("SWAPX_CONFIG"), "config file (.yaml/.yml/.json)")
		listenAddr = flag.String("listen", "", "HTTP listen address (overrides config)")
		dbPath     = flag.String("db", "", "SQLite db file path (overrides config)")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		fatalf("加载配置失败: %v", err)
	}
	if *listenAddr != "" {
		cfg.RelaySim.Listen = *listenAddr
	}
	if *dbPath != "" {
		cfg.RelaySim.DBPath = *dbPath
	}
	if err := logger.Init(cfg.Log); err != nil {
		fatalf("初始化日志失败: %v", err)
	}

	srv, err := relaysim.New(relaysim.Config{
		DBPath: cfg.RelaySim.DBPath,
		Chains: cfg.RelaySim.Chains,

		RateBurst:     cfg.RelaySim.RateBurst,
		RatePerSecond: cfg.RelaySim.RatePerSecond,
	})
	if err != nil {
		fatalf("init relay simulator failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	if cfg.MetricsAddr != "" {
		if _, err := metrics.StartAsync(ctx, cfg.MetricsAddr); err != nil {
			logger.Warnf("metrics 服务启动失败: %v", err)
		}
	}

	httpSrv := &http.Server{
		Addr:              cfg.RelaySim.Listen,
		Handler:           srv.Router(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	sm := shutdown.NewManager()
	sm.OnShutdown("http", httpSrv.Shutdown)
	sm.OnShutdown("sqlite", func(context.Context) error { return srv.Close() })

	go func() {
		logger.Infof("relay simulator listening on %s (chains=%v, db=%s)", cfg.RelaySim.Listen, cfg.RelaySim.Chains, cfg.RelaySim.DBPath)
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Errorf("http server error: %v", err)
			cancel()
		}
	}()

	stopCh := make(chan os.Signal, 1)
	signal.Notify(stopCh, os.Interrupt, syscall.SIGTERM, syscall.SIGQUIT)
	select {
	case <-stopCh:
	case <-ctx.Done():
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	sm.Shutdown(shutdownCtx)
	_ = logger.Close()
}

func fatalf(format string, args ...interface{}) {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	os.Exit(1)
}
