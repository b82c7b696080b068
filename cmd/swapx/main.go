package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/signing"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/internal/metrics"
	"github.com/betbot/swapx/internal/services"
	"github.com/betbot/swapx/internal/tradefile"
	"github.com/betbot/swapx/pkg/config"
	"github.com/betbot/swapx/pkg/logger"
	"github.com/betbot/swapx/pkg/orderjournal"
)

// 退出码
const (
	exitOK        = 0
	exitFailure   = 1
	exitCancelled = 2
)

func main() {
	os.Exit(run())
}

func run() int {
	// .env 不存在时直接使用真实环境变量
	_ = godotenv.Load()

	var (
		configPath = flag.String("config", os.Getenv("SWAPX_CONFIG"), "config file (.yaml/.yml/.json)")
		tradePath  = flag.String("trade", "", "trade file (.json)")
		account    = flag.String("account", "", "swapper account (overrides config)")
		dryRun     = flag.Bool("dry-run", false, "sign the order but do not submit it to the relay")
		list       = flag.Bool("list", false, "list orders recorded in the journal and exit")
	)
	flag.Parse()

	cfg, err := config.LoadFromFile(*configPath)
	if err != nil {
		return fail("加载配置失败: %v", err)
	}
	if *account != "" {
		cfg.Signer.Account = *account
	}
	if err := logger.Init(cfg.Log); err != nil {
		return fail("初始化日志失败: %v", err)
	}
	defer logger.Close()

	if *list {
		return listJournal(cfg.JournalPath)
	}

	if err := cfg.Validate(); err != nil {
		return fail("配置无效: %v", err)
	}
	if *tradePath == "" {
		return fail("需要 -trade 参数")
	}
	trade, err := tradefile.Load(*tradePath)
	if err != nil {
		return fail("%v", err)
	}
	if trade.Order.ChainID != cfg.ChainID {
		return fail("trade 的链 %s 与配置的链 %s 不一致", trade.Order.ChainID, cfg.ChainID)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.MetricsAddr != "" {
		if _, err := metrics.StartAsync(ctx, cfg.MetricsAddr); err != nil {
			logger.Warnf("metrics 服务启动失败: %v", err)
		}
	}

	signer, swapper, closeSigner, err := buildSigner(ctx, cfg.Signer)
	if err != nil {
		return fail("初始化签名器失败: %v", err)
	}
	defer closeSigner()

	var relay services.OrderRelay = client.NewClient(cfg.Relay.URL, client.WithTimeout(cfg.Relay.Timeout))
	if *dryRun {
		relay = dryRunRelay{}
	}

	opts := []services.DutchSwapOption{services.WithMaxSignAttempts(cfg.MaxSignAttempts)}
	if cfg.JournalPath != "" && !*dryRun {
		journal, err := orderjournal.Open(orderjournal.OpenOptions{Path: cfg.JournalPath})
		if err != nil {
			logger.Warnf("打开订单日志失败，继续但不记录: %v", err)
		} else {
			defer journal.Close()
			opts = append(opts, services.WithJournal(journal))
		}
	}

	svc := services.NewDutchSwapService(relay, opts...)
	result, err := svc.SignAndSubmit(ctx, trade, swapper, signer)
	if err != nil {
		fmt.Fprintln(os.Stdout, renderFailure(err))
		if services.KindOf(err) == services.KindUserRejected {
			return exitCancelled
		}
		return exitFailure
	}
	fmt.Fprintln(os.Stdout, renderResult(result, trade, swapper, *dryRun))
	return exitOK
}

// dryRunRelay 不发送请求，只在本地计算订单哈希
type dryRunRelay struct{}

func (dryRunRelay) SubmitOrder(ctx context.Context, sub *client.OrderSubmission) (*client.OrderResponse, error) {
	order, err := signing.DecodeOrder(sub.EncodedOrder, types.Chain(sub.ChainID))
	if err != nil {
		return nil, err
	}
	hash, err := signing.OrderHash(order)
	if err != nil {
		return nil, err
	}
	logger.WithField("encodedOrder", sub.EncodedOrder).Infof("dry-run：订单未提交")
	return &client.OrderResponse{Hash: hash}, nil
}

func listJournal(path string) int {
	if path == "" {
		return fail("未配置订单日志路径")
	}
	journal, err := orderjournal.Open(orderjournal.OpenOptions{Path: path})
	if err != nil {
		return fail("打开订单日志失败: %v", err)
	}
	defer journal.Close()

	entries, err := journal.List()
	if err != nil {
		return fail("读取订单日志失败: %v", err)
	}
	fmt.Fprintln(os.Stdout, renderJournal(entries))
	return exitOK
}

func fail(format string, args ...interface{}) int {
	fmt.Fprintf(os.Stderr, "error: "+format+"\n", args...)
	return exitFailure
}
