package relaysim

import (
	"database/sql"
	"errors"
	"fmt"
	"math"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	_ "modernc.org/sqlite"

	"github.com/betbot/swapx/dutchx/client"
	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/pkg/ratelimit"
)

// Config relay 模拟器配置
type Config struct {
	DBPath string        // SQLite 文件路径；":memory:" 表示内存库
	Chains []types.Chain // 接受的链，为空时只接受主网
	Now    func() time.Time

	// 按客户端 IP 限制下单频率；RateBurst 为 0 时不限流
	RateBurst     int
	RatePerSecond float64
}

// Server 本地 relay 模拟器
// 与真实 relay 一样独立重算订单的 typed data 并校验签名
type Server struct {
	cfg    Config
	db     *sql.DB
	chains map[types.Chain]bool
	limit  *ratelimit.Keyed
}

func New(cfg Config) (*Server, error) {
	if cfg.DBPath == "" {
		return nil, errors.New("db path is required")
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if len(cfg.Chains) == 0 {
		cfg.Chains = []types.Chain{types.ChainMainnet}
	}

	if cfg.DBPath != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(cfg.DBPath), 0o755); err != nil {
			return nil, fmt.Errorf("mkdir db dir: %w", err)
		}
	}

	db, err := sql.Open("sqlite", cfg.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	db.SetMaxOpenConns(1) // SQLite：单连接更稳定（内存库也依赖单连接）
	db.SetMaxIdleConns(1)

	s := &Server{cfg: cfg, db: db, chains: map[types.Chain]bool{}}
	for _, c := range cfg.Chains {
		s.chains[c] = true
	}
	if cfg.RateBurst > 0 {
		s.limit = ratelimit.NewKeyed(cfg.RateBurst, cfg.RatePerSecond)
	}
	if err := s.migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *Server) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

func (s *Server) Router() http.Handler {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.POST(client.EndpointDutchAuctionOrder, s.rateLimited, s.handleOrderCreate)
	r.GET(client.EndpointDutchAuctionOrders, s.handleOrdersList)
	return r
}

const maxTrackedClients = 10000

func (s *Server) rateLimited(c *gin.Context) {
	if s.limit == nil {
		c.Next()
		return
	}
	ip := c.ClientIP()
	if s.limit.Len() > maxTrackedClients {
		s.limit.Prune()
	}
	if !s.limit.Allow(ip) {
		if wait := s.limit.RetryAfter(ip); wait > 0 {
			c.Header("Retry-After", strconv.Itoa(int(math.Ceil(wait.Seconds()))))
		}
		s.reject(c, http.StatusTooManyRequests, ErrorCodeRateLimited, "too many orders from "+ip)
		c.Abort()
		return
	}
	c.Next()
}
