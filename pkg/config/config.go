package config

import (
	"encoding/json"
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"gopkg.in/yaml.v3"

	"github.com/betbot/swapx/dutchx/types"
	"github.com/betbot/swapx/pkg/logger"
)

// 默认值
const (
	DefaultRelayURL        = "http://127.0.0.1:8088"
	DefaultRelayTimeout    = 30 * time.Second
	DefaultMaxSignAttempts = 5
	DefaultJournalPath     = "data/orders.badger"
	DefaultRelaySimListen  = "127.0.0.1:8088"
	DefaultRelaySimDB      = "data/relay.db"
	DefaultDerivationPath  = "m/44'/60'/0'/0/0"
)

// SignerConfig 签名器配置
// 优先级：私钥 > 助记词 > 密钥库 > RPC 钱包
type SignerConfig struct {
	PrivateKey     string
	Mnemonic       string
	DerivationPath string
	RPCURL         string // 走 eth_signTypedData_v4 的钱包节点
	Account        string // 提交订单的账户；私钥/助记词模式下可省略
	SecretDB       string // Badger 密钥库路径
	SecretKey      string // 密钥库加密密钥（32 字节 hex/base64）
}

// RelayConfig relay 配置
type RelayConfig struct {
	URL     string
	Timeout time.Duration
}

// RelaySimConfig 本地 relay 模拟器配置
type RelaySimConfig struct {
	Listen string
	DBPath string
	Chains []types.Chain

	RateBurst     int     // 每个客户端 IP 的突发下单数，0 表示不限流
	RatePerSecond float64 // 每秒恢复的下单数
}

// Config 应用配置
type Config struct {
	Relay           RelayConfig
	ChainID         types.Chain
	MaxSignAttempts int
	Signer          SignerConfig
	Log             logger.Config
	JournalPath     string // 为空则不记录
	MetricsAddr     string // 为空则不启动 /debug/vars
	RelaySim        RelaySimConfig
}

// ConfigFile 配置文件结构（YAML/JSON）
type ConfigFile struct {
	Relay struct {
		URL            string `yaml:"url" json:"url"`
		TimeoutSeconds int    `yaml:"timeout_seconds" json:"timeout_seconds"`
	} `yaml:"relay" json:"relay"`
	ChainID         uint64 `yaml:"chain_id" json:"chain_id"`
	MaxSignAttempts int    `yaml:"max_sign_attempts" json:"max_sign_attempts"`
	Signer          struct {
		PrivateKey     string `yaml:"private_key" json:"private_key"`
		Mnemonic       string `yaml:"mnemonic" json:"mnemonic"`
		DerivationPath string `yaml:"derivation_path" json:"derivation_path"`
		RPCURL         string `yaml:"rpc_url" json:"rpc_url"`
		Account        string `yaml:"account" json:"account"`
		SecretDB       string `yaml:"secret_db" json:"secret_db"`
		SecretKey      string `yaml:"secret_key" json:"secret_key"`
	} `yaml:"signer" json:"signer"`
	Log         logger.Config `yaml:"log" json:"log"`
	JournalPath string        `yaml:"journal_path" json:"journal_path"`
	MetricsAddr string        `yaml:"metrics_addr" json:"metrics_addr"`
	RelaySim    struct {
		Listen string   `yaml:"listen" json:"listen"`
		DBPath string   `yaml:"db_path" json:"db_path"`
		Chains        []uint64 `yaml:"chains" json:"chains"`
		RateBurst     int      `yaml:"rate_burst" json:"rate_burst"`
		RatePerSecond float64  `yaml:"rate_per_second" json:"rate_per_second"`
	} `yaml:"relay_sim" json:"relay_sim"`
}

// LoadFromFile 加载配置
// 优先级：环境变量（SWAPX_*）> 配置文件 > 默认值；filePath 为空时只读环境变量
func LoadFromFile(filePath string) (*Config, error) {
	cf := &ConfigFile{}
	if filePath != "" {
		var err error
		cf, err = loadConfigFile(filePath)
		if err != nil {
			return nil, fmt.Errorf("加载配置文件失败 %s: %w", filePath, err)
		}
	}

	timeout := DefaultRelayTimeout
	if cf.Relay.TimeoutSeconds > 0 {
		timeout = time.Duration(cf.Relay.TimeoutSeconds) * time.Second
	}
	if secs := parseIntEnv("SWAPX_RELAY_TIMEOUT_SECONDS", 0); secs > 0 {
		timeout = time.Duration(secs) * time.Second
	}

	chainID := cf.ChainID
	if chainID == 0 {
		chainID = uint64(types.ChainMainnet)
	}
	chainID = parseUintEnv("SWAPX_CHAIN_ID", chainID)

	simChains := make([]types.Chain, 0, len(cf.RelaySim.Chains))
	for _, c := range cf.RelaySim.Chains {
		simChains = append(simChains, types.Chain(c))
	}
	if env := getEnv("SWAPX_RELAYSIM_CHAINS", ""); env != "" {
		parsed, err := parseChainList(env)
		if err != nil {
			return nil, err
		}
		simChains = parsed
	}
	if len(simChains) == 0 {
		simChains = []types.Chain{types.Chain(chainID)}
	}

	ratePerSecond := cf.RelaySim.RatePerSecond
	if env := getEnv("SWAPX_RELAYSIM_RATE_PER_SECOND", ""); env != "" {
		v, err := strconv.ParseFloat(env, 64)
		if err != nil || v < 0 {
			return nil, fmt.Errorf("invalid SWAPX_RELAYSIM_RATE_PER_SECOND %q", env)
		}
		ratePerSecond = v
	}

	logCfg := cf.Log
	logCfg.Level = getEnv("SWAPX_LOG_LEVEL", firstNonEmpty(logCfg.Level, "info"))
	logCfg.OutputFile = getEnv("SWAPX_LOG_FILE", logCfg.OutputFile)
	logCfg.Format = getEnv("SWAPX_LOG_FORMAT", logCfg.Format)
	if logCfg.MaxSize == 0 {
		logCfg.MaxSize = 100
	}

	cfg := &Config{
		Relay: RelayConfig{
			URL:     getEnv("SWAPX_RELAY_URL", firstNonEmpty(cf.Relay.URL, DefaultRelayURL)),
			Timeout: timeout,
		},
		ChainID:         types.Chain(chainID),
		MaxSignAttempts: parseIntEnv("SWAPX_MAX_SIGN_ATTEMPTS", firstPositive(cf.MaxSignAttempts, DefaultMaxSignAttempts)),
		Signer: SignerConfig{
			PrivateKey:     getEnv("SWAPX_PRIVATE_KEY", cf.Signer.PrivateKey),
			Mnemonic:       getEnv("SWAPX_MNEMONIC", cf.Signer.Mnemonic),
			DerivationPath: getEnv("SWAPX_DERIVATION_PATH", firstNonEmpty(cf.Signer.DerivationPath, DefaultDerivationPath)),
			RPCURL:         getEnv("SWAPX_RPC_URL", cf.Signer.RPCURL),
			Account:        getEnv("SWAPX_ACCOUNT", cf.Signer.Account),
			SecretDB:       getEnv("SWAPX_SECRET_DB", cf.Signer.SecretDB),
			SecretKey:      getEnv("SWAPX_SECRET_KEY", cf.Signer.SecretKey),
		},
		Log:         logCfg,
		JournalPath: getEnv("SWAPX_JOURNAL_PATH", firstNonEmpty(cf.JournalPath, DefaultJournalPath)),
		MetricsAddr: getEnv("SWAPX_METRICS_ADDR", cf.MetricsAddr),
		RelaySim: RelaySimConfig{
			Listen: getEnv("SWAPX_RELAYSIM_LISTEN", firstNonEmpty(cf.RelaySim.Listen, DefaultRelaySimListen)),
			DBPath: getEnv("SWAPX_RELAYSIM_DB", firstNonEmpty(cf.RelaySim.DBPath, DefaultRelaySimDB)),
			Chains: simChains,

			RateBurst:     parseIntEnv("SWAPX_RELAYSIM_RATE_BURST", cf.RelaySim.RateBurst),
			RatePerSecond: ratePerSecond,
		},
	}
	return cfg, nil
}

// loadConfigFile 加载配置文件（支持 YAML 和 JSON）
func loadConfigFile(filePath string) (*ConfigFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var configFile ConfigFile
	switch ext := strings.ToLower(filepath.Ext(filePath)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 YAML 配置文件失败: %w", err)
		}
	case ".json":
		if err := json.Unmarshal(data, &configFile); err != nil {
			return nil, fmt.Errorf("解析 JSON 配置文件失败: %w", err)
		}
	default:
		return nil, fmt.Errorf("不支持的配置文件格式: %s (支持 .yaml, .yml, .json)", ext)
	}
	return &configFile, nil
}

// Validate 验证提交订单所需的配置
func (c *Config) Validate() error {
	u, err := url.Parse(c.Relay.URL)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return fmt.Errorf("SWAPX_RELAY_URL 无效: %q", c.Relay.URL)
	}
	if _, err := types.GetContractConfig(c.ChainID); err != nil {
		return fmt.Errorf("SWAPX_CHAIN_ID 无效: %w", err)
	}
	if c.MaxSignAttempts <= 0 {
		return fmt.Errorf("SWAPX_MAX_SIGN_ATTEMPTS 必须大于 0")
	}
	if c.Relay.Timeout <= 0 {
		return fmt.Errorf("SWAPX_RELAY_TIMEOUT_SECONDS 必须大于 0")
	}
	return c.Signer.Validate()
}

// Validate 检查至少配置了一种签名方式
func (s SignerConfig) Validate() error {
	if s.Account != "" && !common.IsHexAddress(s.Account) {
		return fmt.Errorf("SWAPX_ACCOUNT 不是有效地址: %s", s.Account)
	}
	switch s.Mode() {
	case SignerModeNone:
		return fmt.Errorf("未配置签名方式：需要 SWAPX_PRIVATE_KEY、SWAPX_MNEMONIC、SWAPX_SECRET_DB 或 SWAPX_RPC_URL")
	case SignerModeRPC:
		if s.Account == "" {
			return fmt.Errorf("RPC 签名模式需要 SWAPX_ACCOUNT")
		}
	case SignerModeSecretStore:
		if s.SecretKey == "" {
			return fmt.Errorf("密钥库模式需要 SWAPX_SECRET_KEY")
		}
	}
	return nil
}

// SignerMode 签名方式
type SignerMode string

const (
	SignerModeNone        SignerMode = ""
	SignerModePrivateKey  SignerMode = "private_key"
	SignerModeMnemonic    SignerMode = "mnemonic"
	SignerModeSecretStore SignerMode = "secret_store"
	SignerModeRPC         SignerMode = "rpc"
)

func (s SignerConfig) Mode() SignerMode {
	switch {
	case strings.TrimSpace(s.PrivateKey) != "":
		return SignerModePrivateKey
	case strings.TrimSpace(s.Mnemonic) != "":
		return SignerModeMnemonic
	case strings.TrimSpace(s.SecretDB) != "":
		return SignerModeSecretStore
	case strings.TrimSpace(s.RPCURL) != "":
		return SignerModeRPC
	default:
		return SignerModeNone
	}
}

func parseChainList(str string) ([]types.Chain, error) {
	var out []types.Chain
	for _, part := range strings.Split(str, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		v, err := strconv.ParseUint(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("SWAPX_RELAYSIM_CHAINS 无效: %q", part)
		}
		out = append(out, types.Chain(v))
	}
	return out, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}

// getEnv 获取环境变量，如果不存在则返回默认值
func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

// parseIntEnv 解析整数环境变量
func parseIntEnv(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func parseUintEnv(key string, defaultValue uint64) uint64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseUint(value, 10, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}
