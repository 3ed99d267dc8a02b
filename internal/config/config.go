package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Version 是对外暴露的应用版本号。
const Version = "2.1.0-ckks-groth16"

// Config 描述了 QuantumProof 在启动阶段需要加载的核心配置。
type Config struct {
	Server   ServerConfig   `json:"server"`
	Pipeline PipelineConfig `json:"pipeline"`
	Storage  StorageConfig  `json:"storage"`
	Events   EventsConfig   `json:"events"`
	Web3     Web3Config     `json:"web3"`
	Runtime  RuntimeConfig  `json:"runtime"`
	Logging  LoggingConfig  `json:"logging"`
}

// ServerConfig 控制 API 服务的监听地址等参数。
type ServerConfig struct {
	Address string `json:"address"`
}

// PipelineConfig 描述验证型隐私计算管线的能力开关。
type PipelineConfig struct {
	DefaultScenario string       `json:"default_scenario"`
	FHE             FHEConfig    `json:"fhe"`
	Prover          ProverConfig `json:"prover"`
}

// FHEConfig 控制同态加密后端。Disabled 为 true 时所有请求走确定性回退路径。
type FHEConfig struct {
	Disabled bool `json:"disabled"`
}

// ProverConfig 描述外部证明工具链的位置与限制。
// 工具链通过 PATH 解析，三个产物文件缺一不可，检查在每次调用时重新执行。
type ProverConfig struct {
	Tool             string `json:"tool"`
	ArtifactsDir     string `json:"artifacts_dir"`
	TimeoutSeconds   int    `json:"timeout_seconds"`
	CircuitFile      string `json:"circuit_file"`
	ProvingKeyFile   string `json:"proving_key_file"`
	VerifyingKeyFile string `json:"verifying_key_file"`
}

// Timeout 返回单个外部进程调用允许的最长时间。
func (p ProverConfig) Timeout() time.Duration {
	if p.TimeoutSeconds <= 0 {
		return 30 * time.Second
	}
	return time.Duration(p.TimeoutSeconds) * time.Second
}

// StorageConfig 统一描述运行归档后端的连接信息。
type StorageConfig struct {
	RunArchive RunArchiveConfig `json:"run_archive"`
	Cache      CacheConfig      `json:"cache"`
}

// RunArchiveConfig 支持内存（JSONL 文件）与 MySQL 两种驱动。
type RunArchiveConfig struct {
	Driver                 string `json:"driver"`
	DSN                    string `json:"dsn"`
	MaxOpenConns           int    `json:"max_open_conns"`
	MaxIdleConns           int    `json:"max_idle_conns"`
	ConnMaxLifetimeSeconds int    `json:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int    `json:"conn_max_idle_time_seconds"`
}

// CacheConfig 描述最近运行摘要的 Redis 缓存，可选。
type CacheConfig struct {
	Driver   string `json:"driver"`
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Key      string `json:"key"`
	Window   int    `json:"window"`
}

// EventsConfig 描述运行完成事件的发布通道。
type EventsConfig struct {
	Driver   string         `json:"driver"`
	Redis    RedisEvents    `json:"redis"`
	RabbitMQ RabbitMQEvents `json:"rabbitmq"`
}

// RedisEvents 描述 Redis 事件流的连接参数。
type RedisEvents struct {
	Address  string `json:"address"`
	Password string `json:"password"`
	DB       int    `json:"db"`
	Stream   string `json:"stream"`
}

// RabbitMQEvents 描述 RabbitMQ 事件队列的连接参数。
type RabbitMQEvents struct {
	URL        string `json:"url"`
	Queue      string `json:"queue"`
	Durable    bool   `json:"durable"`
	AutoDelete bool   `json:"auto_delete"`
}

// Web3Config 包含访问区块链节点所需的配置，用于运行归档的链上时间锚点。
type Web3Config struct {
	Enabled      bool   `json:"enabled"`
	ChainsFile   string `json:"chains_file"`
	DefaultChain string `json:"default_chain"`
}

// RuntimeConfig 用于放置运行时的通用参数。
type RuntimeConfig struct {
	DataDir   string `json:"data_dir"`
	OutputDir string `json:"output_dir"`
}

// LoggingConfig 控制结构化日志与审计日志的输出。
type LoggingConfig struct {
	Level       string   `json:"level"`
	Format      string   `json:"format"`
	OutputPaths []string `json:"output_paths"`
	AuditPath   string   `json:"audit_path"`
	AuditSizeMB int      `json:"audit_size_mb"`
}

// Load 负责解析指定路径的 JSON 配置文件。
func Load(path string) (*Config, error) {
	if path == "" {
		return nil, errors.New("配置文件路径为空")
	}

	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("打开配置文件失败: %w", err)
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("读取配置文件失败: %w", err)
	}

	var cfg Config
	if err := json.Unmarshal(content, &cfg); err != nil {
		return nil, fmt.Errorf("解析配置失败: %w", err)
	}

	cfg.applyDefaults(filepath.Dir(path))

	return &cfg, nil
}

// Default 返回不依赖配置文件的默认配置，CLI 一次性运行时使用。
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults(".")
	return cfg
}

// applyDefaults 在用户未填写部分字段时设置合理的默认值。
func (c *Config) applyDefaults(baseDir string) {
	if c.Server.Address == "" {
		c.Server.Address = ":5001"
	}

	if c.Pipeline.DefaultScenario == "" {
		c.Pipeline.DefaultScenario = "private-loan-preapproval"
	}

	if c.Pipeline.Prover.Tool == "" {
		c.Pipeline.Prover.Tool = "zkloan"
	}
	if c.Pipeline.Prover.ArtifactsDir == "" {
		c.Pipeline.Prover.ArtifactsDir = filepath.Join(baseDir, "zk", "artifacts")
	} else if !filepath.IsAbs(c.Pipeline.Prover.ArtifactsDir) {
		c.Pipeline.Prover.ArtifactsDir = filepath.Join(baseDir, c.Pipeline.Prover.ArtifactsDir)
	}
	if c.Pipeline.Prover.CircuitFile == "" {
		c.Pipeline.Prover.CircuitFile = "loan_signal.r1cs"
	}
	if c.Pipeline.Prover.ProvingKeyFile == "" {
		c.Pipeline.Prover.ProvingKeyFile = "loan_signal.pk"
	}
	if c.Pipeline.Prover.VerifyingKeyFile == "" {
		c.Pipeline.Prover.VerifyingKeyFile = "loan_signal.vk"
	}

	if c.Storage.RunArchive.Driver == "" {
		c.Storage.RunArchive.Driver = "memory"
	}
	if c.Storage.Cache.Key == "" {
		c.Storage.Cache.Key = "quantumproof:runs"
	}
	if c.Storage.Cache.Window <= 0 {
		c.Storage.Cache.Window = 64
	}

	if c.Events.Driver == "" {
		c.Events.Driver = "memory"
	}
	if c.Events.Redis.Stream == "" {
		c.Events.Redis.Stream = "quantumproof:events"
	}
	if c.Events.RabbitMQ.Queue == "" {
		c.Events.RabbitMQ.Queue = "quantumproof.runs"
	}

	if c.Web3.ChainsFile != "" && !filepath.IsAbs(c.Web3.ChainsFile) {
		c.Web3.ChainsFile = filepath.Join(baseDir, c.Web3.ChainsFile)
	}

	if c.Runtime.DataDir == "" {
		c.Runtime.DataDir = filepath.Join(baseDir, "data")
	} else if !filepath.IsAbs(c.Runtime.DataDir) {
		c.Runtime.DataDir = filepath.Join(baseDir, c.Runtime.DataDir)
	}
	if c.Runtime.OutputDir == "" {
		c.Runtime.OutputDir = filepath.Join(baseDir, "outputs")
	} else if !filepath.IsAbs(c.Runtime.OutputDir) {
		c.Runtime.OutputDir = filepath.Join(baseDir, c.Runtime.OutputDir)
	}

	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Logging.Format == "" {
		c.Logging.Format = "json"
	}
}
