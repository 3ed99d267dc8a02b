package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"QuantumProof-Ops/internal/api"
	"QuantumProof-Ops/internal/config"
	"QuantumProof-Ops/internal/events"
	"QuantumProof-Ops/internal/fhe"
	"QuantumProof-Ops/internal/pipeline"
	"QuantumProof-Ops/internal/storage/mysql"
	"QuantumProof-Ops/internal/storage/redis"
	"QuantumProof-Ops/internal/web3/provider"
	"QuantumProof-Ops/internal/zkproof"
	"QuantumProof-Ops/pkg/logger"
)

// main 是 QuantumProof 守护进程的入口。
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx); err != nil {
		log.Fatalf("quantumproofd 运行失败: %v", err)
	}
}

func run(ctx context.Context) error {
	configPath := os.Getenv("QUANTUMPROOF_CONFIG")
	if configPath == "" {
		configPath = filepath.Join("configs", "quantumproof.json")
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	if err := logger.Init(logger.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		OutputPaths: cfg.Logging.OutputPaths,
		Audit: logger.AuditConfig{
			Enabled:   true,
			Path:      cfg.Logging.AuditPath,
			MaxSizeMB: cfg.Logging.AuditSizeMB,
		},
	}); err != nil {
		return err
	}
	defer func() {
		_ = logger.Sync()
	}()

	if err := os.MkdirAll(cfg.Runtime.DataDir, 0o755); err != nil {
		return err
	}

	// 运行归档：memory 驱动落 JSONL，mysql 驱动走连接池加迁移。
	var runRepo mysql.RunRepository
	switch cfg.Storage.RunArchive.Driver {
	case "", "memory":
		repo, err := mysql.NewMemoryRunRepository(cfg.Runtime.DataDir)
		if err != nil {
			return err
		}
		runRepo = repo
	case "mysql":
		repo, err := mysql.NewSQLRunRepository(ctx, mysql.Config{
			DSN:             cfg.Storage.RunArchive.DSN,
			MaxOpenConns:    cfg.Storage.RunArchive.MaxOpenConns,
			MaxIdleConns:    cfg.Storage.RunArchive.MaxIdleConns,
			ConnMaxLifetime: time.Duration(cfg.Storage.RunArchive.ConnMaxLifetimeSeconds) * time.Second,
			ConnMaxIdleTime: time.Duration(cfg.Storage.RunArchive.ConnMaxIdleTimeSeconds) * time.Second,
		})
		if err != nil {
			return err
		}
		runRepo = repo
	default:
		return fmt.Errorf("未知的归档驱动: %s", cfg.Storage.RunArchive.Driver)
	}
	defer runRepo.Close()

	var cache api.RecentCache
	if cfg.Storage.Cache.Driver == "redis" {
		runCache, err := redis.NewRunCache(ctx, redis.Config{
			Address:  cfg.Storage.Cache.Address,
			Password: cfg.Storage.Cache.Password,
			DB:       cfg.Storage.Cache.DB,
			Key:      cfg.Storage.Cache.Key,
			Window:   cfg.Storage.Cache.Window,
		})
		if err != nil {
			return err
		}
		defer runCache.Close()
		cache = runCache
	}

	publisher, err := events.New(ctx, cfg.Events)
	if err != nil {
		return err
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.L().Warn("关闭事件发布器失败", slog.Any("error", err))
		}
	}()

	var attestor pipeline.ChainAttestor
	if cfg.Web3.Enabled {
		chainRegistry, err := provider.NewRegistry(ctx, cfg.Web3)
		if err != nil {
			return err
		}
		defer chainRegistry.Close()

		attestor, err = chainRegistry.DefaultClient()
		if err != nil {
			return err
		}
	}

	computeProvider := fhe.NewProvider(cfg.Pipeline.FHE.Disabled)
	toolchain := zkproof.NewToolchain(zkproof.ToolchainConfig{
		Tool:             cfg.Pipeline.Prover.Tool,
		CircuitPath:      filepath.Join(cfg.Pipeline.Prover.ArtifactsDir, cfg.Pipeline.Prover.CircuitFile),
		ProvingKeyPath:   filepath.Join(cfg.Pipeline.Prover.ArtifactsDir, cfg.Pipeline.Prover.ProvingKeyFile),
		VerifyingKeyPath: filepath.Join(cfg.Pipeline.Prover.ArtifactsDir, cfg.Pipeline.Prover.VerifyingKeyFile),
		Timeout:          cfg.Pipeline.Prover.Timeout(),
	})
	proofProvider := zkproof.NewProvider(toolchain)

	orchestrator := pipeline.NewOrchestrator(computeProvider, proofProvider, pipeline.Options{
		Archive:  runRepo,
		Events:   publisher,
		Attestor: attestor,
	})

	logger.L().Info("quantumproofd 启动",
		slog.String("version", config.Version),
		slog.String("address", cfg.Server.Address),
		slog.Bool("fhe_enabled", computeProvider.Enabled()),
		slog.Bool("real_zk_ready", proofProvider.Ready()),
		slog.String("archive_driver", cfg.Storage.RunArchive.Driver),
		slog.String("events_driver", cfg.Events.Driver),
	)

	server := api.NewServer(cfg.Server.Address, orchestrator, runRepo, cache, api.Capabilities{
		FHEEnabled:  computeProvider.Enabled,
		RealZKReady: proofProvider.Ready,
	}, cfg.Pipeline.DefaultScenario)

	if err := server.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
