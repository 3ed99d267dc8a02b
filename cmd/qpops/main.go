package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"QuantumProof-Ops/internal/config"
	"QuantumProof-Ops/internal/export"
	"QuantumProof-Ops/internal/fhe"
	"QuantumProof-Ops/internal/pipeline"
	"QuantumProof-Ops/internal/zkproof"
	"QuantumProof-Ops/pkg/logger"
)

// main 是一次性运行的命令行入口：执行一条管线并导出报告。
func main() {
	input := flag.String("input", "", "敏感输入串（必填）")
	scenario := flag.String("scenario", "", "计算场景")
	fallback := flag.Bool("fallback", false, "强制跳过加密路径")
	outputDir := flag.String("output-dir", "", "报告输出目录")
	configPath := flag.String("config", "", "配置文件路径（可选）")
	flag.Parse()

	if *input == "" {
		fmt.Fprintln(os.Stderr, "qpops: -input 不能为空")
		flag.Usage()
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, *input, *scenario, *fallback, *outputDir, *configPath); err != nil {
		fmt.Fprintf(os.Stderr, "qpops 运行失败: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, input, scenario string, fallback bool, outputDir, configPath string) error {
	var cfg *config.Config
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	} else {
		cfg = config.Default()
	}

	if err := logger.Init(logger.Config{
		Level:  "warn",
		Format: cfg.Logging.Format,
	}); err != nil {
		return err
	}

	if scenario == "" {
		scenario = cfg.Pipeline.DefaultScenario
	}
	if outputDir == "" {
		outputDir = cfg.Runtime.OutputDir
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

	fmt.Printf("QuantumProof Ops v%s\n", config.Version)
	fmt.Printf("FHE: CKKS (Lattigo v4)\n")
	fmt.Printf("FHE Enabled: %v\n", computeProvider.Enabled())
	fmt.Printf("Real ZK Ready (%s): %v\n\n", cfg.Pipeline.Prover.Tool, proofProvider.Ready())

	orchestrator := pipeline.NewOrchestrator(computeProvider, proofProvider, pipeline.Options{})

	result, err := orchestrator.RunOnce(ctx, input, scenario, fallback)
	if err != nil {
		return err
	}

	jsonPath, err := export.WriteJSON(result, outputDir)
	if err != nil {
		return err
	}
	mdPath, err := export.WriteMarkdown(result, outputDir)
	if err != nil {
		return err
	}

	fmt.Println("Computation complete")
	fmt.Printf("   Run ID: %s\n", result.RunID)
	fmt.Printf("   Verification: %v\n", result.Proof.VerificationResult)
	fmt.Printf("   Runtime: %dms\n", result.Benchmark.RuntimeMS)
	fmt.Printf("   Mode: %s\n", result.Benchmark.ComputeMode)
	fmt.Printf("   FHE: %v\n", result.ComputeResult["fhe_enabled"])

	fmt.Println("\nExports:")
	fmt.Printf("   JSON: %s\n", jsonPath)
	fmt.Printf("   Markdown: %s\n", mdPath)

	fmt.Println("\nCrypto Primitives:")
	for _, primitive := range result.Proof.CryptoPrimitivesUsed {
		fmt.Printf("   - %s\n", primitive)
	}
	return nil
}
