package pipeline

import (
	"context"
	"log/slog"
	"time"

	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/fhe"
	"QuantumProof-Ops/internal/fingerprint"
	"QuantumProof-Ops/internal/observability/alerting"
	"QuantumProof-Ops/internal/signal"
	"QuantumProof-Ops/internal/web3"
	"QuantumProof-Ops/internal/zkproof"
	"QuantumProof-Ops/pkg/logger"
)

// ComputeProvider 是加密计算阶段的抽象，实现永远返回结果（真实或回退）。
type ComputeProvider interface {
	Compute(sensitive, scenario string, forceFallback bool) fhe.Outcome
}

// ProofProvider 是证明阶段的抽象，Ready 在每次调用时重新检查能力。
type ProofProvider interface {
	Ready() bool
	Build(ctx context.Context, inputFingerprint, scenario string, inputs signal.CircuitInputs) zkproof.Outcome
}

// RunArchive 负责持久化通过校验门的运行记录。
type RunArchive interface {
	SaveRun(ctx context.Context, result *RunResult) error
}

// EventPublisher 在运行完成后对外广播事件。
type EventPublisher interface {
	PublishRunCompleted(ctx context.Context, result *RunResult) error
}

// ChainAttestor 提供可选的链上时间锚点。
type ChainAttestor interface {
	FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error)
}

// Options 汇总编排器的可选依赖，任意字段为 nil 时跳过对应步骤。
type Options struct {
	Archive  RunArchive
	Events   EventPublisher
	Attestor ChainAttestor
	Alerts   alerting.Dispatcher
}

// Orchestrator 按固定顺序驱动一次运行：
// 指纹 -> 加密计算 -> 电路输入推导 -> 证明 -> 校验门。
// 阶段之间严格串行，运行之间不共享可变状态。
type Orchestrator struct {
	compute  ComputeProvider
	proofs   ProofProvider
	archive  RunArchive
	events   EventPublisher
	attestor ChainAttestor
	alerts   alerting.Dispatcher
}

// NewOrchestrator 构造编排器。compute 和 proofs 必须提供。
func NewOrchestrator(compute ComputeProvider, proofs ProofProvider, opts Options) *Orchestrator {
	return &Orchestrator{
		compute:  compute,
		proofs:   proofs,
		archive:  opts.Archive,
		events:   opts.Events,
		attestor: opts.Attestor,
		alerts:   opts.Alerts,
	}
}

// RunOnce 执行一次完整管线并返回终态运行记录。
// 唯一的失败出口是校验门：证明验证不通过时整个结果被丢弃，
// 返回 ErrVerificationFailed，不落盘也不发事件。
// 其余阶段的失败都已在各自组件内部被回退路径吸收。
func (o *Orchestrator) RunOnce(ctx context.Context, sensitive, scenario string, forceFallback bool) (*RunResult, error) {
	started := time.Now()
	timestamp := started.UTC().Format(time.RFC3339Nano)
	runID := "run-" + fingerprint.SHA3Hex(timestamp)[:10]
	log := logger.Named("pipeline").With(slog.String("run_id", runID), slog.String("scenario", scenario))

	inputFingerprint := fingerprint.Commit(sensitive)

	compute := o.compute.Compute(sensitive, scenario, forceFallback)
	inputs := signal.Derive(sensitive, scenario)

	realReady := o.proofs.Ready()
	proof := o.proofs.Build(ctx, inputFingerprint, scenario, inputs)

	fheParams := make(map[string]any, len(compute.Parameters)+3)
	for k, v := range compute.Parameters {
		fheParams[k] = v
	}
	fheParams["real_zk_ready"] = realReady
	fheParams["zk_mode"] = string(proof.Mode)
	if proof.Detail != "" {
		fheParams["zk_detail"] = proof.Detail
	}

	result := &RunResult{
		RunID:                runID,
		TimestampUTC:         timestamp,
		Scenario:             scenario,
		ComputeResult:        compute.Result,
		RiskContext:          "Quantum-resistant FHE + verifiable proof layer",
		TrustModelComparison: "Cryptographic verification vs traditional trust",
		Benchmark: BenchmarkMetrics{
			RuntimeMS:         time.Since(started).Milliseconds(),
			ComputeMode:       string(compute.Mode),
			EncryptionTimeMS:  compute.EncryptionTime.Milliseconds(),
			ComputationTimeMS: compute.ComputeTime.Milliseconds(),
			ProofTimeMS:       proof.Elapsed.Milliseconds(),
		},
		Proof: ProofArtifact{
			ProofHash:            proof.ProofHash,
			VerificationResult:   proof.Verified,
			CircuitVersion:       proof.CircuitVersion,
			InputFingerprint:     inputFingerprint,
			CryptoPrimitivesUsed: proof.Primitives,
			FHEParameters:        fheParams,
		},
	}

	if !proof.Verified {
		logger.Audit().Error("运行在校验门被拒绝",
			slog.String("run_id", runID),
			slog.String("scenario", scenario),
			slog.String("input_fingerprint", inputFingerprint),
			slog.String("proof_hash", proof.ProofHash),
			slog.String("zk_mode", string(proof.Mode)),
		)
		if o.alerts != nil && xerrors.ShouldAlert(ErrVerificationFailed) {
			event := alerting.FromError(ErrVerificationFailed, runID, scenario, inputFingerprint)
			event.Metadata = map[string]string{"proof_hash": proof.ProofHash, "zk_mode": string(proof.Mode)}
			if err := o.alerts.Notify(ctx, event); err != nil {
				log.Warn("告警分发失败", slog.Any("error", err))
			}
		}
		return nil, ErrVerificationFailed
	}

	if o.attestor != nil {
		if snapshot, err := o.attestor.FetchChainSnapshot(ctx); err != nil {
			log.Warn("链上锚点暂不可用", slog.Any("error", err))
		} else {
			result.ChainAnchor = &snapshot
		}
	}

	// 归档与事件都是尽力而为，失败只记日志，不影响返回结果。
	if o.archive != nil {
		if err := o.archive.SaveRun(ctx, result); err != nil {
			log.Warn("归档运行记录失败", slog.Any("error", err))
		}
	}
	if o.events != nil {
		if err := o.events.PublishRunCompleted(ctx, result); err != nil {
			log.Warn("发布运行事件失败", slog.Any("error", err))
		}
	}

	logger.Audit().Info("运行完成",
		slog.String("run_id", runID),
		slog.String("scenario", scenario),
		slog.String("input_fingerprint", inputFingerprint),
		slog.String("proof_hash", proof.ProofHash),
		slog.String("compute_mode", string(compute.Mode)),
		slog.String("zk_mode", string(proof.Mode)),
		slog.Int64("runtime_ms", result.Benchmark.RuntimeMS),
	)

	return result, nil
}
