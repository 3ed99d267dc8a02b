package zkproof

import (
	"context"
	"log/slog"
	"time"

	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/signal"
	"QuantumProof-Ops/internal/zkproof/circuit"
	"QuantumProof-Ops/pkg/logger"
)

// CodeProverUnavailable 标记真实证明工具链的单次失败。
// 它被模拟回退吸收，只出现在日志里，不会让一次运行失败。
const CodeProverUnavailable xerrors.Code = "PROVER_UNAVAILABLE"

func init() {
	xerrors.Register(CodeProverUnavailable, xerrors.Attributes{
		Message:   "real prover unavailable",
		Severity:  xerrors.SeverityInfo,
		Retryable: true,
		Alert:     false,
	})
}

// Mode 标识证明产物来自真实工具链还是模拟路径。
type Mode string

const (
	ModeReal      Mode = "real-groth16"
	ModeSimulated Mode = "simulated-fallback"
)

// Outcome 是带标签的证明结果变体。
type Outcome struct {
	Mode           Mode
	ProofHash      string
	Verified       bool
	CircuitVersion string
	Primitives     []string
	Detail         string
	Elapsed        time.Duration
}

// Provider 按调用时的能力状态选择真实或模拟证明路径。
type Provider struct {
	toolchain *Toolchain
}

// NewProvider 构造证明提供者。
func NewProvider(toolchain *Toolchain) *Provider {
	return &Provider{toolchain: toolchain}
}

// Ready 报告真实证明模式此刻是否可用。
func (p *Provider) Ready() bool {
	return p.toolchain != nil && p.toolchain.Ready()
}

// Build 为当前运行构造证明结果。真实模式的任何失败（缺产物、
// 非零退出、超时）都只意味着本次调用降级到模拟路径，不会让运行失败。
func (p *Provider) Build(ctx context.Context, inputFingerprint, scenario string, inputs signal.CircuitInputs) Outcome {
	start := time.Now()

	if p.Ready() {
		proofHash, verified, detail, err := p.toolchain.Prove(ctx, inputs)
		if err == nil {
			return Outcome{
				Mode:           ModeReal,
				ProofHash:      proofHash,
				Verified:       verified,
				CircuitVersion: circuit.Version,
				Primitives: []string{
					"FHE: CKKS (Lattigo v4)",
					"Groth16 (gnark)",
					"SHA3-256 (quantum-resistant)",
				},
				Detail:  detail,
				Elapsed: time.Since(start),
			}
		}
		logger.L().Warn("真实证明工具链本次调用失败，降级到模拟路径",
			slog.Any("error", xerrors.Wrap(CodeProverUnavailable, err, "")))
	}

	proofHash, verified := simulate(inputFingerprint, scenario)
	return Outcome{
		Mode:           ModeSimulated,
		ProofHash:      proofHash,
		Verified:       verified,
		CircuitVersion: SimulatedCircuitVersion,
		Primitives: []string{
			"FHE: CKKS (Lattigo v4)",
			"Verifiable computation layer (Groth16-compatible architecture)",
			"SHA3-256 (quantum-resistant)",
		},
		Detail:  "install the prover toolchain and zk artifacts to enable real Groth16",
		Elapsed: time.Since(start),
	}
}
