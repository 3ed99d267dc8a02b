package pipeline

import (
	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/web3"
)

// BenchmarkMetrics 记录一次运行各阶段的耗时与实际执行的计算路径。
type BenchmarkMetrics struct {
	RuntimeMS         int64  `json:"runtime_ms"`
	ComputeMode       string `json:"compute_mode"`
	EncryptionTimeMS  int64  `json:"encryption_time_ms"`
	ComputationTimeMS int64  `json:"computation_time_ms"`
	ProofTimeMS       int64  `json:"proof_time_ms"`
}

// ProofArtifact 是运行的可验证证明产物。
// InputFingerprint 必须等于本次运行的输入指纹。
type ProofArtifact struct {
	ProofHash            string         `json:"proof_hash"`
	VerificationResult   bool           `json:"verification_result"`
	CircuitVersion       string         `json:"circuit_version"`
	InputFingerprint     string         `json:"input_fingerprint"`
	CryptoPrimitivesUsed []string       `json:"crypto_primitives_used"`
	FHEParameters        map[string]any `json:"fhe_parameters"`
}

// RunResult 是一次运行的终态聚合，构造后不再修改，
// 所有权整体移交给调用方。任何字段都不包含原始敏感输入。
type RunResult struct {
	RunID                string           `json:"run_id"`
	TimestampUTC         string           `json:"timestamp_utc"`
	Scenario             string           `json:"scenario"`
	ComputeResult        map[string]any   `json:"compute_result"`
	RiskContext          string           `json:"risk_context"`
	TrustModelComparison string           `json:"trust_model_comparison"`
	Benchmark            BenchmarkMetrics `json:"benchmark"`
	Proof                ProofArtifact    `json:"proof"`

	// ChainAnchor 是可选的链上时间锚点，链上下文未启用或查询失败时为 nil。
	ChainAnchor *web3.ChainSnapshot `json:"chain_anchor,omitempty"`
}

// Clone 返回运行记录的深拷贝。记录一经归档不再变化，
// 任何展示层加工（决策合并、安全模式放大）都必须作用在拷贝上。
func (r *RunResult) Clone() *RunResult {
	if r == nil {
		return nil
	}
	copied := *r
	copied.ComputeResult = cloneValues(r.ComputeResult)
	copied.Proof.FHEParameters = cloneValues(r.Proof.FHEParameters)
	copied.Proof.CryptoPrimitivesUsed = append([]string(nil), r.Proof.CryptoPrimitivesUsed...)
	if r.ChainAnchor != nil {
		anchor := *r.ChainAnchor
		copied.ChainAnchor = &anchor
	}
	return &copied
}

func cloneValues(src map[string]any) map[string]any {
	if src == nil {
		return nil
	}
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = v
	}
	return dst
}

// CodeVerificationFailed 是管线唯一向上传播的错误码，
// 其余阶段的失败都在各自组件内部被回退路径吸收。
const CodeVerificationFailed xerrors.Code = "VERIFICATION_FAILED"

// ErrVerificationFailed 是管线唯一的致命错误：
// 证明产物验证失败时整个 RunResult 被丢弃，不返回也不落盘。
var ErrVerificationFailed = xerrors.New(CodeVerificationFailed, "proof verification failed")

func init() {
	xerrors.Register(CodeVerificationFailed, xerrors.Attributes{
		Message:   "proof verification failed",
		Severity:  xerrors.SeverityCritical,
		Retryable: false,
		Alert:     true,
	})
}
