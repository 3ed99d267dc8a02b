package fhe

import (
	"log/slog"
	"strconv"
	"time"

	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/fingerprint"
	"QuantumProof-Ops/pkg/logger"
)

// 加密计算阶段的错误码。两者都被回退路径吸收，
// 只出现在日志里，不会让一次运行失败。
const (
	CodeBackendInitFailed xerrors.Code = "BACKEND_INIT_FAILED"
	CodeComputeFailed     xerrors.Code = "COMPUTE_FAILED"
)

func init() {
	xerrors.Register(CodeBackendInitFailed, xerrors.Attributes{
		Message:   "encrypted compute backend failed to initialize",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
	xerrors.Register(CodeComputeFailed, xerrors.Attributes{
		Message:   "encrypted compute failed",
		Severity:  xerrors.SeverityWarning,
		Retryable: true,
		Alert:     false,
	})
}

// Mode 标识一次计算实际走过的代码路径。
type Mode string

const (
	// ModeFHE 表示加密计算路径真实执行且未回退。
	ModeFHE Mode = "fhe-seal-homomorphic-encryption"
	// ModeFallbackDisabled 表示后端被禁用（或被调用方强制回退）。
	ModeFallbackDisabled Mode = "fallback-no-fhe"
	// ModeFallbackError 表示后端初始化或计算出错后回退。
	ModeFallbackError Mode = "fallback-error"
)

// Outcome 是带标签的计算结果变体：真实路径或回退路径之一。
// Result 中所有字段都可以安全导出，不包含敏感输入。
type Outcome struct {
	Mode           Mode
	Result         map[string]any
	Parameters     map[string]any
	EncryptionTime time.Duration
	ComputeTime    time.Duration
}

// Provider 是加密计算的能力适配器。后端出错永远不向上传播：
// 调用方拿到的要么是真实结果，要么是确定性回退结果。
type Provider struct {
	disabled bool
}

// NewProvider 构造加密计算提供者。disabled 为 true 时恒走回退路径。
func NewProvider(disabled bool) *Provider {
	return &Provider{disabled: disabled}
}

// Enabled 报告加密计算路径是否开启。
func (p *Provider) Enabled() bool {
	return p != nil && !p.disabled
}

// Compute 对敏感输入执行有界风险信号计算。
// forceFallback 允许单次请求跳过加密路径（演示与基准对比用）。
func (p *Provider) Compute(sensitive, scenario string, forceFallback bool) Outcome {
	if p.disabled || forceFallback {
		return fallbackOutcome(sensitive, scenario, ModeFallbackDisabled, "")
	}

	// 密钥生成计入加密耗时。
	encStart := time.Now()
	engine, err := NewEngine()
	if err != nil {
		wrapped := xerrors.Wrap(CodeBackendInitFailed, err, "")
		logger.L().Warn("FHE 后端初始化失败，走确定性回退", slog.Any("error", wrapped))
		return fallbackOutcome(sensitive, scenario, ModeFallbackError, err.Error())
	}
	encryptionTime := time.Since(encStart)

	// 从输入指纹派生信用分等级值，范围 [300, 850]。
	numericValue := float64(300 + hexPrefix(fingerprint.SHA3Hex(sensitive), 8)%551)

	riskScore, computeTime, err := engine.EncryptAndCompute(numericValue)
	if err != nil {
		wrapped := xerrors.Wrap(CodeComputeFailed, err, "")
		logger.L().Warn("FHE 密文计算失败，走确定性回退", slog.Any("error", wrapped))
		return fallbackOutcome(sensitive, scenario, ModeFallbackError, err.Error())
	}

	return Outcome{
		Mode: ModeFHE,
		Result: map[string]any{
			"risk_reduction_percent":       int(riskScore),
			"performance_overhead_percent": 5000,
			"recommended_rollout":          "phased",
			"fhe_enabled":                  true,
			"fhe_scheme":                   "CKKS (Lattigo)",
		},
		Parameters:     engine.Parameters(),
		EncryptionTime: encryptionTime,
		ComputeTime:    computeTime,
	}
}

// fallbackOutcome 构造确定性回退结果。detail 只携带后端错误描述，
// 绝不包含原始敏感输入。
func fallbackOutcome(sensitive, scenario string, mode Mode, detail string) Outcome {
	numericSignal := hexPrefix(fingerprint.SHA3Hex(sensitive+scenario), 8) % 100

	result := map[string]any{
		"risk_reduction_percent":       int(20 + numericSignal%61),
		"performance_overhead_percent": 100,
		"recommended_rollout":          "phased",
		"fhe_enabled":                  false,
	}
	if detail != "" {
		result["error"] = detail
	}

	return Outcome{
		Mode:       mode,
		Result:     result,
		Parameters: map[string]any{"enabled": false},
	}
}

func hexPrefix(digest string, n int) uint64 {
	if n > len(digest) {
		n = len(digest)
	}
	value, err := strconv.ParseUint(digest[:n], 16, 64)
	if err != nil {
		return 0
	}
	return value
}
