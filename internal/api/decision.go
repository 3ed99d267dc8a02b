package api

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"QuantumProof-Ops/internal/pipeline"
)

// validateLoanProfile 校验贷款画像的取值范围，返回错误描述。
func validateLoanProfile(profile *loanProfile) (string, bool) {
	if profile.CreditScore == nil || profile.DebtToIncome == nil || profile.AnnualIncome == nil {
		return "loanProfile fields must be numeric", false
	}
	credit := *profile.CreditScore
	dti := *profile.DebtToIncome
	income := *profile.AnnualIncome

	if credit < 300 || credit > 850 {
		return "creditScore must be between 300 and 850", false
	}
	if dti < 0 || dti > 100 {
		return "debtToIncome must be between 0 and 100", false
	}
	if income <= 0 {
		return "annualIncome must be greater than 0", false
	}
	return "", true
}

// applyPreapprovalDecision 在计算结果上叠加私有预批决策信号。
func applyPreapprovalDecision(result *pipeline.RunResult, creditScore int, debtToIncome float64) {
	risk := 0
	switch v := result.ComputeResult["risk_reduction_percent"].(type) {
	case int:
		risk = v
	case float64:
		risk = int(v)
	}

	var decision, reason string
	switch {
	case creditScore >= 720 && debtToIncome <= 35 && risk <= 45:
		decision = "approve"
		reason = "Strong credit + healthy debt-to-income profile"
	case creditScore >= 640 && debtToIncome <= 45 && risk <= 70:
		decision = "review"
		reason = "Borderline profile; manual review recommended"
	default:
		decision = "decline"
		reason = "Risk profile is above current pre-approval threshold"
	}

	result.ComputeResult["preapproval_decision"] = decision
	result.ComputeResult["decision_reason"] = reason
	result.ComputeResult["privacy_note"] = "Decision generated from privacy-preserving computation. Raw credentials are not persisted."
	result.ComputeResult["model"] = "private-loan-preapproval-v1"
}

// applySecurityModeEffects 按自适应防御档位调整输出指标。
func applySecurityModeEffects(result *pipeline.RunResult, securityMode string) {
	mode := strings.ToUpper(securityMode)
	if mode == "" {
		mode = "NORMAL"
	}

	overhead := 0
	switch v := result.ComputeResult["performance_overhead_percent"].(type) {
	case int:
		overhead = v
	case float64:
		overhead = int(v)
	}

	switch mode {
	case "HYBRID":
		result.Benchmark.RuntimeMS = int64(float64(result.Benchmark.RuntimeMS) * 1.12)
		result.ComputeResult["performance_overhead_percent"] = overhead + 300
		result.ComputeResult["security_response"] = "Hybrid defense enabled (classical + post-quantum checks)"
		result.ComputeResult["defense_profile"] = "hybrid-defense-v1"
	case "POST_QUANTUM":
		result.Benchmark.RuntimeMS = int64(float64(result.Benchmark.RuntimeMS) * 1.35)
		result.ComputeResult["performance_overhead_percent"] = overhead + 800
		result.ComputeResult["security_response"] = "Post-quantum hardening active (Kyber + Dilithium path)"
		result.ComputeResult["defense_profile"] = "post-quantum-defense-v1"
	default:
		result.ComputeResult["security_response"] = "Standard monitoring mode"
		result.ComputeResult["defense_profile"] = "normal-monitoring-v1"
	}

	result.ComputeResult["security_mode"] = mode
	result.RiskContext = result.RiskContext + " | security-mode=" + mode
	result.TrustModelComparison = result.TrustModelComparison + " | adaptive-defense=" + mode
}

// simulateQuantumThreat 模拟量子攻击检测与自适应防御切换。
func simulateQuantumThreat(attackType, currentMode string) (map[string]any, error) {
	attack := strings.ToLower(strings.TrimSpace(attackType))
	previousMode := strings.ToUpper(strings.TrimSpace(currentMode))
	if previousMode == "" {
		previousMode = "NORMAL"
	}

	var newMode, threatLevel, detectorSummary string
	switch attack {
	case "grover":
		newMode = "HYBRID"
		if previousMode == "HYBRID" {
			newMode = "POST_QUANTUM"
		}
		threatLevel = "elevated"
		detectorSummary = "Abnormal key-search pattern resembles Grover-style acceleration"
	case "shor":
		newMode = "POST_QUANTUM"
		threatLevel = "critical"
		detectorSummary = "Factoring/signature-break pattern resembles Shor-style capability"
	default:
		return nil, errors.New("attackType must be 'grover' or 'shor'")
	}

	return map[string]any{
		"attack_type":      attack,
		"detected":         true,
		"threat_level":     threatLevel,
		"previous_mode":    previousMode,
		"new_mode":         newMode,
		"detector_summary": detectorSummary,
		"auto_response":    fmt.Sprintf("Security mode switched from %s to %s", previousMode, newMode),
		"post_quantum_stack": []string{
			"CRYSTALS-Kyber (KEM path)",
			"CRYSTALS-Dilithium (signature path)",
			"SHA3-256 (hash hardening)",
		},
		"timestamp_utc": time.Now().UTC().Format(time.RFC3339Nano),
	}, nil
}
