package api

import (
	"testing"

	"QuantumProof-Ops/internal/pipeline"
)

func resultWithRisk(risk int) *pipeline.RunResult {
	return &pipeline.RunResult{
		ComputeResult: map[string]any{
			"risk_reduction_percent":       risk,
			"performance_overhead_percent": 100,
		},
		Benchmark: pipeline.BenchmarkMetrics{RuntimeMS: 100},
	}
}

func TestApplyPreapprovalDecision(t *testing.T) {
	cases := []struct {
		name     string
		credit   int
		dti      float64
		risk     int
		decision string
	}{
		{"strong profile approves", 750, 20, 42, "approve"},
		{"borderline profile reviews", 680, 40, 60, "review"},
		{"high risk declines", 600, 55, 80, "decline"},
		{"risk above gate forces review", 750, 20, 50, "review"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			result := resultWithRisk(tc.risk)
			applyPreapprovalDecision(result, tc.credit, tc.dti)
			if result.ComputeResult["preapproval_decision"] != tc.decision {
				t.Fatalf("expected %s, got %v", tc.decision, result.ComputeResult["preapproval_decision"])
			}
		})
	}
}

func TestSimulateQuantumThreatModes(t *testing.T) {
	simulation, err := simulateQuantumThreat("shor", "")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if simulation["new_mode"] != "POST_QUANTUM" || simulation["threat_level"] != "critical" {
		t.Fatalf("unexpected shor response %v", simulation)
	}

	simulation, err = simulateQuantumThreat("grover", "normal")
	if err != nil {
		t.Fatalf("simulate: %v", err)
	}
	if simulation["new_mode"] != "HYBRID" {
		t.Fatalf("expected HYBRID, got %v", simulation["new_mode"])
	}

	if _, err := simulateQuantumThreat("", "NORMAL"); err == nil {
		t.Fatal("expected error for empty attack type")
	}
}
