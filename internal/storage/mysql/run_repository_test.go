package mysql

import (
	"context"
	"errors"
	"strings"
	"testing"

	"QuantumProof-Ops/internal/pipeline"
)

func sampleRun(runID string) *pipeline.RunResult {
	return &pipeline.RunResult{
		RunID:        runID,
		TimestampUTC: "2026-01-02T03:04:05Z",
		Scenario:     "credit-risk",
		ComputeResult: map[string]any{
			"risk_reduction_percent":       55,
			"performance_overhead_percent": 100,
			"fhe_enabled":                  false,
		},
		Benchmark: pipeline.BenchmarkMetrics{ComputeMode: "fallback-no-fhe"},
		Proof: pipeline.ProofArtifact{
			ProofHash:          strings.Repeat("ab", 32),
			VerificationResult: true,
			CircuitVersion:     "fhe-ckks-v1",
			InputFingerprint:   strings.Repeat("cd", 32),
			FHEParameters:      map[string]any{"zk_mode": "simulated-fallback"},
		},
	}
}

func TestMemoryRunRepositoryRoundTrip(t *testing.T) {
	dir := t.TempDir()
	repo, err := NewMemoryRunRepository(dir)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	ctx := context.Background()
	for _, id := range []string{"run-aaaaaaaaaa", "run-bbbbbbbbbb"} {
		if err := repo.SaveRun(ctx, sampleRun(id)); err != nil {
			t.Fatalf("save run %s: %v", id, err)
		}
	}

	summaries, err := repo.ListRecent(ctx, 10)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("expected 2 summaries, got %d", len(summaries))
	}
	if summaries[0].RunID != "run-bbbbbbbbbb" {
		t.Fatalf("expected newest first, got %s", summaries[0].RunID)
	}
	if summaries[0].RiskScore != 55 {
		t.Fatalf("unexpected risk score %d", summaries[0].RiskScore)
	}
	if summaries[0].ZKMode != "simulated-fallback" {
		t.Fatalf("unexpected zk mode %q", summaries[0].ZKMode)
	}

	result, err := repo.GetRun(ctx, "run-aaaaaaaaaa")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if result.Proof.ProofHash != strings.Repeat("ab", 32) {
		t.Fatal("proof hash lost in round trip")
	}

	if _, err := repo.GetRun(ctx, "run-missing"); !errors.Is(err, ErrRunNotFound) {
		t.Fatalf("expected ErrRunNotFound, got %v", err)
	}
}

func TestMemoryRunRepositoryIsolatesArchivedRecord(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewMemoryRunRepository(dir)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}

	original := sampleRun("run-dddddddddd")
	if err := repo.SaveRun(ctx, original); err != nil {
		t.Fatalf("save run: %v", err)
	}

	original.ComputeResult["risk_reduction_percent"] = 1
	original.ComputeResult["security_mode"] = "POST_QUANTUM"
	original.Benchmark.RuntimeMS = 900

	archived, err := repo.GetRun(ctx, "run-dddddddddd")
	if err != nil {
		t.Fatalf("get run: %v", err)
	}
	if riskScoreOf(archived) != 55 {
		t.Fatalf("archived record changed with caller mutation: risk %d", riskScoreOf(archived))
	}
	if _, ok := archived.ComputeResult["security_mode"]; ok {
		t.Fatal("archived record picked up post-save decoration")
	}
	if archived.Benchmark.RuntimeMS != 0 {
		t.Fatalf("archived benchmark changed with caller mutation: %d", archived.Benchmark.RuntimeMS)
	}

	archived.ComputeResult["risk_reduction_percent"] = 2
	again, err := repo.GetRun(ctx, "run-dddddddddd")
	if err != nil {
		t.Fatalf("get run again: %v", err)
	}
	if riskScoreOf(again) != 55 {
		t.Fatalf("archive mutated through returned record: risk %d", riskScoreOf(again))
	}

	summaries, err := repo.ListRecent(ctx, 1)
	if err != nil {
		t.Fatalf("list recent: %v", err)
	}
	if summaries[0].RiskScore != 55 {
		t.Fatalf("summary changed with caller mutation: %d", summaries[0].RiskScore)
	}
}

func TestMemoryRunRepositoryReload(t *testing.T) {
	dir := t.TempDir()
	ctx := context.Background()

	repo, err := NewMemoryRunRepository(dir)
	if err != nil {
		t.Fatalf("new repository: %v", err)
	}
	if err := repo.SaveRun(ctx, sampleRun("run-cccccccccc")); err != nil {
		t.Fatalf("save run: %v", err)
	}

	reloaded, err := NewMemoryRunRepository(dir)
	if err != nil {
		t.Fatalf("reload repository: %v", err)
	}
	result, err := reloaded.GetRun(ctx, "run-cccccccccc")
	if err != nil {
		t.Fatalf("get run after reload: %v", err)
	}
	if riskScoreOf(result) != 55 {
		t.Fatalf("unexpected risk score after reload: %d", riskScoreOf(result))
	}
}
