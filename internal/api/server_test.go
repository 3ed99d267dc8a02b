package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"QuantumProof-Ops/internal/pipeline"
	"QuantumProof-Ops/internal/storage/mysql"
)

type stubRunner struct {
	result      *pipeline.RunResult
	err         error
	gotScenario string
	gotFallback bool
}

func (s *stubRunner) RunOnce(ctx context.Context, sensitive, scenario string, forceFallback bool) (*pipeline.RunResult, error) {
	s.gotScenario = scenario
	s.gotFallback = forceFallback
	if s.err != nil {
		return nil, s.err
	}
	return s.result, nil
}

type stubQuery struct {
	summaries []mysql.RunSummary
	result    *pipeline.RunResult
}

func (s *stubQuery) ListRecent(ctx context.Context, limit int) ([]mysql.RunSummary, error) {
	return s.summaries, nil
}

func (s *stubQuery) GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error) {
	if s.result != nil && s.result.RunID == runID {
		return s.result, nil
	}
	return nil, mysql.ErrRunNotFound
}

func verifiedResult(risk int) *pipeline.RunResult {
	return &pipeline.RunResult{
		RunID:        "run-0123456789",
		TimestampUTC: "2026-01-02T03:04:05Z",
		Scenario:     "private-loan-preapproval",
		ComputeResult: map[string]any{
			"risk_reduction_percent":       risk,
			"performance_overhead_percent": 100,
			"fhe_enabled":                  false,
		},
		RiskContext:          "Quantum-resistant FHE + verifiable proof layer",
		TrustModelComparison: "Cryptographic verification vs traditional trust",
		Benchmark: pipeline.BenchmarkMetrics{
			RuntimeMS:   100,
			ComputeMode: "fallback-no-fhe",
		},
		Proof: pipeline.ProofArtifact{
			ProofHash:          strings.Repeat("ab", 32),
			VerificationResult: true,
			CircuitVersion:     "fhe-ckks-v1",
			InputFingerprint:   strings.Repeat("cd", 32),
			FHEParameters:      map[string]any{"zk_mode": "simulated-fallback"},
		},
	}
}

func newTestServer(runner Runner, query RunQuery) *httptest.Server {
	srv := NewServer(":0", runner, query, nil, Capabilities{
		FHEEnabled:  func() bool { return false },
		RealZKReady: func() bool { return false },
	}, "")
	return httptest.NewServer(srv.Handler())
}

func postJSON(t *testing.T, url string, payload any) *http.Response {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal payload: %v", err)
	}
	resp, err := http.Post(url, "application/json", bytes.NewReader(body))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	return resp
}

func decodeBody(t *testing.T, resp *http.Response) map[string]any {
	t.Helper()
	defer resp.Body.Close()
	var decoded map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return decoded
}

func TestHandleStatus(t *testing.T) {
	ts := newTestServer(&stubRunner{result: verifiedResult(42)}, nil)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/status")
	if err != nil {
		t.Fatalf("get status: %v", err)
	}
	body := decodeBody(t, resp)
	if body["status"] != "ready" {
		t.Fatalf("unexpected status %v", body["status"])
	}
	if body["fhe_available"] != false {
		t.Fatalf("expected fhe_available=false, got %v", body["fhe_available"])
	}
	if body["library"] != "None" {
		t.Fatalf("unexpected library %v", body["library"])
	}
}

func TestHandleComputeWithLoanProfile(t *testing.T) {
	runner := &stubRunner{result: verifiedResult(42)}
	ts := newTestServer(runner, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/compute", map[string]any{
		"loanProfile": map[string]any{
			"creditScore":  750,
			"debtToIncome": 20.0,
			"annualIncome": 95000.0,
			"purpose":      "home",
		},
	})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("unexpected status %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != true {
		t.Fatalf("expected success, got %v", body)
	}
	if runner.gotScenario != "private-loan-preapproval" {
		t.Fatalf("expected default scenario, got %q", runner.gotScenario)
	}

	result := body["result"].(map[string]any)
	compute := result["compute_result"].(map[string]any)
	if compute["preapproval_decision"] != "approve" {
		t.Fatalf("expected approve, got %v", compute["preapproval_decision"])
	}
	if compute["model"] != "private-loan-preapproval-v1" {
		t.Fatalf("unexpected model %v", compute["model"])
	}
	if compute["security_mode"] != "NORMAL" {
		t.Fatalf("unexpected security mode %v", compute["security_mode"])
	}
	if !strings.HasSuffix(result["risk_context"].(string), "security-mode=NORMAL") {
		t.Fatalf("unexpected risk context %v", result["risk_context"])
	}
}

func TestHandleComputeSecurityModeEffects(t *testing.T) {
	ts := newTestServer(&stubRunner{result: verifiedResult(42)}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/compute", map[string]any{
		"sensitiveInput": "loan::750::20.00::95000.00::home",
		"securityMode":   "post_quantum",
	})
	body := decodeBody(t, resp)
	result := body["result"].(map[string]any)
	compute := result["compute_result"].(map[string]any)
	benchmark := result["benchmark"].(map[string]any)

	if compute["performance_overhead_percent"].(float64) != 900 {
		t.Fatalf("expected overhead 900, got %v", compute["performance_overhead_percent"])
	}
	if benchmark["runtime_ms"].(float64) != 135 {
		t.Fatalf("expected runtime 135, got %v", benchmark["runtime_ms"])
	}
	if compute["defense_profile"] != "post-quantum-defense-v1" {
		t.Fatalf("unexpected defense profile %v", compute["defense_profile"])
	}
}

func TestHandleComputeLeavesRunRecordUntouched(t *testing.T) {
	runner := &stubRunner{result: verifiedResult(42)}
	ts := newTestServer(runner, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/compute", map[string]any{
		"loanProfile": map[string]any{
			"creditScore":  750,
			"debtToIncome": 20.0,
			"annualIncome": 95000.0,
			"purpose":      "home",
		},
		"securityMode": "post_quantum",
	})
	body := decodeBody(t, resp)
	result := body["result"].(map[string]any)
	compute := result["compute_result"].(map[string]any)
	if compute["security_mode"] != "POST_QUANTUM" {
		t.Fatalf("response missing security mode decoration: %v", compute["security_mode"])
	}
	if compute["preapproval_decision"] != "approve" {
		t.Fatalf("response missing decision decoration: %v", compute["preapproval_decision"])
	}

	archived := runner.result
	if _, ok := archived.ComputeResult["security_mode"]; ok {
		t.Fatal("run record picked up security mode decoration")
	}
	if _, ok := archived.ComputeResult["preapproval_decision"]; ok {
		t.Fatal("run record picked up decision decoration")
	}
	if archived.ComputeResult["performance_overhead_percent"] != 100 {
		t.Fatalf("run record overhead changed: %v", archived.ComputeResult["performance_overhead_percent"])
	}
	if archived.Benchmark.RuntimeMS != 100 {
		t.Fatalf("run record runtime changed: %d", archived.Benchmark.RuntimeMS)
	}
	if archived.RiskContext != "Quantum-resistant FHE + verifiable proof layer" {
		t.Fatalf("run record risk context changed: %q", archived.RiskContext)
	}
}

func TestHandleComputeValidation(t *testing.T) {
	ts := newTestServer(&stubRunner{result: verifiedResult(42)}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/compute", map[string]any{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for missing input, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = postJSON(t, ts.URL+"/api/compute", map[string]any{
		"loanProfile": map[string]any{
			"creditScore":  200,
			"debtToIncome": 20.0,
			"annualIncome": 95000.0,
		},
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for out-of-range credit score, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if !strings.Contains(body["error"].(string), "creditScore") {
		t.Fatalf("unexpected error %v", body["error"])
	}
}

func TestHandleComputeVerificationFailure(t *testing.T) {
	ts := newTestServer(&stubRunner{err: pipeline.ErrVerificationFailed}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/compute", map[string]any{
		"sensitiveInput": "input",
	})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", resp.StatusCode)
	}
	body := decodeBody(t, resp)
	if body["success"] != false {
		t.Fatalf("expected failure payload, got %v", body)
	}
}

func TestHandleQuantumSimulate(t *testing.T) {
	ts := newTestServer(&stubRunner{result: verifiedResult(42)}, nil)
	defer ts.Close()

	resp := postJSON(t, ts.URL+"/api/quantum/simulate", map[string]any{
		"attackType":  "grover",
		"currentMode": "HYBRID",
	})
	body := decodeBody(t, resp)
	simulation := body["simulation"].(map[string]any)
	if simulation["new_mode"] != "POST_QUANTUM" {
		t.Fatalf("expected escalation to POST_QUANTUM, got %v", simulation["new_mode"])
	}
	if simulation["threat_level"] != "elevated" {
		t.Fatalf("unexpected threat level %v", simulation["threat_level"])
	}

	resp = postJSON(t, ts.URL+"/api/quantum/simulate", map[string]any{
		"attackType": "other",
	})
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown attack, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestHandleRuns(t *testing.T) {
	query := &stubQuery{
		summaries: []mysql.RunSummary{{RunID: "run-0123456789", Verified: true}},
		result:    verifiedResult(42),
	}
	ts := newTestServer(&stubRunner{result: verifiedResult(42)}, query)
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/api/runs?limit=5")
	if err != nil {
		t.Fatalf("get runs: %v", err)
	}
	body := decodeBody(t, resp)
	runs := body["runs"].([]any)
	if len(runs) != 1 {
		t.Fatalf("expected 1 run, got %d", len(runs))
	}

	resp, err = http.Get(ts.URL + "/api/runs/run-0123456789")
	if err != nil {
		t.Fatalf("get run detail: %v", err)
	}
	body = decodeBody(t, resp)
	result := body["result"].(map[string]any)
	if result["run_id"] != "run-0123456789" {
		t.Fatalf("unexpected run id %v", result["run_id"])
	}

	resp, err = http.Get(ts.URL + "/api/runs/run-missing")
	if err != nil {
		t.Fatalf("get missing run: %v", err)
	}
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}
