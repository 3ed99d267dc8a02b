package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"QuantumProof-Ops/internal/fhe"
	"QuantumProof-Ops/internal/fingerprint"
	"QuantumProof-Ops/internal/observability/alerting"
	"QuantumProof-Ops/internal/signal"
	"QuantumProof-Ops/internal/web3"
	"QuantumProof-Ops/internal/zkproof"
)

type stubCompute struct {
	outcome fhe.Outcome
}

func (s *stubCompute) Compute(sensitive, scenario string, forceFallback bool) fhe.Outcome {
	return s.outcome
}

type stubProofs struct {
	ready   bool
	outcome zkproof.Outcome
}

func (s *stubProofs) Ready() bool { return s.ready }

func (s *stubProofs) Build(ctx context.Context, inputFingerprint, scenario string, inputs signal.CircuitInputs) zkproof.Outcome {
	return s.outcome
}

type recordingArchive struct {
	saved []*RunResult
	err   error
}

func (r *recordingArchive) SaveRun(ctx context.Context, result *RunResult) error {
	if r.err != nil {
		return r.err
	}
	r.saved = append(r.saved, result)
	return nil
}

type recordingPublisher struct {
	published []*RunResult
}

func (r *recordingPublisher) PublishRunCompleted(ctx context.Context, result *RunResult) error {
	r.published = append(r.published, result)
	return nil
}

type stubAttestor struct {
	snapshot web3.ChainSnapshot
	err      error
}

func (s *stubAttestor) FetchChainSnapshot(ctx context.Context) (web3.ChainSnapshot, error) {
	return s.snapshot, s.err
}

func verifiedProofOutcome() zkproof.Outcome {
	return zkproof.Outcome{
		Mode:           zkproof.ModeSimulated,
		ProofHash:      strings.Repeat("ab", 32),
		Verified:       true,
		CircuitVersion: zkproof.SimulatedCircuitVersion,
		Primitives:     []string{"SHA3-256 (quantum-resistant)"},
		Detail:         "install the prover toolchain and zk artifacts to enable real Groth16",
		Elapsed:        5 * time.Millisecond,
	}
}

func fallbackComputeOutcome() fhe.Outcome {
	return fhe.Outcome{
		Mode: fhe.ModeFallbackDisabled,
		Result: map[string]any{
			"risk_reduction_percent":       42,
			"performance_overhead_percent": 100,
			"fhe_enabled":                  false,
		},
		Parameters: map[string]any{"enabled": false},
	}
}

func TestRunOnceAssemblesResult(t *testing.T) {
	archive := &recordingArchive{}
	events := &recordingPublisher{}
	orch := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{ready: false, outcome: verifiedProofOutcome()},
		Options{Archive: archive, Events: events},
	)

	result, err := orch.RunOnce(context.Background(), "loan::750::20.00::95000.00::home", "credit-risk", true)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}

	if !strings.HasPrefix(result.RunID, "run-") || len(result.RunID) != len("run-")+10 {
		t.Fatalf("unexpected run id %q", result.RunID)
	}
	if result.Scenario != "credit-risk" {
		t.Fatalf("unexpected scenario %q", result.Scenario)
	}
	wantFingerprint := fingerprint.Commit("loan::750::20.00::95000.00::home")
	if result.Proof.InputFingerprint != wantFingerprint {
		t.Fatalf("fingerprint mismatch: got %s want %s", result.Proof.InputFingerprint, wantFingerprint)
	}
	if result.Benchmark.ComputeMode != string(fhe.ModeFallbackDisabled) {
		t.Fatalf("unexpected compute mode %q", result.Benchmark.ComputeMode)
	}

	params := result.Proof.FHEParameters
	if ready, ok := params["real_zk_ready"].(bool); !ok || ready {
		t.Fatalf("expected real_zk_ready=false, got %v", params["real_zk_ready"])
	}
	if params["zk_mode"] != string(zkproof.ModeSimulated) {
		t.Fatalf("unexpected zk_mode %v", params["zk_mode"])
	}
	if params["enabled"] != false {
		t.Fatalf("expected compute parameters to be carried over, got %v", params)
	}

	if len(archive.saved) != 1 || archive.saved[0].RunID != result.RunID {
		t.Fatalf("expected run to be archived once, got %d", len(archive.saved))
	}
	if len(events.published) != 1 {
		t.Fatalf("expected one run event, got %d", len(events.published))
	}
}

func TestRunOnceVerificationGate(t *testing.T) {
	archive := &recordingArchive{}
	events := &recordingPublisher{}
	failing := verifiedProofOutcome()
	failing.Verified = false

	orch := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: failing},
		Options{Archive: archive, Events: events},
	)

	result, err := orch.RunOnce(context.Background(), "input", "credit-risk", true)
	if !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if result != nil {
		t.Fatal("rejected run must not return a result")
	}
	if len(archive.saved) != 0 {
		t.Fatal("rejected run must not be archived")
	}
	if len(events.published) != 0 {
		t.Fatal("rejected run must not publish events")
	}
}

func TestRunOnceArchiveFailureIsAbsorbed(t *testing.T) {
	archive := &recordingArchive{err: errors.New("storage down")}
	orch := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: verifiedProofOutcome()},
		Options{Archive: archive},
	)

	if _, err := orch.RunOnce(context.Background(), "input", "credit-risk", true); err != nil {
		t.Fatalf("archive failure must not fail the run: %v", err)
	}
}

func TestRunOnceChainAnchor(t *testing.T) {
	snapshot := web3.ChainSnapshot{Chain: "devnet", ChainID: "1337", BlockNumber: 7}
	orch := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: verifiedProofOutcome()},
		Options{Attestor: &stubAttestor{snapshot: snapshot}},
	)

	result, err := orch.RunOnce(context.Background(), "input", "credit-risk", true)
	if err != nil {
		t.Fatalf("run once: %v", err)
	}
	if result.ChainAnchor == nil || result.ChainAnchor.ChainID != "1337" {
		t.Fatalf("expected chain anchor, got %+v", result.ChainAnchor)
	}

	broken := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: verifiedProofOutcome()},
		Options{Attestor: &stubAttestor{err: errors.New("node unreachable")}},
	)
	result, err = broken.RunOnce(context.Background(), "input", "credit-risk", true)
	if err != nil {
		t.Fatalf("attestor failure must not fail the run: %v", err)
	}
	if result.ChainAnchor != nil {
		t.Fatal("expected no chain anchor when attestor fails")
	}
}

type recordingDispatcher struct {
	events []alerting.Event
}

func (d *recordingDispatcher) Notify(_ context.Context, event alerting.Event) error {
	d.events = append(d.events, event)
	return nil
}

func TestRunOnceDispatchesAlertOnVerificationFailure(t *testing.T) {
	alerts := &recordingDispatcher{}
	failing := verifiedProofOutcome()
	failing.Verified = false

	orch := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: failing},
		Options{Alerts: alerts},
	)

	if _, err := orch.RunOnce(context.Background(), "input", "credit-risk", true); !errors.Is(err, ErrVerificationFailed) {
		t.Fatalf("expected ErrVerificationFailed, got %v", err)
	}
	if len(alerts.events) != 1 {
		t.Fatalf("expected one alert event, got %d", len(alerts.events))
	}
	event := alerts.events[0]
	if event.Code != CodeVerificationFailed {
		t.Fatalf("unexpected alert code: %s", event.Code)
	}
	if !strings.HasPrefix(event.RunID, "run-") {
		t.Fatalf("unexpected run id: %s", event.RunID)
	}
	if event.Scenario != "credit-risk" {
		t.Fatalf("unexpected scenario: %s", event.Scenario)
	}

	verified := NewOrchestrator(
		&stubCompute{outcome: fallbackComputeOutcome()},
		&stubProofs{outcome: verifiedProofOutcome()},
		Options{Alerts: alerts},
	)
	if _, err := verified.RunOnce(context.Background(), "input", "credit-risk", true); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(alerts.events) != 1 {
		t.Fatal("verified run must not dispatch alerts")
	}
}
