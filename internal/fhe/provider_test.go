package fhe

import (
	"errors"
	"strings"
	"testing"

	xerrors "QuantumProof-Ops/internal/errors"
)

const sampleInput = "loan::720::30.00::80000.00::auto"

func TestComputeForceFallback(t *testing.T) {
	provider := NewProvider(false)
	outcome := provider.Compute(sampleInput, "credit-risk", true)

	if outcome.Mode != ModeFallbackDisabled {
		t.Fatalf("unexpected mode: %s", outcome.Mode)
	}
	if outcome.Result["fhe_enabled"] != false {
		t.Fatal("fallback result must report fhe_enabled false")
	}
	if enabled, ok := outcome.Parameters["enabled"].(bool); !ok || enabled {
		t.Fatalf("fallback parameters must report enabled false, got %v", outcome.Parameters["enabled"])
	}

	again := provider.Compute(sampleInput, "credit-risk", true)
	if outcome.Result["risk_reduction_percent"] != again.Result["risk_reduction_percent"] {
		t.Fatal("fallback risk score must be deterministic")
	}
}

func TestComputeDisabledProvider(t *testing.T) {
	provider := NewProvider(true)
	if provider.Enabled() {
		t.Fatal("disabled provider must report Enabled false")
	}
	outcome := provider.Compute(sampleInput, "credit-risk", false)
	if outcome.Mode != ModeFallbackDisabled {
		t.Fatalf("unexpected mode: %s", outcome.Mode)
	}
	risk, ok := outcome.Result["risk_reduction_percent"].(int)
	if !ok {
		t.Fatalf("unexpected risk score type: %T", outcome.Result["risk_reduction_percent"])
	}
	if risk < 20 || risk > 80 {
		t.Fatalf("fallback risk score out of range: %d", risk)
	}
}

func TestComputeResultNeverEchoesInput(t *testing.T) {
	provider := NewProvider(true)
	outcome := provider.Compute(sampleInput, "credit-risk", false)
	for key, value := range outcome.Result {
		text, ok := value.(string)
		if !ok {
			continue
		}
		if strings.Contains(text, "loan::") || strings.Contains(text, "80000") {
			t.Fatalf("result field %q leaks the input: %q", key, text)
		}
	}
}

func TestComputeEncryptedPath(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CKKS keygen in short mode")
	}
	provider := NewProvider(false)
	outcome := provider.Compute(sampleInput, "credit-risk", false)

	if outcome.Mode != ModeFHE {
		t.Fatalf("unexpected mode: %s", outcome.Mode)
	}
	if outcome.Result["fhe_scheme"] != "CKKS (Lattigo)" {
		t.Fatalf("unexpected scheme: %v", outcome.Result["fhe_scheme"])
	}
	if outcome.Parameters["library"] != "Lattigo v4 (CKKS)" {
		t.Fatalf("unexpected library: %v", outcome.Parameters["library"])
	}
	risk, ok := outcome.Result["risk_reduction_percent"].(int)
	if !ok {
		t.Fatalf("unexpected risk score type: %T", outcome.Result["risk_reduction_percent"])
	}
	if risk < 0 || risk > 100 {
		t.Fatalf("risk score out of range: %d", risk)
	}
	if outcome.EncryptionTime <= 0 {
		t.Fatal("expected encryption time to be recorded")
	}
}

func TestEngineScoreMapping(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping CKKS keygen in short mode")
	}
	engine, err := NewEngine()
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	cases := []struct {
		score float64
		want  float64
	}{
		{300, 0},
		{575, 50},
		{850, 100},
	}
	for _, tc := range cases {
		got, _, err := engine.EncryptAndCompute(tc.score)
		if err != nil {
			t.Fatalf("encrypt and compute %.0f: %v", tc.score, err)
		}
		if diff := got - tc.want; diff < -0.5 || diff > 0.5 {
			t.Fatalf("score %.0f: expected about %.0f, got %f", tc.score, tc.want, got)
		}
	}
}

func TestFallbackErrorCodesRegistered(t *testing.T) {
	for _, code := range []xerrors.Code{CodeBackendInitFailed, CodeComputeFailed} {
		attrs := xerrors.AttributesOf(code)
		if attrs.Severity != xerrors.SeverityWarning {
			t.Fatalf("%s: unexpected severity %s", code, attrs.Severity)
		}
		if !attrs.Retryable {
			t.Fatalf("%s: absorbed fallback codes must be retryable", code)
		}
		if attrs.Alert {
			t.Fatalf("%s: absorbed fallback codes must not alert", code)
		}
	}

	wrapped := xerrors.Wrap(CodeComputeFailed, errors.New("ckks boom"), "")
	if xerrors.CodeOf(wrapped) != CodeComputeFailed {
		t.Fatalf("unexpected code on wrapped error: %s", xerrors.CodeOf(wrapped))
	}
	if xerrors.ShouldAlert(wrapped) {
		t.Fatal("absorbed compute failure must not trigger alerts")
	}
}
