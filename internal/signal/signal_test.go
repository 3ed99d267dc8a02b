package signal

import "testing"

func TestDeriveParsesLoanProfile(t *testing.T) {
	inputs := Derive("loan::720::35.50::82000.00::home", "private-loan-preapproval")
	if inputs.CreditScore != 720 {
		t.Fatalf("unexpected credit score: %d", inputs.CreditScore)
	}
	if inputs.DebtToIncomeBp != 3550 {
		t.Fatalf("unexpected dti basis points: %d", inputs.DebtToIncomeBp)
	}
}

func TestDeriveClampsOutOfRangeProfile(t *testing.T) {
	inputs := Derive("loan::900::150.00::1000.00::auto", "private-loan-preapproval")
	if inputs.CreditScore != 850 {
		t.Fatalf("expected clamp to 850, got %d", inputs.CreditScore)
	}
	if inputs.DebtToIncomeBp != 10000 {
		t.Fatalf("expected clamp to 10000, got %d", inputs.DebtToIncomeBp)
	}

	inputs = Derive("loan::100::-5.00::1000.00", "private-loan-preapproval")
	if inputs.CreditScore != 300 {
		t.Fatalf("expected clamp to 300, got %d", inputs.CreditScore)
	}
	if inputs.DebtToIncomeBp != 0 {
		t.Fatalf("expected clamp to 0, got %d", inputs.DebtToIncomeBp)
	}
}

func TestDeriveFallbackIsTotalAndBounded(t *testing.T) {
	cases := []struct {
		name     string
		input    string
		scenario string
	}{
		{"free text", "some arbitrary payload", "credit-risk"},
		{"empty input", "", ""},
		{"malformed profile", "loan::abc::def::ghi", "credit-risk"},
		{"truncated profile", "loan::720", "credit-risk"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			inputs := Derive(tc.input, tc.scenario)
			if inputs.CreditScore < 300 || inputs.CreditScore > 850 {
				t.Fatalf("credit score out of range: %d", inputs.CreditScore)
			}
			if inputs.DebtToIncomeBp < 0 || inputs.DebtToIncomeBp > 10000 {
				t.Fatalf("dti out of range: %d", inputs.DebtToIncomeBp)
			}
			again := Derive(tc.input, tc.scenario)
			if again != inputs {
				t.Fatal("derivation must be deterministic")
			}
		})
	}
}

func TestDeriveFallbackDependsOnScenario(t *testing.T) {
	a := Derive("opaque", "scenario-a")
	b := Derive("opaque", "scenario-b")
	if a.DebtToIncomeBp == b.DebtToIncomeBp {
		t.Fatal("expected scenario to influence fallback dti")
	}
}
