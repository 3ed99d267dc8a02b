package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"time"

	"QuantumProof-Ops/sdk/go/quantumproof"
)

func main() {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(quantumproof.StatusReport{
			FHEAvailable: true,
			RealZKReady:  false,
			Version:      "demo",
			Library:      "Lattigo v4 (CKKS)",
			Status:       "ready",
		})
	})
	mux.HandleFunc("/api/compute", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"result": quantumproof.RunRecord{
				RunID:        "run-0a1b2c3d4e",
				TimestampUTC: time.Now().UTC().Format(time.RFC3339Nano),
				Scenario:     "private-loan-preapproval",
				ComputeResult: map[string]any{
					"decision": "approve",
				},
				Proof: quantumproof.ProofArtifact{
					VerificationResult: true,
					ProofHash:          "zkproof::demo",
				},
			},
		})
	})
	mux.HandleFunc("/api/runs", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"success": true,
			"runs":    []map[string]any{{"run_id": "run-0a1b2c3d4e", "verified": true}},
			"source":  "archive",
		})
	})

	srv := httptest.NewServer(mux)
	defer srv.Close()

	client := quantumproof.NewClient(srv.URL, srv.Client())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	status, err := client.Status(ctx)
	if err != nil {
		panic(err)
	}
	fmt.Printf("service %s, fhe=%v, library=%s\n", status.Status, status.FHEAvailable, status.Library)

	record, err := client.Compute(ctx, quantumproof.ComputeRequest{
		LoanProfile: &quantumproof.LoanProfile{CreditScore: 760, DebtToIncome: 22, AnnualIncome: 98000},
	})
	if err != nil {
		panic(err)
	}
	fmt.Printf("run %s verified=%v decision=%v\n", record.RunID, record.Proof.VerificationResult, record.ComputeResult["decision"])

	page, err := client.Runs(ctx, 10)
	if err != nil {
		panic(err)
	}
	fmt.Printf("recent runs: %d (source=%s)\n", len(page.Runs), page.Source)
}
