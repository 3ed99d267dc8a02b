package quantumproof

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strconv"
	"time"
)

// DefaultHTTPTimeout defines the timeout used by clients created without a
// custom http.Client. It is intentionally short to avoid hanging network calls.
const DefaultHTTPTimeout = 15 * time.Second

// Client wraps the HTTP interactions with the QuantumProof Ops REST API.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// StatusReport describes the capabilities the service currently offers.
type StatusReport struct {
	FHEAvailable bool   `json:"fhe_available"`
	RealZKReady  bool   `json:"real_zk_ready"`
	Version      string `json:"version"`
	Library      string `json:"library"`
	Status       string `json:"status"`
}

// LoanProfile is the structured applicant payload. The server fingerprints it
// and never echoes the raw values back.
type LoanProfile struct {
	CreditScore  float64 `json:"creditScore"`
	DebtToIncome float64 `json:"debtToIncome"`
	AnnualIncome float64 `json:"annualIncome"`
	Purpose      string  `json:"purpose,omitempty"`
}

// ComputeRequest represents the payload for a verified pipeline run.
type ComputeRequest struct {
	Scenario       string       `json:"scenario,omitempty"`
	ForceFallback  bool         `json:"forceFallback,omitempty"`
	SecurityMode   string       `json:"securityMode,omitempty"`
	SensitiveInput string       `json:"sensitiveInput,omitempty"`
	LoanProfile    *LoanProfile `json:"loanProfile,omitempty"`
}

// BenchmarkMetrics mirrors the per-stage timings of a run.
type BenchmarkMetrics struct {
	RuntimeMS         int64  `json:"runtime_ms"`
	ComputeMode       string `json:"compute_mode"`
	EncryptionTimeMS  int64  `json:"encryption_time_ms"`
	ComputationTimeMS int64  `json:"computation_time_ms"`
	ProofTimeMS       int64  `json:"proof_time_ms"`
}

// ProofArtifact mirrors the verifiable proof attached to a run.
type ProofArtifact struct {
	ProofHash            string         `json:"proof_hash"`
	VerificationResult   bool           `json:"verification_result"`
	CircuitVersion       string         `json:"circuit_version"`
	InputFingerprint     string         `json:"input_fingerprint"`
	CryptoPrimitivesUsed []string       `json:"crypto_primitives_used"`
	FHEParameters        map[string]any `json:"fhe_parameters"`
}

// ChainAnchor is the optional on-chain timestamp anchor of a run.
type ChainAnchor struct {
	Chain       string `json:"chain"`
	ChainID     string `json:"chain_id"`
	BlockNumber uint64 `json:"block_number"`
}

// RunRecord is the full record of a completed, verified run.
type RunRecord struct {
	RunID                string           `json:"run_id"`
	TimestampUTC         string           `json:"timestamp_utc"`
	Scenario             string           `json:"scenario"`
	ComputeResult        map[string]any   `json:"compute_result"`
	RiskContext          string           `json:"risk_context"`
	TrustModelComparison string           `json:"trust_model_comparison"`
	Benchmark            BenchmarkMetrics `json:"benchmark"`
	Proof                ProofArtifact    `json:"proof"`
	ChainAnchor          *ChainAnchor     `json:"chain_anchor,omitempty"`
}

// RunsPage is one page of recent run summaries. Source reports whether the
// entries came from the cache window or the durable archive.
type RunsPage struct {
	Runs   []json.RawMessage `json:"runs"`
	Source string            `json:"source"`
}

// ThreatSimulation is the advisory produced by the quantum threat simulator.
type ThreatSimulation map[string]any

// APIError represents server side validation or internal errors.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
}

func (e *APIError) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("quantumproof api error (%d): %s", e.StatusCode, e.Message)
}

// NewClient instantiates a client for the QuantumProof Ops API. When httpClient
// is nil, a default client with a sensible timeout is used.
func NewClient(rawURL string, httpClient *http.Client) *Client {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		panic(fmt.Sprintf("invalid base url: %v", err))
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &Client{baseURL: parsed, httpClient: httpClient}
}

// Status reports the service capabilities and version.
func (c *Client) Status(ctx context.Context) (StatusReport, error) {
	var report StatusReport
	if err := c.get(ctx, "/api/status", &report); err != nil {
		return StatusReport{}, err
	}
	return report, nil
}

// Compute runs the verified pipeline once and returns the completed record.
func (c *Client) Compute(ctx context.Context, req ComputeRequest) (RunRecord, error) {
	var envelope struct {
		Result RunRecord `json:"result"`
	}
	if err := c.post(ctx, "/api/compute", req, &envelope); err != nil {
		return RunRecord{}, err
	}
	return envelope.Result, nil
}

// SimulateQuantumThreat requests a defensive posture recommendation for the
// given attack type relative to the current security mode.
func (c *Client) SimulateQuantumThreat(ctx context.Context, attackType, currentMode string) (ThreatSimulation, error) {
	payload := map[string]string{"attackType": attackType, "currentMode": currentMode}
	var envelope struct {
		Simulation ThreatSimulation `json:"simulation"`
	}
	if err := c.post(ctx, "/api/quantum/simulate", payload, &envelope); err != nil {
		return nil, err
	}
	return envelope.Simulation, nil
}

// Runs lists the most recent run summaries, newest first. limit <= 0 falls
// back to the server default.
func (c *Client) Runs(ctx context.Context, limit int) (RunsPage, error) {
	endpoint := "/api/runs"
	if limit > 0 {
		endpoint += "?limit=" + strconv.Itoa(limit)
	}
	var page RunsPage
	if err := c.get(ctx, endpoint, &page); err != nil {
		return RunsPage{}, err
	}
	return page, nil
}

// Run fetches the full archived record of a single run by identifier.
func (c *Client) Run(ctx context.Context, runID string) (RunRecord, error) {
	var envelope struct {
		Result RunRecord `json:"result"`
	}
	if err := c.get(ctx, "/api/runs/"+url.PathEscape(runID), &envelope); err != nil {
		return RunRecord{}, err
	}
	return envelope.Result, nil
}

func (c *Client) post(ctx context.Context, endpoint string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode request: %w", err)
	}
	req, err := c.newRequest(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return c.do(req, out)
}

func (c *Client) get(ctx context.Context, endpoint string, out any) error {
	req, err := c.newRequest(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	return c.do(req, out)
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	parsed, err := url.Parse(endpoint)
	if err != nil {
		return nil, fmt.Errorf("parse endpoint: %w", err)
	}
	rel := &url.URL{Path: path.Join(c.baseURL.Path, parsed.Path), RawQuery: parsed.RawQuery}
	u := c.baseURL.ResolveReference(rel)
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	return req, nil
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("perform request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read error response: %w", err)
		}
		if len(data) > 0 {
			_ = json.Unmarshal(data, apiErr)
		}
		if apiErr.Message == "" {
			apiErr.Message = string(bytes.TrimSpace(data))
		}
		return apiErr
	}

	if out == nil {
		return nil
	}
	decoder := json.NewDecoder(resp.Body)
	if err := decoder.Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
