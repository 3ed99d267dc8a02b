package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"QuantumProof-Ops/internal/config"
	"QuantumProof-Ops/internal/observability/metrics"
	"QuantumProof-Ops/internal/pipeline"
	"QuantumProof-Ops/internal/storage/mysql"
	"QuantumProof-Ops/pkg/logger"
)

// Runner 抽象管线入口，便于在测试中替换编排器。
type Runner interface {
	RunOnce(ctx context.Context, sensitive, scenario string, forceFallback bool) (*pipeline.RunResult, error)
}

// RunQuery 抽象归档查询。
type RunQuery interface {
	ListRecent(ctx context.Context, limit int) ([]mysql.RunSummary, error)
	GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error)
}

// RecentCache 是最近运行摘要的可选缓存。
type RecentCache interface {
	Push(ctx context.Context, entry any) error
	Recent(ctx context.Context, limit int) ([]json.RawMessage, error)
}

// Capabilities 汇总状态接口需要上报的能力信息。
type Capabilities struct {
	FHEEnabled  func() bool
	RealZKReady func() bool
}

// Server 负责暴露 REST 接口，驱动验证型隐私计算管线。
type Server struct {
	addr     string
	runner   Runner
	query    RunQuery
	cache    RecentCache
	caps     Capabilities
	scenario string
}

// NewServer 构造 API 服务实例。query 与 cache 允许为 nil。
func NewServer(addr string, runner Runner, query RunQuery, cache RecentCache, caps Capabilities, defaultScenario string) *Server {
	if defaultScenario == "" {
		defaultScenario = "private-loan-preapproval"
	}
	return &Server{addr: addr, runner: runner, query: query, cache: cache, caps: caps, scenario: defaultScenario}
}

// Start 启动 HTTP 服务，直到上下文取消或出现错误。
func (s *Server) Start(ctx context.Context) error {
	server := &http.Server{
		Addr:              s.addr,
		Handler:           withContext(ctx, s.Handler()),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
		return ctx.Err()
	case err := <-errCh:
		return err
	}
}

// Handler 返回完整路由，测试可直接挂到 httptest.Server 上。
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/status", s.instrument("status", s.handleStatus))
	mux.HandleFunc("/api/health", s.instrument("health", s.handleHealth))
	mux.HandleFunc("/api/compute", s.instrument("compute", s.handleCompute))
	mux.HandleFunc("/api/quantum/simulate", s.instrument("quantum_simulate", s.handleQuantumSimulate))
	mux.HandleFunc("/api/runs", s.instrument("runs", s.handleRuns))
	mux.HandleFunc("/api/runs/", s.instrument("run_detail", s.handleRunDetail))
	mux.Handle("/metrics", metrics.Handler())
	return mux
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}

	fheEnabled := s.caps.FHEEnabled != nil && s.caps.FHEEnabled()
	library := "None"
	if fheEnabled {
		library = "Lattigo v4 (CKKS)"
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"fhe_available": fheEnabled,
		"real_zk_ready": s.caps.RealZKReady != nil && s.caps.RealZKReady(),
		"version":       config.Version,
		"library":       library,
		"status":        "ready",
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status":      "healthy",
		"fhe_enabled": s.caps.FHEEnabled != nil && s.caps.FHEEnabled(),
	})
}

type loanProfile struct {
	CreditScore  *float64 `json:"creditScore"`
	DebtToIncome *float64 `json:"debtToIncome"`
	AnnualIncome *float64 `json:"annualIncome"`
	Purpose      string   `json:"purpose"`
}

type computeRequest struct {
	Scenario       string       `json:"scenario"`
	ForceFallback  bool         `json:"forceFallback"`
	SecurityMode   string       `json:"securityMode"`
	SensitiveInput string       `json:"sensitiveInput"`
	LoanProfile    *loanProfile `json:"loanProfile"`
}

func (s *Server) handleCompute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}
	if s.runner == nil {
		writeError(w, http.StatusServiceUnavailable, "pipeline is not initialized")
		return
	}

	requestID := uuid.NewString()
	w.Header().Set("X-Request-ID", requestID)
	log := logger.Named("api").With(slog.String("request_id", requestID))

	var req computeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	scenario := req.Scenario
	if scenario == "" {
		scenario = s.scenario
	}
	securityMode := strings.ToUpper(strings.TrimSpace(req.SecurityMode))
	if securityMode == "" {
		securityMode = "NORMAL"
	}

	var sensitive string
	if req.LoanProfile != nil {
		if msg, ok := validateLoanProfile(req.LoanProfile); !ok {
			writeError(w, http.StatusBadRequest, msg)
			return
		}
		// 原始字段只在内存中短暂存在，序列化成一条临时敏感串后立即进入管线。
		purpose := strings.TrimSpace(req.LoanProfile.Purpose)
		if purpose == "" {
			purpose = "general"
		}
		sensitive = fmt.Sprintf("loan::%d::%.2f::%.2f::%s",
			int(*req.LoanProfile.CreditScore),
			*req.LoanProfile.DebtToIncome,
			*req.LoanProfile.AnnualIncome,
			purpose,
		)
	} else {
		sensitive = req.SensitiveInput
		if sensitive == "" {
			writeError(w, http.StatusBadRequest, "sensitiveInput or loanProfile required")
			return
		}
	}

	result, err := s.runner.RunOnce(r.Context(), sensitive, scenario, req.ForceFallback)
	if err != nil {
		if errors.Is(err, pipeline.ErrVerificationFailed) {
			metrics.ObserveVerificationFailure()
		}
		log.Error("计算请求执行失败", slog.Any("error", err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	zkMode, _ := result.Proof.FHEParameters["zk_mode"].(string)
	metrics.ObserveRun(result.Benchmark.ComputeMode, zkMode)

	if s.cache != nil {
		if err := s.cache.Push(r.Context(), summaryOf(result)); err != nil {
			log.Warn("写入运行摘要缓存失败", slog.Any("error", err))
		}
	}

	// 编排器返回的记录已经归档，决策合并与安全模式放大只作用在深拷贝上。
	response := result.Clone()
	if req.LoanProfile != nil {
		applyPreapprovalDecision(response,
			int(*req.LoanProfile.CreditScore),
			*req.LoanProfile.DebtToIncome,
		)
	}
	applySecurityModeEffects(response, securityMode)

	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": response})
}

func (s *Server) handleQuantumSimulate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		http.Error(w, "仅支持 POST", http.StatusMethodNotAllowed)
		return
	}

	var req struct {
		AttackType  string `json:"attackType"`
		CurrentMode string `json:"currentMode"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	simulation, err := simulateQuantumThreat(req.AttackType, req.CurrentMode)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "simulation": simulation})
}

func (s *Server) handleRuns(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}

	limit := 20
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if parsed, err := strconv.Atoi(raw); err == nil && parsed > 0 {
			limit = parsed
		}
	}

	// 优先读缓存窗口，缓存不可用或为空时回退到归档。
	if s.cache != nil {
		if entries, err := s.cache.Recent(r.Context(), limit); err == nil && len(entries) > 0 {
			writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": entries, "source": "cache"})
			return
		}
	}

	if s.query == nil {
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": []mysql.RunSummary{}, "source": "none"})
		return
	}
	summaries, err := s.query.ListRecent(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if summaries == nil {
		summaries = []mysql.RunSummary{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "runs": summaries, "source": "archive"})
}

func (s *Server) handleRunDetail(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "仅支持 GET", http.StatusMethodNotAllowed)
		return
	}
	if s.query == nil {
		writeError(w, http.StatusServiceUnavailable, "run archive is not configured")
		return
	}

	runID := strings.TrimPrefix(r.URL.Path, "/api/runs/")
	if runID == "" || strings.Contains(runID, "/") {
		writeError(w, http.StatusBadRequest, "invalid run id")
		return
	}

	result, err := s.query.GetRun(r.Context(), runID)
	if errors.Is(err, mysql.ErrRunNotFound) {
		writeError(w, http.StatusNotFound, "run not found")
		return
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"success": true, "result": result})
}

func summaryOf(result *pipeline.RunResult) mysql.RunSummary {
	zkMode, _ := result.Proof.FHEParameters["zk_mode"].(string)
	risk := 0
	switch v := result.ComputeResult["risk_reduction_percent"].(type) {
	case int:
		risk = v
	case float64:
		risk = int(v)
	}
	return mysql.RunSummary{
		RunID:        result.RunID,
		TimestampUTC: result.TimestampUTC,
		Scenario:     result.Scenario,
		ComputeMode:  result.Benchmark.ComputeMode,
		ZKMode:       zkMode,
		RiskScore:    risk,
		Verified:     result.Proof.VerificationResult,
		ProofHash:    result.Proof.ProofHash,
		CreatedAt:    time.Now().Unix(),
	}
}

// instrument 记录每个接口的请求量与时延。
func (s *Server) instrument(name string, fn http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		fn(recorder, r)
		metrics.ObserveHTTPRequest(name, r.Method, recorder.status, time.Since(start))
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(status int) {
	r.status = status
	r.ResponseWriter.WriteHeader(status)
}

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]any{"success": false, "error": message})
}

// withContext 确保请求处理能够感知根上下文取消。
func withContext(ctx context.Context, handler http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-ctx.Done():
			http.Error(w, "服务已关闭", http.StatusServiceUnavailable)
			return
		default:
		}
		handler.ServeHTTP(w, r)
	})
}
