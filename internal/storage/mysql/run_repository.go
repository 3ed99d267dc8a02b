package mysql

import (
	"bufio"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"QuantumProof-Ops/internal/pipeline"
)

// ErrRunNotFound 在归档中找不到指定运行时返回。
var ErrRunNotFound = errors.New("run not found")

// RunSummary 是归档记录的轻量视图，列表查询使用。
type RunSummary struct {
	RunID        string `json:"run_id"`
	TimestampUTC string `json:"timestamp_utc"`
	Scenario     string `json:"scenario"`
	ComputeMode  string `json:"compute_mode"`
	ZKMode       string `json:"zk_mode"`
	RiskScore    int    `json:"risk_score"`
	Verified     bool   `json:"verified"`
	ProofHash    string `json:"proof_hash"`
	CreatedAt    int64  `json:"created_at"`
}

// RunRepository 抽象运行归档的持久化接口。
// SaveRun 同时满足管线的归档依赖。
type RunRepository interface {
	SaveRun(ctx context.Context, result *pipeline.RunResult) error
	ListRecent(ctx context.Context, limit int) ([]RunSummary, error)
	GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error)
	Close() error
}

func summarize(result *pipeline.RunResult, createdAt int64) RunSummary {
	zkMode, _ := result.Proof.FHEParameters["zk_mode"].(string)
	return RunSummary{
		RunID:        result.RunID,
		TimestampUTC: result.TimestampUTC,
		Scenario:     result.Scenario,
		ComputeMode:  result.Benchmark.ComputeMode,
		ZKMode:       zkMode,
		RiskScore:    riskScoreOf(result),
		Verified:     result.Proof.VerificationResult,
		ProofHash:    result.Proof.ProofHash,
		CreatedAt:    createdAt,
	}
}

// riskScoreOf 兼容内存值（int）与 JSON 反序列化值（float64）。
func riskScoreOf(result *pipeline.RunResult) int {
	switch v := result.ComputeResult["risk_reduction_percent"].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}

// MemoryRunRepository 使用本地 JSONL 文件模拟 MySQL 的效果，方便迭代开发。
type MemoryRunRepository struct {
	mu       sync.RWMutex
	dataFile string
	results  []*pipeline.RunResult
}

type memoryRunLine struct {
	CreatedAt int64               `json:"created_at"`
	Result    *pipeline.RunResult `json:"result"`
}

// NewMemoryRunRepository 创建一个内存运行归档，记录追加写入 runs.log。
func NewMemoryRunRepository(dataDir string) (*MemoryRunRepository, error) {
	if dataDir == "" {
		dataDir = "."
	}
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("创建数据目录失败: %w", err)
	}
	repo := &MemoryRunRepository{dataFile: filepath.Join(dataDir, "runs.log")}
	if err := repo.loadFromDisk(); err != nil {
		return nil, err
	}
	return repo, nil
}

// SaveRun 以追加写的方式记录运行结果。
func (m *MemoryRunRepository) SaveRun(_ context.Context, result *pipeline.RunResult) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	file, err := os.OpenFile(m.dataFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("打开归档日志失败: %w", err)
	}
	defer file.Close()

	encoded, err := json.Marshal(memoryRunLine{CreatedAt: time.Now().Unix(), Result: result})
	if err != nil {
		return fmt.Errorf("序列化运行记录失败: %w", err)
	}
	if _, err := file.Write(append(encoded, '\n')); err != nil {
		return fmt.Errorf("写入归档日志失败: %w", err)
	}

	// 留存拷贝而不是调用方指针，归档记录不随调用方后续修改变化。
	m.results = append([]*pipeline.RunResult{result.Clone()}, m.results...)
	if len(m.results) > 512 {
		m.results = m.results[:512]
	}
	return nil
}

// ListRecent 返回最近的运行摘要，按时间倒序排列。
func (m *MemoryRunRepository) ListRecent(_ context.Context, limit int) ([]RunSummary, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if limit <= 0 || limit > len(m.results) {
		limit = len(m.results)
	}
	summaries := make([]RunSummary, 0, limit)
	for _, result := range m.results[:limit] {
		summaries = append(summaries, summarize(result, 0))
	}
	return summaries, nil
}

// GetRun 按运行标识取回完整记录。
func (m *MemoryRunRepository) GetRun(_ context.Context, runID string) (*pipeline.RunResult, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	for _, result := range m.results {
		if result.RunID == runID {
			return result.Clone(), nil
		}
	}
	return nil, ErrRunNotFound
}

// Close 满足 RunRepository 接口，内存实现无需清理。
func (m *MemoryRunRepository) Close() error { return nil }

func (m *MemoryRunRepository) loadFromDisk() error {
	file, err := os.OpenFile(m.dataFile, os.O_RDONLY|os.O_CREATE, 0o644)
	if err != nil {
		return fmt.Errorf("读取归档日志失败: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var restored []*pipeline.RunResult
	for scanner.Scan() {
		var line memoryRunLine
		if err := json.Unmarshal(scanner.Bytes(), &line); err != nil || line.Result == nil {
			continue
		}
		restored = append([]*pipeline.RunResult{line.Result}, restored...)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("解析归档日志失败: %w", err)
	}

	if len(restored) > 512 {
		restored = restored[:512]
	}
	if len(restored) > 0 {
		m.results = restored
	}
	return nil
}

// SQLRunRepository 使用真实的 MySQL 数据库存储运行归档。
type SQLRunRepository struct {
	db *sql.DB
}

// NewSQLRunRepository 创建连接池并执行迁移。
func NewSQLRunRepository(ctx context.Context, cfg Config) (*SQLRunRepository, error) {
	db, err := openDatabase(ctx, cfg)
	if err != nil {
		return nil, err
	}
	if err := runMigrations(ctx, db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLRunRepository{db: db}, nil
}

// SaveRun 将运行记录写入 MySQL，payload 保存完整 JSON。
func (s *SQLRunRepository) SaveRun(ctx context.Context, result *pipeline.RunResult) error {
	payload, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("序列化运行记录失败: %w", err)
	}

	zkMode, _ := result.Proof.FHEParameters["zk_mode"].(string)
	const stmt = `INSERT INTO runs
        (run_id, timestamp_utc, scenario, compute_mode, zk_mode, risk_score, verified, proof_hash, input_fingerprint, payload, created_at)
        VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	if _, err := s.db.ExecContext(ctx, stmt,
		result.RunID,
		result.TimestampUTC,
		result.Scenario,
		result.Benchmark.ComputeMode,
		zkMode,
		riskScoreOf(result),
		result.Proof.VerificationResult,
		result.Proof.ProofHash,
		result.Proof.InputFingerprint,
		string(payload),
		time.Now().Unix(),
	); err != nil {
		return fmt.Errorf("写入 MySQL 失败: %w", err)
	}
	return nil
}

// ListRecent 查询最近的运行摘要。
func (s *SQLRunRepository) ListRecent(ctx context.Context, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = 20
	}

	rows, err := s.db.QueryContext(ctx, `SELECT run_id, timestamp_utc, scenario, compute_mode, zk_mode, risk_score, verified, proof_hash, created_at
        FROM runs ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}
	defer rows.Close()

	var summaries []RunSummary
	for rows.Next() {
		var summary RunSummary
		if err := rows.Scan(&summary.RunID, &summary.TimestampUTC, &summary.Scenario, &summary.ComputeMode, &summary.ZKMode, &summary.RiskScore, &summary.Verified, &summary.ProofHash, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("解析运行记录失败: %w", err)
		}
		summaries = append(summaries, summary)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("遍历运行记录失败: %w", err)
	}
	return summaries, nil
}

// GetRun 按运行标识取回完整记录。
func (s *SQLRunRepository) GetRun(ctx context.Context, runID string) (*pipeline.RunResult, error) {
	var payload string
	err := s.db.QueryRowContext(ctx, `SELECT payload FROM runs WHERE run_id = ?`, runID).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRunNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("查询运行记录失败: %w", err)
	}

	var result pipeline.RunResult
	if err := json.Unmarshal([]byte(payload), &result); err != nil {
		return nil, fmt.Errorf("解析运行记录失败: %w", err)
	}
	return &result, nil
}

// Close 关闭底层数据库连接。
func (s *SQLRunRepository) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
