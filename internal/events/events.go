package events

import (
	"context"
	"fmt"
	"strings"

	"QuantumProof-Ops/internal/config"
	"QuantumProof-Ops/internal/pipeline"
)

// RunEvent 是对外广播的运行完成事件载荷。
type RunEvent struct {
	RunID            string `json:"run_id"`
	TimestampUTC     string `json:"timestamp_utc"`
	Scenario         string `json:"scenario"`
	ComputeMode      string `json:"compute_mode"`
	ZKMode           string `json:"zk_mode"`
	Verified         bool   `json:"verified"`
	ProofHash        string `json:"proof_hash"`
	InputFingerprint string `json:"input_fingerprint"`
}

// Publisher 把运行完成事件投递到某个通道。
type Publisher interface {
	PublishRunCompleted(ctx context.Context, result *pipeline.RunResult) error
	Close() error
}

func eventFromResult(result *pipeline.RunResult) RunEvent {
	zkMode, _ := result.Proof.FHEParameters["zk_mode"].(string)
	return RunEvent{
		RunID:            result.RunID,
		TimestampUTC:     result.TimestampUTC,
		Scenario:         result.Scenario,
		ComputeMode:      result.Benchmark.ComputeMode,
		ZKMode:           zkMode,
		Verified:         result.Proof.VerificationResult,
		ProofHash:        result.Proof.ProofHash,
		InputFingerprint: result.Proof.InputFingerprint,
	}
}

// New 根据配置选择事件驱动。空驱动返回内存实现。
func New(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Driver)) {
	case "", "memory":
		return NewMemoryPublisher(0), nil
	case "redis":
		return NewRedisPublisher(ctx, cfg.Redis)
	case "rabbitmq":
		return NewRabbitMQPublisher(cfg.RabbitMQ)
	default:
		return nil, fmt.Errorf("不支持的事件驱动: %s", cfg.Driver)
	}
}
