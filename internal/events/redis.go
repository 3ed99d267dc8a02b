package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"

	"QuantumProof-Ops/internal/config"
	xerrors "QuantumProof-Ops/internal/errors"
	"QuantumProof-Ops/internal/pipeline"
)

// RedisPublisher 把运行事件追加到 Redis stream。
type RedisPublisher struct {
	client *redis.Client
	stream string
}

// NewRedisPublisher 创建发布器并验证连通性。
func NewRedisPublisher(ctx context.Context, cfg config.RedisEvents) (*RedisPublisher, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	stream := cfg.Stream
	if stream == "" {
		stream = "quantumproof:events"
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RedisPublisher{client: client, stream: stream}, nil
}

// PublishRunCompleted 通过 XADD 写入事件流。
func (p *RedisPublisher) PublishRunCompleted(ctx context.Context, result *pipeline.RunResult) error {
	payload, err := json.Marshal(eventFromResult(result))
	if err != nil {
		return xerrors.Wrap(xerrors.CodeEventFailure, err, "序列化运行事件失败")
	}

	err = p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: p.stream,
		Values: map[string]any{"event": payload},
	}).Err()
	if err != nil {
		return xerrors.Wrap(xerrors.CodeEventFailure, err, "写入 Redis 事件流失败")
	}
	return nil
}

// Close 释放底层连接。
func (p *RedisPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
