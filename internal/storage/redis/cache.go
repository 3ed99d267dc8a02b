package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Config 描述最近运行缓存的连接参数。
type Config struct {
	Address  string
	Password string
	DB       int
	Key      string
	Window   int
}

// RunCache 使用 Redis list 维护最近若干条运行摘要，
// 最新的记录在表头，窗口之外的记录被裁剪。
type RunCache struct {
	client *redis.Client
	key    string
	window int
}

// NewRunCache 创建缓存实例并验证连通性。
func NewRunCache(ctx context.Context, cfg Config) (*RunCache, error) {
	if cfg.Address == "" {
		return nil, errors.New("Redis address 不能为空")
	}
	key := cfg.Key
	if key == "" {
		key = "quantumproof:runs"
	}
	window := cfg.Window
	if window <= 0 {
		window = 64
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Address,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("连接 Redis 失败: %w", err)
	}
	return &RunCache{client: client, key: key, window: window}, nil
}

// Push 将一条运行摘要写入缓存窗口。
func (c *RunCache) Push(ctx context.Context, entry any) error {
	encoded, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("序列化缓存条目失败: %w", err)
	}

	pipe := c.client.TxPipeline()
	pipe.LPush(ctx, c.key, encoded)
	pipe.LTrim(ctx, c.key, 0, int64(c.window-1))
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("写入缓存失败: %w", err)
	}
	return nil
}

// Recent 返回缓存中最近的条目，最新在前。
func (c *RunCache) Recent(ctx context.Context, limit int) ([]json.RawMessage, error) {
	if limit <= 0 || limit > c.window {
		limit = c.window
	}
	values, err := c.client.LRange(ctx, c.key, 0, int64(limit-1)).Result()
	if err != nil {
		return nil, fmt.Errorf("读取缓存失败: %w", err)
	}

	entries := make([]json.RawMessage, 0, len(values))
	for _, value := range values {
		entries = append(entries, json.RawMessage(value))
	}
	return entries, nil
}

// Close 释放底层连接。
func (c *RunCache) Close() error {
	if c == nil || c.client == nil {
		return nil
	}
	return c.client.Close()
}
