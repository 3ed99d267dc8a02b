package events

import (
	"context"
	"errors"
	"sync"

	"QuantumProof-Ops/internal/pipeline"
)

// MemoryPublisher 使用 channel 模拟事件通道，主要用于开发与测试。
type MemoryPublisher struct {
	ch     chan RunEvent
	mu     sync.Mutex
	closed bool
}

// NewMemoryPublisher 创建一个内存事件通道。
func NewMemoryPublisher(size int) *MemoryPublisher {
	if size <= 0 {
		size = 64
	}
	return &MemoryPublisher{ch: make(chan RunEvent, size)}
}

// PublishRunCompleted 将事件投递到 channel，通道满时丢弃最旧事件。
func (p *MemoryPublisher) PublishRunCompleted(ctx context.Context, result *pipeline.RunResult) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return errors.New("事件通道已关闭")
	}

	event := eventFromResult(result)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case p.ch <- event:
			return nil
		default:
			select {
			case <-p.ch:
			default:
			}
		}
	}
}

// Events 返回事件读取端。
func (p *MemoryPublisher) Events() <-chan RunEvent {
	return p.ch
}

// Close 关闭事件通道。
func (p *MemoryPublisher) Close() error {
	p.mu.Lock()
	if !p.closed {
		close(p.ch)
		p.closed = true
	}
	p.mu.Unlock()
	return nil
}
