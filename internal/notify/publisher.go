package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// Publisher 发布事件（fire-and-forget，调用方只记录错误）
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}

// Source 事件来源，供 Dispatcher 消费
// 超时无事件时返回 (nil, nil)
type Source interface {
	Next(ctx context.Context) (*Event, error)
}

// ── Redis 队列 ──

// Queue Redis 列表队列操作（由 pkg/redis.Client 实现）
type Queue interface {
	PushEvent(ctx context.Context, queue string, payload []byte) error
	PopEvent(ctx context.Context, queue string, timeout time.Duration) ([]byte, error)
}

// RedisPublisher 基于 Redis 列表的事件队列，同时实现 Publisher 与 Source
type RedisPublisher struct {
	queue       Queue
	key         string
	pollTimeout time.Duration
	logger      *zap.Logger
}

// NewRedisPublisher 创建 RedisPublisher
func NewRedisPublisher(queue Queue, key string, pollTimeout time.Duration, logger *zap.Logger) *RedisPublisher {
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &RedisPublisher{queue: queue, key: key, pollTimeout: pollTimeout, logger: logger}
}

// Publish 序列化事件并压入队列
func (p *RedisPublisher) Publish(ctx context.Context, event Event) error {
	payload, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化事件失败: %w", err)
	}
	if err := p.queue.PushEvent(ctx, p.key, payload); err != nil {
		return fmt.Errorf("事件入队失败: %w", err)
	}
	return nil
}

// Next 阻塞等待下一个事件；无法解析的消息被丢弃
func (p *RedisPublisher) Next(ctx context.Context) (*Event, error) {
	payload, err := p.queue.PopEvent(ctx, p.key, p.pollTimeout)
	if err != nil || payload == nil {
		return nil, err
	}
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		p.logger.Warn("丢弃无法解析的事件", zap.ByteString("payload", payload), zap.Error(err))
		return nil, nil
	}
	return &event, nil
}

// ── 进程内通道 ──

// ErrBufferFull 进程内缓冲已满
var ErrBufferFull = errors.New("通知缓冲区已满")

// ChannelPublisher 进程内缓冲通道，Redis 不可用时使用
// 缓冲满时丢弃事件而不是阻塞调用方
type ChannelPublisher struct {
	ch          chan Event
	pollTimeout time.Duration
}

// NewChannelPublisher 创建 ChannelPublisher
func NewChannelPublisher(size int, pollTimeout time.Duration) *ChannelPublisher {
	if size <= 0 {
		size = 256
	}
	if pollTimeout <= 0 {
		pollTimeout = 5 * time.Second
	}
	return &ChannelPublisher{ch: make(chan Event, size), pollTimeout: pollTimeout}
}

// Publish 非阻塞写入
func (p *ChannelPublisher) Publish(_ context.Context, event Event) error {
	select {
	case p.ch <- event:
		return nil
	default:
		return ErrBufferFull
	}
}

// Next 等待事件，超时返回 (nil, nil)
func (p *ChannelPublisher) Next(ctx context.Context) (*Event, error) {
	timer := time.NewTimer(p.pollTimeout)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-timer.C:
		return nil, nil
	case event := <-p.ch:
		return &event, nil
	}
}

// ── 空实现 ──

// NopPublisher 丢弃所有事件
type NopPublisher struct{}

// Publish 不做任何事
func (NopPublisher) Publish(context.Context, Event) error { return nil }
