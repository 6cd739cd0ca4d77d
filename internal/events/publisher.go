package events

import (
	"context"
	"encoding/json"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/zhy3800/MovieWebsite/pkg/breaker"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// Publisher 领域事件发布接口
type Publisher interface {
	Publish(ctx context.Context, msg *Message) error
}

// NopPublisher 未启用 Redis 时使用
type NopPublisher struct{}

// Publish 丢弃事件
func (NopPublisher) Publish(context.Context, *Message) error { return nil }

// RedisPublisher Redis Pub/Sub 发布器
//
// 用户事件发往 ms:sync:user:{id}，聚合事件发往 ms:sync:movie:{id}。
// Redis 连续失败后熔断，熔断期间直接丢弃事件。
type RedisPublisher struct {
	client     *redis.Client
	instanceID string
	log        logger.Logger
	breaker    *breaker.CircuitBreaker

	published atomic.Int64
	failed    atomic.Int64
}

// PublisherStats 发布器统计
type PublisherStats struct {
	TotalPublished  int64  `json:"total_published"`
	FailedPublished int64  `json:"failed_published"`
	BreakerState    string `json:"breaker_state"`
}

// NewRedisPublisher 创建发布器
func NewRedisPublisher(client *redis.Client, instanceID string, log logger.Logger) *RedisPublisher {
	return &RedisPublisher{
		client:     client,
		instanceID: instanceID,
		log:        log,
		breaker:    breaker.New(breaker.Config{Name: "event-publisher", MaxFailures: 5, OpenTimeout: 30 * time.Second}),
	}
}

// Publish 发布事件
func (p *RedisPublisher) Publish(ctx context.Context, msg *Message) error {
	msg.InstanceID = p.instanceID

	payload, err := json.Marshal(msg)
	if err != nil {
		p.failed.Add(1)
		return fmt.Errorf("failed to marshal message: %w", err)
	}

	channel := redis.MovieEventChannel(msg.MovieID)
	if msg.UserID > 0 {
		channel = redis.UserEventChannel(msg.UserID)
	}

	err = p.breaker.Execute(func() error {
		return p.client.Publish(ctx, channel, payload)
	})
	metrics.RecordEventPublished(string(msg.Type), err)
	if err != nil {
		p.failed.Add(1)
		return err
	}
	p.published.Add(1)

	p.log.Debug("event published",
		logger.String("channel", channel),
		logger.String("type", string(msg.Type)),
		logger.String("id", msg.ID),
	)
	return nil
}

// GetStats 获取统计信息
func (p *RedisPublisher) GetStats() PublisherStats {
	return PublisherStats{
		TotalPublished:  p.published.Load(),
		FailedPublished: p.failed.Load(),
		BreakerState:    p.breaker.State().String(),
	}
}
