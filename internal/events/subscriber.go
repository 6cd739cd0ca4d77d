package events

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// Handler 事件处理函数
type Handler func(ctx context.Context, msg *Message) error

// Subscriber 订阅全部领域事件频道
type Subscriber struct {
	client *redis.Client
	log    logger.Logger
}

// NewSubscriber 创建订阅器
func NewSubscriber(client *redis.Client, log logger.Logger) *Subscriber {
	return &Subscriber{client: client, log: log}
}

// Run 阻塞消费事件直到 ctx 取消
//
// 解析失败或 handler 出错的消息只记录日志，不中断订阅。
func (s *Subscriber) Run(ctx context.Context, handle Handler) error {
	ps := s.client.PSubscribe(ctx, redis.EventChannelPattern())
	defer ps.Close()

	if _, err := ps.Receive(ctx); err != nil {
		return fmt.Errorf("subscribe: %w", err)
	}

	ch := ps.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case raw, ok := <-ch:
			if !ok {
				return nil
			}
			var msg Message
			if err := json.Unmarshal([]byte(raw.Payload), &msg); err != nil {
				s.log.Warn("dropping malformed event", logger.String("channel", raw.Channel), logger.Err(err))
				continue
			}
			if err := handle(ctx, &msg); err != nil {
				s.log.Error("event handler failed", logger.String("id", msg.ID), logger.Err(err))
			}
		}
	}
}
