package service

import (
	"context"
	"time"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
)

// publishTimeout 事件发布超时
const publishTimeout = 2 * time.Second

// checkIDs 校验用户与电影ID
func checkIDs(userID, movieID int64) error {
	if userID <= 0 {
		return domain.ErrInvalidUserID
	}
	if movieID <= 0 {
		return domain.ErrInvalidMovieID
	}
	return nil
}

// checkOwner 禁止代替他人操作
func checkOwner(callerID, userID int64) error {
	if callerID != userID {
		return domain.ErrNotOwner
	}
	return nil
}

// publish 事务提交后发布事件，失败只记录日志
func publish(ctx context.Context, pub events.Publisher, log logger.Logger, msgs ...*events.Message) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), publishTimeout)
	defer cancel()
	for _, msg := range msgs {
		if err := pub.Publish(ctx, msg); err != nil {
			log.Warn("failed to publish event",
				logger.String("type", string(msg.Type)),
				logger.Int64("movie_id", msg.MovieID),
				logger.Err(err),
			)
		}
	}
}

// aggregateEvent 聚合更新事件
func aggregateEvent(agg *domain.Aggregate) *events.Message {
	data := map[string]interface{}{
		"popularity":      agg.Popularity,
		"favorites_count": agg.FavoritesCount,
		"comments_count":  agg.CommentsCount,
		"ratings_count":   agg.RatingsCount,
	}
	if agg.Rating != nil {
		data["rating"] = *agg.Rating
	}
	return events.NewMessage(events.MessageTypeAggregateUpdated, 0, agg.MovieID, data)
}
