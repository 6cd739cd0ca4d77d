package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
)

// RateResult 评分结果
type RateResult struct {
	Rating    *domain.Rating
	Aggregate *domain.Aggregate
	Created   bool
}

// RatingService 评分服务
type RatingService struct {
	store      repository.Store
	aggregates *AggregateService
	publisher  events.Publisher
	log        logger.Logger
}

// NewRatingService 创建评分服务
func NewRatingService(store repository.Store, aggregates *AggregateService, publisher events.Publisher, log logger.Logger) *RatingService {
	return &RatingService{store: store, aggregates: aggregates, publisher: publisher, log: log}
}

// Rate 创建或更新评分并重算聚合
//
// 越界评分被钳制到 [1,5]，不报错。
func (s *RatingService) Rate(ctx context.Context, callerID, movieID, userID int64, value float64) (result *RateResult, err error) {
	defer func() { metrics.RecordMutation("rating", err) }()

	if err := checkIDs(userID, movieID); err != nil {
		return nil, err
	}
	if err := checkOwner(callerID, userID); err != nil {
		return nil, err
	}
	value, err = domain.ClampRating(value)
	if err != nil {
		return nil, err
	}

	result = &RateResult{}
	err = s.store.ExecTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Movies.LockForUpdate(ctx, movieID); err != nil {
			return err
		}

		rating := &domain.Rating{MovieID: movieID, UserID: userID, Value: value}
		_, err := repos.Ratings.Get(ctx, movieID, userID)
		switch {
		case errors.Is(err, domain.ErrRatingNotFound):
			if err := repos.Ratings.Create(ctx, rating); err != nil {
				return fmt.Errorf("create rating: %w", err)
			}
			result.Created = true
		case err != nil:
			return fmt.Errorf("get rating: %w", err)
		default:
			if err := repos.Ratings.Update(ctx, rating); err != nil {
				return fmt.Errorf("update rating: %w", err)
			}
		}
		result.Rating = rating

		agg, err := s.aggregates.Recompute(ctx, repos, movieID)
		if err != nil {
			return err
		}
		result.Aggregate = agg
		return nil
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.log,
		events.NewMessage(events.MessageTypeRatingUpdated, userID, movieID, map[string]interface{}{"rating": value}),
		aggregateEvent(result.Aggregate),
	)
	return result, nil
}

// GetUserRating 获取用户对电影的评分
func (s *RatingService) GetUserRating(ctx context.Context, movieID, userID int64) (*domain.UserRating, error) {
	if err := checkIDs(userID, movieID); err != nil {
		return nil, err
	}
	rating, err := s.store.Repos().Ratings.Get(ctx, movieID, userID)
	if errors.Is(err, domain.ErrRatingNotFound) {
		return &domain.UserRating{Rated: false, Rating: 0}, nil
	}
	if err != nil {
		return nil, err
	}
	return &domain.UserRating{Rated: true, Rating: rating.Value}, nil
}
