package service

import (
	"context"
	"fmt"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
)

// FavoriteService 收藏服务
type FavoriteService struct {
	store      repository.Store
	aggregates *AggregateService
	publisher  events.Publisher
	log        logger.Logger
}

// NewFavoriteService 创建收藏服务
func NewFavoriteService(store repository.Store, aggregates *AggregateService, publisher events.Publisher, log logger.Logger) *FavoriteService {
	return &FavoriteService{store: store, aggregates: aggregates, publisher: publisher, log: log}
}

// Add 添加收藏
func (s *FavoriteService) Add(ctx context.Context, callerID, userID, movieID int64) (*domain.Aggregate, error) {
	return s.Toggle(ctx, callerID, userID, movieID, true)
}

// Remove 取消收藏
func (s *FavoriteService) Remove(ctx context.Context, callerID, userID, movieID int64) (*domain.Aggregate, error) {
	return s.Toggle(ctx, callerID, userID, movieID, false)
}

// Toggle 将收藏状态切换到 desired
//
// 收藏行、历史事件与聚合重算在同一事务内完成。
func (s *FavoriteService) Toggle(ctx context.Context, callerID, userID, movieID int64, desired bool) (agg *domain.Aggregate, err error) {
	action := domain.FavoriteActionRemove
	if desired {
		action = domain.FavoriteActionAdd
	}
	defer func() { metrics.RecordMutation("favorite_"+string(action), err) }()

	if err := checkIDs(userID, movieID); err != nil {
		return nil, err
	}
	if err := checkOwner(callerID, userID); err != nil {
		return nil, err
	}

	err = s.store.ExecTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Movies.LockForUpdate(ctx, movieID); err != nil {
			return err
		}

		exists, err := repos.Favorites.Exists(ctx, userID, movieID)
		if err != nil {
			return fmt.Errorf("check favorite: %w", err)
		}

		if desired {
			if exists {
				return domain.ErrAlreadyFavorited
			}
			if err := repos.Favorites.Create(ctx, &domain.Favorite{UserID: userID, MovieID: movieID}); err != nil {
				return err
			}
		} else {
			if !exists {
				return domain.ErrFavoriteNotFound
			}
			deleted, err := repos.Favorites.Delete(ctx, userID, movieID)
			if err != nil {
				return fmt.Errorf("delete favorite: %w", err)
			}
			if !deleted {
				return domain.ErrFavoriteNotFound
			}
		}

		if err := repos.History.Append(ctx, &domain.FavoriteHistoryEvent{
			UserID:  userID,
			MovieID: movieID,
			Action:  action,
		}); err != nil {
			return fmt.Errorf("append history: %w", err)
		}

		agg, err = s.aggregates.Recompute(ctx, repos, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}

	msgType := events.MessageTypeFavoriteRemoved
	if desired {
		msgType = events.MessageTypeFavoriteAdded
	}
	publish(ctx, s.publisher, s.log,
		events.NewMessage(msgType, userID, movieID, nil),
		aggregateEvent(agg),
	)
	return agg, nil
}

// IsFavorited 检查是否已收藏
func (s *FavoriteService) IsFavorited(ctx context.Context, userID, movieID int64) (bool, error) {
	if err := checkIDs(userID, movieID); err != nil {
		return false, err
	}
	return s.store.Repos().Favorites.Exists(ctx, userID, movieID)
}

// History 获取收藏历史，按时间倒序
func (s *FavoriteService) History(ctx context.Context, userID int64) ([]*domain.FavoriteHistoryEvent, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	return s.store.Repos().History.ListByUser(ctx, userID)
}

// ListByUser 获取用户当前收藏
func (s *FavoriteService) ListByUser(ctx context.Context, userID int64) ([]*domain.Favorite, error) {
	if userID <= 0 {
		return nil, domain.ErrInvalidUserID
	}
	return s.store.Repos().Favorites.ListByUser(ctx, userID)
}

// CountByMovie 获取电影收藏数
func (s *FavoriteService) CountByMovie(ctx context.Context, movieID int64) (int64, error) {
	if movieID <= 0 {
		return 0, domain.ErrInvalidMovieID
	}
	return s.store.Repos().Favorites.CountByMovie(ctx, movieID)
}
