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

// CommentService 评论服务
type CommentService struct {
	store      repository.Store
	aggregates *AggregateService
	publisher  events.Publisher
	log        logger.Logger
}

// NewCommentService 创建评论服务
func NewCommentService(store repository.Store, aggregates *AggregateService, publisher events.Publisher, log logger.Logger) *CommentService {
	return &CommentService{store: store, aggregates: aggregates, publisher: publisher, log: log}
}

// Post 发表评论并重算聚合
func (s *CommentService) Post(ctx context.Context, callerID, userID, movieID int64, text string) (comment *domain.Comment, err error) {
	defer func() { metrics.RecordMutation("comment", err) }()

	if err := checkIDs(userID, movieID); err != nil {
		return nil, err
	}
	if err := checkOwner(callerID, userID); err != nil {
		return nil, err
	}
	if err := domain.ValidateCommentText(text); err != nil {
		return nil, err
	}

	comment = &domain.Comment{MovieID: movieID, UserID: userID, Text: text}
	var agg *domain.Aggregate
	err = s.store.ExecTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Movies.LockForUpdate(ctx, movieID); err != nil {
			return err
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return fmt.Errorf("create comment: %w", err)
		}
		var err error
		agg, err = s.aggregates.Recompute(ctx, repos, movieID)
		return err
	})
	if err != nil {
		return nil, err
	}

	publish(ctx, s.publisher, s.log,
		events.NewMessage(events.MessageTypeCommentPosted, userID, movieID, map[string]interface{}{"comment_id": comment.ID}),
		aggregateEvent(agg),
	)
	return comment, nil
}

// List 获取电影评论，按时间倒序
func (s *CommentService) List(ctx context.Context, movieID int64) ([]*domain.Comment, error) {
	if movieID <= 0 {
		return nil, domain.ErrInvalidMovieID
	}
	return s.store.Repos().Comments.ListByMovie(ctx, movieID)
}

// Count 获取电影评论数
func (s *CommentService) Count(ctx context.Context, movieID int64) (int64, error) {
	if movieID <= 0 {
		return 0, domain.ErrInvalidMovieID
	}
	return s.store.Repos().Comments.CountByMovie(ctx, movieID)
}
