package service

import (
	"context"
	"fmt"
	"time"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/metrics"
	"github.com/zhy3800/MovieWebsite/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/errgroup"
)

// 重算触发来源
const (
	TriggerMutation  = "mutation"
	TriggerManual    = "manual"
	TriggerReconcile = "reconcile"
)

// recomputeConcurrency 全量重算时的并发数
const recomputeConcurrency = 4

// AggregateService 聚合维护服务
//
// 评分与热度每次都由当前行全量计算，不维护增量计数器。
type AggregateService struct {
	store   repository.Store
	weights domain.PopularityWeights
	log     logger.Logger
}

// NewAggregateService 创建聚合维护服务
func NewAggregateService(store repository.Store, weights domain.PopularityWeights, log logger.Logger) *AggregateService {
	return &AggregateService{store: store, weights: weights, log: log}
}

// Recompute 在调用方事务内重算电影聚合
func (s *AggregateService) Recompute(ctx context.Context, repos *repository.Repositories, movieID int64) (*domain.Aggregate, error) {
	return s.recompute(ctx, repos, movieID, TriggerMutation)
}

func (s *AggregateService) recompute(ctx context.Context, repos *repository.Repositories, movieID int64, trigger string) (agg *domain.Aggregate, err error) {
	ctx, span := telemetry.StartSpan(ctx, "aggregate.recompute",
		attribute.Int64("movie.id", movieID),
		attribute.String("trigger", trigger),
	)
	start := time.Now()
	defer func() {
		metrics.RecordRecompute(trigger, time.Since(start), err)
		telemetry.EndSpan(span, err)
	}()

	favorites, err := repos.Favorites.CountByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("count favorites: %w", err)
	}
	comments, err := repos.Comments.CountByMovie(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("count comments: %w", err)
	}
	ratings, mean, err := repos.Ratings.Stats(ctx, movieID)
	if err != nil {
		return nil, fmt.Errorf("rating stats: %w", err)
	}

	agg = domain.ComputeAggregate(movieID, domain.AggregateInput{
		FavoritesCount: favorites,
		CommentsCount:  comments,
		RatingsCount:   ratings,
		RatingMean:     mean,
	}, s.weights)

	if err = repos.Movies.UpdateAggregate(ctx, agg); err != nil {
		return nil, fmt.Errorf("update aggregate: %w", err)
	}
	return agg, nil
}

// RecomputeMovie 在独立事务中锁定并重算单部电影
func (s *AggregateService) RecomputeMovie(ctx context.Context, movieID int64) (*domain.Aggregate, error) {
	if movieID <= 0 {
		return nil, domain.ErrInvalidMovieID
	}
	var agg *domain.Aggregate
	err := s.store.ExecTx(ctx, func(repos *repository.Repositories) error {
		if err := repos.Movies.LockForUpdate(ctx, movieID); err != nil {
			return err
		}
		var err error
		agg, err = s.recompute(ctx, repos, movieID, TriggerManual)
		return err
	})
	if err != nil {
		return nil, err
	}
	return agg, nil
}

// RecomputeAll 重算所有电影，返回成功处理的数量
//
// 每部电影单独一个事务，单部失败不影响其它电影，最后返回第一个错误。
func (s *AggregateService) RecomputeAll(ctx context.Context) (int, error) {
	ids, err := s.store.Repos().Movies.ListIDs(ctx)
	if err != nil {
		return 0, fmt.Errorf("list movies: %w", err)
	}

	results := make([]error, len(ids))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(recomputeConcurrency)
	for i, id := range ids {
		g.Go(func() error {
			results[i] = s.store.ExecTx(gctx, func(repos *repository.Repositories) error {
				if err := repos.Movies.LockForUpdate(gctx, id); err != nil {
					return err
				}
				_, err := s.recompute(gctx, repos, id, TriggerReconcile)
				return err
			})
			if results[i] != nil {
				s.log.Warn("recompute failed", logger.Int64("movie_id", id), logger.Err(results[i]))
			}
			return nil
		})
	}
	_ = g.Wait()

	var (
		done     int
		firstErr error
	)
	for _, err := range results {
		if err == nil {
			done++
		} else if firstErr == nil {
			firstErr = err
		}
	}
	s.log.Info("aggregates reconciled", logger.Int("movies", len(ids)), logger.Int("succeeded", done))
	return done, firstErr
}
