package main

import (
	"context"
	"fmt"
	"os"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/events"
	"github.com/zhy3800/MovieWebsite/internal/handler"
	"github.com/zhy3800/MovieWebsite/internal/middleware"
	"github.com/zhy3800/MovieWebsite/internal/repository"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/config"
	"github.com/zhy3800/MovieWebsite/pkg/crypto"
	"github.com/zhy3800/MovieWebsite/pkg/db"
	"github.com/zhy3800/MovieWebsite/pkg/jwt"
	"github.com/zhy3800/MovieWebsite/pkg/limiter"
	"github.com/zhy3800/MovieWebsite/pkg/logger"
	"github.com/zhy3800/MovieWebsite/pkg/redis"
)

// app 进程内共享的依赖
type app struct {
	cfg    *config.Config
	log    logger.Logger
	store  repository.Store
	redis  *redis.Client
	tokens *jwt.Manager

	aggregates  *service.AggregateService
	credentials *service.CredentialService
	movies      *service.MovieService
	ratings     *service.RatingService
	favorites   *service.FavoriteService
	comments    *service.CommentService

	closers []func()
}

// newApp 初始化存储、Redis 与服务层
func newApp(ctx context.Context, cfg *config.Config, log logger.Logger) (*app, error) {
	a := &app{cfg: cfg, log: log}

	switch cfg.Storage.Driver {
	case config.DriverMemory:
		log.Warn("using in-memory store, data is lost on exit")
		a.store = repository.NewMemoryStore()
	default:
		pool, err := db.NewPool(ctx, cfg.Postgres, db.DefaultPoolOptions())
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		a.closers = append(a.closers, pool.Close)
		a.store = repository.NewPostgresStore(pool)
		log.Info("database connected", logger.String("host", cfg.Postgres.Host))
	}

	var publisher events.Publisher = events.NopPublisher{}
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(ctx, cfg.Redis)
		if err != nil {
			a.Close()
			return nil, fmt.Errorf("connect redis: %w", err)
		}
		a.redis = client
		a.closers = append(a.closers, func() { _ = client.Close() })
		hostname, _ := os.Hostname()
		publisher = events.NewRedisPublisher(client, hostname, log)
		log.Info("redis connected", logger.String("addr", cfg.Redis.Addr()))
	}

	weights := domain.PopularityWeights{
		Favorites:  cfg.Popularity.FavoritesWeight,
		Comments:   cfg.Popularity.CommentsWeight,
		Ratings:    cfg.Popularity.RatingsWeight,
		RatingTerm: domain.RatingTerm(cfg.Popularity.RatingTerm),
	}
	if err := weights.Validate(); err != nil {
		a.Close()
		return nil, err
	}

	a.tokens = jwt.NewManager(&jwt.Config{
		Secret: cfg.JWT.Secret,
		Issuer: cfg.JWT.Issuer,
		Expiry: cfg.JWT.Expiry,
	})

	a.aggregates = service.NewAggregateService(a.store, weights, log)
	a.credentials = service.NewCredentialService(a.store, crypto.NewPasswordHasher(), a.tokens, log)
	a.movies = service.NewMovieService(a.store)
	a.ratings = service.NewRatingService(a.store, a.aggregates, publisher, log)
	a.favorites = service.NewFavoriteService(a.store, a.aggregates, publisher, log)
	a.comments = service.NewCommentService(a.store, a.aggregates, publisher, log)

	return a, nil
}

// authLimiter 登录注册限流，有Redis时多实例共享窗口
func (a *app) authLimiter() middleware.Limiter {
	rl := a.cfg.RateLimit
	if a.redis != nil {
		return middleware.NewRedisRateLimiter(limiter.NewRateLimiter(a.redis), "auth", rl.AuthPerWindow, rl.AuthWindow, a.log)
	}
	return middleware.NewRateLimiter(rl.AuthPerSecond, rl.AuthBurst)
}

// healthDeps 健康检查依赖
func (a *app) healthDeps() map[string]handler.Pinger {
	deps := map[string]handler.Pinger{"store": a.store}
	if a.redis != nil {
		deps["redis"] = a.redis
	}
	return deps
}

// Close 按初始化逆序释放资源
func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
