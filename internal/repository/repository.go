package repository

import (
	"context"
	"embed"

	"github.com/zhy3800/MovieWebsite/internal/domain"
)

// MigrationsFS 内嵌的数据库迁移文件
//
//go:embed migrations/*.sql
var MigrationsFS embed.FS

// MigrationsPath MigrationsFS 中迁移文件所在目录
const MigrationsPath = "migrations"

// MovieRepository 电影仓储接口
type MovieRepository interface {
	GetByID(ctx context.Context, id int64) (*domain.Movie, error)
	// LockForUpdate 锁定电影行，串行化同一电影上的所有变更
	LockForUpdate(ctx context.Context, id int64) error
	List(ctx context.Context, limit, offset int) ([]*domain.Movie, error)
	Count(ctx context.Context) (int64, error)
	Search(ctx context.Context, query string, limit, offset int) ([]*domain.Movie, int64, error)
	ListHot(ctx context.Context, limit int) ([]*domain.Movie, error)
	ListIDs(ctx context.Context) ([]int64, error)
	Create(ctx context.Context, movie *domain.Movie) error
	UpdateAggregate(ctx context.Context, agg *domain.Aggregate) error
}

// RatingRepository 评分仓储接口
type RatingRepository interface {
	Get(ctx context.Context, movieID, userID int64) (*domain.Rating, error)
	Create(ctx context.Context, rating *domain.Rating) error
	Update(ctx context.Context, rating *domain.Rating) error
	// Stats 返回评分条数与平均分，无评分时平均分为 nil
	Stats(ctx context.Context, movieID int64) (int64, *float64, error)
}

// FavoriteRepository 收藏仓储接口
type FavoriteRepository interface {
	Exists(ctx context.Context, userID, movieID int64) (bool, error)
	Create(ctx context.Context, favorite *domain.Favorite) error
	// Delete 删除收藏，返回是否删除了记录
	Delete(ctx context.Context, userID, movieID int64) (bool, error)
	ListByUser(ctx context.Context, userID int64) ([]*domain.Favorite, error)
	CountByMovie(ctx context.Context, movieID int64) (int64, error)
}

// FavoriteHistoryRepository 收藏历史仓储接口
type FavoriteHistoryRepository interface {
	Append(ctx context.Context, event *domain.FavoriteHistoryEvent) error
	// ListByUser 按时间倒序返回
	ListByUser(ctx context.Context, userID int64) ([]*domain.FavoriteHistoryEvent, error)
}

// CommentRepository 评论仓储接口
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
	// ListByMovie 按时间倒序返回
	ListByMovie(ctx context.Context, movieID int64) ([]*domain.Comment, error)
	CountByMovie(ctx context.Context, movieID int64) (int64, error)
}

// UserRepository 用户仓储接口
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
}

// Repositories 绑定到同一连接（连接池或事务）的一组仓储
type Repositories struct {
	Movies    MovieRepository
	Ratings   RatingRepository
	Favorites FavoriteRepository
	History   FavoriteHistoryRepository
	Comments  CommentRepository
	Users     UserRepository
}

// Store 持久化入口
type Store interface {
	// Repos 返回非事务仓储，用于读
	Repos() *Repositories
	// ExecTx 在事务中执行 fn，fn 返回错误时整体回滚
	ExecTx(ctx context.Context, fn func(repos *Repositories) error) error
	Ping(ctx context.Context) error
}
