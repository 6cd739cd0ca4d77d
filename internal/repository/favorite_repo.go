package repository

import (
	"context"
	"fmt"

	"github.com/zhy3800/MovieWebsite/internal/domain"
)

// FavoriteRepositoryImpl 收藏仓储实现
type FavoriteRepositoryImpl struct {
	db DBTX
}

// NewFavoriteRepository 创建收藏仓储
func NewFavoriteRepository(db DBTX) FavoriteRepository {
	return &FavoriteRepositoryImpl{db: db}
}

// Exists 检查是否已收藏
func (r *FavoriteRepositoryImpl) Exists(ctx context.Context, userID, movieID int64) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS(SELECT 1 FROM favorites WHERE user_id = $1 AND movie_id = $2)
	`, userID, movieID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("check favorite: %w", err)
	}
	return exists, nil
}

// Create 创建收藏
func (r *FavoriteRepositoryImpl) Create(ctx context.Context, favorite *domain.Favorite) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO favorites (user_id, movie_id)
		VALUES ($1, $2)
		RETURNING id, created_at
	`, favorite.UserID, favorite.MovieID).Scan(&favorite.ID, &favorite.CreatedAt)
	if err != nil {
		if _, ok := uniqueViolation(err); ok {
			return domain.ErrAlreadyFavorited
		}
		return fmt.Errorf("create favorite: %w", err)
	}
	return nil
}

// Delete 删除收藏
func (r *FavoriteRepositoryImpl) Delete(ctx context.Context, userID, movieID int64) (bool, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM favorites WHERE user_id = $1 AND movie_id = $2`, userID, movieID)
	if err != nil {
		return false, fmt.Errorf("delete favorite: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

// ListByUser 获取用户收藏（含电影摘要）
func (r *FavoriteRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]*domain.Favorite, error) {
	rows, err := r.db.Query(ctx, `
		SELECT f.id, f.user_id, f.movie_id, f.created_at,
		       m.zhy_title, m.poster_path, m.release_date, m.rating
		FROM favorites f
		JOIN movies m ON m.id = f.movie_id
		WHERE f.user_id = $1
		ORDER BY f.created_at DESC, f.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorites: %w", err)
	}
	defer rows.Close()

	favorites := make([]*domain.Favorite, 0)
	for rows.Next() {
		f := &domain.Favorite{Movie: &domain.MovieSummary{}}
		if err := rows.Scan(
			&f.ID,
			&f.UserID,
			&f.MovieID,
			&f.CreatedAt,
			&f.Movie.ZhyTitle,
			&f.Movie.PosterPath,
			&f.Movie.ReleaseDate,
			&f.Movie.Rating,
		); err != nil {
			return nil, err
		}
		f.Movie.ID = f.MovieID
		favorites = append(favorites, f)
	}
	return favorites, rows.Err()
}

// CountByMovie 统计电影被收藏次数
func (r *FavoriteRepositoryImpl) CountByMovie(ctx context.Context, movieID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM favorites WHERE movie_id = $1`, movieID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count favorites: %w", err)
	}
	return n, nil
}
