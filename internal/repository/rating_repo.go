package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/zhy3800/MovieWebsite/internal/domain"
)

// RatingRepositoryImpl 评分仓储实现
type RatingRepositoryImpl struct {
	db DBTX
}

// NewRatingRepository 创建评分仓储
func NewRatingRepository(db DBTX) RatingRepository {
	return &RatingRepositoryImpl{db: db}
}

// Get 获取用户对电影的评分
func (r *RatingRepositoryImpl) Get(ctx context.Context, movieID, userID int64) (*domain.Rating, error) {
	var rt domain.Rating
	err := r.db.QueryRow(ctx, `
		SELECT id, movie_id, user_id, rating, created_at, updated_at
		FROM ratings
		WHERE movie_id = $1 AND user_id = $2
	`, movieID, userID).Scan(&rt.ID, &rt.MovieID, &rt.UserID, &rt.Value, &rt.CreatedAt, &rt.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrRatingNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get rating: %w", err)
	}
	return &rt, nil
}

// Create 新增评分
func (r *RatingRepositoryImpl) Create(ctx context.Context, rating *domain.Rating) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO ratings (movie_id, user_id, rating)
		VALUES ($1, $2, $3)
		RETURNING id, created_at, updated_at
	`, rating.MovieID, rating.UserID, rating.Value).Scan(&rating.ID, &rating.CreatedAt, &rating.UpdatedAt)
	if err != nil {
		return fmt.Errorf("create rating: %w", err)
	}
	return nil
}

// Update 原地更新评分
func (r *RatingRepositoryImpl) Update(ctx context.Context, rating *domain.Rating) error {
	err := r.db.QueryRow(ctx, `
		UPDATE ratings
		SET rating = $3, updated_at = NOW()
		WHERE movie_id = $1 AND user_id = $2
		RETURNING id, updated_at
	`, rating.MovieID, rating.UserID, rating.Value).Scan(&rating.ID, &rating.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return domain.ErrRatingNotFound
	}
	if err != nil {
		return fmt.Errorf("update rating: %w", err)
	}
	return nil
}

// Stats 统计评分条数与平均分
func (r *RatingRepositoryImpl) Stats(ctx context.Context, movieID int64) (int64, *float64, error) {
	var (
		count int64
		mean  *float64
	)
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*), AVG(rating)
		FROM ratings
		WHERE movie_id = $1
	`, movieID).Scan(&count, &mean)
	if err != nil {
		return 0, nil, fmt.Errorf("rating stats: %w", err)
	}
	return count, mean, nil
}
