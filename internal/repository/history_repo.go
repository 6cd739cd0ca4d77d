package repository

import (
	"context"
	"fmt"

	"github.com/zhy3800/MovieWebsite/internal/domain"
)

// FavoriteHistoryRepositoryImpl 收藏历史仓储实现
type FavoriteHistoryRepositoryImpl struct {
	db DBTX
}

// NewFavoriteHistoryRepository 创建收藏历史仓储
func NewFavoriteHistoryRepository(db DBTX) FavoriteHistoryRepository {
	return &FavoriteHistoryRepositoryImpl{db: db}
}

// Append 追加历史事件
func (r *FavoriteHistoryRepositoryImpl) Append(ctx context.Context, event *domain.FavoriteHistoryEvent) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO favorite_history (user_id, movie_id, action)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, event.UserID, event.MovieID, string(event.Action)).Scan(&event.ID, &event.CreatedAt)
	if err != nil {
		return fmt.Errorf("append favorite history: %w", err)
	}
	return nil
}

// ListByUser 获取用户收藏历史，最新在前
func (r *FavoriteHistoryRepositoryImpl) ListByUser(ctx context.Context, userID int64) ([]*domain.FavoriteHistoryEvent, error) {
	rows, err := r.db.Query(ctx, `
		SELECT h.id, h.user_id, h.movie_id, h.action, h.created_at,
		       m.zhy_title, m.poster_path, m.release_date, m.rating
		FROM favorite_history h
		JOIN movies m ON m.id = h.movie_id
		WHERE h.user_id = $1
		ORDER BY h.created_at DESC, h.id DESC
	`, userID)
	if err != nil {
		return nil, fmt.Errorf("list favorite history: %w", err)
	}
	defer rows.Close()

	events := make([]*domain.FavoriteHistoryEvent, 0)
	for rows.Next() {
		var action string
		e := &domain.FavoriteHistoryEvent{Movie: &domain.MovieSummary{}}
		if err := rows.Scan(
			&e.ID,
			&e.UserID,
			&e.MovieID,
			&action,
			&e.CreatedAt,
			&e.Movie.ZhyTitle,
			&e.Movie.PosterPath,
			&e.Movie.ReleaseDate,
			&e.Movie.Rating,
		); err != nil {
			return nil, err
		}
		e.Action = domain.FavoriteAction(action)
		e.Movie.ID = e.MovieID
		events = append(events, e)
	}
	return events, rows.Err()
}
