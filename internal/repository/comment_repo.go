package repository

import (
	"context"
	"fmt"

	"github.com/zhy3800/MovieWebsite/internal/domain"
)

// CommentRepositoryImpl 评论仓储实现
type CommentRepositoryImpl struct {
	db DBTX
}

// NewCommentRepository 创建评论仓储
func NewCommentRepository(db DBTX) CommentRepository {
	return &CommentRepositoryImpl{db: db}
}

// Create 发表评论
func (r *CommentRepositoryImpl) Create(ctx context.Context, comment *domain.Comment) error {
	err := r.db.QueryRow(ctx, `
		INSERT INTO comments (movie_id, user_id, comment_text)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`, comment.MovieID, comment.UserID, comment.Text).Scan(&comment.ID, &comment.CreatedAt)
	if err != nil {
		return fmt.Errorf("create comment: %w", err)
	}
	return nil
}

// ListByMovie 获取电影评论（含用户名），最新在前
func (r *CommentRepositoryImpl) ListByMovie(ctx context.Context, movieID int64) ([]*domain.Comment, error) {
	rows, err := r.db.Query(ctx, `
		SELECT c.id, c.movie_id, c.user_id, u.username, c.comment_text, c.created_at
		FROM comments c
		JOIN users u ON u.id = c.user_id
		WHERE c.movie_id = $1
		ORDER BY c.created_at DESC, c.id DESC
	`, movieID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	comments := make([]*domain.Comment, 0)
	for rows.Next() {
		var c domain.Comment
		if err := rows.Scan(&c.ID, &c.MovieID, &c.UserID, &c.Username, &c.Text, &c.CreatedAt); err != nil {
			return nil, err
		}
		comments = append(comments, &c)
	}
	return comments, rows.Err()
}

// CountByMovie 统计电影评论数
func (r *CommentRepositoryImpl) CountByMovie(ctx context.Context, movieID int64) (int64, error) {
	var n int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM comments WHERE movie_id = $1`, movieID).Scan(&n); err != nil {
		return 0, fmt.Errorf("count comments: %w", err)
	}
	return n, nil
}
