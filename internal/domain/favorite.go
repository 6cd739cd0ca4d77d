package domain

import "time"

// Favorite 收藏实体，(user_id, movie_id) 唯一，存在即已收藏
type Favorite struct {
	ID        int64         `json:"id"`
	UserID    int64         `json:"user_id"`
	MovieID   int64         `json:"movie_id"`
	CreatedAt time.Time     `json:"created_at"`
	Movie     *MovieSummary `json:"movie,omitempty"`
}

// FavoriteAction 收藏历史动作
type FavoriteAction string

const (
	FavoriteActionAdd    FavoriteAction = "add"
	FavoriteActionRemove FavoriteAction = "remove"
)

// FavoriteHistoryEvent 收藏历史事件，只追加，不用于推导当前收藏状态
type FavoriteHistoryEvent struct {
	ID        int64          `json:"id"`
	UserID    int64          `json:"user_id"`
	MovieID   int64          `json:"movie_id"`
	Action    FavoriteAction `json:"action"`
	CreatedAt time.Time      `json:"created_at"`
	Movie     *MovieSummary  `json:"movie,omitempty"`
}
