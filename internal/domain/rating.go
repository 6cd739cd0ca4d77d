package domain

import (
	"math"
	"time"
)

// 评分取值范围
const (
	MinRating = 1.0
	MaxRating = 5.0
)

// Rating 用户对电影的评分，(movie_id, user_id) 唯一
type Rating struct {
	ID        int64     `json:"id"`
	MovieID   int64     `json:"movie_id"`
	UserID    int64     `json:"user_id"`
	Value     float64   `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// UserRating 当前用户对某电影的评分视图
type UserRating struct {
	Rated  bool    `json:"rated"`
	Rating float64 `json:"rating"`
}

// ClampRating 将评分钳制到 [1,5] 并保留一位小数
//
// 越界值不报错，直接钳制。NaN 与 Inf 视为非法。
func ClampRating(v float64) (float64, error) {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, ErrInvalidRating
	}
	v = math.Max(MinRating, math.Min(MaxRating, v))
	return math.Round(v*10) / 10, nil
}
