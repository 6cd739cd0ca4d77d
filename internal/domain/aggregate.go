package domain

import (
	"fmt"
	"math"
)

// RatingTerm 热度公式中评分项的取值方式
type RatingTerm string

const (
	// RatingTermCount 使用评分条数
	RatingTermCount RatingTerm = "count"
	// RatingTermScore 使用平均分（无评分时为 0）
	RatingTermScore RatingTerm = "score"
)

// PopularityWeights 热度权重
type PopularityWeights struct {
	Favorites  float64
	Comments   float64
	Ratings    float64
	RatingTerm RatingTerm
}

// DefaultPopularityWeights 默认权重 0.4/0.3/0.3
func DefaultPopularityWeights() PopularityWeights {
	return PopularityWeights{
		Favorites:  0.4,
		Comments:   0.3,
		Ratings:    0.3,
		RatingTerm: RatingTermCount,
	}
}

// Validate 校验权重
func (w PopularityWeights) Validate() error {
	if w.Favorites < 0 || w.Comments < 0 || w.Ratings < 0 {
		return fmt.Errorf("popularity weights cannot be negative")
	}
	if w.RatingTerm != RatingTermCount && w.RatingTerm != RatingTermScore {
		return fmt.Errorf("unknown rating term %q", w.RatingTerm)
	}
	return nil
}

// AggregateInput 重算聚合所需的原始统计
type AggregateInput struct {
	FavoritesCount int64
	CommentsCount  int64
	RatingsCount   int64
	RatingMean     *float64 // 无评分时为 nil
}

// Aggregate 电影的派生指标
type Aggregate struct {
	MovieID        int64    `json:"movie_id"`
	Rating         *float64 `json:"rating"`
	Popularity     float64  `json:"popularity"`
	FavoritesCount int64    `json:"favorites_count"`
	CommentsCount  int64    `json:"comments_count"`
	RatingsCount   int64    `json:"ratings_count"`
}

// ComputeAggregate 由当前行数据全量计算派生指标
func ComputeAggregate(movieID int64, in AggregateInput, w PopularityWeights) *Aggregate {
	ratingTerm := float64(in.RatingsCount)
	if w.RatingTerm == RatingTermScore {
		ratingTerm = 0
		if in.RatingMean != nil {
			ratingTerm = *in.RatingMean
		}
	}

	popularity := float64(in.FavoritesCount)*w.Favorites +
		float64(in.CommentsCount)*w.Comments +
		ratingTerm*w.Ratings

	var rating *float64
	if in.RatingsCount > 0 && in.RatingMean != nil {
		mean := roundTo(*in.RatingMean, 2)
		rating = &mean
	}

	return &Aggregate{
		MovieID:        movieID,
		Rating:         rating,
		Popularity:     roundTo(popularity, 2),
		FavoritesCount: in.FavoritesCount,
		CommentsCount:  in.CommentsCount,
		RatingsCount:   in.RatingsCount,
	}
}

func roundTo(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}
