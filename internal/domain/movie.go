package domain

import "time"

// Movie 电影实体
//
// Rating 与 Popularity 只由聚合维护器写入。
type Movie struct {
	ID          int64      `json:"id"`
	ZhyTitle    string     `json:"zhy_title"`   // 中文片名
	EngTitle    string     `json:"eng_title"`   // 英文片名
	Description string     `json:"description"` // 简介
	PosterPath  string     `json:"poster_path"` // 海报
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	Rating      *float64   `json:"rating"` // 无评分时为 null
	Popularity  float64    `json:"popularity"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// MovieSummary 列表/历史中展示用的电影摘要
type MovieSummary struct {
	ID          int64      `json:"id"`
	ZhyTitle    string     `json:"zhy_title"`
	PosterPath  string     `json:"poster_path"`
	ReleaseDate *time.Time `json:"release_date,omitempty"`
	Rating      *float64   `json:"rating"`
}

// Summary 返回电影摘要
func (m *Movie) Summary() *MovieSummary {
	return &MovieSummary{
		ID:          m.ID,
		ZhyTitle:    m.ZhyTitle,
		PosterPath:  m.PosterPath,
		ReleaseDate: m.ReleaseDate,
		Rating:      m.Rating,
	}
}

// Page 分页参数
type Page struct {
	Page  int
	Limit int
}

// Offset 计算偏移量
func (p Page) Offset() int {
	if p.Page <= 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit
}

// TotalPages 计算总页数
func (p Page) TotalPages(total int64) int {
	if p.Limit <= 0 {
		return 0
	}
	pages := int(total) / p.Limit
	if int(total)%p.Limit != 0 {
		pages++
	}
	return pages
}
