package service

import (
	"context"
	"strings"

	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/repository"
)

// 分页默认值
const (
	DefaultPageLimit   = 20
	DefaultSearchLimit = 12
	DefaultHotLimit    = 10
	MaxPageLimit       = 100
)

// SearchResult 分页搜索结果
type SearchResult struct {
	Movies     []*domain.Movie `json:"movies"`
	Total      int64           `json:"total"`
	Page       int             `json:"page"`
	Limit      int             `json:"limit"`
	TotalPages int             `json:"totalPages"`
}

// MovieService 电影查询服务
type MovieService struct {
	store repository.Store
}

// NewMovieService 创建电影查询服务
func NewMovieService(store repository.Store) *MovieService {
	return &MovieService{store: store}
}

// Get 获取电影详情
func (s *MovieService) Get(ctx context.Context, id int64) (*domain.Movie, error) {
	if id <= 0 {
		return nil, domain.ErrInvalidMovieID
	}
	return s.store.Repos().Movies.GetByID(ctx, id)
}

// List 分页获取电影列表
func (s *MovieService) List(ctx context.Context, page domain.Page) ([]*domain.Movie, int64, error) {
	page = normalizePage(page, DefaultPageLimit)
	repos := s.store.Repos()
	movies, err := repos.Movies.List(ctx, page.Limit, page.Offset())
	if err != nil {
		return nil, 0, err
	}
	total, err := repos.Movies.Count(ctx)
	if err != nil {
		return nil, 0, err
	}
	return movies, total, nil
}

// Search 按片名或简介搜索，最多返回 MaxPageLimit 条
func (s *MovieService) Search(ctx context.Context, query string) ([]*domain.Movie, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidSearchQuery
	}
	movies, _, err := s.store.Repos().Movies.Search(ctx, query, MaxPageLimit, 0)
	return movies, err
}

// PagedSearch 分页搜索
func (s *MovieService) PagedSearch(ctx context.Context, query string, page domain.Page) (*SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, domain.ErrInvalidSearchQuery
	}
	page = normalizePage(page, DefaultSearchLimit)
	movies, total, err := s.store.Repos().Movies.Search(ctx, query, page.Limit, page.Offset())
	if err != nil {
		return nil, err
	}
	return &SearchResult{
		Movies:     movies,
		Total:      total,
		Page:       page.Page,
		Limit:      page.Limit,
		TotalPages: page.TotalPages(total),
	}, nil
}

// Hot 按热度倒序获取电影
func (s *MovieService) Hot(ctx context.Context, limit int) ([]*domain.Movie, error) {
	if limit <= 0 {
		limit = DefaultHotLimit
	}
	if limit > MaxPageLimit {
		limit = MaxPageLimit
	}
	return s.store.Repos().Movies.ListHot(ctx, limit)
}

func normalizePage(p domain.Page, defLimit int) domain.Page {
	if p.Page < 1 {
		p.Page = 1
	}
	if p.Limit <= 0 {
		p.Limit = defLimit
	}
	if p.Limit > MaxPageLimit {
		p.Limit = MaxPageLimit
	}
	return p
}
