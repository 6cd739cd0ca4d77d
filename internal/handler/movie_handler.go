package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/domain"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// MovieHandler 电影处理器
type MovieHandler struct {
	movies     *service.MovieService
	aggregates *service.AggregateService
}

// NewMovieHandler 创建电影处理器
func NewMovieHandler(movies *service.MovieService, aggregates *service.AggregateService) *MovieHandler {
	return &MovieHandler{movies: movies, aggregates: aggregates}
}

// List 分页获取电影
func (h *MovieHandler) List(c *gin.Context) {
	page := domain.Page{
		Page:  httputil.QueryInt(c, "page", 1),
		Limit: httputil.QueryInt(c, "limit", service.DefaultPageLimit),
	}
	movies, total, err := h.movies.List(c.Request.Context(), page)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, gin.H{"movies": movies, "total": total})
}

// Search 搜索电影
func (h *MovieHandler) Search(c *gin.Context) {
	movies, err := h.movies.Search(c.Request.Context(), c.Query("query"))
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, movies)
}

// PagedSearch 分页搜索电影
func (h *MovieHandler) PagedSearch(c *gin.Context) {
	page := domain.Page{
		Page:  httputil.QueryInt(c, "page", 1),
		Limit: httputil.QueryInt(c, "limit", service.DefaultSearchLimit),
	}
	result, err := h.movies.PagedSearch(c.Request.Context(), c.Query("query"), page)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, result)
}

// Hot 热门电影
func (h *MovieHandler) Hot(c *gin.Context) {
	movies, err := h.movies.Hot(c.Request.Context(), httputil.QueryInt(c, "limit", service.DefaultHotLimit))
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, movies)
}

// Get 电影详情
func (h *MovieHandler) Get(c *gin.Context) {
	id, err := httputil.ParamInt64(c, "id")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}
	movie, err := h.movies.Get(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, movie)
}

// RecomputeRating 重新计算电影评分与热度
func (h *MovieHandler) RecomputeRating(c *gin.Context) {
	id, err := httputil.ParamInt64(c, "id")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}
	agg, err := h.aggregates.RecomputeMovie(c.Request.Context(), id)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, gin.H{"rating": agg.Rating, "popularity": agg.Popularity})
}
