package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/errors"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// RatingHandler 评分处理器
type RatingHandler struct {
	ratings *service.RatingService
	movies  *service.MovieService
}

// NewRatingHandler 创建评分处理器
func NewRatingHandler(ratings *service.RatingService, movies *service.MovieService) *RatingHandler {
	return &RatingHandler{ratings: ratings, movies: movies}
}

// Rate 为电影评分
func (h *RatingHandler) Rate(c *gin.Context) {
	movieID, err := httputil.ParamInt64(c, "id")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	var req struct {
		UserID int64    `json:"user_id"`
		Rating *float64 `json:"rating"`
	}
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.ErrorResponse(c, err)
		return
	}
	if req.Rating == nil {
		httputil.ErrorResponse(c, errors.Validation("rating is required"))
		return
	}

	ctx := c.Request.Context()
	result, err := h.ratings.Rate(ctx, httputil.GetUserID(c), movieID, req.UserID, *req.Rating)
	if err != nil {
		handleError(c, err)
		return
	}

	movie, err := h.movies.Get(ctx, movieID)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusCreated, gin.H{
		"message": "评分成功",
		"rating":  result.Rating.Value,
		"movie":   movie,
	})
}

// GetUserRating 获取用户评分
func (h *RatingHandler) GetUserRating(c *gin.Context) {
	movieID, err := httputil.ParamInt64(c, "id")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}
	userID, err := httputil.ParamInt64(c, "userId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	rating, err := h.ratings.GetUserRating(c.Request.Context(), movieID, userID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, rating)
}
