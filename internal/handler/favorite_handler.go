package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// FavoriteHandler 收藏处理器
type FavoriteHandler struct {
	favorites *service.FavoriteService
}

// NewFavoriteHandler 创建收藏处理器
func NewFavoriteHandler(favorites *service.FavoriteService) *FavoriteHandler {
	return &FavoriteHandler{favorites: favorites}
}

// Add 添加收藏
func (h *FavoriteHandler) Add(c *gin.Context) {
	var req struct {
		UserID  int64 `json:"user_id"`
		MovieID int64 `json:"movie_id"`
	}
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	agg, err := h.favorites.Add(c.Request.Context(), httputil.GetUserID(c), req.UserID, req.MovieID)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusCreated, gin.H{
		"message":    "收藏成功",
		"popularity": agg.Popularity,
	})
}

// Remove 取消收藏
func (h *FavoriteHandler) Remove(c *gin.Context) {
	userID, movieID, ok := userMovieParams(c)
	if !ok {
		return
	}

	agg, err := h.favorites.Remove(c.Request.Context(), httputil.GetUserID(c), userID, movieID)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusOK, gin.H{
		"message":    "取消收藏成功",
		"popularity": agg.Popularity,
	})
}

// Check 检查是否已收藏
func (h *FavoriteHandler) Check(c *gin.Context) {
	userID, movieID, ok := userMovieParams(c)
	if !ok {
		return
	}

	favorited, err := h.favorites.IsFavorited(c.Request.Context(), userID, movieID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, gin.H{"isFavorited": favorited})
}

// History 收藏历史
func (h *FavoriteHandler) History(c *gin.Context) {
	userID, err := httputil.ParamInt64(c, "userId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	history, err := h.favorites.History(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, history)
}

// ListByUser 用户当前收藏
func (h *FavoriteHandler) ListByUser(c *gin.Context) {
	userID, err := httputil.ParamInt64(c, "userId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	favorites, err := h.favorites.ListByUser(c.Request.Context(), userID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, favorites)
}

// Count 电影收藏数
func (h *FavoriteHandler) Count(c *gin.Context) {
	movieID, err := httputil.ParamInt64(c, "movieId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	count, err := h.favorites.CountByMovie(c.Request.Context(), movieID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, gin.H{"count": count})
}

func userMovieParams(c *gin.Context) (int64, int64, bool) {
	userID, err := httputil.ParamInt64(c, "userId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return 0, 0, false
	}
	movieID, err := httputil.ParamInt64(c, "movieId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return 0, 0, false
	}
	return userID, movieID, true
}
