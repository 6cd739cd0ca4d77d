package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// CommentHandler 评论处理器
type CommentHandler struct {
	comments *service.CommentService
}

// NewCommentHandler 创建评论处理器
func NewCommentHandler(comments *service.CommentService) *CommentHandler {
	return &CommentHandler{comments: comments}
}

// Post 发表评论
func (h *CommentHandler) Post(c *gin.Context) {
	var req struct {
		MovieID     int64  `json:"movie_id"`
		UserID      int64  `json:"user_id"`
		CommentText string `json:"comment_text"`
	}
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	comment, err := h.comments.Post(c.Request.Context(), httputil.GetUserID(c), req.UserID, req.MovieID, req.CommentText)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusCreated, gin.H{
		"message":    "评论发表成功",
		"comment_id": comment.ID,
	})
}

// List 电影评论列表
func (h *CommentHandler) List(c *gin.Context) {
	movieID, err := httputil.ParamInt64(c, "movieId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	comments, err := h.comments.List(c.Request.Context(), movieID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, comments)
}

// Count 电影评论数
func (h *CommentHandler) Count(c *gin.Context) {
	movieID, err := httputil.ParamInt64(c, "movieId")
	if err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	count, err := h.comments.Count(c.Request.Context(), movieID)
	if err != nil {
		handleError(c, err)
		return
	}
	httputil.JSON(c, http.StatusOK, gin.H{"count": count})
}
