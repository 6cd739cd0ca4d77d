package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/zhy3800/MovieWebsite/internal/service"
	"github.com/zhy3800/MovieWebsite/pkg/httputil"
)

// UserHandler 用户处理器
type UserHandler struct {
	credentials *service.CredentialService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(credentials *service.CredentialService) *UserHandler {
	return &UserHandler{credentials: credentials}
}

// Login 登录
func (h *UserHandler) Login(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	result, err := h.credentials.Login(c.Request.Context(), req.Username, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusOK, result)
}

// Register 注册
func (h *UserHandler) Register(c *gin.Context) {
	var req struct {
		Username string `json:"username" binding:"required"`
		Email    string `json:"email" binding:"required"`
		Password string `json:"password" binding:"required"`
	}
	if err := httputil.BindJSON(c, &req); err != nil {
		httputil.ErrorResponse(c, err)
		return
	}

	userID, err := h.credentials.Register(c.Request.Context(), req.Username, req.Email, req.Password)
	if err != nil {
		handleError(c, err)
		return
	}

	httputil.JSON(c, http.StatusCreated, gin.H{
		"message": "注册成功",
		"user_id": userID,
	})
}
