package handler

import (
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// AuthHandler 认证处理器
type AuthHandler struct {
	svc *service.AuthService
}

// NewAuthHandler 创建认证处理器
func NewAuthHandler(svc *service.AuthService) *AuthHandler {
	return &AuthHandler{svc: svc}
}

// Login 用户名密码登录
func (h *AuthHandler) Login(c *gin.Context) {
	var req service.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	result, err := h.svc.Login(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, result)
}

// Me 当前登录用户信息
func (h *AuthHandler) Me(c *gin.Context) {
	user, err := h.svc.GetUser(c.Request.Context(), GetUserID(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, user)
}

// Logout 登出
func (h *AuthHandler) Logout(c *gin.Context) {
	h.svc.Logout(c.Request.Context(), GetUserID(c))
	Success(c, nil)
}
