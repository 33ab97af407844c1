package handler

import (
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// UserHandler 用户处理器
type UserHandler struct {
	svc *service.UserService
}

// NewUserHandler 创建用户处理器
func NewUserHandler(svc *service.UserService) *UserHandler {
	return &UserHandler{svc: svc}
}

// List 获取用户列表，带在线标记
func (h *UserHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	params := repository.UserListParams{
		Keyword: c.Query("keyword"),
		Active:  parseBoolQuery(c, "is_active"),
		Page:    page,
		Size:    pageSize,
	}

	users, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(users, page, pageSize, total))
}

// Get 获取用户详情
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	user, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, user)
}
