package handler

import (
	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// EquipmentHandler 设备与保养项目处理器
type EquipmentHandler struct {
	svc *service.EquipmentService
}

// NewEquipmentHandler 创建设备处理器
func NewEquipmentHandler(svc *service.EquipmentService) *EquipmentHandler {
	return &EquipmentHandler{svc: svc}
}

// ToggleRequest 启用/停用请求
type ToggleRequest struct {
	IsEnabled *bool `json:"is_enabled" binding:"required"`
}

// List 获取设备列表
func (h *EquipmentHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	params := repository.EquipmentListParams{
		Keyword: c.Query("keyword"),
		Enabled: parseBoolQuery(c, "is_enabled"),
		Page:    page,
		Size:    pageSize,
	}

	rows, total, err := h.svc.ListEquipment(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(rows, page, pageSize, total))
}

// Get 获取设备详情
func (h *EquipmentHandler) Get(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	row, err := h.svc.GetEquipment(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Create 创建设备
func (h *EquipmentHandler) Create(c *gin.Context) {
	var req service.EquipmentUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.CreateEquipment(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, row)
}

// Update 更新设备
func (h *EquipmentHandler) Update(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.EquipmentUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.UpdateEquipment(c.Request.Context(), id, req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Toggle 启用/停用设备
func (h *EquipmentHandler) Toggle(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.ToggleEquipment(c.Request.Context(), id, *req.IsEnabled)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Delete 删除设备
func (h *EquipmentHandler) Delete(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteEquipment(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, nil)
}

// ListItems 获取保养项目列表
func (h *EquipmentHandler) ListItems(c *gin.Context) {
	page, pageSize := GetPagination(c)

	params := repository.ItemListParams{
		Keyword: c.Query("keyword"),
		Enabled: parseBoolQuery(c, "is_enabled"),
		Page:    page,
		Size:    pageSize,
	}

	rows, total, err := h.svc.ListItems(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(rows, page, pageSize, total))
}

// GetItem 获取保养项目详情
func (h *EquipmentHandler) GetItem(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	row, err := h.svc.GetItem(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// CreateItem 创建保养项目
func (h *EquipmentHandler) CreateItem(c *gin.Context) {
	var req service.ItemUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.CreateItem(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, row)
}

// UpdateItem 更新保养项目，周期变化会联动重算计划
func (h *EquipmentHandler) UpdateItem(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.ItemUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.UpdateItem(c.Request.Context(), id, req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// ToggleItem 启用/停用保养项目
func (h *EquipmentHandler) ToggleItem(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.ToggleItem(c.Request.Context(), id, *req.IsEnabled)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// DeleteItem 删除保养项目
func (h *EquipmentHandler) DeleteItem(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.DeleteItem(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, nil)
}

// ProcessOptions 工序选项，供前端下拉使用
func (h *EquipmentHandler) ProcessOptions(c *gin.Context) {
	Success(c, entity.ProcessOptions)
}
