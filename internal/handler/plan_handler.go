package handler

import (
	"strconv"

	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// PlanHandler 保养计划处理器
type PlanHandler struct {
	svc          *service.PlanService
	workOrderSvc *service.WorkOrderService
}

// NewPlanHandler 创建保养计划处理器
func NewPlanHandler(svc *service.PlanService, workOrderSvc *service.WorkOrderService) *PlanHandler {
	return &PlanHandler{svc: svc, workOrderSvc: workOrderSvc}
}

// List 获取保养计划列表
func (h *PlanHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	params := repository.PlanListParams{
		Enabled: parseBoolQuery(c, "is_enabled"),
		Page:    page,
		Size:    pageSize,
	}
	if raw := c.Query("equipment_id"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			params.EquipmentID = uint(v)
		}
	}
	if raw := c.Query("item_id"); raw != "" {
		if v, err := strconv.ParseUint(raw, 10, 32); err == nil {
			params.ItemID = uint(v)
		}
	}

	rows, total, err := h.svc.List(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(rows, page, pageSize, total))
}

// Get 获取保养计划详情
func (h *PlanHandler) Get(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	row, err := h.svc.Get(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Create 创建保养计划
func (h *PlanHandler) Create(c *gin.Context) {
	var req service.PlanUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Created(c, row)
}

// Update 更新保养计划
func (h *PlanHandler) Update(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.PlanUpsertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.Update(c.Request.Context(), id, req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Toggle 启用/停用保养计划
func (h *PlanHandler) Toggle(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req ToggleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.Toggle(c.Request.Context(), id, *req.IsEnabled)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Delete 删除保养计划
func (h *PlanHandler) Delete(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id); err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, nil)
}

// Generate 手动为单个计划生成工单
func (h *PlanHandler) Generate(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	order, created, err := h.workOrderSvc.Generate(c.Request.Context(), id)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	data := gin.H{"work_order": order, "created": created}
	if created {
		Created(c, data)
		return
	}
	Success(c, data)
}

// GenerateDue 手动触发一轮到期批量生成
func (h *PlanHandler) GenerateDue(c *gin.Context) {
	result, err := h.workOrderSvc.GenerateDueWorkOrders(c.Request.Context())
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, result)
}
