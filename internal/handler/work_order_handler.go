package handler

import (
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/service"
	"github.com/gin-gonic/gin"
)

// WorkOrderHandler 保养工单处理器
type WorkOrderHandler struct {
	svc *service.WorkOrderService
}

// NewWorkOrderHandler 创建保养工单处理器
func NewWorkOrderHandler(svc *service.WorkOrderService) *WorkOrderHandler {
	return &WorkOrderHandler{svc: svc}
}

// List 获取工单列表。操作员只能看到自己工序的工单。
func (h *WorkOrderHandler) List(c *gin.Context) {
	page, pageSize := GetPagination(c)

	query := service.WorkOrderListQuery{
		Status:    c.Query("status"),
		Keyword:   c.Query("keyword"),
		Mine:      c.Query("mine") == "true",
		StartDate: c.Query("start_date"),
		EndDate:   c.Query("end_date"),
		Page:      page,
		Size:      pageSize,
	}

	rows, total, err := h.svc.List(c.Request.Context(), query, GetActor(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(rows, page, pageSize, total))
}

// Get 获取工单详情
func (h *WorkOrderHandler) Get(c *gin.Context) {
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

// Start 开工
func (h *WorkOrderHandler) Start(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	row, err := h.svc.Start(c.Request.Context(), id, GetActor(c))
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

// Complete 完工
func (h *WorkOrderHandler) Complete(c *gin.Context) {
	id, ok := ParseIDParam(c, "id")
	if !ok {
		return
	}

	var req service.CompleteWorkOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, "Invalid request body: "+err.Error())
		return
	}

	row, err := h.svc.Complete(c.Request.Context(), id, GetActor(c), req)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, row)
}

func parseRecordListParams(c *gin.Context) (repository.RecordListParams, bool) {
	params := repository.RecordListParams{
		Keyword: c.Query("keyword"),
	}
	if raw := c.Query("start_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "Invalid start_date: "+raw)
			return params, false
		}
		params.StartDate = t
	}
	if raw := c.Query("end_date"); raw != "" {
		t, err := time.Parse("2006-01-02", raw)
		if err != nil {
			BadRequest(c, "Invalid end_date: "+raw)
			return params, false
		}
		params.EndDate = t
	}
	if c.Query("mine") == "true" {
		params.ExecutorUserID = GetUserID(c)
	}
	return params, true
}

// ListRecords 获取保养记录列表
func (h *WorkOrderHandler) ListRecords(c *gin.Context) {
	params, ok := parseRecordListParams(c)
	if !ok {
		return
	}
	params.Page, params.Size = GetPagination(c)

	rows, total, err := h.svc.ListRecords(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}

	Success(c, NewListResponse(rows, params.Page, params.Size, total))
}

// ExportRecords 导出保养记录为Excel
func (h *WorkOrderHandler) ExportRecords(c *gin.Context) {
	params, ok := parseRecordListParams(c)
	if !ok {
		return
	}

	f, filename, err := h.svc.ExportRecords(c.Request.Context(), params)
	if err != nil {
		HandleServiceError(c, err)
		return
	}
	defer f.Close()

	c.Header("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Header("Content-Disposition", "attachment; filename=\""+filename+"\"")
	c.Header("Content-Transfer-Encoding", "binary")

	if err := f.Write(c.Writer); err != nil {
		InternalError(c, "write excel: "+err.Error())
	}
}
