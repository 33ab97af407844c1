package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Actor 当前操作人身份，由JWT claims还原
type Actor struct {
	UserID       uint
	Username     string
	RoleCodes    []string
	ProcessCodes []string
}

// HasRole 是否持有某角色
func (a Actor) HasRole(code string) bool {
	for _, c := range a.RoleCodes {
		if c == code {
			return true
		}
	}
	return false
}

// HasProcess 是否分配了某工序
func (a Actor) HasProcess(code string) bool {
	for _, c := range a.ProcessCodes {
		if c == code {
			return true
		}
	}
	return false
}

// CanViewAllOrders 管理类角色可查看全部工单
func (a Actor) CanViewAllOrders() bool {
	return a.HasRole(entity.RoleSystemAdmin) ||
		a.HasRole(entity.RoleProductionAdmin) ||
		a.HasRole(entity.RoleQualityAdmin)
}

// CanExecuteAllOrders 管理类角色可执行任意工序的工单
func (a Actor) CanExecuteAllOrders() bool {
	return a.HasRole(entity.RoleSystemAdmin) || a.HasRole(entity.RoleProductionAdmin)
}

// WorkOrderService 保养工单的生成与执行
type WorkOrderService struct {
	workOrderRepo *repository.WorkOrderRepository
	planRepo      *repository.MaintenancePlanRepository
	recordRepo    *repository.MaintenanceRecordRepository
	userRepo      *repository.UserRepository
	db            *gorm.DB
	logger        *zap.Logger
	now           func() time.Time
}

// NewWorkOrderService 创建保养工单服务
func NewWorkOrderService(
	workOrderRepo *repository.WorkOrderRepository,
	planRepo *repository.MaintenancePlanRepository,
	recordRepo *repository.MaintenanceRecordRepository,
	userRepo *repository.UserRepository,
	db *gorm.DB,
	logger *zap.Logger,
) *WorkOrderService {
	return &WorkOrderService{
		workOrderRepo: workOrderRepo,
		planRepo:      planRepo,
		recordRepo:    recordRepo,
		userRepo:      userRepo,
		db:            db,
		logger:        logger,
		now:           time.Now,
	}
}

// RefreshOverdue 将到期未处理的 pending 工单置为 overdue。
// 任何列表查询、生成、开工判定前都先执行一次。
func (s *WorkOrderService) RefreshOverdue(ctx context.Context) (int64, error) {
	return s.workOrderRepo.MarkOverdue(ctx, DateOnly(s.now()))
}

// Generate 为计划生成工单。计划仍有未了结工单或同到期日工单已存在时
// 返回既有工单，created=false；否则创建工单并推进计划下次保养日，
// 二者在同一事务内提交。并发触发撞上 (plan_id, due_date) 唯一约束时
// 以约束为准，重读既有工单返回。
func (s *WorkOrderService) Generate(ctx context.Context, planID uint) (*entity.MaintenanceWorkOrder, bool, error) {
	order, created, err := s.generateOnce(ctx, planID)
	if err != nil && errors.Is(err, gorm.ErrDuplicatedKey) {
		// 输掉并发竞争的一方：唯一约束已保证工单存在，重读返回
		plan, planErr := s.planRepo.FindByID(ctx, planID)
		if planErr != nil {
			return nil, false, planErr
		}
		existing, findErr := s.workOrderRepo.FindByPlanAndDueDate(ctx, planID, DateOnly(plan.NextDueDate))
		if errors.Is(findErr, repository.ErrNotFound) {
			existing, findErr = s.workOrderRepo.FindActiveByPlan(ctx, planID)
		}
		if findErr != nil {
			return nil, false, findErr
		}
		return existing, false, nil
	}
	return order, created, err
}

func (s *WorkOrderService) generateOnce(ctx context.Context, planID uint) (*entity.MaintenanceWorkOrder, bool, error) {
	today := DateOnly(s.now())
	var order *entity.MaintenanceWorkOrder
	created := false

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var plan entity.MaintenancePlan
		if err := tx.Where("id = ?", planID).First(&plan).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return repository.ErrNotFound
			}
			return err
		}
		if !plan.IsEnabled {
			return NewValidationError("保养计划已停用")
		}

		// 先刷新滞期状态，再做未了结判定
		if err := tx.Model(&entity.MaintenanceWorkOrder{}).
			Where("status = ? AND due_date < ?", entity.WorkOrderStatusPending, today).
			Update("status", entity.WorkOrderStatusOverdue).Error; err != nil {
			return err
		}

		var active entity.MaintenanceWorkOrder
		err := tx.Where("plan_id = ? AND status IN ?", plan.ID, entity.WorkOrderActiveStatuses).
			First(&active).Error
		if err == nil {
			order = &active
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		var equipment entity.Equipment
		if err := tx.Where("id = ?", plan.EquipmentID).First(&equipment).Error; err != nil {
			return err
		}
		var item entity.MaintenanceItem
		if err := tx.Where("id = ?", plan.ItemID).First(&item).Error; err != nil {
			return err
		}

		// 生成时与项目当前周期对齐，避免计划编辑滞后造成周期漂移
		plan.CycleDays = item.DefaultCycleDays
		if !entity.IsValidProcessCode(plan.ExecutionProcessCode) {
			plan.ExecutionProcessCode = entity.MapLocationToProcessCode(equipment.Location)
		}

		dueDate := DateOnly(plan.NextDueDate)
		var sameDue entity.MaintenanceWorkOrder
		err = tx.Where("plan_id = ? AND due_date = ?", plan.ID, dueDate).First(&sameDue).Error
		if err == nil {
			order = &sameDue
			return nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		status := entity.WorkOrderStatusPending
		if dueDate.Before(today) {
			status = entity.WorkOrderStatusOverdue
		}
		cycleDays := plan.CycleDays
		startDate := DateOnly(plan.StartDate)
		newOrder := &entity.MaintenanceWorkOrder{
			PlanID:      &plan.ID,
			EquipmentID: &plan.EquipmentID,
			ItemID:      &plan.ItemID,

			SourcePlanID:               &plan.ID,
			SourcePlanCycleDays:        &cycleDays,
			SourcePlanStartDate:        &startDate,
			SourceEquipmentID:          &equipment.ID,
			SourceEquipmentCode:        equipment.Code,
			SourceEquipmentName:        equipment.Name,
			SourceItemID:               &item.ID,
			SourceItemName:             item.Name,
			SourceExecutionProcessCode: plan.ExecutionProcessCode,

			DueDate:        dueDate,
			Status:         status,
			ExecutorUserID: plan.DefaultExecutorUserID,
		}
		if err := tx.Create(newOrder).Error; err != nil {
			return err
		}

		plan.NextDueDate = dueDate.AddDate(0, 0, plan.CycleDays)
		if err := tx.Save(&plan).Error; err != nil {
			return err
		}

		order = newOrder
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return order, created, nil
}

// BatchGenerateResult 批量生成统计
type BatchGenerateResult struct {
	Scanned  int `json:"scanned"`
	Created  int `json:"created"`
	Existing int `json:"existing"`
	Failed   int `json:"failed"`
}

// GenerateDueWorkOrders 扫描计划/设备/项目均启用且已到期的计划并逐个生成。
// 每个计划的生成独立成事务，单个失败不影响其余计划。
func (s *WorkOrderService) GenerateDueWorkOrders(ctx context.Context) (BatchGenerateResult, error) {
	result := BatchGenerateResult{}
	ids, err := s.planRepo.FindDueIDs(ctx, DateOnly(s.now()))
	if err != nil {
		return result, err
	}
	result.Scanned = len(ids)
	for _, id := range ids {
		_, created, err := s.Generate(ctx, id)
		if err != nil {
			result.Failed++
			s.logger.Warn("生成保养工单失败",
				zap.Uint("plan_id", id),
				zap.Error(err),
			)
			continue
		}
		if created {
			result.Created++
		} else {
			result.Existing++
		}
	}
	return result, nil
}

// WorkOrderListQuery 工单列表查询
type WorkOrderListQuery struct {
	Status    string
	Keyword   string
	Mine      bool
	DoneOnly  bool
	StartDate string // YYYY-MM-DD
	EndDate   string // YYYY-MM-DD
	Page      int
	Size      int
}

// List 分页查询工单。非管理角色只能看到快照工序在其分配工序内的工单。
func (s *WorkOrderService) List(ctx context.Context, query WorkOrderListQuery, actor Actor) ([]entity.MaintenanceWorkOrder, int64, error) {
	if query.Status != "" && !entity.IsValidWorkOrderStatus(query.Status) {
		return nil, 0, NewValidationError("无效的工单状态: %s", query.Status)
	}

	if _, err := s.RefreshOverdue(ctx); err != nil {
		return nil, 0, err
	}

	params := repository.WorkOrderListParams{
		Status:   query.Status,
		Keyword:  query.Keyword,
		DoneOnly: query.DoneOnly,
		Page:     query.Page,
		Size:     query.Size,
	}
	if query.Mine {
		params.ExecutorUserID = actor.UserID
	}
	if query.StartDate != "" {
		t, err := parsePlanDate(query.StartDate, "start_date")
		if err != nil {
			return nil, 0, err
		}
		params.StartDate = t
	}
	if query.EndDate != "" {
		t, err := parsePlanDate(query.EndDate, "end_date")
		if err != nil {
			return nil, 0, err
		}
		params.EndDate = t
	}
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() && params.StartDate.After(params.EndDate) {
		return nil, 0, NewValidationError("start_date 不能晚于 end_date")
	}

	if !actor.CanViewAllOrders() {
		if len(actor.ProcessCodes) == 0 {
			return []entity.MaintenanceWorkOrder{}, 0, nil
		}
		params.ProcessCodes = actor.ProcessCodes
	}

	return s.workOrderRepo.List(ctx, params)
}

// Get 查询单个工单
func (s *WorkOrderService) Get(ctx context.Context, id uint) (*entity.MaintenanceWorkOrder, error) {
	return s.workOrderRepo.FindByID(ctx, id)
}

// 校验按快照工序判定，计划后续改工序不影响已下发工单的执行权限
func (s *WorkOrderService) checkExecutePermission(order *entity.MaintenanceWorkOrder, actor Actor) error {
	if actor.CanExecuteAllOrders() {
		return nil
	}
	if !actor.HasProcess(order.SourceExecutionProcessCode) {
		return NewForbiddenError("无权执行工序 %s 的保养工单", entity.ProcessName(order.SourceExecutionProcessCode))
	}
	return nil
}

// Start 开工：pending/overdue -> in_progress
func (s *WorkOrderService) Start(ctx context.Context, id uint, actor Actor) (*entity.MaintenanceWorkOrder, error) {
	if _, err := s.RefreshOverdue(ctx); err != nil {
		return nil, err
	}
	order, err := s.workOrderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkExecutePermission(order, actor); err != nil {
		return nil, err
	}
	if order.Status != entity.WorkOrderStatusPending && order.Status != entity.WorkOrderStatusOverdue {
		return nil, NewValidationError("工单当前状态不允许开工: %s", order.Status)
	}

	now := s.now()
	order.Status = entity.WorkOrderStatusInProgress
	order.StartedAt = &now
	if order.ExecutorUserID == nil {
		order.ExecutorUserID = &actor.UserID
	}
	if err := s.workOrderRepo.Update(ctx, order); err != nil {
		return nil, err
	}
	return s.workOrderRepo.FindByID(ctx, order.ID)
}

// CompleteWorkOrderRequest 完工请求
type CompleteWorkOrderRequest struct {
	ResultSummary  string `json:"result_summary" binding:"required"`
	ResultRemark   string `json:"result_remark"`
	AttachmentLink string `json:"attachment_link"`
}

// NormalizeResultSummary 保养结果归一化为 completed / failed
func NormalizeResultSummary(summary string) (string, error) {
	switch strings.ToLower(strings.TrimSpace(summary)) {
	case entity.WorkOrderResultCompleted:
		return entity.WorkOrderResultCompleted, nil
	case entity.WorkOrderResultFailed:
		return entity.WorkOrderResultFailed, nil
	}
	return "", NewValidationError("保养结果只能为 completed 或 failed")
}

// Complete 完工：in_progress -> done，同一事务内写入一条保养记录。
// 记录表 work_order_id 唯一约束兜底保证同一工单至多一条记录。
func (s *WorkOrderService) Complete(ctx context.Context, id uint, actor Actor, req CompleteWorkOrderRequest) (*entity.MaintenanceWorkOrder, error) {
	summary, err := NormalizeResultSummary(req.ResultSummary)
	if err != nil {
		return nil, err
	}
	remark := strings.TrimSpace(req.ResultRemark)
	if summary == entity.WorkOrderResultFailed && remark == "" {
		return nil, NewValidationError("保养结果为 failed 时必须填写备注")
	}

	order, err := s.workOrderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkExecutePermission(order, actor); err != nil {
		return nil, err
	}
	if order.Status != entity.WorkOrderStatusInProgress {
		return nil, NewValidationError("工单仅在执行中可完工，当前状态: %s", order.Status)
	}

	now := s.now()
	order.Status = entity.WorkOrderStatusDone
	order.CompletedAt = &now
	if order.ExecutorUserID == nil {
		order.ExecutorUserID = &actor.UserID
	}
	order.ResultSummary = summary
	order.ResultRemark = remark
	order.AttachmentLink = strings.TrimSpace(req.AttachmentLink)

	executorUsername := actor.Username
	if order.ExecutorUserID != nil && *order.ExecutorUserID != actor.UserID {
		if executor, err := s.userRepo.FindByID(ctx, *order.ExecutorUserID); err == nil {
			executorUsername = executor.Username
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(order).Error; err != nil {
			return err
		}
		record := &entity.MaintenanceRecord{
			WorkOrderID:         order.ID,
			SourcePlanID:        order.SourcePlanID,
			SourcePlanCycleDays: order.SourcePlanCycleDays,
			SourcePlanStartDate: order.SourcePlanStartDate,
			SourceEquipmentID:   order.SourceEquipmentID,
			SourceEquipmentCode: order.SourceEquipmentCode,
			SourceEquipmentName: order.SourceEquipmentName,
			SourceItemID:        order.SourceItemID,
			SourceItemName:      order.SourceItemName,
			DueDate:             order.DueDate,
			ExecutorUserID:      order.ExecutorUserID,
			ExecutorUsername:    executorUsername,
			CompletedAt:         now,
			ResultSummary:       summary,
			ResultRemark:        remark,
			AttachmentLink:      order.AttachmentLink,
		}
		return tx.Create(record).Error
	})
	if err != nil {
		return nil, err
	}
	return s.workOrderRepo.FindByID(ctx, order.ID)
}

// ListRecords 分页查询保养记录
func (s *WorkOrderService) ListRecords(ctx context.Context, params repository.RecordListParams) ([]entity.MaintenanceRecord, int64, error) {
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() && params.StartDate.After(params.EndDate) {
		return nil, 0, NewValidationError("start_date 不能晚于 end_date")
	}
	return s.recordRepo.List(ctx, params)
}

var recordExportHeaders = []string{
	"设备编码", "设备名称", "保养项目", "计划到期日",
	"执行人", "完成时间", "保养结果", "备注", "附件",
}

// ExportRecords 按当前过滤条件导出保养记录为xlsx
func (s *WorkOrderService) ExportRecords(ctx context.Context, params repository.RecordListParams) (*excelize.File, string, error) {
	if !params.StartDate.IsZero() && !params.EndDate.IsZero() && params.StartDate.After(params.EndDate) {
		return nil, "", NewValidationError("start_date 不能晚于 end_date")
	}

	rows, err := s.recordRepo.ListAll(ctx, params)
	if err != nil {
		return nil, "", err
	}

	f := excelize.NewFile()
	sheet := "保养记录"
	f.SetSheetName("Sheet1", sheet)

	boldStyle, _ := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 11},
		Fill: excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"#D9E1F2"}},
		Border: []excelize.Border{
			{Type: "bottom", Color: "000000", Style: 1},
		},
	})
	for i, h := range recordExportHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		cell := col + "1"
		f.SetCellValue(sheet, cell, h)
		f.SetCellStyle(sheet, cell, cell, boldStyle)
	}

	for rowIdx, rec := range rows {
		row := rowIdx + 2
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), rec.SourceEquipmentCode)
		f.SetCellValue(sheet, fmt.Sprintf("B%d", row), rec.SourceEquipmentName)
		f.SetCellValue(sheet, fmt.Sprintf("C%d", row), rec.SourceItemName)
		f.SetCellValue(sheet, fmt.Sprintf("D%d", row), rec.DueDate.Format("2006-01-02"))
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), rec.ExecutorUsername)
		f.SetCellValue(sheet, fmt.Sprintf("F%d", row), rec.CompletedAt.Format("2006-01-02 15:04:05"))
		f.SetCellValue(sheet, fmt.Sprintf("G%d", row), entity.ResultSummaryName(rec.ResultSummary))
		f.SetCellValue(sheet, fmt.Sprintf("H%d", row), rec.ResultRemark)
		f.SetCellValue(sheet, fmt.Sprintf("I%d", row), rec.AttachmentLink)
	}

	filename := fmt.Sprintf("maintenance_records_%s.xlsx", s.now().Format("20060102"))
	return f, filename, nil
}
