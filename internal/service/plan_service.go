package service

import (
	"context"
	"errors"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
)

// PlanService 保养计划
type PlanService struct {
	planRepo      *repository.MaintenancePlanRepository
	equipmentRepo *repository.EquipmentRepository
	itemRepo      *repository.MaintenanceItemRepository
	workOrderRepo *repository.WorkOrderRepository
	userRepo      *repository.UserRepository
}

// NewPlanService 创建保养计划服务
func NewPlanService(
	planRepo *repository.MaintenancePlanRepository,
	equipmentRepo *repository.EquipmentRepository,
	itemRepo *repository.MaintenanceItemRepository,
	workOrderRepo *repository.WorkOrderRepository,
	userRepo *repository.UserRepository,
) *PlanService {
	return &PlanService{
		planRepo:      planRepo,
		equipmentRepo: equipmentRepo,
		itemRepo:      itemRepo,
		workOrderRepo: workOrderRepo,
		userRepo:      userRepo,
	}
}

// PlanUpsertRequest 保养计划创建/更新请求。
// cycle_days 不接受客户端输入，始终取保养项目当前默认周期。
type PlanUpsertRequest struct {
	EquipmentID              uint   `json:"equipment_id" binding:"required"`
	ItemID                   uint   `json:"item_id" binding:"required"`
	ExecutionProcessCode     string `json:"execution_process_code"`
	EstimatedDurationMinutes *int   `json:"estimated_duration_minutes"`
	StartDate                string `json:"start_date" binding:"required"` // YYYY-MM-DD
	NextDueDate              string `json:"next_due_date"`                 // YYYY-MM-DD，缺省为 start_date
	DefaultExecutorUserID    *uint  `json:"default_executor_user_id"`
}

// List 分页查询保养计划
func (s *PlanService) List(ctx context.Context, params repository.PlanListParams) ([]entity.MaintenancePlan, int64, error) {
	return s.planRepo.List(ctx, params)
}

// Get 查询单个保养计划
func (s *PlanService) Get(ctx context.Context, id uint) (*entity.MaintenancePlan, error) {
	return s.planRepo.FindByID(ctx, id)
}

func (s *PlanService) resolveRelations(ctx context.Context, equipmentID, itemID uint) (*entity.Equipment, *entity.MaintenanceItem, error) {
	equipment, err := s.equipmentRepo.FindByID(ctx, equipmentID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, NewValidationError("设备不存在")
		}
		return nil, nil, err
	}
	if !equipment.IsEnabled {
		return nil, nil, NewValidationError("设备已停用")
	}
	item, err := s.itemRepo.FindByID(ctx, itemID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil, NewValidationError("保养项目不存在")
		}
		return nil, nil, err
	}
	if !item.IsEnabled {
		return nil, nil, NewValidationError("保养项目已停用")
	}
	return equipment, item, nil
}

func (s *PlanService) resolveExecutor(ctx context.Context, userID *uint) error {
	if userID == nil {
		return nil
	}
	if _, err := s.userRepo.FindByID(ctx, *userID); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return NewValidationError("默认执行人不存在")
		}
		return err
	}
	return nil
}

func parsePlanDate(value, field string) (time.Time, error) {
	t, err := time.Parse("2006-01-02", value)
	if err != nil {
		return time.Time{}, NewValidationError("%s 格式应为 YYYY-MM-DD", field)
	}
	return DateOnly(t), nil
}

// Create 创建保养计划
func (s *PlanService) Create(ctx context.Context, req PlanUpsertRequest) (*entity.MaintenancePlan, error) {
	equipment, item, err := s.resolveRelations(ctx, req.EquipmentID, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.EstimatedDurationMinutes != nil && *req.EstimatedDurationMinutes <= 0 {
		return nil, NewValidationError("预计耗时必须大于0分钟")
	}
	if err := s.resolveExecutor(ctx, req.DefaultExecutorUserID); err != nil {
		return nil, err
	}

	if _, err := s.planRepo.FindByEquipmentAndItem(ctx, req.EquipmentID, req.ItemID); err == nil {
		return nil, NewValidationError("该设备与保养项目已存在计划")
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	startDate, err := parsePlanDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	nextDueDate := startDate
	if req.NextDueDate != "" {
		nextDueDate, err = parsePlanDate(req.NextDueDate, "next_due_date")
		if err != nil {
			return nil, err
		}
	}
	if nextDueDate.Before(startDate) {
		return nil, NewValidationError("下次保养日不能早于起始日")
	}

	processCode := req.ExecutionProcessCode
	if !entity.IsValidProcessCode(processCode) {
		processCode = entity.MapLocationToProcessCode(equipment.Location)
	}

	row := &entity.MaintenancePlan{
		EquipmentID:              req.EquipmentID,
		ItemID:                   req.ItemID,
		CycleDays:                item.DefaultCycleDays,
		ExecutionProcessCode:     processCode,
		EstimatedDurationMinutes: req.EstimatedDurationMinutes,
		StartDate:                startDate,
		NextDueDate:              nextDueDate,
		DefaultExecutorUserID:    req.DefaultExecutorUserID,
		IsEnabled:                true,
	}
	if err := s.planRepo.Create(ctx, row); err != nil {
		return nil, err
	}
	return s.planRepo.FindByID(ctx, row.ID)
}

// Update 更新保养计划
func (s *PlanService) Update(ctx context.Context, id uint, req PlanUpsertRequest) (*entity.MaintenancePlan, error) {
	row, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	equipment, item, err := s.resolveRelations(ctx, req.EquipmentID, req.ItemID)
	if err != nil {
		return nil, err
	}
	if req.EstimatedDurationMinutes != nil && *req.EstimatedDurationMinutes <= 0 {
		return nil, NewValidationError("预计耗时必须大于0分钟")
	}
	if err := s.resolveExecutor(ctx, req.DefaultExecutorUserID); err != nil {
		return nil, err
	}

	if existing, err := s.planRepo.FindByEquipmentAndItem(ctx, req.EquipmentID, req.ItemID); err == nil && existing.ID != row.ID {
		return nil, NewValidationError("该设备与保养项目已存在计划")
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	startDate, err := parsePlanDate(req.StartDate, "start_date")
	if err != nil {
		return nil, err
	}
	nextDueDate := DateOnly(row.NextDueDate)
	if req.NextDueDate != "" {
		nextDueDate, err = parsePlanDate(req.NextDueDate, "next_due_date")
		if err != nil {
			return nil, err
		}
	}
	if nextDueDate.Before(startDate) {
		return nil, NewValidationError("下次保养日不能早于起始日")
	}

	processCode := req.ExecutionProcessCode
	if !entity.IsValidProcessCode(processCode) {
		processCode = entity.MapLocationToProcessCode(equipment.Location)
	}

	row.EquipmentID = req.EquipmentID
	row.ItemID = req.ItemID
	row.CycleDays = item.DefaultCycleDays
	row.ExecutionProcessCode = processCode
	row.EstimatedDurationMinutes = req.EstimatedDurationMinutes
	row.StartDate = startDate
	row.NextDueDate = nextDueDate
	row.DefaultExecutorUserID = req.DefaultExecutorUserID
	if err := s.planRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	return s.planRepo.FindByID(ctx, row.ID)
}

// Toggle 启用/停用计划，不改动下次保养日
func (s *PlanService) Toggle(ctx context.Context, id uint, enabled bool) (*entity.MaintenancePlan, error) {
	row, err := s.planRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	row.IsEnabled = enabled
	if err := s.planRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	return s.planRepo.FindByID(ctx, row.ID)
}

// Delete 删除计划。存在未了结工单时拒绝，已完结工单置空引用。
func (s *PlanService) Delete(ctx context.Context, id uint) error {
	if _, err := s.planRepo.FindByID(ctx, id); err != nil {
		return err
	}
	unfinished, err := s.workOrderRepo.CountUnfinishedByPlan(ctx, id)
	if err != nil {
		return err
	}
	if unfinished > 0 {
		return NewValidationError("计划仍有 %d 个未完结保养工单，无法删除", unfinished)
	}
	return s.planRepo.Delete(ctx, id)
}
