package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"gorm.io/gorm"
)

// EquipmentService 设备台账与保养项目
type EquipmentService struct {
	equipmentRepo *repository.EquipmentRepository
	itemRepo      *repository.MaintenanceItemRepository
	planRepo      *repository.MaintenancePlanRepository
	workOrderRepo *repository.WorkOrderRepository
	db            *gorm.DB
	now           func() time.Time
}

// NewEquipmentService 创建设备服务
func NewEquipmentService(
	equipmentRepo *repository.EquipmentRepository,
	itemRepo *repository.MaintenanceItemRepository,
	planRepo *repository.MaintenancePlanRepository,
	workOrderRepo *repository.WorkOrderRepository,
	db *gorm.DB,
) *EquipmentService {
	return &EquipmentService{
		equipmentRepo: equipmentRepo,
		itemRepo:      itemRepo,
		planRepo:      planRepo,
		workOrderRepo: workOrderRepo,
		db:            db,
		now:           time.Now,
	}
}

// EquipmentUpsertRequest 设备创建/更新请求
type EquipmentUpsertRequest struct {
	Code      string `json:"code" binding:"required"`
	Name      string `json:"name" binding:"required"`
	Model     string `json:"model"`
	Location  string `json:"location"`
	OwnerName string `json:"owner_name"`
}

// ListEquipment 分页查询设备
func (s *EquipmentService) ListEquipment(ctx context.Context, params repository.EquipmentListParams) ([]entity.Equipment, int64, error) {
	return s.equipmentRepo.List(ctx, params)
}

// GetEquipment 查询单台设备
func (s *EquipmentService) GetEquipment(ctx context.Context, id uint) (*entity.Equipment, error) {
	return s.equipmentRepo.FindByID(ctx, id)
}

// CreateEquipment 创建设备，编号与名称均唯一
func (s *EquipmentService) CreateEquipment(ctx context.Context, req EquipmentUpsertRequest) (*entity.Equipment, error) {
	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if code == "" {
		return nil, NewValidationError("设备编号不能为空")
	}
	if name == "" {
		return nil, NewValidationError("设备名称不能为空")
	}
	if _, err := s.equipmentRepo.FindByCode(ctx, code); err == nil {
		return nil, NewValidationError("设备编号已存在: %s", code)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if _, err := s.equipmentRepo.FindByName(ctx, name); err == nil {
		return nil, NewValidationError("设备名称已存在: %s", name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	row := &entity.Equipment{
		Code:      code,
		Name:      name,
		Model:     strings.TrimSpace(req.Model),
		Location:  strings.TrimSpace(req.Location),
		OwnerName: strings.TrimSpace(req.OwnerName),
		IsEnabled: true,
	}
	if err := s.equipmentRepo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateEquipment 更新设备
func (s *EquipmentService) UpdateEquipment(ctx context.Context, id uint, req EquipmentUpsertRequest) (*entity.Equipment, error) {
	row, err := s.equipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	code := strings.TrimSpace(req.Code)
	name := strings.TrimSpace(req.Name)
	if code == "" {
		return nil, NewValidationError("设备编号不能为空")
	}
	if name == "" {
		return nil, NewValidationError("设备名称不能为空")
	}
	if existing, err := s.equipmentRepo.FindByCode(ctx, code); err == nil && existing.ID != row.ID {
		return nil, NewValidationError("设备编号已存在: %s", code)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}
	if existing, err := s.equipmentRepo.FindByName(ctx, name); err == nil && existing.ID != row.ID {
		return nil, NewValidationError("设备名称已存在: %s", name)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	row.Code = code
	row.Name = name
	row.Model = strings.TrimSpace(req.Model)
	row.Location = strings.TrimSpace(req.Location)
	row.OwnerName = strings.TrimSpace(req.OwnerName)
	if err := s.equipmentRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// ToggleEquipment 启用/停用设备
func (s *EquipmentService) ToggleEquipment(ctx context.Context, id uint, enabled bool) (*entity.Equipment, error) {
	row, err := s.equipmentRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	row.IsEnabled = enabled
	if err := s.equipmentRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteEquipment 删除设备。被计划引用或存在未了结工单时拒绝，
// 已完结工单改为置空引用以保留履历。
func (s *EquipmentService) DeleteEquipment(ctx context.Context, id uint) error {
	if _, err := s.equipmentRepo.FindByID(ctx, id); err != nil {
		return err
	}
	planCount, err := s.planRepo.CountByEquipment(ctx, id)
	if err != nil {
		return err
	}
	if planCount > 0 {
		return NewValidationError("设备仍被 %d 个保养计划引用，无法删除", planCount)
	}
	unfinished, err := s.workOrderRepo.CountUnfinishedByEquipment(ctx, id)
	if err != nil {
		return err
	}
	if unfinished > 0 {
		return NewValidationError("设备仍有 %d 个未完结保养工单，无法删除", unfinished)
	}
	return s.equipmentRepo.Delete(ctx, id)
}

// ItemUpsertRequest 保养项目创建/更新请求
type ItemUpsertRequest struct {
	Name             string `json:"name" binding:"required"`
	DefaultCycleDays int    `json:"default_cycle_days" binding:"required"`
}

// ListItems 分页查询保养项目
func (s *EquipmentService) ListItems(ctx context.Context, params repository.ItemListParams) ([]entity.MaintenanceItem, int64, error) {
	return s.itemRepo.List(ctx, params)
}

// GetItem 查询单个保养项目
func (s *EquipmentService) GetItem(ctx context.Context, id uint) (*entity.MaintenanceItem, error) {
	return s.itemRepo.FindByID(ctx, id)
}

// CreateItem 创建保养项目
func (s *EquipmentService) CreateItem(ctx context.Context, req ItemUpsertRequest) (*entity.MaintenanceItem, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("保养项目名称不能为空")
	}
	if req.DefaultCycleDays <= 0 {
		return nil, NewValidationError("默认保养周期必须大于0天")
	}
	if _, err := s.itemRepo.FindByName(ctx, name); err == nil {
		return nil, NewValidationError("保养项目名称已存在: %s", name)
	} else if !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	row := &entity.MaintenanceItem{
		Name:             name,
		DefaultCycleDays: req.DefaultCycleDays,
		IsEnabled:        true,
	}
	if err := s.itemRepo.Create(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// UpdateItem 更新保养项目。周期变化时同一事务内重算所有
// 引用该项目的计划（含停用计划）的下次保养日。
func (s *EquipmentService) UpdateItem(ctx context.Context, id uint, req ItemUpsertRequest) (*entity.MaintenanceItem, error) {
	row, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, NewValidationError("保养项目名称不能为空")
	}
	if req.DefaultCycleDays <= 0 {
		return nil, NewValidationError("默认保养周期必须大于0天")
	}
	if existing, err := s.itemRepo.FindByName(ctx, name); err == nil && existing.ID != row.ID {
		return nil, NewValidationError("保养项目名称已存在: %s", name)
	} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
		return nil, err
	}

	cycleChanged := row.DefaultCycleDays != req.DefaultCycleDays
	row.Name = name
	row.DefaultCycleDays = req.DefaultCycleDays

	if !cycleChanged {
		if err := s.itemRepo.Update(ctx, row); err != nil {
			return nil, err
		}
		return row, nil
	}

	today := DateOnly(s.now())
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Save(row).Error; err != nil {
			return err
		}
		var plans []entity.MaintenancePlan
		if err := tx.Where("item_id = ?", row.ID).Find(&plans).Error; err != nil {
			return err
		}
		for i := range plans {
			plan := &plans[i]
			plan.CycleDays = req.DefaultCycleDays
			plan.NextDueDate = RecalculateNextDueDate(plan.StartDate, req.DefaultCycleDays, today)
			if err := tx.Save(plan).Error; err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return row, nil
}

// ToggleItem 启用/停用保养项目，不改动任何计划的下次保养日
func (s *EquipmentService) ToggleItem(ctx context.Context, id uint, enabled bool) (*entity.MaintenanceItem, error) {
	row, err := s.itemRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	row.IsEnabled = enabled
	if err := s.itemRepo.Update(ctx, row); err != nil {
		return nil, err
	}
	return row, nil
}

// DeleteItem 删除保养项目，引用规则与设备一致
func (s *EquipmentService) DeleteItem(ctx context.Context, id uint) error {
	if _, err := s.itemRepo.FindByID(ctx, id); err != nil {
		return err
	}
	planCount, err := s.planRepo.CountByItem(ctx, id)
	if err != nil {
		return err
	}
	if planCount > 0 {
		return NewValidationError("保养项目仍被 %d 个保养计划引用，无法删除", planCount)
	}
	unfinished, err := s.workOrderRepo.CountUnfinishedByItem(ctx, id)
	if err != nil {
		return err
	}
	if unfinished > 0 {
		return NewValidationError("保养项目仍有 %d 个未完结保养工单，无法删除", unfinished)
	}
	return s.itemRepo.Delete(ctx, id)
}
