package repository

import (
	"context"
	"errors"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"gorm.io/gorm"
)

// MaintenancePlanRepository 保养计划仓库
type MaintenancePlanRepository struct {
	db *gorm.DB
}

// NewMaintenancePlanRepository 创建保养计划仓库
func NewMaintenancePlanRepository(db *gorm.DB) *MaintenancePlanRepository {
	return &MaintenancePlanRepository{db: db}
}

// FindByID 根据ID查找保养计划，带设备/项目/默认执行人
func (r *MaintenancePlanRepository) FindByID(ctx context.Context, id uint) (*entity.MaintenancePlan, error) {
	var row entity.MaintenancePlan
	err := r.db.WithContext(ctx).
		Preload("Equipment").
		Preload("Item").
		Preload("DefaultExecutor").
		Where("id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByEquipmentAndItem 查找设备×项目的既有计划
func (r *MaintenancePlanRepository) FindByEquipmentAndItem(ctx context.Context, equipmentID, itemID uint) (*entity.MaintenancePlan, error) {
	var row entity.MaintenancePlan
	err := r.db.WithContext(ctx).
		Where("equipment_id = ? AND item_id = ?", equipmentID, itemID).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByItem 查找使用某保养项目的全部计划，含停用计划
func (r *MaintenancePlanRepository) FindByItem(ctx context.Context, itemID uint) ([]entity.MaintenancePlan, error) {
	var rows []entity.MaintenancePlan
	err := r.db.WithContext(ctx).
		Where("item_id = ?", itemID).
		Order("id ASC").
		Find(&rows).Error
	return rows, err
}

// PlanListParams 保养计划列表查询参数
type PlanListParams struct {
	EquipmentID uint
	ItemID      uint
	Enabled     *bool
	Page        int
	Size        int
}

// List 分页查询保养计划
func (r *MaintenancePlanRepository) List(ctx context.Context, params PlanListParams) ([]entity.MaintenancePlan, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MaintenancePlan{})
	if params.EquipmentID != 0 {
		query = query.Where("equipment_id = ?", params.EquipmentID)
	}
	if params.ItemID != 0 {
		query = query.Where("item_id = ?", params.ItemID)
	}
	if params.Enabled != nil {
		query = query.Where("is_enabled = ?", *params.Enabled)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if params.Page <= 0 {
		params.Page = 1
	}
	if params.Size <= 0 {
		params.Size = 20
	}
	var rows []entity.MaintenancePlan
	err := query.
		Preload("Equipment").
		Preload("Item").
		Preload("DefaultExecutor").
		Order("id ASC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&rows).Error
	return rows, total, err
}

// FindDueIDs 查找到期且计划/设备/项目均启用的计划ID。
// 只取ID，逐个计划的生成在各自事务内重新读取。
func (r *MaintenancePlanRepository) FindDueIDs(ctx context.Context, today time.Time) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenancePlan{}).
		Joins("JOIN mes_equipment ON mes_equipment.id = mes_maintenance_plan.equipment_id").
		Joins("JOIN mes_maintenance_item ON mes_maintenance_item.id = mes_maintenance_plan.item_id").
		Where("mes_maintenance_plan.is_enabled = ?", true).
		Where("mes_equipment.is_enabled = ?", true).
		Where("mes_maintenance_item.is_enabled = ?", true).
		Where("mes_maintenance_plan.next_due_date <= ?", today).
		Order("mes_maintenance_plan.id ASC").
		Pluck("mes_maintenance_plan.id", &ids).Error
	return ids, err
}

// CountByEquipment 统计引用某设备的计划数
func (r *MaintenancePlanRepository) CountByEquipment(ctx context.Context, equipmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenancePlan{}).
		Where("equipment_id = ?", equipmentID).
		Count(&count).Error
	return count, err
}

// CountByItem 统计引用某保养项目的计划数
func (r *MaintenancePlanRepository) CountByItem(ctx context.Context, itemID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenancePlan{}).
		Where("item_id = ?", itemID).
		Count(&count).Error
	return count, err
}

// Create 创建保养计划
func (r *MaintenancePlanRepository) Create(ctx context.Context, row *entity.MaintenancePlan) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update 更新保养计划
func (r *MaintenancePlanRepository) Update(ctx context.Context, row *entity.MaintenancePlan) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete 删除保养计划，已完结工单的引用置空后删除本行
func (r *MaintenancePlanRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.MaintenanceWorkOrder{}).
			Where("plan_id = ?", id).
			Update("plan_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.MaintenancePlan{}, id).Error
	})
}
