package repository

import (
	"context"
	"errors"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"gorm.io/gorm"
)

// EquipmentRepository 设备台账仓库
type EquipmentRepository struct {
	db *gorm.DB
}

// NewEquipmentRepository 创建设备台账仓库
func NewEquipmentRepository(db *gorm.DB) *EquipmentRepository {
	return &EquipmentRepository{db: db}
}

// FindByID 根据ID查找设备
func (r *EquipmentRepository) FindByID(ctx context.Context, id uint) (*entity.Equipment, error) {
	var row entity.Equipment
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByCode 根据设备编号查找设备
func (r *EquipmentRepository) FindByCode(ctx context.Context, code string) (*entity.Equipment, error) {
	var row entity.Equipment
	err := r.db.WithContext(ctx).Where("code = ?", code).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByName 根据设备名称查找设备
func (r *EquipmentRepository) FindByName(ctx context.Context, name string) (*entity.Equipment, error) {
	var row entity.Equipment
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// EquipmentListParams 设备列表查询参数
type EquipmentListParams struct {
	Keyword string
	Enabled *bool
	Page    int
	Size    int
}

// List 分页查询设备
func (r *EquipmentRepository) List(ctx context.Context, params EquipmentListParams) ([]entity.Equipment, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.Equipment{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where(
			"code ILIKE ? OR name ILIKE ? OR model ILIKE ? OR location ILIKE ? OR owner_name ILIKE ?",
			kw, kw, kw, kw, kw,
		)
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
	var rows []entity.Equipment
	err := query.
		Order("id ASC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&rows).Error
	return rows, total, err
}

// Create 创建设备
func (r *EquipmentRepository) Create(ctx context.Context, row *entity.Equipment) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update 更新设备
func (r *EquipmentRepository) Update(ctx context.Context, row *entity.Equipment) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete 删除设备，已完结工单的引用置空后删除本行
func (r *EquipmentRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.MaintenanceWorkOrder{}).
			Where("equipment_id = ?", id).
			Update("equipment_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.Equipment{}, id).Error
	})
}

// MaintenanceItemRepository 保养项目仓库
type MaintenanceItemRepository struct {
	db *gorm.DB
}

// NewMaintenanceItemRepository 创建保养项目仓库
func NewMaintenanceItemRepository(db *gorm.DB) *MaintenanceItemRepository {
	return &MaintenanceItemRepository{db: db}
}

// FindByID 根据ID查找保养项目
func (r *MaintenanceItemRepository) FindByID(ctx context.Context, id uint) (*entity.MaintenanceItem, error) {
	var row entity.MaintenanceItem
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByName 根据名称查找保养项目
func (r *MaintenanceItemRepository) FindByName(ctx context.Context, name string) (*entity.MaintenanceItem, error) {
	var row entity.MaintenanceItem
	err := r.db.WithContext(ctx).Where("name = ?", name).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// ItemListParams 保养项目列表查询参数
type ItemListParams struct {
	Keyword string
	Enabled *bool
	Page    int
	Size    int
}

// List 分页查询保养项目
func (r *MaintenanceItemRepository) List(ctx context.Context, params ItemListParams) ([]entity.MaintenanceItem, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MaintenanceItem{})
	if params.Keyword != "" {
		query = query.Where("name ILIKE ?", "%"+params.Keyword+"%")
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
	var rows []entity.MaintenanceItem
	err := query.
		Order("id ASC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&rows).Error
	return rows, total, err
}

// Create 创建保养项目
func (r *MaintenanceItemRepository) Create(ctx context.Context, row *entity.MaintenanceItem) error {
	return r.db.WithContext(ctx).Create(row).Error
}

// Update 更新保养项目
func (r *MaintenanceItemRepository) Update(ctx context.Context, row *entity.MaintenanceItem) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// Delete 删除保养项目，已完结工单的引用置空后删除本行
func (r *MaintenanceItemRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&entity.MaintenanceWorkOrder{}).
			Where("item_id = ?", id).
			Update("item_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&entity.MaintenanceItem{}, id).Error
	})
}
