package repository

import (
	"context"
	"errors"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"gorm.io/gorm"
)

// WorkOrderRepository 保养工单仓库
type WorkOrderRepository struct {
	db *gorm.DB
}

// NewWorkOrderRepository 创建保养工单仓库
func NewWorkOrderRepository(db *gorm.DB) *WorkOrderRepository {
	return &WorkOrderRepository{db: db}
}

// FindByID 根据ID查找工单
func (r *WorkOrderRepository) FindByID(ctx context.Context, id uint) (*entity.MaintenanceWorkOrder, error) {
	var row entity.MaintenanceWorkOrder
	err := r.db.WithContext(ctx).
		Preload("Executor").
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

// FindActiveByPlan 查找计划当前未了结的工单
func (r *WorkOrderRepository) FindActiveByPlan(ctx context.Context, planID uint) (*entity.MaintenanceWorkOrder, error) {
	var row entity.MaintenanceWorkOrder
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND status IN ?", planID, entity.WorkOrderActiveStatuses).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// FindByPlanAndDueDate 查找计划在某到期日的工单
func (r *WorkOrderRepository) FindByPlanAndDueDate(ctx context.Context, planID uint, dueDate time.Time) (*entity.MaintenanceWorkOrder, error) {
	var row entity.MaintenanceWorkOrder
	err := r.db.WithContext(ctx).
		Where("plan_id = ? AND due_date = ?", planID, dueDate).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &row, nil
}

// MarkOverdue 将到期未处理的 pending 工单批量置为 overdue，返回影响行数。
// 只朝 overdue 方向推进，不做回退。
func (r *WorkOrderRepository) MarkOverdue(ctx context.Context, today time.Time) (int64, error) {
	result := r.db.WithContext(ctx).
		Model(&entity.MaintenanceWorkOrder{}).
		Where("status = ? AND due_date < ?", entity.WorkOrderStatusPending, today).
		Update("status", entity.WorkOrderStatusOverdue)
	return result.RowsAffected, result.Error
}

// CountUnfinishedByEquipment 统计引用某设备的未了结工单数
func (r *WorkOrderRepository) CountUnfinishedByEquipment(ctx context.Context, equipmentID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenanceWorkOrder{}).
		Where("equipment_id = ? AND status <> ?", equipmentID, entity.WorkOrderStatusDone).
		Count(&count).Error
	return count, err
}

// CountUnfinishedByItem 统计引用某保养项目的未了结工单数
func (r *WorkOrderRepository) CountUnfinishedByItem(ctx context.Context, itemID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenanceWorkOrder{}).
		Where("item_id = ? AND status <> ?", itemID, entity.WorkOrderStatusDone).
		Count(&count).Error
	return count, err
}

// CountUnfinishedByPlan 统计计划名下未了结工单数
func (r *WorkOrderRepository) CountUnfinishedByPlan(ctx context.Context, planID uint) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&entity.MaintenanceWorkOrder{}).
		Where("plan_id = ? AND status <> ?", planID, entity.WorkOrderStatusDone).
		Count(&count).Error
	return count, err
}

// WorkOrderListParams 工单列表查询参数
type WorkOrderListParams struct {
	Status         string
	Keyword        string
	ExecutorUserID uint
	DoneOnly       bool
	// ProcessCodes 非空时只返回快照工序在其中的工单（操作员按工序过滤）
	ProcessCodes []string
	// 按完成时间过滤，零值表示不限
	StartDate time.Time
	EndDate   time.Time
	Page      int
	Size      int
}

// List 分页查询工单，关键字匹配快照设备/项目名称与结果字段
func (r *WorkOrderRepository) List(ctx context.Context, params WorkOrderListParams) ([]entity.MaintenanceWorkOrder, int64, error) {
	query := r.db.WithContext(ctx).Model(&entity.MaintenanceWorkOrder{})
	if params.DoneOnly {
		query = query.Where("status = ?", entity.WorkOrderStatusDone)
	} else if params.Status != "" {
		query = query.Where("status = ?", params.Status)
	}
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where(
			"source_equipment_name ILIKE ? OR source_item_name ILIKE ? OR result_summary ILIKE ? OR result_remark ILIKE ?",
			kw, kw, kw, kw,
		)
	}
	if params.ExecutorUserID != 0 {
		query = query.Where("executor_user_id = ?", params.ExecutorUserID)
	}
	if len(params.ProcessCodes) > 0 {
		query = query.Where("source_execution_process_code IN ?", params.ProcessCodes)
	}
	if !params.StartDate.IsZero() {
		query = query.Where("completed_at IS NOT NULL AND completed_at >= ?", params.StartDate)
	}
	if !params.EndDate.IsZero() {
		query = query.Where("completed_at IS NOT NULL AND completed_at < ?", params.EndDate.AddDate(0, 0, 1))
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
	var rows []entity.MaintenanceWorkOrder
	err := query.
		Preload("Executor").
		Order("due_date DESC, id DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&rows).Error
	return rows, total, err
}

// Update 更新工单
func (r *WorkOrderRepository) Update(ctx context.Context, row *entity.MaintenanceWorkOrder) error {
	return r.db.WithContext(ctx).Save(row).Error
}

// MaintenanceRecordRepository 保养记录仓库
type MaintenanceRecordRepository struct {
	db *gorm.DB
}

// NewMaintenanceRecordRepository 创建保养记录仓库
func NewMaintenanceRecordRepository(db *gorm.DB) *MaintenanceRecordRepository {
	return &MaintenanceRecordRepository{db: db}
}

// RecordListParams 保养记录列表查询参数
type RecordListParams struct {
	Keyword        string
	ExecutorUserID uint
	StartDate      time.Time
	EndDate        time.Time
	Page           int
	Size           int
}

func (r *MaintenanceRecordRepository) filtered(ctx context.Context, params RecordListParams) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&entity.MaintenanceRecord{})
	if params.Keyword != "" {
		kw := "%" + params.Keyword + "%"
		query = query.Where(
			"source_equipment_name ILIKE ? OR source_item_name ILIKE ? OR executor_username ILIKE ? OR result_summary ILIKE ?",
			kw, kw, kw, kw,
		)
	}
	if params.ExecutorUserID != 0 {
		query = query.Where("executor_user_id = ?", params.ExecutorUserID)
	}
	if !params.StartDate.IsZero() {
		query = query.Where("completed_at >= ?", params.StartDate)
	}
	if !params.EndDate.IsZero() {
		query = query.Where("completed_at < ?", params.EndDate.AddDate(0, 0, 1))
	}
	return query
}

// List 分页查询保养记录
func (r *MaintenanceRecordRepository) List(ctx context.Context, params RecordListParams) ([]entity.MaintenanceRecord, int64, error) {
	query := r.filtered(ctx, params)

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
	var rows []entity.MaintenanceRecord
	err := query.
		Order("completed_at DESC, id DESC").
		Offset((params.Page - 1) * params.Size).
		Limit(params.Size).
		Find(&rows).Error
	return rows, total, err
}

// ListAll 按同样的过滤条件取全部记录，供导出使用
func (r *MaintenanceRecordRepository) ListAll(ctx context.Context, params RecordListParams) ([]entity.MaintenanceRecord, error) {
	var rows []entity.MaintenanceRecord
	err := r.filtered(ctx, params).
		Order("completed_at DESC, id DESC").
		Find(&rows).Error
	return rows, err
}

// Create 写入保养记录
func (r *MaintenanceRecordRepository) Create(ctx context.Context, row *entity.MaintenanceRecord) error {
	return r.db.WithContext(ctx).Create(row).Error
}
