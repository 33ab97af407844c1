package repository

import (
	"errors"

	"gorm.io/gorm"
)

// 错误定义
var (
	ErrNotFound = errors.New("record not found")
)

// Repositories 仓库集合
type Repositories struct {
	User      *UserRepository
	Equipment *EquipmentRepository
	Item      *MaintenanceItemRepository
	Plan      *MaintenancePlanRepository
	WorkOrder *WorkOrderRepository
	Record    *MaintenanceRecordRepository
}

// NewRepositories 创建仓库集合
func NewRepositories(db *gorm.DB) *Repositories {
	return &Repositories{
		User:      NewUserRepository(db),
		Equipment: NewEquipmentRepository(db),
		Item:      NewMaintenanceItemRepository(db),
		Plan:      NewMaintenancePlanRepository(db),
		WorkOrder: NewWorkOrderRepository(db),
		Record:    NewMaintenanceRecordRepository(db),
	}
}
