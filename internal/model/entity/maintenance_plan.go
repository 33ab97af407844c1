package entity

import (
	"time"
)

// MaintenancePlan 保养计划，设备×项目唯一，滚动推进下次保养日
type MaintenancePlan struct {
	ID                       uint      `json:"id" gorm:"primaryKey"`
	EquipmentID              uint      `json:"equipment_id" gorm:"not null;index;uniqueIndex:uq_mes_maintenance_plan_equipment_item"`
	ItemID                   uint      `json:"item_id" gorm:"not null;index;uniqueIndex:uq_mes_maintenance_plan_equipment_item"`
	CycleDays                int       `json:"cycle_days" gorm:"not null;default:30"`
	ExecutionProcessCode     string    `json:"execution_process_code" gorm:"size:64;not null;default:laser_marking;index"`
	EstimatedDurationMinutes *int      `json:"estimated_duration_minutes"`
	StartDate                time.Time `json:"start_date" gorm:"type:date;not null"`
	NextDueDate              time.Time `json:"next_due_date" gorm:"type:date;not null"`
	DefaultExecutorUserID    *uint     `json:"default_executor_user_id" gorm:"index"`
	IsEnabled                bool      `json:"is_enabled" gorm:"not null;default:true"`
	CreatedAt                time.Time `json:"created_at"`
	UpdatedAt                time.Time `json:"updated_at"`

	// 关联
	Equipment       *Equipment       `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	Item            *MaintenanceItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	DefaultExecutor *User            `json:"default_executor,omitempty" gorm:"foreignKey:DefaultExecutorUserID"`
}

func (MaintenancePlan) TableName() string {
	return "mes_maintenance_plan"
}
