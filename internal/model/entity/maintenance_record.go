package entity

import (
	"time"
)

// MaintenanceRecord 保养记录，工单完成时写入一次，只追加不修改。
// work_order_id 唯一约束保证同一工单不会产生第二条记录。
type MaintenanceRecord struct {
	ID          uint `json:"id" gorm:"primaryKey"`
	WorkOrderID uint `json:"work_order_id" gorm:"not null;uniqueIndex"`

	SourcePlanID        *uint      `json:"source_plan_id" gorm:"index"`
	SourcePlanCycleDays *int       `json:"source_plan_cycle_days"`
	SourcePlanStartDate *time.Time `json:"source_plan_start_date" gorm:"type:date"`
	SourceEquipmentID   *uint      `json:"source_equipment_id" gorm:"index"`
	SourceEquipmentCode string     `json:"source_equipment_code" gorm:"size:64;not null;default:''"`
	SourceEquipmentName string     `json:"source_equipment_name" gorm:"size:128;not null;default:''"`
	SourceItemID        *uint      `json:"source_item_id" gorm:"index"`
	SourceItemName      string     `json:"source_item_name" gorm:"size:128;not null;default:''"`

	DueDate          time.Time `json:"due_date" gorm:"type:date;not null;index"`
	ExecutorUserID   *uint     `json:"executor_user_id" gorm:"index"`
	ExecutorUsername string    `json:"executor_username" gorm:"size:64;not null;default:''"`
	CompletedAt      time.Time `json:"completed_at" gorm:"not null;index"`
	ResultSummary    string    `json:"result_summary" gorm:"size:255;not null"`
	ResultRemark     string    `json:"result_remark" gorm:"size:1024"`
	AttachmentLink   string    `json:"attachment_link" gorm:"size:1024"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (MaintenanceRecord) TableName() string {
	return "mes_maintenance_record"
}
