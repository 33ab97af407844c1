package entity

import (
	"time"
)

// 工单状态
const (
	WorkOrderStatusPending    = "pending"
	WorkOrderStatusInProgress = "in_progress"
	WorkOrderStatusDone       = "done"
	WorkOrderStatusOverdue    = "overdue"
	WorkOrderStatusCancelled  = "cancelled"
)

// WorkOrderActiveStatuses 未了结状态，同一计划任一时刻至多一个
var WorkOrderActiveStatuses = []string{
	WorkOrderStatusPending,
	WorkOrderStatusInProgress,
	WorkOrderStatusOverdue,
}

// IsValidWorkOrderStatus 判断工单状态是否有效
func IsValidWorkOrderStatus(status string) bool {
	switch status {
	case WorkOrderStatusPending, WorkOrderStatusInProgress,
		WorkOrderStatusDone, WorkOrderStatusOverdue, WorkOrderStatusCancelled:
		return true
	}
	return false
}

// 保养结果，complete 时归一化为二者之一
const (
	WorkOrderResultCompleted = "completed"
	WorkOrderResultFailed    = "failed"
)

// ResultSummaryName 保养结果的中文显示名，未知值原样返回
func ResultSummaryName(summary string) string {
	switch summary {
	case WorkOrderResultCompleted:
		return "已完成"
	case WorkOrderResultFailed:
		return "保养失败"
	}
	return summary
}

// MaintenanceWorkOrder 保养工单。source_* 为生成时刻的快照，
// 后续计划/设备/项目的变更不影响历史工单的解释。
type MaintenanceWorkOrder struct {
	ID          uint  `json:"id" gorm:"primaryKey"`
	PlanID      *uint `json:"plan_id" gorm:"index;uniqueIndex:uq_mes_maintenance_work_order_plan_due"`
	EquipmentID *uint `json:"equipment_id" gorm:"index"`
	ItemID      *uint `json:"item_id" gorm:"index"`

	SourcePlanID               *uint      `json:"source_plan_id" gorm:"index"`
	SourcePlanCycleDays        *int       `json:"source_plan_cycle_days"`
	SourcePlanStartDate        *time.Time `json:"source_plan_start_date" gorm:"type:date"`
	SourceEquipmentID          *uint      `json:"source_equipment_id" gorm:"index"`
	SourceEquipmentCode        string     `json:"source_equipment_code" gorm:"size:64;not null;default:''"`
	SourceEquipmentName        string     `json:"source_equipment_name" gorm:"size:128;not null;default:''"`
	SourceItemID               *uint      `json:"source_item_id" gorm:"index"`
	SourceItemName             string     `json:"source_item_name" gorm:"size:128;not null;default:''"`
	SourceExecutionProcessCode string     `json:"source_execution_process_code" gorm:"size:64;not null;default:laser_marking;index"`

	DueDate        time.Time  `json:"due_date" gorm:"type:date;not null;index;uniqueIndex:uq_mes_maintenance_work_order_plan_due"`
	Status         string     `json:"status" gorm:"size:16;not null;default:pending;index"`
	ExecutorUserID *uint      `json:"executor_user_id" gorm:"index"`
	StartedAt      *time.Time `json:"started_at"`
	CompletedAt    *time.Time `json:"completed_at"`
	ResultSummary  string     `json:"result_summary" gorm:"size:255"`
	ResultRemark   string     `json:"result_remark" gorm:"size:1024"`
	AttachmentLink string     `json:"attachment_link" gorm:"size:1024"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`

	// 关联
	Plan      *MaintenancePlan `json:"plan,omitempty" gorm:"foreignKey:PlanID"`
	Equipment *Equipment       `json:"equipment,omitempty" gorm:"foreignKey:EquipmentID"`
	Item      *MaintenanceItem `json:"item,omitempty" gorm:"foreignKey:ItemID"`
	Executor  *User            `json:"executor,omitempty" gorm:"foreignKey:ExecutorUserID"`
}

func (MaintenanceWorkOrder) TableName() string {
	return "mes_maintenance_work_order"
}

// IsActive 是否处于未了结状态
func (w *MaintenanceWorkOrder) IsActive() bool {
	switch w.Status {
	case WorkOrderStatusPending, WorkOrderStatusInProgress, WorkOrderStatusOverdue:
		return true
	}
	return false
}
