package entity

import (
	"time"
)

// Equipment 设备台账
type Equipment struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	Model     string    `json:"model" gorm:"size:128;not null;default:''"`
	Location  string    `json:"location" gorm:"size:255;not null;default:''"`
	OwnerName string    `json:"owner_name" gorm:"size:64;not null;default:''"`
	IsEnabled bool      `json:"is_enabled" gorm:"not null;default:true"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Equipment) TableName() string {
	return "mes_equipment"
}

// MaintenanceItem 保养项目
type MaintenanceItem struct {
	ID               uint      `json:"id" gorm:"primaryKey"`
	Name             string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	DefaultCycleDays int       `json:"default_cycle_days" gorm:"not null;default:30"`
	IsEnabled        bool      `json:"is_enabled" gorm:"not null;default:true"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

func (MaintenanceItem) TableName() string {
	return "mes_maintenance_item"
}
