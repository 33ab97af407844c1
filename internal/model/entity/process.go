package entity

import (
	"strings"
	"time"
)

// 设备执行工序编码
const (
	ProcessLaserMarking     = "laser_marking"
	ProcessProductTesting   = "product_testing"
	ProcessProductAssembly  = "product_assembly"
	ProcessProductPackaging = "product_packaging"
)

// Process 工序
type Process struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	Code      string    `json:"code" gorm:"size:64;not null;uniqueIndex"`
	Name      string    `json:"name" gorm:"size:128;not null;uniqueIndex"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

func (Process) TableName() string {
	return "mes_process"
}

// ProcessOption 工序选项
type ProcessOption struct {
	Code string `json:"code"`
	Name string `json:"name"`
}

// ProcessOptions 全部有效工序，顺序固定
var ProcessOptions = []ProcessOption{
	{Code: ProcessLaserMarking, Name: "激光打标"},
	{Code: ProcessProductTesting, Name: "产品测试"},
	{Code: ProcessProductAssembly, Name: "产品组装"},
	{Code: ProcessProductPackaging, Name: "产品包装"},
}

var (
	processCodeToName = func() map[string]string {
		m := make(map[string]string, len(ProcessOptions))
		for _, opt := range ProcessOptions {
			m[opt.Code] = opt.Name
		}
		return m
	}()
	processNameToCode = func() map[string]string {
		m := make(map[string]string, len(ProcessOptions))
		for _, opt := range ProcessOptions {
			m[opt.Name] = opt.Code
		}
		return m
	}()
)

// IsValidProcessCode 判断工序编码是否有效
func IsValidProcessCode(code string) bool {
	_, ok := processCodeToName[code]
	return ok
}

// ProcessName 工序编码对应的展示名，未知编码原样返回
func ProcessName(code string) string {
	if name, ok := processCodeToName[code]; ok {
		return name
	}
	return code
}

// MapLocationToProcessCode 按设备位置推导工序编码，无法识别时归入激光打标
func MapLocationToProcessCode(location string) string {
	if code, ok := processNameToCode[strings.TrimSpace(location)]; ok {
		return code
	}
	return ProcessLaserMarking
}
