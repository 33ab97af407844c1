package entity

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIsValidProcessCode(t *testing.T) {
	for _, opt := range ProcessOptions {
		assert.True(t, IsValidProcessCode(opt.Code), opt.Code)
	}
	assert.False(t, IsValidProcessCode(""))
	assert.False(t, IsValidProcessCode("welding"))
	assert.False(t, IsValidProcessCode("激光打标"))
}

func TestProcessName(t *testing.T) {
	assert.Equal(t, "激光打标", ProcessName(ProcessLaserMarking))
	assert.Equal(t, "产品包装", ProcessName(ProcessProductPackaging))
	// 未知编码原样返回
	assert.Equal(t, "welding", ProcessName("welding"))
}

func TestMapLocationToProcessCode(t *testing.T) {
	assert.Equal(t, ProcessProductTesting, MapLocationToProcessCode("产品测试"))
	assert.Equal(t, ProcessProductAssembly, MapLocationToProcessCode(" 产品组装 "))
	assert.Equal(t, ProcessLaserMarking, MapLocationToProcessCode("激光打标"))

	// 无法识别的位置归入激光打标
	assert.Equal(t, ProcessLaserMarking, MapLocationToProcessCode(""))
	assert.Equal(t, ProcessLaserMarking, MapLocationToProcessCode("二楼仓库"))
}
