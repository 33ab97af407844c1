package service

import (
	"context"
	"testing"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/testutil"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"
)

func TestParseClock(t *testing.T) {
	tests := []struct {
		value  string
		hour   int
		minute int
		ok     bool
	}{
		{"00:05", 0, 5, true},
		{"23:59", 23, 59, true},
		{"7:30", 7, 30, true},
		{" 08:15 ", 8, 15, true},
		{"24:00", 0, 0, false},
		{"12:60", 0, 0, false},
		{"-1:00", 0, 0, false},
		{"0805", 0, 0, false},
		{"ab:cd", 0, 0, false},
		{"", 0, 0, false},
	}

	for _, tt := range tests {
		hour, minute, ok := parseClock(tt.value)
		assert.Equal(t, tt.ok, ok, "parseClock(%q)", tt.value)
		if tt.ok {
			assert.Equal(t, tt.hour, hour, "parseClock(%q) hour", tt.value)
			assert.Equal(t, tt.minute, minute, "parseClock(%q) minute", tt.value)
		}
	}
}

func TestNextWakeDuration(t *testing.T) {
	now := time.Date(2026, 3, 10, 10, 0, 0, 0, time.UTC)

	// 今天的触发点还没到
	assert.Equal(t, 2*time.Hour, nextWakeDuration(now, 12, 0))

	// 触发点已过，推到明天
	assert.Equal(t, 14*time.Hour+5*time.Minute, nextWakeDuration(now, 0, 5))

	// 正好在触发点上，推到明天
	assert.Equal(t, 24*time.Hour, nextWakeDuration(now, 10, 0))

	// 距离触发不足1秒时至少等1秒
	justBefore := time.Date(2026, 3, 10, 11, 59, 59, 900000000, time.UTC)
	assert.Equal(t, time.Second, nextWakeDuration(justBefore, 12, 0))
}

func TestNewSchedulerServiceFallbacks(t *testing.T) {
	logger := zap.NewNop()

	// 非法时区回退UTC，非法时间回退00:05
	s := NewSchedulerService(nil, "25:99", "Not/AZone", logger)
	assert.Equal(t, time.UTC, s.location)
	assert.Equal(t, 0, s.hour)
	assert.Equal(t, 5, s.minute)
	assert.Equal(t, "00:05", s.clockString())

	// 合法配置原样生效
	s = NewSchedulerService(nil, "03:30", "UTC", logger)
	assert.Equal(t, 3, s.hour)
	assert.Equal(t, 30, s.minute)
	assert.Equal(t, "03:30", s.clockString())
}

// 停机取消只打断等待：已经醒来的批次即使外层context已取消也要执行到底
func TestRunOnceFinishesBatchAfterCancel(t *testing.T) {
	today := date(2026, 2, 1)
	workOrderSvc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-040", "回流焊4号", "产品组装")
	item := testutil.SeedItem(t, db, "链条润滑", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 2), date(2026, 2, 1))

	sched := NewSchedulerService(workOrderSvc, "00:05", "UTC", zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	sched.runOnce(ctx)

	var count int64
	if err := db.Model(&entity.MaintenanceWorkOrder{}).
		Where("plan_id = ?", plan.ID).Count(&count).Error; err != nil {
		t.Fatalf("Count orders failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected batch to create 1 order despite cancelled context, got %d", count)
	}
}
