package service

import (
	"context"
	"testing"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/testutil"
	"gorm.io/gorm"
)

func newPlanTestService(t *testing.T) (*PlanService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	return NewPlanService(repos.Plan, repos.Equipment, repos.Item, repos.WorkOrder, repos.User), db
}

func TestCreatePlanDerivesCycleAndProcess(t *testing.T) {
	svc, db := newPlanTestService(t)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-001", "测试台1号", "产品测试")
	item := testutil.SeedItem(t, db, "夹具点检", 45)

	// 不传工序时按设备位置推导，周期取项目默认值
	plan, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID,
		ItemID:      item.ID,
		StartDate:   "2026-03-01",
	})
	if err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if plan.CycleDays != 45 {
		t.Errorf("Expected cycle 45 from item, got %d", plan.CycleDays)
	}
	if plan.ExecutionProcessCode != entity.ProcessProductTesting {
		t.Errorf("Expected process from location, got %s", plan.ExecutionProcessCode)
	}
	// next_due_date 缺省为 start_date
	if !DateOnly(plan.NextDueDate).Equal(date(2026, 3, 1)) {
		t.Errorf("Expected next due = start date, got %v", plan.NextDueDate)
	}
	if !plan.IsEnabled {
		t.Error("Expected new plan to be enabled")
	}
}

func TestCreatePlanValidations(t *testing.T) {
	svc, db := newPlanTestService(t)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-002", "组装台2号", "产品组装")
	item := testutil.SeedItem(t, db, "导轨润滑", 30)

	// 设备×项目唯一
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID, ItemID: item.ID, StartDate: "2026-03-01",
	}); err != nil {
		t.Fatalf("Create failed: %v", err)
	}
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID, ItemID: item.ID, StartDate: "2026-04-01",
	}); err == nil {
		t.Error("Expected duplicate equipment+item to be rejected")
	}

	// 不存在的设备
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: 9999, ItemID: item.ID, StartDate: "2026-03-01",
	}); err == nil {
		t.Error("Expected unknown equipment to be rejected")
	}

	// 日期格式
	item2 := testutil.SeedItem(t, db, "皮带检查", 30)
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID, ItemID: item2.ID, StartDate: "03/01/2026",
	}); err == nil {
		t.Error("Expected bad date format to be rejected")
	}

	// 下次保养日早于起始日
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID, ItemID: item2.ID,
		StartDate: "2026-03-01", NextDueDate: "2026-02-01",
	}); err == nil {
		t.Error("Expected next due before start to be rejected")
	}

	// 停用设备
	db.Model(&entity.Equipment{}).Where("id = ?", equipment.ID).Update("is_enabled", false)
	if _, err := svc.Create(ctx, PlanUpsertRequest{
		EquipmentID: equipment.ID, ItemID: item2.ID, StartDate: "2026-03-01",
	}); err == nil {
		t.Error("Expected disabled equipment to be rejected")
	}
}

func TestTogglePlanKeepsNextDueDate(t *testing.T) {
	svc, db := newPlanTestService(t)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-003", "打标机3号", "激光打标")
	item := testutil.SeedItem(t, db, "镜头清洁", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 1), date(2026, 4, 1))

	off, err := svc.Toggle(ctx, plan.ID, false)
	if err != nil {
		t.Fatalf("Toggle off failed: %v", err)
	}
	if off.IsEnabled {
		t.Error("Expected plan disabled")
	}

	on, err := svc.Toggle(ctx, plan.ID, true)
	if err != nil {
		t.Fatalf("Toggle on failed: %v", err)
	}
	if !on.IsEnabled {
		t.Error("Expected plan enabled")
	}
	if !DateOnly(on.NextDueDate).Equal(date(2026, 4, 1)) {
		t.Errorf("Expected next due untouched, got %v", on.NextDueDate)
	}
}

func TestDeletePlanGuardedByUnfinishedOrders(t *testing.T) {
	svc, db := newPlanTestService(t)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-004", "包装线4号", "产品包装")
	item := testutil.SeedItem(t, db, "封口检查", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductPackaging,
		date(2026, 1, 1), date(2026, 2, 1))

	planID := plan.ID
	order := &entity.MaintenanceWorkOrder{
		PlanID:  &planID,
		DueDate: date(2026, 2, 1),
		Status:  entity.WorkOrderStatusPending,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Seed order failed: %v", err)
	}

	if err := svc.Delete(ctx, plan.ID); err == nil {
		t.Error("Expected delete rejected with unfinished order")
	}

	db.Model(&entity.MaintenanceWorkOrder{}).Where("id = ?", order.ID).
		Update("status", entity.WorkOrderStatusDone)
	if err := svc.Delete(ctx, plan.ID); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}

	// 历史工单保留，计划引用置空
	var reloaded entity.MaintenanceWorkOrder
	if err := db.First(&reloaded, order.ID).Error; err != nil {
		t.Fatalf("Reload order failed: %v", err)
	}
	if reloaded.PlanID != nil {
		t.Errorf("Expected plan reference detached, got %v", reloaded.PlanID)
	}
}
