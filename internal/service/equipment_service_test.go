package service

import (
	"context"
	"testing"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/testutil"
	"gorm.io/gorm"
)

func newEquipmentTestService(t *testing.T, today time.Time) (*EquipmentService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewEquipmentService(repos.Equipment, repos.Item, repos.Plan, repos.WorkOrder, db)
	svc.now = func() time.Time { return today }
	return svc, db
}

func TestCreateEquipmentUniqueness(t *testing.T) {
	svc, _ := newEquipmentTestService(t, date(2026, 2, 1))
	ctx := context.Background()

	first, err := svc.CreateEquipment(ctx, EquipmentUpsertRequest{Code: "EQ-001", Name: "贴片机1号", Location: "产品组装"})
	if err != nil {
		t.Fatalf("CreateEquipment failed: %v", err)
	}
	if !first.IsEnabled {
		t.Error("Expected new equipment to be enabled")
	}

	if _, err := svc.CreateEquipment(ctx, EquipmentUpsertRequest{Code: "EQ-001", Name: "另一台"}); err == nil {
		t.Error("Expected duplicate code to be rejected")
	}
	if _, err := svc.CreateEquipment(ctx, EquipmentUpsertRequest{Code: "EQ-002", Name: "贴片机1号"}); err == nil {
		t.Error("Expected duplicate name to be rejected")
	}
	if _, err := svc.CreateEquipment(ctx, EquipmentUpsertRequest{Code: "  ", Name: "x"}); err == nil {
		t.Error("Expected blank code to be rejected")
	}
}

func TestDeleteEquipmentGuards(t *testing.T) {
	svc, db := newEquipmentTestService(t, date(2026, 2, 1))
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-010", "测试台10号", "产品测试")
	item := testutil.SeedItem(t, db, "探针更换", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductTesting,
		date(2026, 1, 2), date(2026, 2, 1))

	// 被计划引用时拒绝
	if err := svc.DeleteEquipment(ctx, equipment.ID); err == nil {
		t.Error("Expected delete to be rejected while referenced by a plan")
	}
	if err := svc.DeleteItem(ctx, item.ID); err == nil {
		t.Error("Expected item delete to be rejected while referenced by a plan")
	}

	// 解除计划引用但留一个未完结工单
	eqID := equipment.ID
	itemID := item.ID
	order := &entity.MaintenanceWorkOrder{
		EquipmentID: &eqID,
		ItemID:      &itemID,
		DueDate:     date(2026, 2, 1),
		Status:      entity.WorkOrderStatusPending,
	}
	if err := db.Create(order).Error; err != nil {
		t.Fatalf("Seed order failed: %v", err)
	}
	db.Delete(&entity.MaintenancePlan{}, plan.ID)

	if err := svc.DeleteEquipment(ctx, equipment.ID); err == nil {
		t.Error("Expected delete to be rejected with an unfinished work order")
	}

	// 工单完结后可删，历史工单引用被置空
	db.Model(&entity.MaintenanceWorkOrder{}).Where("id = ?", order.ID).
		Update("status", entity.WorkOrderStatusDone)
	if err := svc.DeleteEquipment(ctx, equipment.ID); err != nil {
		t.Fatalf("DeleteEquipment failed: %v", err)
	}
	if err := svc.DeleteItem(ctx, item.ID); err != nil {
		t.Fatalf("DeleteItem failed: %v", err)
	}

	var reloaded entity.MaintenanceWorkOrder
	db.First(&reloaded, order.ID)
	if reloaded.EquipmentID != nil || reloaded.ItemID != nil {
		t.Errorf("Expected order references detached, got equipment=%v item=%v",
			reloaded.EquipmentID, reloaded.ItemID)
	}
	if reloaded.Status != entity.WorkOrderStatusDone {
		t.Errorf("Expected history order untouched, got status %s", reloaded.Status)
	}
}

func TestUpdateItemCycleCascadesToPlans(t *testing.T) {
	today := date(2026, 2, 24)
	svc, db := newEquipmentTestService(t, today)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-020", "打标机20号", "激光打标")
	item := testutil.SeedItem(t, db, "光路检查", 30)

	enabled := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 1), date(2026, 3, 2))

	equipment2 := testutil.SeedEquipment(t, db, "EQ-021", "打标机21号", "激光打标")
	disabled := testutil.SeedPlan(t, db, equipment2.ID, item.ID, 30, entity.ProcessLaserMarking,
		date(2026, 2, 10), date(2026, 3, 12))
	db.Model(&entity.MaintenancePlan{}).Where("id = ?", disabled.ID).Update("is_enabled", false)

	if _, err := svc.UpdateItem(ctx, item.ID, ItemUpsertRequest{Name: "光路检查", DefaultCycleDays: 10}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	// start 2026-01-01, cycle 10, today 2026-02-24: 过去54天, 进到第6轮 -> 2026-03-02
	var p1 entity.MaintenancePlan
	db.First(&p1, enabled.ID)
	if p1.CycleDays != 10 {
		t.Errorf("Expected cycle 10, got %d", p1.CycleDays)
	}
	if !DateOnly(p1.NextDueDate).Equal(date(2026, 3, 2)) {
		t.Errorf("Expected next due 2026-03-02, got %v", p1.NextDueDate)
	}

	// 停用计划同样重算: start 2026-02-10, 过去14天, 第2轮 -> 2026-03-02
	var p2 entity.MaintenancePlan
	db.First(&p2, disabled.ID)
	if p2.CycleDays != 10 {
		t.Errorf("Expected disabled plan cycle 10, got %d", p2.CycleDays)
	}
	if !DateOnly(p2.NextDueDate).Equal(date(2026, 3, 2)) {
		t.Errorf("Expected disabled plan next due 2026-03-02, got %v", p2.NextDueDate)
	}
}

func TestUpdateItemSameCycleDoesNotTouchPlans(t *testing.T) {
	svc, db := newEquipmentTestService(t, date(2026, 2, 20))
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-030", "组装台30号", "产品组装")
	item := testutil.SeedItem(t, db, "夹具点检", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 1), date(2026, 5, 1))

	if _, err := svc.UpdateItem(ctx, item.ID, ItemUpsertRequest{Name: "夹具月度点检", DefaultCycleDays: 30}); err != nil {
		t.Fatalf("UpdateItem failed: %v", err)
	}

	var reloaded entity.MaintenancePlan
	db.First(&reloaded, plan.ID)
	if !DateOnly(reloaded.NextDueDate).Equal(date(2026, 5, 1)) {
		t.Errorf("Expected next due untouched at 2026-05-01, got %v", reloaded.NextDueDate)
	}
}
