package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/donkilove/ZYKJ-MES/internal/model/entity"
	"github.com/donkilove/ZYKJ-MES/internal/repository"
	"github.com/donkilove/ZYKJ-MES/internal/testutil"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// newWorkOrderTestService wires a WorkOrderService against the test schema
// with a frozen clock.
func newWorkOrderTestService(t *testing.T, today time.Time) (*WorkOrderService, *gorm.DB) {
	t.Helper()
	db := testutil.SetupTestDB(t)
	repos := repository.NewRepositories(db)
	svc := NewWorkOrderService(repos.WorkOrder, repos.Plan, repos.Record, repos.User, db, zap.NewNop())
	svc.now = func() time.Time { return today }
	return svc, db
}

func TestGenerateCreatesOrderAndAdvancesPlan(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-001", "贴片机1号", "产品组装")
	item := testutil.SeedItem(t, db, "导轨润滑", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 2), date(2026, 2, 1))

	order, created, err := svc.Generate(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !created {
		t.Fatal("Expected created=true for first generation")
	}
	if order.Status != entity.WorkOrderStatusPending {
		t.Errorf("Expected status pending, got %s", order.Status)
	}
	if !DateOnly(order.DueDate).Equal(date(2026, 2, 1)) {
		t.Errorf("Expected due date 2026-02-01, got %v", order.DueDate)
	}

	// 快照字段
	if order.SourceEquipmentCode != "EQ-001" || order.SourceEquipmentName != "贴片机1号" {
		t.Errorf("Unexpected equipment snapshot: %s / %s", order.SourceEquipmentCode, order.SourceEquipmentName)
	}
	if order.SourceItemName != "导轨润滑" {
		t.Errorf("Unexpected item snapshot: %s", order.SourceItemName)
	}
	if order.SourceExecutionProcessCode != entity.ProcessProductAssembly {
		t.Errorf("Unexpected process snapshot: %s", order.SourceExecutionProcessCode)
	}
	if order.SourcePlanCycleDays == nil || *order.SourcePlanCycleDays != 30 {
		t.Errorf("Unexpected cycle snapshot: %v", order.SourcePlanCycleDays)
	}

	// 计划下次保养日推进一个周期：2026-02-01 + 30d = 2026-03-03
	var reloaded entity.MaintenancePlan
	if err := db.First(&reloaded, plan.ID).Error; err != nil {
		t.Fatalf("Reload plan failed: %v", err)
	}
	if !DateOnly(reloaded.NextDueDate).Equal(date(2026, 3, 3)) {
		t.Errorf("Expected next due date 2026-03-03, got %v", reloaded.NextDueDate)
	}
}

func TestGenerateIdempotentWhileOrderActive(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-002", "测试台2号", "产品测试")
	item := testutil.SeedItem(t, db, "探针校准", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductTesting,
		date(2026, 1, 2), date(2026, 2, 1))

	first, created, err := svc.Generate(context.Background(), plan.ID)
	if err != nil || !created {
		t.Fatalf("First generate: created=%v err=%v", created, err)
	}

	second, created, err := svc.Generate(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Second generate failed: %v", err)
	}
	if created {
		t.Error("Expected created=false while an active order exists")
	}
	if second.ID != first.ID {
		t.Errorf("Expected same order %d, got %d", first.ID, second.ID)
	}

	var count int64
	db.Model(&entity.MaintenanceWorkOrder{}).Where("plan_id = ?", plan.ID).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 work order, got %d", count)
	}
}

func TestGeneratePastDueCreatesOverdueOrder(t *testing.T) {
	today := date(2026, 2, 10)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-003", "打标机3号", "激光打标")
	item := testutil.SeedItem(t, db, "镜头清洁", 7)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 7, entity.ProcessLaserMarking,
		date(2026, 1, 6), date(2026, 2, 3))

	order, created, err := svc.Generate(context.Background(), plan.ID)
	if err != nil || !created {
		t.Fatalf("Generate: created=%v err=%v", created, err)
	}
	if order.Status != entity.WorkOrderStatusOverdue {
		t.Errorf("Expected overdue status for past due date, got %s", order.Status)
	}
	if !DateOnly(order.DueDate).Equal(date(2026, 2, 3)) {
		t.Errorf("Expected due date kept at 2026-02-03, got %v", order.DueDate)
	}
}

func TestGenerateRealignsCycleWithItem(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-004", "包装线4号", "产品包装")
	// 项目默认周期已改成15天，计划里还存着旧的30天
	item := testutil.SeedItem(t, db, "传送带检查", 15)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductPackaging,
		date(2026, 1, 2), date(2026, 2, 1))

	order, _, err := svc.Generate(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if order.SourcePlanCycleDays == nil || *order.SourcePlanCycleDays != 15 {
		t.Errorf("Expected snapshot cycle 15, got %v", order.SourcePlanCycleDays)
	}

	var reloaded entity.MaintenancePlan
	db.First(&reloaded, plan.ID)
	if reloaded.CycleDays != 15 {
		t.Errorf("Expected plan cycle realigned to 15, got %d", reloaded.CycleDays)
	}
	// 2026-02-01 + 15d
	if !DateOnly(reloaded.NextDueDate).Equal(date(2026, 2, 16)) {
		t.Errorf("Expected next due 2026-02-16, got %v", reloaded.NextDueDate)
	}
}

func TestGenerateInvalidProcessFallsBackToLocation(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-005", "测试台5号", "产品测试")
	item := testutil.SeedItem(t, db, "电源检查", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, "bad_code",
		date(2026, 1, 2), date(2026, 2, 1))

	order, _, err := svc.Generate(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if order.SourceExecutionProcessCode != entity.ProcessProductTesting {
		t.Errorf("Expected process derived from location, got %s", order.SourceExecutionProcessCode)
	}
}

func TestGenerateDisabledPlanRejected(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-006", "组装台6号", "产品组装")
	item := testutil.SeedItem(t, db, "螺丝检查", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 2), date(2026, 2, 1))
	db.Model(&entity.MaintenancePlan{}).Where("id = ?", plan.ID).Update("is_enabled", false)

	_, _, err := svc.Generate(context.Background(), plan.ID)
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected ValidationError for disabled plan, got %v", err)
	}
}

func TestGenerateDueWorkOrdersSkipsDisabledChain(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	// 到期且整条链启用
	eq1 := testutil.SeedEquipment(t, db, "EQ-101", "设备101", "激光打标")
	item1 := testutil.SeedItem(t, db, "项目101", 30)
	testutil.SeedPlan(t, db, eq1.ID, item1.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 2), date(2026, 2, 1))

	// 未到期
	eq2 := testutil.SeedEquipment(t, db, "EQ-102", "设备102", "激光打标")
	item2 := testutil.SeedItem(t, db, "项目102", 30)
	testutil.SeedPlan(t, db, eq2.ID, item2.ID, 30, entity.ProcessLaserMarking,
		date(2026, 2, 1), date(2026, 3, 3))

	// 到期但项目停用
	eq3 := testutil.SeedEquipment(t, db, "EQ-103", "设备103", "激光打标")
	item3 := testutil.SeedItem(t, db, "项目103", 30)
	db.Model(&entity.MaintenanceItem{}).Where("id = ?", item3.ID).Update("is_enabled", false)
	testutil.SeedPlan(t, db, eq3.ID, item3.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 2), date(2026, 2, 1))

	// 到期但设备停用
	eq4 := testutil.SeedEquipment(t, db, "EQ-104", "设备104", "激光打标")
	db.Model(&entity.Equipment{}).Where("id = ?", eq4.ID).Update("is_enabled", false)
	item4 := testutil.SeedItem(t, db, "项目104", 30)
	testutil.SeedPlan(t, db, eq4.ID, item4.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 2), date(2026, 2, 1))

	result, err := svc.GenerateDueWorkOrders(context.Background())
	if err != nil {
		t.Fatalf("GenerateDueWorkOrders failed: %v", err)
	}
	if result.Scanned != 1 {
		t.Errorf("Expected 1 scanned plan, got %d", result.Scanned)
	}
	if result.Created != 1 {
		t.Errorf("Expected 1 created order, got %d", result.Created)
	}
	if result.Failed != 0 {
		t.Errorf("Expected 0 failed, got %d", result.Failed)
	}

	var count int64
	db.Model(&entity.MaintenanceWorkOrder{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected 1 work order total, got %d", count)
	}
}

func TestRefreshOverdueIsMonotonic(t *testing.T) {
	today := date(2026, 2, 10)
	svc, db := newWorkOrderTestService(t, today)

	due := date(2026, 2, 3)
	pending := &entity.MaintenanceWorkOrder{DueDate: due, Status: entity.WorkOrderStatusPending}
	inProgress := &entity.MaintenanceWorkOrder{DueDate: due, Status: entity.WorkOrderStatusInProgress}
	done := &entity.MaintenanceWorkOrder{DueDate: due, Status: entity.WorkOrderStatusDone}
	notDue := &entity.MaintenanceWorkOrder{DueDate: date(2026, 2, 10), Status: entity.WorkOrderStatusPending}
	for _, o := range []*entity.MaintenanceWorkOrder{pending, inProgress, done, notDue} {
		if err := db.Create(o).Error; err != nil {
			t.Fatalf("Seed order failed: %v", err)
		}
	}

	n, err := svc.RefreshOverdue(context.Background())
	if err != nil {
		t.Fatalf("RefreshOverdue failed: %v", err)
	}
	if n != 1 {
		t.Errorf("Expected 1 order marked overdue, got %d", n)
	}

	assertStatus := func(id uint, want string) {
		var row entity.MaintenanceWorkOrder
		db.First(&row, id)
		if row.Status != want {
			t.Errorf("Order %d: expected status %s, got %s", id, want, row.Status)
		}
	}
	assertStatus(pending.ID, entity.WorkOrderStatusOverdue)
	assertStatus(inProgress.ID, entity.WorkOrderStatusInProgress)
	assertStatus(done.ID, entity.WorkOrderStatusDone)
	assertStatus(notDue.ID, entity.WorkOrderStatusPending)
}

func TestStartAndCompleteFlow(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)
	ctx := context.Background()

	operator := testutil.SeedTestUser(t, db, "op_zhang", "pw",
		[]string{entity.RoleOperator}, []string{entity.ProcessProductAssembly})
	equipment := testutil.SeedEquipment(t, db, "EQ-201", "组装台201", "产品组装")
	item := testutil.SeedItem(t, db, "气缸保养", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 2), date(2026, 2, 1))

	order, _, err := svc.Generate(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	actor := Actor{
		UserID:       operator.ID,
		Username:     operator.Username,
		RoleCodes:    []string{entity.RoleOperator},
		ProcessCodes: []string{entity.ProcessProductAssembly},
	}

	// 未开工不能完工
	_, err = svc.Complete(ctx, order.ID, actor, CompleteWorkOrderRequest{ResultSummary: "completed"})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected ValidationError completing a pending order, got %v", err)
	}

	started, err := svc.Start(ctx, order.ID, actor)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if started.Status != entity.WorkOrderStatusInProgress {
		t.Errorf("Expected in_progress, got %s", started.Status)
	}
	if started.StartedAt == nil {
		t.Error("Expected started_at to be set")
	}
	if started.ExecutorUserID == nil || *started.ExecutorUserID != operator.ID {
		t.Errorf("Expected executor %d, got %v", operator.ID, started.ExecutorUserID)
	}

	// 重复开工被拒
	if _, err := svc.Start(ctx, order.ID, actor); err == nil {
		t.Error("Expected error starting an in_progress order")
	}

	// failed 必须带备注
	_, err = svc.Complete(ctx, order.ID, actor, CompleteWorkOrderRequest{ResultSummary: "failed"})
	if _, ok := err.(*ValidationError); !ok {
		t.Fatalf("Expected ValidationError for failed without remark, got %v", err)
	}

	// 大小写与空白归一化
	completed, err := svc.Complete(ctx, order.ID, actor, CompleteWorkOrderRequest{
		ResultSummary: "  Completed ",
		ResultRemark:  "一切正常",
	})
	if err != nil {
		t.Fatalf("Complete failed: %v", err)
	}
	if completed.Status != entity.WorkOrderStatusDone {
		t.Errorf("Expected done, got %s", completed.Status)
	}
	if completed.ResultSummary != entity.WorkOrderResultCompleted {
		t.Errorf("Expected normalized summary, got %s", completed.ResultSummary)
	}
	if completed.CompletedAt == nil {
		t.Error("Expected completed_at to be set")
	}

	// 完工后生成一条保养记录，快照随工单
	var records []entity.MaintenanceRecord
	db.Where("work_order_id = ?", order.ID).Find(&records)
	if len(records) != 1 {
		t.Fatalf("Expected exactly 1 record, got %d", len(records))
	}
	record := records[0]
	if record.SourceEquipmentCode != "EQ-201" || record.SourceItemName != "气缸保养" {
		t.Errorf("Unexpected record snapshot: %s / %s", record.SourceEquipmentCode, record.SourceItemName)
	}
	if record.ExecutorUsername != operator.Username {
		t.Errorf("Expected executor username %s, got %s", operator.Username, record.ExecutorUsername)
	}
	if record.ResultSummary != entity.WorkOrderResultCompleted {
		t.Errorf("Unexpected record summary: %s", record.ResultSummary)
	}

	// 完工后不能再次完工
	if _, err := svc.Complete(ctx, order.ID, actor, CompleteWorkOrderRequest{ResultSummary: "completed"}); err == nil {
		t.Error("Expected error completing a done order")
	}
}

func TestExecutePermissionByProcessSnapshot(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)
	ctx := context.Background()

	equipment := testutil.SeedEquipment(t, db, "EQ-301", "打标机301", "激光打标")
	item := testutil.SeedItem(t, db, "镜头校准", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessLaserMarking,
		date(2026, 1, 2), date(2026, 2, 1))

	order, _, err := svc.Generate(ctx, plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}

	// 其他工序的操作员被拒
	outsider := Actor{
		UserID:       99,
		Username:     "op_li",
		RoleCodes:    []string{entity.RoleOperator},
		ProcessCodes: []string{entity.ProcessProductPackaging},
	}
	if _, err := svc.Start(ctx, order.ID, outsider); err == nil {
		t.Error("Expected forbidden for operator of another process")
	} else if _, ok := err.(*ForbiddenError); !ok {
		t.Errorf("Expected ForbiddenError, got %v", err)
	}

	// 品质管理员可看不可执行
	qa := Actor{UserID: 98, Username: "qa", RoleCodes: []string{entity.RoleQualityAdmin}}
	if _, err := svc.Start(ctx, order.ID, qa); err == nil {
		t.Error("Expected forbidden for quality admin without the process")
	}

	// 生产管理员可执行任意工序
	admin := Actor{UserID: 97, Username: "prod", RoleCodes: []string{entity.RoleProductionAdmin}}
	if _, err := svc.Start(ctx, order.ID, admin); err != nil {
		t.Errorf("Expected production admin to start, got %v", err)
	}
}

func TestListScopesOperatorsByProcess(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)
	ctx := context.Background()

	seedOrderWithProcess := func(code, eqCode string) {
		eq := testutil.SeedEquipment(t, db, eqCode, "设备"+eqCode, "")
		item := testutil.SeedItem(t, db, "项目"+eqCode, 30)
		plan := testutil.SeedPlan(t, db, eq.ID, item.ID, 30, code,
			date(2026, 1, 2), date(2026, 2, 1))
		if _, _, err := svc.Generate(ctx, plan.ID); err != nil {
			t.Fatalf("Generate for %s failed: %v", code, err)
		}
	}
	seedOrderWithProcess(entity.ProcessLaserMarking, "EQ-401")
	seedOrderWithProcess(entity.ProcessProductTesting, "EQ-402")

	operator := Actor{
		UserID:       1,
		Username:     "op",
		RoleCodes:    []string{entity.RoleOperator},
		ProcessCodes: []string{entity.ProcessLaserMarking},
	}
	rows, total, err := svc.List(ctx, WorkOrderListQuery{Page: 1, Size: 20}, operator)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 1 || len(rows) != 1 {
		t.Fatalf("Expected 1 scoped order, got total=%d len=%d", total, len(rows))
	}
	if rows[0].SourceExecutionProcessCode != entity.ProcessLaserMarking {
		t.Errorf("Unexpected process in scoped list: %s", rows[0].SourceExecutionProcessCode)
	}

	// 没有分配工序的操作员看到空列表
	bare := Actor{UserID: 2, Username: "bare", RoleCodes: []string{entity.RoleOperator}}
	rows, total, err = svc.List(ctx, WorkOrderListQuery{Page: 1, Size: 20}, bare)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 0 || len(rows) != 0 {
		t.Errorf("Expected empty list, got total=%d len=%d", total, len(rows))
	}

	// 管理角色不受工序限制
	admin := Actor{UserID: 3, Username: "admin", RoleCodes: []string{entity.RoleQualityAdmin}}
	_, total, err = svc.List(ctx, WorkOrderListQuery{Page: 1, Size: 20}, admin)
	if err != nil {
		t.Fatalf("List failed: %v", err)
	}
	if total != 2 {
		t.Errorf("Expected admin to see 2 orders, got %d", total)
	}

	// 非法状态报错
	if _, _, err := svc.List(ctx, WorkOrderListQuery{Status: "bogus"}, admin); err == nil {
		t.Error("Expected error for invalid status filter")
	}
}

func TestNormalizeResultSummary(t *testing.T) {
	for input, want := range map[string]string{
		"completed":  entity.WorkOrderResultCompleted,
		" Completed": entity.WorkOrderResultCompleted,
		"FAILED":     entity.WorkOrderResultFailed,
		"failed ":    entity.WorkOrderResultFailed,
	} {
		got, err := NormalizeResultSummary(input)
		if err != nil {
			t.Errorf("NormalizeResultSummary(%q) error: %v", input, err)
			continue
		}
		if got != want {
			t.Errorf("NormalizeResultSummary(%q) = %q, want %q", input, got, want)
		}
	}

	for _, input := range []string{"", "ok", "done", "成功"} {
		if _, err := NormalizeResultSummary(input); err == nil {
			t.Errorf("Expected error for %q", input)
		}
	}
}

func TestExportRecords(t *testing.T) {
	today := date(2026, 3, 10)
	svc, db := newWorkOrderTestService(t, today)

	records := []entity.MaintenanceRecord{
		{
			WorkOrderID:         101,
			SourceEquipmentCode: "EQ-100",
			SourceEquipmentName: "激光打标机",
			SourceItemName:      "镜头清洁",
			DueDate:             date(2026, 3, 1),
			ExecutorUsername:    "op_zhang",
			CompletedAt:         date(2026, 3, 1).Add(10 * time.Hour),
			ResultSummary:       entity.WorkOrderResultCompleted,
		},
		{
			WorkOrderID:         102,
			SourceEquipmentCode: "EQ-101",
			SourceEquipmentName: "包装机",
			SourceItemName:      "封口温度检查",
			DueDate:             date(2026, 3, 5),
			ExecutorUsername:    "op_li",
			CompletedAt:         date(2026, 3, 5).Add(9 * time.Hour),
			ResultSummary:       entity.WorkOrderResultFailed,
			ResultRemark:        "温控异常",
		},
	}
	for i := range records {
		if err := db.Create(&records[i]).Error; err != nil {
			t.Fatalf("Seed record failed: %v", err)
		}
	}

	f, filename, err := svc.ExportRecords(context.Background(), repository.RecordListParams{})
	if err != nil {
		t.Fatalf("ExportRecords failed: %v", err)
	}
	defer f.Close()

	if filename != "maintenance_records_20260310.xlsx" {
		t.Errorf("Unexpected filename: %s", filename)
	}

	sheet := "保养记录"
	if v, _ := f.GetCellValue(sheet, "A1"); v != "设备编码" {
		t.Errorf("Unexpected header A1: %q", v)
	}
	// completed_at 倒序，最新在前
	if v, _ := f.GetCellValue(sheet, "A2"); v != "EQ-101" {
		t.Errorf("Unexpected A2: %q", v)
	}
	if v, _ := f.GetCellValue(sheet, "G2"); v != "保养失败" {
		t.Errorf("Unexpected G2: %q", v)
	}
	if v, _ := f.GetCellValue(sheet, "A3"); v != "EQ-100" {
		t.Errorf("Unexpected A3: %q", v)
	}

	// 日期区间颠倒报参数错误
	if _, _, err := svc.ExportRecords(context.Background(), repository.RecordListParams{
		StartDate: date(2026, 3, 9),
		EndDate:   date(2026, 3, 1),
	}); err == nil {
		t.Error("Expected error for inverted date range")
	}
}

// 与调度器并发触发同一计划时，唯一约束是最终裁决：输家捕获冲突后
// 重读赢家的工单返回 created=false。用建单回调在防重检查之后、
// 插入之前抢先落库一单来复现竞争窗口。
func TestGenerateDuplicateKeyRaceReturnsExisting(t *testing.T) {
	today := date(2026, 2, 1)
	svc, db := newWorkOrderTestService(t, today)

	equipment := testutil.SeedEquipment(t, db, "EQ-030", "注塑机3号", "产品组装")
	item := testutil.SeedItem(t, db, "模具点检", 30)
	plan := testutil.SeedPlan(t, db, equipment.ID, item.ID, 30, entity.ProcessProductAssembly,
		date(2026, 1, 2), date(2026, 2, 1))

	raced := false
	var winnerID uint
	err := db.Callback().Create().Before("gorm:create").
		Register("simulate_generate_race", func(tx *gorm.DB) {
			if raced || tx.Statement.Table != (entity.MaintenanceWorkOrder{}).TableName() {
				return
			}
			raced = true
			winner := &entity.MaintenanceWorkOrder{
				PlanID:  &plan.ID,
				DueDate: date(2026, 2, 1),
				Status:  entity.WorkOrderStatusPending,
			}
			if err := db.Session(&gorm.Session{NewDB: true}).Create(winner).Error; err != nil {
				t.Errorf("Insert racing order failed: %v", err)
				return
			}
			winnerID = winner.ID
		})
	if err != nil {
		t.Fatalf("Register callback failed: %v", err)
	}
	t.Cleanup(func() { db.Callback().Create().Remove("simulate_generate_race") })

	order, created, err := svc.Generate(context.Background(), plan.ID)
	if err != nil {
		t.Fatalf("Generate failed: %v", err)
	}
	if !raced {
		t.Fatal("Race was never triggered")
	}
	if created {
		t.Error("Expected created=false for the losing side")
	}
	if order.ID != winnerID {
		t.Errorf("Expected winner order %d, got %d", winnerID, order.ID)
	}

	var count int64
	if err := db.Model(&entity.MaintenanceWorkOrder{}).
		Where("plan_id = ?", plan.ID).Count(&count).Error; err != nil {
		t.Fatalf("Count orders failed: %v", err)
	}
	if count != 1 {
		t.Errorf("Expected exactly 1 order after the race, got %d", count)
	}

	// 输家事务整体回滚，计划下次保养日未被推进
	var reloaded entity.MaintenancePlan
	if err := db.First(&reloaded, plan.ID).Error; err != nil {
		t.Fatalf("Reload plan failed: %v", err)
	}
	if !DateOnly(reloaded.NextDueDate).Equal(date(2026, 2, 1)) {
		t.Errorf("Expected next due date unchanged at 2026-02-01, got %v", reloaded.NextDueDate)
	}
}

// 同一工单第二条保养记录被 work_order_id 唯一约束拒绝
func TestRecordUniquePerWorkOrder(t *testing.T) {
	_, db := newWorkOrderTestService(t, date(2026, 3, 1))

	first := entity.MaintenanceRecord{
		WorkOrderID:   501,
		DueDate:       date(2026, 2, 20),
		CompletedAt:   date(2026, 2, 21),
		ResultSummary: entity.WorkOrderResultCompleted,
	}
	if err := db.Create(&first).Error; err != nil {
		t.Fatalf("Create first record failed: %v", err)
	}

	dup := entity.MaintenanceRecord{
		WorkOrderID:   501,
		DueDate:       date(2026, 2, 20),
		CompletedAt:   date(2026, 2, 22),
		ResultSummary: entity.WorkOrderResultFailed,
	}
	err := db.Create(&dup).Error
	if err == nil {
		t.Fatal("Expected duplicate record to be rejected")
	}
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		t.Errorf("Expected gorm.ErrDuplicatedKey, got %v", err)
	}
}
