package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

const (
	defaultGenerateHour   = 0
	defaultGenerateMinute = 5
)

// SchedulerService 保养工单每日自动生成循环。
// 每轮醒来后重算下一次触发时刻，时区数据或夏令时变化在下一轮自行修正。
type SchedulerService struct {
	workOrderSvc *WorkOrderService
	logger       *zap.Logger
	location     *time.Location
	hour         int
	minute       int
	now          func() time.Time
}

// NewSchedulerService 创建自动生成调度器。
// 非法的时间/时区配置回退到 00:05 / UTC，只告警不中断启动。
func NewSchedulerService(workOrderSvc *WorkOrderService, generateTime, timezone string, logger *zap.Logger) *SchedulerService {
	location, err := time.LoadLocation(timezone)
	if err != nil {
		logger.Warn("无效的自动生成时区，回退到UTC",
			zap.String("timezone", timezone),
			zap.Error(err),
		)
		location = time.UTC
	}

	hour, minute, ok := parseClock(generateTime)
	if !ok {
		logger.Warn("无效的自动生成时间，回退到00:05",
			zap.String("generate_time", generateTime),
		)
		hour, minute = defaultGenerateHour, defaultGenerateMinute
	}

	return &SchedulerService{
		workOrderSvc: workOrderSvc,
		logger:       logger,
		location:     location,
		hour:         hour,
		minute:       minute,
		now:          time.Now,
	}
}

// parseClock 解析 HH:MM
func parseClock(value string) (int, int, bool) {
	parts := strings.SplitN(strings.TrimSpace(value), ":", 2)
	if len(parts) != 2 {
		return 0, 0, false
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, false
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, false
	}
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, false
	}
	return hour, minute, true
}

// nextWakeDuration 距下一次 HH:MM 触发点的时长，至少1秒
func nextWakeDuration(now time.Time, hour, minute int) time.Duration {
	target := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
	if !target.After(now) {
		target = target.AddDate(0, 0, 1)
	}
	d := target.Sub(now)
	if d < time.Second {
		d = time.Second
	}
	return d
}

// Run 启动调度循环，直到ctx取消。取消只打断等待，不打断进行中的生成。
func (s *SchedulerService) Run(ctx context.Context) {
	s.logger.Info("保养工单自动生成循环已启动",
		zap.String("time", s.clockString()),
		zap.String("timezone", s.location.String()),
	)

	for {
		sleep := nextWakeDuration(s.now().In(s.location), s.hour, s.minute)
		timer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			timer.Stop()
			s.logger.Info("保养工单自动生成循环已停止")
			return
		case <-timer.C:
		}
		s.runOnce(ctx)
	}
}

// runOnce 执行一轮批量生成，任何失败只记录日志，循环继续
func (s *SchedulerService) runOnce(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("自动生成批次panic", zap.Any("panic", r))
		}
	}()

	// 停机取消只打断等待，已经开始的批次在分离的context上执行完，
	// 不能把进行中的事务拦腰截断
	ctx = context.WithoutCancel(ctx)

	result, err := s.workOrderSvc.GenerateDueWorkOrders(ctx)
	if err != nil {
		s.logger.Error("自动生成批次失败", zap.Error(err))
		return
	}
	s.logger.Info("自动生成批次完成",
		zap.Int("scanned", result.Scanned),
		zap.Int("created", result.Created),
		zap.Int("existing", result.Existing),
		zap.Int("failed", result.Failed),
	)
}

func (s *SchedulerService) clockString() string {
	return fmt.Sprintf("%02d:%02d", s.hour, s.minute)
}
