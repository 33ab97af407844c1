package service

import (
	"time"
)

// DateOnly 截断到日期，统一用UTC零点做比较与存储
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// RecalculateNextDueDate 以 start_date 为锚点重算下次保养日。
// today <= start_date 时回到 start_date，否则取不早于今天的
// 第一个整周期点：start_date + ceil(elapsed/cycle)*cycle。
// 锚定起始日，重复重算不会产生漂移。
func RecalculateNextDueDate(startDate time.Time, cycleDays int, today time.Time) time.Time {
	start := DateOnly(startDate)
	day := DateOnly(today)
	if !day.After(start) {
		return start
	}
	elapsed := int(day.Sub(start).Hours() / 24)
	rounds := (elapsed + cycleDays - 1) / cycleDays
	return start.AddDate(0, 0, rounds*cycleDays)
}
