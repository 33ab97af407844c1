package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestDateOnly(t *testing.T) {
	loc, err := time.LoadLocation("Asia/Shanghai")
	if err != nil {
		t.Skipf("timezone data unavailable: %v", err)
	}

	in := time.Date(2026, 3, 15, 23, 45, 1, 0, loc)
	assert.Equal(t, date(2026, 3, 15), DateOnly(in))

	assert.Equal(t, date(2026, 1, 1), DateOnly(date(2026, 1, 1)))
}

func TestRecalculateNextDueDate(t *testing.T) {
	tests := []struct {
		name      string
		start     time.Time
		cycleDays int
		today     time.Time
		want      time.Time
	}{
		{
			name:      "today before start returns start",
			start:     date(2026, 5, 1),
			cycleDays: 30,
			today:     date(2026, 4, 20),
			want:      date(2026, 5, 1),
		},
		{
			name:      "today equals start returns start",
			start:     date(2026, 5, 1),
			cycleDays: 30,
			today:     date(2026, 5, 1),
			want:      date(2026, 5, 1),
		},
		{
			name:      "mid cycle rounds up to next boundary",
			start:     date(2026, 1, 1),
			cycleDays: 30,
			today:     date(2026, 1, 15),
			want:      date(2026, 1, 31),
		},
		{
			name:      "exact boundary stays on boundary",
			start:     date(2026, 1, 1),
			cycleDays: 30,
			today:     date(2026, 1, 31),
			want:      date(2026, 1, 31),
		},
		{
			name:      "several cycles elapsed",
			start:     date(2026, 1, 1),
			cycleDays: 30,
			today:     date(2026, 2, 20),
			want:      date(2026, 3, 2),
		},
		{
			name:      "one day cycle lands on today",
			start:     date(2026, 1, 1),
			cycleDays: 1,
			today:     date(2026, 6, 15),
			want:      date(2026, 6, 15),
		},
		{
			name:      "weekly cycle",
			start:     date(2026, 3, 2),
			cycleDays: 7,
			today:     date(2026, 3, 10),
			want:      date(2026, 3, 16),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RecalculateNextDueDate(tt.start, tt.cycleDays, tt.today)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestRecalculateNextDueDateAnchored(t *testing.T) {
	// 重复重算不漂移：结果再代入仍落在同一周期点
	start := date(2026, 1, 1)
	today := date(2026, 2, 20)

	first := RecalculateNextDueDate(start, 30, today)
	second := RecalculateNextDueDate(start, 30, first)
	assert.Equal(t, first, second)

	// 到期日与起始日的间隔始终是周期的整数倍
	gap := int(first.Sub(start).Hours() / 24)
	assert.Zero(t, gap%30)
}
