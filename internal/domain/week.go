package domain

import (
	"fmt"
	"strings"
	"time"
)

const DaysPerWeek = 7

// Week 负责在星期名称（客户端展示用）和 0-6 的整数（数据库存储用）之间转换
// 0 表示 FirstDay，之后依次递增
type Week struct {
	FirstDay time.Weekday
}

func ParseWeek(firstDay string) (Week, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if strings.EqualFold(d.String(), firstDay) {
			return Week{FirstDay: d}, nil
		}
	}
	return Week{}, fmt.Errorf("invalid first day of week %q", firstDay)
}

// DayName 把 0-6 的整数转换成星期名称
func (w Week) DayName(index int32) (string, error) {
	if index < 0 || index >= DaysPerWeek {
		return "", fmt.Errorf("day index %d out of range", index)
	}
	return time.Weekday((int(w.FirstDay) + int(index)) % DaysPerWeek).String(), nil
}

// DayIndex 把星期名称转换成 0-6 的整数
func (w Week) DayIndex(name string) (int32, error) {
	for d := time.Sunday; d <= time.Saturday; d++ {
		if d.String() == name {
			return int32((int(d) - int(w.FirstDay) + DaysPerWeek) % DaysPerWeek), nil
		}
	}
	return 0, fmt.Errorf("invalid day name %q", name)
}

// Days 按照一周的顺序返回所有星期名称
func (w Week) Days() []string {
	days := make([]string, 0, DaysPerWeek)
	for i := 0; i < DaysPerWeek; i++ {
		days = append(days, time.Weekday((int(w.FirstDay)+i)%DaysPerWeek).String())
	}
	return days
}

// StartOf 返回 t 所在周的第一天（零点，UTC）
func (w Week) StartOf(t time.Time) time.Time {
	t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
	offset := (int(t.Weekday()) - int(w.FirstDay) + DaysPerWeek) % DaysPerWeek
	return t.AddDate(0, 0, -offset)
}
