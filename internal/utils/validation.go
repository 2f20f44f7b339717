package utils

import (
	"errors"
	"fmt"
	"regexp"
	"slices"

	"github.com/mahuti/tasks/backend/internal/domain"
)

var hexColor = regexp.MustCompile(`^#[0-9A-Fa-f]{6}$`)

// ValidateColor 颜色为空表示使用默认颜色
func ValidateColor(color string) error {
	if color == "" || hexColor.MatchString(color) {
		return nil
	}
	return fmt.Errorf("颜色 %s 格式错误，应为 #RRGGBB", color)
}

func ValidateDayOfWeek(day int32) error {
	if day < 0 || day >= domain.DaysPerWeek {
		return fmt.Errorf("星期 %d 超出范围，应为 0-%d", day, domain.DaysPerWeek-1)
	}
	return nil
}

// ValidateTimeSlot 时段就是任务名称，不允许和任务不一致
func ValidateTimeSlot(timeSlot string, task *domain.Task) error {
	if timeSlot != task.Name {
		return fmt.Errorf("时段 %s 与任务 %s 不一致", timeSlot, task.Name)
	}
	return nil
}

// ValidateTaskOrder 检查重新排序时提交的 ID 恰好是现有任务的一个排列
func ValidateTaskOrder(ids []int64, tasks []*domain.Task) error {
	if len(ids) != len(tasks) {
		return errors.New("任务数量不一致")
	}

	seen := make(map[int64]bool, len(ids))
	for _, id := range ids {
		if seen[id] {
			return fmt.Errorf("任务 %d 重复出现", id)
		}
		seen[id] = true

		if !slices.ContainsFunc(tasks, func(t *domain.Task) bool { return t.ID == id }) {
			return fmt.Errorf("任务 %d 不存在", id)
		}
	}

	return nil
}
