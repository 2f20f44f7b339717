package domain

import "time"

// WeekTemplateEntry 是模板中的一个格子，TimeSlot 总是任务当前的名称
type WeekTemplateEntry struct {
	TaskID    int64           `json:"taskID"`
	StaffID   int64           `json:"staffID"`
	DayOfWeek int32           `json:"dayOfWeek"`
	TimeSlot  string          `json:"timeSlot"`
	Notes     string          `json:"notes"`
	Task      AssignmentTask  `json:"task"`
	Staff     AssignmentStaff `json:"staff"`
}

// WeekTemplate 是保存下来的一整周排班，可以应用到任意一周的排班表
type WeekTemplate struct {
	ID          int64               `json:"id"`
	Name        string              `json:"name"`
	Description string              `json:"description"`
	Entries     []WeekTemplateEntry `json:"entries"`
	CreatedAt   time.Time           `json:"createdAt"`
	Version     int32               `json:"-"`
}
