package domain

import "time"

// AssignmentTask 和 AssignmentStaff 是冗余保存的展示信息，前端渲染时不需要再做关联查询
type AssignmentTask struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Icon  string `json:"icon"`
	Color string `json:"color"`
}

type AssignmentStaff struct {
	ID    int64  `json:"id"`
	Name  string `json:"name"`
	Color string `json:"color"`
}

// Assignment 表示某位员工在某周的某一天负责某项任务
// DayOfWeek 取值 0-6，0 表示配置中一周的第一天
type Assignment struct {
	ID         int64           `json:"id"`
	ScheduleID int64           `json:"scheduleID"`
	TaskID     int64           `json:"taskID"`
	StaffID    int64           `json:"staffID"`
	DayOfWeek  int32           `json:"dayOfWeek"`
	TimeSlot   string          `json:"timeSlot"`
	Notes      string          `json:"notes"`
	Task       AssignmentTask  `json:"task"`
	Staff      AssignmentStaff `json:"staff"`
	CreatedAt  time.Time       `json:"createdAt"`
}
