package domain

import "time"

// ShareLink 是排班表的只读分享链接，持有链接的人无需登录即可查看
type ShareLink struct {
	Token      string    `json:"token"`
	ScheduleID int64     `json:"scheduleID"`
	URL        string    `json:"url"`
	CreatedBy  int64     `json:"createdBy"`
	ExpiresAt  time.Time `json:"expiresAt"`
}

// SharedSchedule 是分享页面看到的内容
type SharedSchedule struct {
	Schedule    *Schedule     `json:"schedule"`
	Tasks       []*Task       `json:"tasks"`
	Assignments []*Assignment `json:"assignments"`
}
