package domain

import "time"

// Schedule 表示一周的排班表，以 WeekStart 唯一标识
type Schedule struct {
	ID        int64     `json:"id"`
	WeekStart time.Time `json:"weekStart"`
	WeekEnd   time.Time `json:"weekEnd"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"createdAt"`
	UpdatedAt time.Time `json:"updatedAt"`
	Version   int32     `json:"-"`
}
