package domain

import "time"

// Invitation 保存在 redis 中，过期后自动失效。Token 只出现在邀请邮件的链接里。
type Invitation struct {
	ID          string    `json:"id"`
	Token       string    `json:"-"`
	Email       string    `json:"email"`
	Role        Role      `json:"role"`
	InvitedBy   int64     `json:"invitedBy"`
	InviterName string    `json:"inviterName"`
	CreatedAt   time.Time `json:"createdAt"`
	ExpiresAt   time.Time `json:"expiresAt"`
}
