package domain

const (
	MailTypeNewAccount    = "new_account"
	MailTypeInvitation    = "invitation"
	MailTypeResetPassword = "reset_password"
)

type MailMessage struct {
	Type string `json:"type"`
	To   string `json:"to"`
	Data any    `json:"data"`
}

type NewAccountMailData struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type InvitationMailData struct {
	InviterName string `json:"inviterName"`
	Role        Role   `json:"role"`
	Link        string `json:"link"`
	Expiration  int    `json:"expiration"` // 单位为天
}

type ResetPasswordMailData struct {
	Name       string `json:"name"`
	OTP        string `json:"otp"`
	Expiration int    `json:"expiration"`
}
