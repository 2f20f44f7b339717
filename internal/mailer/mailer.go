// Package mailer 把消息队列中的邮件请求渲染成可以发送的邮件
package mailer

import (
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"

	"github.com/wneessen/go-mail"

	"github.com/mahuti/tasks/backend/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

var templates = template.Must(template.ParseFS(templateFS, "templates/*.html"))

type kind struct {
	subject  string
	template string
	data     func() any
}

var kinds = map[string]kind{
	domain.MailTypeInvitation: {
		subject:  "Mahuti 任务排班 - 邀请注册",
		template: "invitation.html",
		data:     func() any { return &domain.InvitationMailData{} },
	},
	domain.MailTypeNewAccount: {
		subject:  "Mahuti 任务排班 - 账户信息",
		template: "new_account.html",
		data:     func() any { return &domain.NewAccountMailData{} },
	},
	domain.MailTypeResetPassword: {
		subject:  "Mahuti 任务排班 - 重置密码",
		template: "reset_password.html",
		data:     func() any { return &domain.ResetPasswordMailData{} },
	},
}

// envelope 和 domain.MailMessage 对应，Data 延迟到确定类型之后再解码
type envelope struct {
	Type string          `json:"type"`
	To   string          `json:"to"`
	Data json.RawMessage `json:"data"`
}

// ErrUnsupportedType 表示消息无法处理，重新入队也没有意义
var ErrUnsupportedType = errors.New("不支持的邮件类型")

// Subject 返回某种邮件的标题
func Subject(mailType string) (string, bool) {
	k, ok := kinds[mailType]
	return k.subject, ok
}

// Compose 解析消息队列中的 JSON 并生成邮件
func Compose(from string, body []byte) (*mail.Msg, error) {
	var env envelope
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("邮件信息反序列化失败: %w", err)
	}

	k, ok := kinds[env.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedType, env.Type)
	}

	data := k.data()
	if err := json.Unmarshal(env.Data, data); err != nil {
		return nil, fmt.Errorf("邮件数据反序列化失败: %w", err)
	}

	msg := mail.NewMsg()
	if err := msg.From(from); err != nil {
		return nil, fmt.Errorf("无法设置邮件发件人: %w", err)
	}
	if err := msg.To(env.To); err != nil {
		return nil, fmt.Errorf("无法设置邮件收件人: %w", err)
	}
	msg.Subject(k.subject)

	if err := msg.SetBodyHTMLTemplate(templates.Lookup(k.template), data); err != nil {
		return nil, fmt.Errorf("无法设置邮件正文: %w", err)
	}

	return msg, nil
}
