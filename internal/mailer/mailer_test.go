package mailer

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/domain"
)

func TestCompose(t *testing.T) {
	t.Run("renders reset password mail", func(t *testing.T) {
		body, err := json.Marshal(domain.MailMessage{
			Type: domain.MailTypeResetPassword,
			To:   "rocio@mahuti.com",
			Data: domain.ResetPasswordMailData{Name: "Rocio", OTP: "493817", Expiration: 15},
		})
		require.NoError(t, err)

		msg, err := Compose("noreply@mahuti.com", body)
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = msg.WriteTo(&buf)
		require.NoError(t, err)
		require.Contains(t, buf.String(), "rocio@mahuti.com")
		require.Contains(t, buf.String(), "493817")
	})

	t.Run("renders invitation link", func(t *testing.T) {
		body, err := json.Marshal(domain.MailMessage{
			Type: domain.MailTypeInvitation,
			To:   "vivi@mahuti.com",
			Data: domain.InvitationMailData{InviterName: "Amit", Role: domain.RoleManager, Link: "https://tasks.mahuti.com/r", Expiration: 7},
		})
		require.NoError(t, err)

		msg, err := Compose("noreply@mahuti.com", body)
		require.NoError(t, err)

		var buf bytes.Buffer
		_, err = msg.WriteTo(&buf)
		require.NoError(t, err)
		require.Contains(t, buf.String(), "tasks.mahuti.com")
	})

	t.Run("rejects unknown type", func(t *testing.T) {
		_, err := Compose("noreply@mahuti.com", []byte(`{"type":"change_email","to":"a@b.com","data":{}}`))

		require.ErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("rejects malformed body", func(t *testing.T) {
		_, err := Compose("noreply@mahuti.com", []byte(`{`))

		require.Error(t, err)
		require.NotErrorIs(t, err, ErrUnsupportedType)
	})

	t.Run("rejects invalid recipient", func(t *testing.T) {
		_, err := Compose("noreply@mahuti.com", []byte(`{"type":"new_account","to":"not an address","data":{}}`))

		require.Error(t, err)
	})
}

func TestSubject(t *testing.T) {
	subject, ok := Subject(domain.MailTypeNewAccount)
	require.True(t, ok)
	require.Equal(t, "Mahuti 任务排班 - 账户信息", subject)

	_, ok = Subject("unknown")
	require.False(t, ok)
}
