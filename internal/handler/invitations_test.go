package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/require"

	"github.com/mahuti/tasks/backend/internal/domain"
	"github.com/mahuti/tasks/backend/internal/repository"
)

type memInvitations struct {
	mu    sync.Mutex
	items map[string]*domain.Invitation
}

func newMemInvitations(invs ...*domain.Invitation) *memInvitations {
	m := &memInvitations{items: make(map[string]*domain.Invitation)}
	for _, inv := range invs {
		m.items[inv.ID] = inv
	}
	return m
}

func (m *memInvitations) Save(inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, existing := range m.items {
		if existing.Email == inv.Email {
			return repository.ErrInvitationExists
		}
	}
	m.items[inv.ID] = inv
	return nil
}

func (m *memInvitations) GetByToken(token string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, inv := range m.items {
		if inv.Token == token {
			return inv, nil
		}
	}
	return nil, repository.ErrInvitationNotFound
}

func (m *memInvitations) GetByID(id string) (*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	inv, ok := m.items[id]
	if !ok {
		return nil, repository.ErrInvitationNotFound
	}
	return inv, nil
}

func (m *memInvitations) List() ([]*domain.Invitation, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	list := make([]*domain.Invitation, 0, len(m.items))
	for _, inv := range m.items {
		list = append(list, inv)
	}
	return list, nil
}

func (m *memInvitations) Delete(inv *domain.Invitation) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.items, inv.ID)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	messages []domain.MailMessage
}

func (p *recordingPublisher) PublishWithContext(_ context.Context, _, _ string, _, _ bool, msg amqp.Publishing) error {
	var m domain.MailMessage
	if err := json.Unmarshal(msg.Body, &m); err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	p.messages = append(p.messages, m)
	return nil
}

func (p *recordingPublisher) sent() []domain.MailMessage {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]domain.MailMessage(nil), p.messages...)
}

func newInvitationTestHandler(t *testing.T) (*Handler, *memInvitations, *recordingPublisher) {
	t.Helper()

	h := newTestHandler(t)
	h.config.Email.AppURL = "https://tasks.mahuti.com"

	store := newMemInvitations(&domain.Invitation{
		ID:          "inv-1",
		Token:       "token-1",
		Email:       "ruty@mahuti.com",
		Role:        domain.RoleStaff,
		InvitedBy:   1,
		InviterName: "Rocio",
		CreatedAt:   time.Now(),
		ExpiresAt:   time.Now().Add(72 * time.Hour),
	})
	publisher := &recordingPublisher{}
	h.invitations = store
	h.mailChannel = publisher

	return h, store, publisher
}

func TestInvitations(t *testing.T) {
	h, store, publisher := newInvitationTestHandler(t)
	admin := tokenCookie(t, h, domain.RoleAdmin)

	t.Run("lists pending invitations without tokens", func(t *testing.T) {
		rec, resp := serve(h, http.MethodGet, "/invitations", "", admin)

		require.Equal(t, http.StatusOK, rec.Code)
		require.True(t, resp.Success)
		require.Contains(t, rec.Body.String(), "ruty@mahuti.com")
		require.NotContains(t, rec.Body.String(), "token-1")
	})

	t.Run("only admins can manage invitations", func(t *testing.T) {
		for _, role := range []domain.Role{domain.RoleStaff, domain.RoleManager} {
			cookie := tokenCookie(t, h, role)

			for _, tc := range []struct{ method, path string }{
				{http.MethodGet, "/invitations"},
				{http.MethodPost, "/invitations/inv-1/resend"},
				{http.MethodDelete, "/invitations/inv-1"},
			} {
				rec, _ := serve(h, tc.method, tc.path, "", cookie)
				require.Equal(t, http.StatusForbidden, rec.Code, tc.path)
			}
		}
	})

	t.Run("validates a token without login", func(t *testing.T) {
		rec, resp := serve(h, http.MethodGet, "/auth/invitations/token-1", "", nil)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "邀请有效", resp.Message)

		data, ok := resp.Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "ruty@mahuti.com", data["email"])
		require.Equal(t, string(domain.RoleStaff), data["role"])
	})

	t.Run("rejects an unknown token", func(t *testing.T) {
		rec, resp := serve(h, http.MethodGet, "/auth/invitations/nope", "", nil)

		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "邀请不存在或已过期", resp.Message)
	})

	t.Run("resends the invitation mail", func(t *testing.T) {
		rec, resp := serve(h, http.MethodPost, "/invitations/inv-1/resend", "", admin)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "邀请邮件已重新发送", resp.Message)

		sent := publisher.sent()
		require.Len(t, sent, 1)
		require.Equal(t, domain.MailTypeInvitation, sent[0].Type)
		require.Equal(t, "ruty@mahuti.com", sent[0].To)

		data, ok := sent[0].Data.(map[string]any)
		require.True(t, ok)
		require.Equal(t, "https://tasks.mahuti.com/register?token=token-1", data["link"])
		require.Equal(t, "Rocio", data["inviterName"])
		require.EqualValues(t, 3, data["expiration"])
	})

	t.Run("unknown id is not found", func(t *testing.T) {
		rec, resp := serve(h, http.MethodPost, "/invitations/inv-404/resend", "", admin)
		require.Equal(t, http.StatusNotFound, rec.Code)
		require.Equal(t, "邀请不存在或已过期", resp.Message)

		rec, _ = serve(h, http.MethodDelete, "/invitations/inv-404", "", admin)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("revokes the invitation", func(t *testing.T) {
		rec, resp := serve(h, http.MethodDelete, "/invitations/inv-1", "", admin)

		require.Equal(t, http.StatusOK, rec.Code)
		require.Equal(t, "邀请已撤销", resp.Message)

		_, err := store.GetByID("inv-1")
		require.ErrorIs(t, err, repository.ErrInvitationNotFound)

		rec, _ = serve(h, http.MethodGet, "/auth/invitations/token-1", "", nil)
		require.Equal(t, http.StatusNotFound, rec.Code)
	})
}
