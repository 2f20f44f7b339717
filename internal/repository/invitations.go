package repository

import (
	"context"
	"encoding/json"
	"errors"
	"sort"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahuti/tasks/backend/internal/domain"
)

var (
	ErrInvitationNotFound = errors.New("invitation not found")
	ErrInvitationExists   = errors.New("active invitation already exists")
)

// 所有未过期邀请的 ID -> token 索引
const invitationIndexKey = "invitations"

func invitationKey(token string) string {
	return "invitation_" + token
}

func invitationEmailKey(email string) string {
	return "invitation_email_" + email
}

// InvitationStore 把邀请保存在 redis 中：
// invitation_<token> 保存邀请本身，invitation_email_<email> 保证同一邮箱只有一个未过期的邀请
type InvitationStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewInvitationStore(client *redis.Client, timeout time.Duration) *InvitationStore {
	return &InvitationStore{
		client:  client,
		timeout: timeout,
	}
}

func (s *InvitationStore) context() (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), s.timeout)
}

func (s *InvitationStore) Save(inv *domain.Invitation) error {
	ttl := time.Until(inv.ExpiresAt)
	if ttl <= 0 {
		return errors.New("invitation already expired")
	}

	payload, err := json.Marshal(inv)
	if err != nil {
		return err
	}

	ctx, cancel := s.context()
	defer cancel()

	ok, err := s.client.SetNX(ctx, invitationEmailKey(inv.Email), inv.ID, ttl).Result()
	if err != nil {
		return err
	}
	if !ok {
		return ErrInvitationExists
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Set(ctx, invitationKey(inv.Token), payload, ttl)
		pipe.HSet(ctx, invitationIndexKey, inv.ID, inv.Token)
		return nil
	})
	if err != nil {
		// 释放邮箱占用，否则在过期前无法再次邀请
		s.client.Del(ctx, invitationEmailKey(inv.Email))
		return err
	}
	return nil
}

func (s *InvitationStore) GetByToken(token string) (*domain.Invitation, error) {
	ctx, cancel := s.context()
	defer cancel()

	return s.getByToken(ctx, token)
}

func (s *InvitationStore) getByToken(ctx context.Context, token string) (*domain.Invitation, error) {
	raw, err := s.client.Get(ctx, invitationKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	inv := &domain.Invitation{}
	if err := json.Unmarshal(raw, inv); err != nil {
		return nil, err
	}
	inv.Token = token

	return inv, nil
}

func (s *InvitationStore) GetByID(id string) (*domain.Invitation, error) {
	ctx, cancel := s.context()
	defer cancel()

	token, err := s.client.HGet(ctx, invitationIndexKey, id).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrInvitationNotFound
		}
		return nil, err
	}

	inv, err := s.getByToken(ctx, token)
	if errors.Is(err, ErrInvitationNotFound) {
		// 邀请已经过期，顺便清理索引
		s.client.HDel(ctx, invitationIndexKey, id)
	}
	return inv, err
}

// List 返回所有未过期的邀请，按创建时间倒序
func (s *InvitationStore) List() ([]*domain.Invitation, error) {
	ctx, cancel := s.context()
	defer cancel()

	index, err := s.client.HGetAll(ctx, invitationIndexKey).Result()
	if err != nil {
		return nil, err
	}

	invitations := make([]*domain.Invitation, 0, len(index))
	var expired []string
	for id, token := range index {
		inv, err := s.getByToken(ctx, token)
		if errors.Is(err, ErrInvitationNotFound) {
			expired = append(expired, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		invitations = append(invitations, inv)
	}

	if len(expired) > 0 {
		if err := s.client.HDel(ctx, invitationIndexKey, expired...).Err(); err != nil {
			return nil, err
		}
	}

	sort.Slice(invitations, func(i, j int) bool {
		return invitations[i].CreatedAt.After(invitations[j].CreatedAt)
	})

	return invitations, nil
}

func (s *InvitationStore) Delete(inv *domain.Invitation) error {
	ctx, cancel := s.context()
	defer cancel()

	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Del(ctx, invitationKey(inv.Token), invitationEmailKey(inv.Email))
		pipe.HDel(ctx, invitationIndexKey, inv.ID)
		return nil
	})
	return err
}
