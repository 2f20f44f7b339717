package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/mahuti/tasks/backend/internal/domain"
)

var ErrShareLinkNotFound = errors.New("share link not found")

func shareLinkKey(token string) string {
	return "share_" + token
}

// ShareLinkStore 把分享链接保存在 redis 中，过期后链接自动失效
type ShareLinkStore struct {
	client  *redis.Client
	timeout time.Duration
}

func NewShareLinkStore(client *redis.Client, timeout time.Duration) *ShareLinkStore {
	return &ShareLinkStore{
		client:  client,
		timeout: timeout,
	}
}

func (s *ShareLinkStore) Save(link *domain.ShareLink) error {
	ttl := time.Until(link.ExpiresAt)
	if ttl <= 0 {
		return errors.New("share link already expired")
	}

	payload, err := json.Marshal(link)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	return s.client.Set(ctx, shareLinkKey(link.Token), payload, ttl).Err()
}

func (s *ShareLinkStore) Get(token string) (*domain.ShareLink, error) {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	raw, err := s.client.Get(ctx, shareLinkKey(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrShareLinkNotFound
		}
		return nil, err
	}

	link := &domain.ShareLink{}
	if err := json.Unmarshal(raw, link); err != nil {
		return nil, err
	}

	return link, nil
}

func (s *ShareLinkStore) Delete(token string) error {
	ctx, cancel := context.WithTimeout(context.Background(), s.timeout)
	defer cancel()

	n, err := s.client.Del(ctx, shareLinkKey(token)).Result()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrShareLinkNotFound
	}
	return nil
}
