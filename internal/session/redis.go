package session

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"careercraft-go/internal/constants"
)

// RedisStore 把会话以 JSON 形式存放在 Redis，键为 app:session:data:{id}
type RedisStore struct {
	client redis.UniversalClient
	ttl    time.Duration
	now    func() time.Time
}

// NewRedisStore 创建 Redis 会话存储，ttl <= 0 表示不过期
func NewRedisStore(client redis.UniversalClient, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl, now: time.Now}
}

func sessionKey(id string) string {
	return fmt.Sprintf(constants.KeySessionData, id)
}

func (r *RedisStore) write(ctx context.Context, s *Session) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("序列化会话失败: %w", err)
	}
	if err := r.client.Set(ctx, sessionKey(s.ID), data, r.ttl).Err(); err != nil {
		return fmt.Errorf("写入会话失败: %w", err)
	}
	return nil
}

// Create 新建会话
func (r *RedisStore) Create(ctx context.Context) (*Session, error) {
	s, err := New(r.now())
	if err != nil {
		return nil, err
	}
	if err := r.write(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Get 读取会话
func (r *RedisStore) Get(ctx context.Context, id string) (*Session, error) {
	data, err := r.client.Get(ctx, sessionKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("读取会话失败: %w", err)
	}

	var s Session
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("反序列化会话失败: %w", err)
	}
	if s.Skills == nil {
		s.Skills = []string{}
	}
	if s.ChatHistory == nil {
		s.ChatHistory = []Turn{}
	}
	return &s, nil
}

// Save 保存会话并刷新 TTL，会话必须已存在
func (r *RedisStore) Save(ctx context.Context, s *Session) error {
	n, err := r.client.Exists(ctx, sessionKey(s.ID)).Result()
	if err != nil {
		return fmt.Errorf("检查会话失败: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	s.UpdatedAt = r.now()
	return r.write(ctx, s)
}

// Reset 清空会话状态，保留 ID
func (r *RedisStore) Reset(ctx context.Context, id string) (*Session, error) {
	s, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	s.Clear(r.now())
	if err := r.write(ctx, s); err != nil {
		return nil, err
	}
	return s, nil
}

// Delete 删除会话
func (r *RedisStore) Delete(ctx context.Context, id string) error {
	n, err := r.client.Del(ctx, sessionKey(id)).Result()
	if err != nil {
		return fmt.Errorf("删除会话失败: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
