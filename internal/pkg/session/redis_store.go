package session

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/google/uuid"
	"github.com/ougirez/muniportal/internal/domain"
	"github.com/ougirez/muniportal/internal/pkg/constants"
	"github.com/redis/go-redis/v9"
)

const keyPrefix = "session:"

// Record: личность, зафиксированная при входе. Внутри сессии не пересчитывается.
type Record struct {
	UserID                int64       `json:"user_id"`
	Role                  domain.Role `json:"role"`
	MunicipalityID        *int64      `json:"municipality_id"`
	MunicipalityName      string      `json:"municipality_name,omitempty"`
	PasswordResetRequired bool        `json:"password_reset_required"`
	CreatedAt             time.Time   `json:"created_at"`
}

func RecordOf(identity domain.Identity) Record {
	rec := Record{
		UserID:                identity.UserID(),
		Role:                  identity.Role(),
		PasswordResetRequired: identity.PasswordResetRequired(),
		CreatedAt:             time.Now(),
	}
	if op, ok := identity.(domain.Operator); ok {
		id := op.Municipality
		rec.MunicipalityID = &id
		rec.MunicipalityName = op.MunicipalityName
	}
	return rec
}

// Identity восстанавливает закрытый тип личности. Запись с неизвестной ролью
// или оператор без муниципалитета считаются испорченными.
func (r Record) Identity() (domain.Identity, error) {
	switch r.Role {
	case domain.RoleAdmin:
		return domain.Admin{ID: r.UserID, ResetRequired: r.PasswordResetRequired}, nil
	case domain.RoleGovernor:
		return domain.Governor{ID: r.UserID, ResetRequired: r.PasswordResetRequired}, nil
	case domain.RoleOperator:
		if r.MunicipalityID == nil {
			return nil, fmt.Errorf("operator session %d without municipality", r.UserID)
		}
		return domain.Operator{
			ID:               r.UserID,
			Municipality:     *r.MunicipalityID,
			MunicipalityName: r.MunicipalityName,
			ResetRequired:    r.PasswordResetRequired,
		}, nil
	default:
		return nil, fmt.Errorf("unknown role %q in session", r.Role)
	}
}

type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(ctx context.Context, redisURL string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	s := NewRedisStoreWithClient(redis.NewClient(opts), ttl)
	if err := s.Ping(ctx); err != nil {
		_ = s.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return s, nil
}

func NewRedisStoreWithClient(client *redis.Client, ttl time.Duration) *RedisStore {
	return &RedisStore{client: client, ttl: ttl}
}

func (s *RedisStore) TTL() time.Duration {
	return s.ttl
}

func key(id string) string {
	return keyPrefix + id
}

// Create сохраняет запись и возвращает идентификатор новой сессии.
func (s *RedisStore) Create(ctx context.Context, rec Record) (string, error) {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal session: %w", err)
	}

	id := uuid.NewString()
	if err := s.client.Set(ctx, key(id), data, s.ttl).Err(); err != nil {
		return "", fmt.Errorf("save session: %w", err)
	}
	return id, nil
}

// Get возвращает ErrUnauthorized, если сессия истекла или удалена.
func (s *RedisStore) Get(ctx context.Context, id string) (*Record, error) {
	data, err := s.client.Get(ctx, key(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, constants.ErrUnauthorized.WithMessage("session expired")
	}
	if err != nil {
		return nil, fmt.Errorf("lookup session: %w", err)
	}

	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal session: %w", err)
	}
	return &rec, nil
}

// Update перезаписывает запись, сохраняя оставшийся срок жизни.
func (s *RedisStore) Update(ctx context.Context, id string, rec Record) error {
	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal session: %w", err)
	}
	if err := s.client.SetArgs(ctx, key(id), data, redis.SetArgs{KeepTTL: true, Mode: "XX"}).Err(); err != nil {
		if errors.Is(err, redis.Nil) {
			return constants.ErrUnauthorized.WithMessage("session expired")
		}
		return fmt.Errorf("update session: %w", err)
	}
	return nil
}

func (s *RedisStore) Delete(ctx context.Context, id string) error {
	if err := s.client.Del(ctx, key(id)).Err(); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}
