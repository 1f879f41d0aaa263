package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"intelligencehub-console/pkg/session"

	goredis "github.com/redis/go-redis/v9"
)

const keyPrefix = "console:session:"

// TokenRepository keeps each console's session in Redis as a JSON session.Record,
// expiring together with the token.
type TokenRepository struct {
	rdb *goredis.Client
	// fallbackTTL applies to tokens that carry no expiry.
	fallbackTTL time.Duration
	now         func() time.Time
}

func NewTokenRepository(rdb *goredis.Client, fallbackTTL time.Duration) *TokenRepository {
	if fallbackTTL <= 0 {
		fallbackTTL = 24 * time.Hour
	}
	return &TokenRepository{rdb: rdb, fallbackTTL: fallbackTTL, now: time.Now}
}

func Key(consoleID string) string {
	return keyPrefix + consoleID
}

func (r *TokenRepository) For(consoleID string) session.Persister {
	return &consolePersister{repo: r, key: Key(consoleID)}
}

// TTL reports the remaining lifetime of a console's stored session, 0 when absent.
func (r *TokenRepository) TTL(ctx context.Context, consoleID string) (time.Duration, error) {
	ttl, err := r.rdb.TTL(ctx, Key(consoleID)).Result()
	if err != nil {
		return 0, fmt.Errorf("ttl %s: %w", consoleID, err)
	}
	if ttl < 0 {
		return 0, nil
	}
	return ttl, nil
}

type consolePersister struct {
	repo *TokenRepository
	key  string
}

func (p *consolePersister) Load(ctx context.Context) (*session.Session, error) {
	raw, err := p.repo.rdb.Get(ctx, p.key).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("load %s: %w", p.key, err)
	}

	var rec session.Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		// A corrupt entry can never be restored, drop it
		_ = p.repo.rdb.Del(ctx, p.key).Err()
		return nil, fmt.Errorf("decode %s: %w", p.key, err)
	}
	return rec.Session(), nil
}

func (p *consolePersister) Save(ctx context.Context, s session.Session) error {
	if !s.Authenticated() {
		return p.Clear(ctx)
	}

	now := p.repo.now()
	ttl := p.repo.fallbackTTL
	if exp := s.ExpiresAt(); !exp.IsZero() {
		ttl = exp.Sub(now)
		if ttl <= 0 {
			return p.Clear(ctx)
		}
	}

	raw, err := json.Marshal(session.NewRecord(s, now))
	if err != nil {
		return fmt.Errorf("encode %s: %w", p.key, err)
	}
	if err := p.repo.rdb.Set(ctx, p.key, raw, ttl).Err(); err != nil {
		return fmt.Errorf("save %s: %w", p.key, err)
	}
	return nil
}

func (p *consolePersister) Clear(ctx context.Context) error {
	if err := p.repo.rdb.Del(ctx, p.key).Err(); err != nil {
		return fmt.Errorf("clear %s: %w", p.key, err)
	}
	return nil
}
