package bootstrap

import (
	"context"
	"log"
	"time"

	"intelligencehub-console/internal/config"
	pktNats "intelligencehub-console/pkg/nats"

	"github.com/redis/go-redis/v9"
)

// Infrastructure holds the external connections. Every field may be nil when the
// service is unreachable; the container degrades instead of failing.
type Infrastructure struct {
	Redis   *redis.Client
	NatsPub *pktNats.Publisher
	NatsSub *pktNats.Subscriber
}

func NewInfrastructure(cfg *config.Config) *Infrastructure {
	infra := &Infrastructure{}

	// NATS
	natsPub, err := pktNats.NewPublisher(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Publisher: %v", err)
	} else {
		infra.NatsPub = natsPub
	}
	natsSub, err := pktNats.NewSubscriber(cfg.App.NatsURL)
	if err != nil {
		log.Printf("[WARN] Failed to connect to NATS Subscriber: %v", err)
	} else {
		infra.NatsSub = natsSub
	}

	// Redis
	opt, err := redis.ParseURL(cfg.App.RedisURL)
	if err != nil {
		log.Printf("[WARN] Failed to parse Redis URL: %v. Using direct Addr", err)
		opt = &redis.Options{
			Addr: cfg.App.RedisURL,
		}
	}
	rdb := redis.NewClient(opt)
	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Printf("[WARN] Failed to connect to Redis: %v. Sessions will not survive restarts", err)
		_ = rdb.Close()
	} else {
		infra.Redis = rdb
	}

	return infra
}

func (i *Infrastructure) Close() {
	if i.NatsSub != nil {
		i.NatsSub.Close()
	}
	if i.NatsPub != nil {
		i.NatsPub.Close()
	}
	if i.Redis != nil {
		_ = i.Redis.Close()
	}
}
