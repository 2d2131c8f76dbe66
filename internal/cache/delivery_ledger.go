package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/andresuchdata/permitvault/backend-go/internal/config"
	"github.com/redis/go-redis/v9"
)

const (
	deliveryKeyPrefix  = "trigger:delivery"
	defaultDeliveryTTL = 24 * time.Hour
)

// DeliveryLedger remembers trigger events that were handled to completion so
// redelivered copies can be dropped early. Deletion stays idempotent without
// it. An event is only marked after its handler returns, so a delivery cut
// short by a crash is processed again when redelivered.
type DeliveryLedger interface {
	// Seen reports whether eventID was already handled for target.
	Seen(ctx context.Context, target, eventID string) (bool, error)
	// MarkDelivered records eventID as handled for target.
	MarkDelivered(ctx context.Context, target, eventID string) error
	Close() error
}

type redisDeliveryLedger struct {
	client *redis.Client
	ttl    time.Duration
}

type noopDeliveryLedger struct{}

func NewDeliveryLedger(cfg config.CacheConfig) (DeliveryLedger, error) {
	if !cfg.Enabled {
		return &noopDeliveryLedger{}, nil
	}

	client, err := newRedisClient(cfg)
	if err != nil {
		return nil, err
	}

	ttl := time.Duration(cfg.DeliveryTTLHours) * time.Hour
	if ttl <= 0 {
		ttl = defaultDeliveryTTL
	}

	return &redisDeliveryLedger{client: client, ttl: ttl}, nil
}

func NewNoopDeliveryLedger() DeliveryLedger {
	return &noopDeliveryLedger{}
}

// Seen never reports an event without an id as handled.
func (l *redisDeliveryLedger) Seen(ctx context.Context, target, eventID string) (bool, error) {
	if eventID == "" {
		return false, nil
	}
	n, err := l.client.Exists(ctx, deliveryKey(target, eventID)).Result()
	if err != nil {
		return false, fmt.Errorf("redis exists failed: %w", err)
	}
	return n > 0, nil
}

func (l *redisDeliveryLedger) MarkDelivered(ctx context.Context, target, eventID string) error {
	if eventID == "" {
		return nil
	}
	if err := l.client.Set(ctx, deliveryKey(target, eventID), time.Now().Unix(), l.ttl).Err(); err != nil {
		return fmt.Errorf("redis set failed: %w", err)
	}
	return nil
}

func (l *redisDeliveryLedger) Close() error {
	return l.client.Close()
}

func (n *noopDeliveryLedger) Seen(ctx context.Context, target, eventID string) (bool, error) {
	return false, nil
}

func (n *noopDeliveryLedger) MarkDelivered(ctx context.Context, target, eventID string) error {
	return nil
}

func (n *noopDeliveryLedger) Close() error {
	return nil
}

func deliveryKey(target, eventID string) string {
	return fmt.Sprintf("%s:%s:%s", deliveryKeyPrefix, target, eventID)
}
