package flags

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/orbitcart/auth-service/internal/config"
)

const (
	fingerprintFlagKey = "auth:flags:enforce_device_fingerprint"
	refreshInterval    = 30 * time.Second
)

// RedisFlagStore keeps runtime flags in redis and serves reads from an
// in-memory snapshot refreshed periodically. Writes update redis and the
// local snapshot immediately; other instances converge on the next refresh.
type RedisFlagStore struct {
	client   *redis.Client
	logger   *zap.Logger
	snapshot atomic.Value // config.RuntimeFlags
	stop     chan struct{}
}

func NewRedisFlagStore(client *redis.Client, defaults config.RuntimeFlags, logger *zap.Logger) *RedisFlagStore {
	s := &RedisFlagStore{
		client: client,
		logger: logger,
		stop:   make(chan struct{}),
	}
	s.snapshot.Store(defaults)
	s.refresh(context.Background())
	go s.loop()
	return s
}

func (s *RedisFlagStore) Snapshot(context.Context) config.RuntimeFlags {
	return s.snapshot.Load().(config.RuntimeFlags)
}

func (s *RedisFlagStore) SetEnforceDeviceFingerprint(ctx context.Context, enabled bool) error {
	val := "0"
	if enabled {
		val = "1"
	}
	if err := s.client.Set(ctx, fingerprintFlagKey, val, 0).Err(); err != nil {
		return err
	}
	cur := s.Snapshot(ctx)
	cur.EnforceDeviceFingerprint = enabled
	s.snapshot.Store(cur)
	return nil
}

// Close stops the background refresh loop.
func (s *RedisFlagStore) Close() {
	close(s.stop)
}

func (s *RedisFlagStore) loop() {
	ticker := time.NewTicker(refreshInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			s.refresh(ctx)
			cancel()
		case <-s.stop:
			return
		}
	}
}

func (s *RedisFlagStore) refresh(ctx context.Context) {
	val, err := s.client.Get(ctx, fingerprintFlagKey).Result()
	if err != nil {
		if err != redis.Nil {
			s.logger.Warn("flag refresh failed, keeping current snapshot", zap.Error(err))
		}
		return
	}
	cur := s.snapshot.Load().(config.RuntimeFlags)
	cur.EnforceDeviceFingerprint = val == "1"
	s.snapshot.Store(cur)
}

var _ config.FlagStore = (*RedisFlagStore)(nil)
