package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// ErrSnapshotNotReady means no cycle has published a snapshot, or the last one expired.
var ErrSnapshotNotReady = errors.New("price snapshot not ready")

// KV is the key/value contract the snapshot needs.
type KV interface {
	Get(ctx context.Context, key string) (string, bool, error)
	Set(ctx context.Context, key, value string, ttl time.Duration) error
}

// SnapshotStore publishes and reads the consolidated symbol→price map.
type SnapshotStore struct {
	kv  KV
	key string
	ttl time.Duration
}

func NewSnapshotStore(kv KV, key string, ttl time.Duration) *SnapshotStore {
	return &SnapshotStore{kv: kv, key: key, ttl: ttl}
}

// Publish replaces the snapshot with prices.
func (s *SnapshotStore) Publish(ctx context.Context, prices map[string]float64) error {
	if prices == nil {
		prices = map[string]float64{}
	}
	data, err := json.Marshal(prices)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	return s.kv.Set(ctx, s.key, string(data), s.ttl)
}

// Load returns the current snapshot or ErrSnapshotNotReady. It never triggers a fetch.
func (s *SnapshotStore) Load(ctx context.Context) (map[string]float64, error) {
	raw, ok, err := s.kv.Get(ctx, s.key)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	if !ok {
		return nil, ErrSnapshotNotReady
	}
	var prices map[string]float64
	if err := json.Unmarshal([]byte(raw), &prices); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	return prices, nil
}
