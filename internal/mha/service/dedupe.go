package service

import (
	"context"
	"fmt"
	"sync"

	"github.com/redis/go-redis/v9"
)

// Dedupe remembers which inbound batch files have already been processed so
// a re-delivered file is not applied twice.
type Dedupe interface {
	Seen(ctx context.Context, name string) (bool, error)
	Mark(ctx context.Context, name string) error
}

// MemoryDedupe is the default process-local dedupe set.
type MemoryDedupe struct {
	mu   sync.Mutex
	seen map[string]struct{}
}

var _ Dedupe = (*MemoryDedupe)(nil)

// NewMemoryDedupe constructs an empty in-memory set.
func NewMemoryDedupe() *MemoryDedupe {
	return &MemoryDedupe{seen: make(map[string]struct{})}
}

func (d *MemoryDedupe) Seen(_ context.Context, name string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	_, ok := d.seen[name]
	return ok, nil
}

func (d *MemoryDedupe) Mark(_ context.Context, name string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen[name] = struct{}{}
	return nil
}

const processedFilesKey = "recon:processed_files"

// RedisDedupe shares the processed-file set across instances via a Redis
// set, so only one instance applies each delivered file.
type RedisDedupe struct {
	client redis.Cmdable
}

var _ Dedupe = (*RedisDedupe)(nil)

// NewRedisDedupe wraps a Redis client as a Dedupe.
func NewRedisDedupe(client redis.Cmdable) *RedisDedupe {
	return &RedisDedupe{client: client}
}

func (d *RedisDedupe) Seen(ctx context.Context, name string) (bool, error) {
	ok, err := d.client.SIsMember(ctx, processedFilesKey, name).Result()
	if err != nil {
		return false, fmt.Errorf("check processed file: %w", err)
	}
	return ok, nil
}

func (d *RedisDedupe) Mark(ctx context.Context, name string) error {
	if err := d.client.SAdd(ctx, processedFilesKey, name).Err(); err != nil {
		return fmt.Errorf("mark processed file: %w", err)
	}
	return nil
}
