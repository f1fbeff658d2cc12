// Package heartbeat announces a running scrape through Redis so operators
// can watch active runs and their progress.
package heartbeat

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"
)

const (
	runKeyPrefix    = "shrike:run:"
	defaultInterval = 15 * time.Second
	defaultTTL      = 30 * time.Second
)

// Progress is the payload published under the run key.
type Progress struct {
	RunID          string    `json:"run_id"`
	Phase          string    `json:"phase"`
	Page           int       `json:"page"`
	WorkingProxies int       `json:"working_proxies"`
	DeadProxies    int       `json:"dead_proxies"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// Connect opens and pings a Redis client for the given URL.
func Connect(redisURL string) (*redis.Client, error) {
	opt, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url %q: %w", redisURL, err)
	}

	client := redis.NewClient(opt)
	if err := client.Ping(context.Background()).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	return client, nil
}

// Beacon republishes the run's progress under a TTL'd key until stopped.
// The key expires on its own shortly after the run ends or crashes.
type Beacon struct {
	client *redis.Client
	key    string
	cancel context.CancelFunc

	mu       sync.Mutex
	progress Progress
}

func Start(parent context.Context, client *redis.Client, runID string) *Beacon {
	ctx, cancel := context.WithCancel(parent)
	b := &Beacon{
		client:   client,
		key:      runKeyPrefix + runID,
		cancel:   cancel,
		progress: Progress{RunID: runID},
	}
	go b.loop(ctx)
	return b
}

// Update records the state the next heartbeat will publish.
func (b *Beacon) Update(phase string, page, working, dead int) {
	b.mu.Lock()
	b.progress.Phase = phase
	b.progress.Page = page
	b.progress.WorkingProxies = working
	b.progress.DeadProxies = dead
	b.mu.Unlock()
}

func (b *Beacon) Stop() {
	b.cancel()
}

func (b *Beacon) loop(ctx context.Context) {
	send := func() {
		b.mu.Lock()
		b.progress.UpdatedAt = time.Now().UTC()
		payload, err := json.Marshal(b.progress)
		b.mu.Unlock()
		if err != nil {
			log.Error("failed to encode run heartbeat", "error", err)
			return
		}

		if err := b.client.SetEx(ctx, b.key, string(payload), defaultTTL).Err(); err != nil {
			log.Error("failed to update run heartbeat", "key", b.key, "error", err)
		}
	}

	send()

	ticker := time.NewTicker(defaultInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			send()
		}
	}
}
