package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"shortlist/internal/logger"
)

// RedisBus fans events out through a Redis pub/sub channel so every
// process running the service sees every change. Local subscribers are
// fed by a single forwarder goroutine.
type RedisBus struct {
	log     *logger.Logger
	rdb     *goredis.Client
	channel string
	local   *MemoryBus
	cancel  context.CancelFunc
}

func NewRedisBus(log *logger.Logger, addr, channel string) (*RedisBus, error) {
	if log == nil {
		return nil, fmt.Errorf("logger required")
	}
	addr = strings.TrimSpace(addr)
	if addr == "" {
		return nil, fmt.Errorf("missing redis address")
	}
	channel = strings.TrimSpace(channel)
	if channel == "" {
		channel = "shortlist-events"
	}

	rdb := goredis.NewClient(&goredis.Options{
		Addr:        addr,
		DialTimeout: 5 * time.Second,
	})

	pingCtx, pingCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer pingCancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	b := &RedisBus{
		log:     log.With("service", "RedisBus"),
		rdb:     rdb,
		channel: channel,
		local:   NewMemoryBus(),
		cancel:  cancel,
	}
	if err := b.startForwarder(ctx); err != nil {
		cancel()
		_ = rdb.Close()
		return nil, err
	}
	return b, nil
}

func (b *RedisBus) Publish(ctx context.Context, evt Event) error {
	raw, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return b.rdb.Publish(ctx, b.channel, raw).Err()
}

func (b *RedisBus) Subscribe(ctx context.Context, h Handler) (func(), error) {
	return b.local.Subscribe(ctx, h)
}

func (b *RedisBus) startForwarder(ctx context.Context) error {
	sub := b.rdb.Subscribe(ctx, b.channel)

	// ensures subscription actually started
	if _, err := sub.Receive(ctx); err != nil {
		_ = sub.Close()
		return fmt.Errorf("redis subscribe: %w", err)
	}

	go func() {
		ch := sub.Channel()
		for {
			select {
			case <-ctx.Done():
				_ = sub.Close()
				return
			case m, ok := <-ch:
				if !ok || m == nil {
					_ = sub.Close()
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					b.log.Warn("bad redis event payload", "error", err)
					continue
				}
				_ = b.local.Publish(ctx, evt)
			}
		}
	}()
	return nil
}

func (b *RedisBus) Close() error {
	if b == nil || b.rdb == nil {
		return nil
	}
	b.cancel()
	_ = b.local.Close()
	return b.rdb.Close()
}
