package redis

import (
	"context"
	"testing"
	"time"

	"github.com/wonny/optionflow/pkg/config"
)

func disabledClient(t *testing.T) *Client {
	t.Helper()

	cfg := &config.Config{
		Redis: config.RedisConfig{
			Enabled: false,
		},
	}

	client, err := New(cfg)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return client
}

func TestNewClient_Disabled(t *testing.T) {
	client := disabledClient(t)

	if client.Enabled() {
		t.Error("Expected client to be disabled")
	}

	if err := client.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}
}

func TestRateLimiter_Disabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	// When Redis is disabled, all requests should be allowed
	allowed, remaining, err := limiter.Allow(context.Background(), PolygonRateLimit)
	if err != nil {
		t.Fatalf("Allow() error = %v", err)
	}
	if !allowed {
		t.Error("Expected request to be allowed when Redis disabled")
	}
	if remaining != PolygonRateLimit.Limit {
		t.Errorf("Expected remaining = %d, got %d", PolygonRateLimit.Limit, remaining)
	}
}

func TestRateLimiter_WaitDisabled(t *testing.T) {
	limiter := NewRateLimiter(disabledClient(t), "test")

	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()

	if err := limiter.Wait(ctx, PolygonRateLimit); err != nil {
		t.Errorf("Wait() error = %v", err)
	}
}

func TestCache_Disabled(t *testing.T) {
	cache := NewCache(disabledClient(t), "test")
	ctx := context.Background()

	// When Redis is disabled, cache operations should be no-ops
	var result string
	found, err := cache.Get(ctx, "some-key", &result)
	if err != nil {
		t.Fatalf("Get() error = %v", err)
	}
	if found {
		t.Error("Expected cache miss when Redis disabled")
	}

	if err := cache.Set(ctx, "some-key", "value", TTLShort); err != nil {
		t.Errorf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, "some-key"); err != nil {
		t.Errorf("Delete() error = %v", err)
	}
}

func TestLease_Disabled(t *testing.T) {
	lease := NewLease(disabledClient(t), "test")

	// With Redis disabled the lease is always granted
	release, acquired, err := lease.Acquire(context.Background(), "ingest:SPY", time.Minute)
	if err != nil {
		t.Fatalf("Acquire() error = %v", err)
	}
	if !acquired {
		t.Error("Expected lease to be granted when Redis disabled")
	}
	release()
}

func TestCacheKeys(t *testing.T) {
	if got := ExpiryDatesKey("SPY"); got != "expiries:SPY" {
		t.Errorf("ExpiryDatesKey = %q", got)
	}
	if got := OptionsByExpiryKey("SPY", "2025-12-19"); got != "options:SPY:2025-12-19" {
		t.Errorf("OptionsByExpiryKey = %q", got)
	}
	if got := UnderlyingPriceKey("SPY"); got != "underlying:SPY" {
		t.Errorf("UnderlyingPriceKey = %q", got)
	}
}
