package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"

	"ziwuxx-intake/config"
)

func TestRedisOperations(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(config.RedisConfig{Addr: mr.Addr()})
	if err != nil {
		t.Fatalf("Failed to create Redis client: %v", err)
	}
	defer client.Close()

	ctx := context.Background()
	key := "test_key"
	value := "test_value"
	expiration := 1 * time.Second

	// Test Set
	if err := client.SetToCache(ctx, key, value, expiration); err != nil {
		t.Errorf("SetToCache failed: %v", err)
	}

	// Test Get
	got, err := client.GetFromCache(ctx, key)
	if err != nil {
		t.Errorf("GetFromCache failed: %v", err)
	}
	if got != value {
		t.Errorf("GetFromCache got = %v, want %v", got, value)
	}

	// Test Expiration
	mr.FastForward(2 * time.Second)
	_, err = client.GetFromCache(ctx, key)
	if err == nil {
		t.Error("Expected error after expiration, got nil")
	} else if !errors.Is(err, redis.Nil) {
		t.Errorf("Expected redis.Nil error, got %v", err)
	}
}

func TestRedisDelete(t *testing.T) {
	mr := miniredis.RunT(t)
	client := WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	ctx := context.Background()
	if err := client.SetToCache(ctx, "k", "v", time.Minute); err != nil {
		t.Fatalf("SetToCache failed: %v", err)
	}
	if err := client.DeleteFromCache(ctx, "k"); err != nil {
		t.Fatalf("DeleteFromCache failed: %v", err)
	}
	if mr.Exists("k") {
		t.Error("key still present after delete")
	}
	// deleting a missing key is not an error
	if err := client.DeleteFromCache(ctx, "missing"); err != nil {
		t.Errorf("DeleteFromCache on missing key: %v", err)
	}
}

func TestRedisIncrementCounter(t *testing.T) {
	mr := miniredis.RunT(t)
	client := WrapRedisClient(redis.NewClient(&redis.Options{Addr: mr.Addr()}))
	defer client.Close()

	ctx := context.Background()
	for want := int64(1); want <= 3; want++ {
		got, err := client.IncrementCounter(ctx, "gen")
		if err != nil {
			t.Fatalf("IncrementCounter failed: %v", err)
		}
		if got != want {
			t.Errorf("IncrementCounter got = %d, want %d", got, want)
		}
	}
	if v, _ := mr.Get("gen"); v != "3" {
		t.Errorf("stored counter = %q, want 3", v)
	}
}

func TestNewRedisClient_Unreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedisClient(config.RedisConfig{Addr: addr}); err == nil {
		t.Error("expected connection error")
	}
}
