package db

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
)

func TestNewRedis(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedis(RedisConfig{Addresses: []string{mr.Addr()}, PoolSize: 2})
	if err != nil {
		t.Fatalf("NewRedis: %v", err)
	}
	defer client.Close()

	if err := client.Set(context.Background(), "k", "v", 0).Err(); err != nil {
		t.Fatal(err)
	}
	if got, _ := mr.Get("k"); got != "v" {
		t.Fatalf("value = %q", got)
	}
}

func TestNewRedisRequiresAddress(t *testing.T) {
	if _, err := NewRedis(RedisConfig{}); err == nil {
		t.Fatal("expected error without address")
	}
}

func TestNewRedisUnreachable(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	if _, err := NewRedis(RedisConfig{Addresses: []string{addr}}); err == nil {
		t.Fatal("expected ping failure")
	}
}
