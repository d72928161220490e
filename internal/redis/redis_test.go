package redis

import (
	"context"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/viper"
)

func TestGetClient(t *testing.T) {
	client := GetClient()
	if client == nil {
		t.Error("Expected Redis client to be created")
	}

	// Test that we can get the same client multiple times (singleton pattern)
	client2 := GetClient()
	if client != client2 {
		t.Error("Expected same client instance (singleton pattern)")
	}
}

func TestResetClientForTest(t *testing.T) {
	client1 := GetClient()
	ResetClientForTest()
	client2 := GetClient()
	if client1 == client2 {
		t.Error("Expected a new client instance after reset")
	}
}

func TestPing(t *testing.T) {
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("could not start miniredis: %v", err)
	}
	viper.Set("redis.addr", mr.Addr())
	defer viper.Set("redis.addr", "localhost:6379")
	ResetClientForTest()
	defer ResetClientForTest()

	if err := Ping(context.Background()); err != nil {
		t.Fatalf("Expected ping to succeed against miniredis, got %v", err)
	}

	mr.Close()
	if err := Ping(context.Background()); err == nil {
		t.Error("Expected ping to fail once the server is gone")
	}
}

func BenchmarkGetClient(b *testing.B) {
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = GetClient()
	}
}
