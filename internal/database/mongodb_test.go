package database

import (
	"context"
	"strings"
	"testing"
	"time"
)

func TestConnectMongoInvalidURI(t *testing.T) {
	start := time.Now()
	_, err := ConnectMongo(context.Background(), "not-a-mongodb-uri", time.Second, 3, time.Millisecond)
	if err == nil {
		t.Fatalf("expected an error for an invalid URI")
	}
	if !strings.Contains(err.Error(), "mongo connect") {
		t.Fatalf("unexpected error: %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Fatalf("retries took too long: %v", elapsed)
	}
}

func TestConnectMongoCanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := ConnectMongo(ctx, "mongodb://127.0.0.1:1", time.Second, 2, time.Millisecond); err == nil {
		t.Fatalf("expected an error with a canceled context")
	}
}
