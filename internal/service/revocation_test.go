package service

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func TestMemoryRevocationLedger(t *testing.T) {
	ledger := NewMemoryRevocationLedger()
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(time.Hour)

	revoked, err := ledger.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if revoked {
		t.Fatal("expected unknown token to not be revoked")
	}

	recorded, err := ledger.Record(ctx, "tok-1", expiresAt)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !recorded {
		t.Fatal("expected first record to succeed")
	}

	recorded, err = ledger.Record(ctx, "tok-1", expiresAt)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if recorded {
		t.Fatal("expected duplicate record to report already revoked")
	}

	revoked, err = ledger.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !revoked {
		t.Fatal("expected token to be revoked")
	}
}

func TestMemoryRevocationLedgerExpiry(t *testing.T) {
	ledger := NewMemoryRevocationLedger()
	ctx := context.Background()

	if _, err := ledger.Record(ctx, "tok-old", time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}

	revoked, err := ledger.IsRevoked(ctx, "tok-old")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if revoked {
		t.Fatal("expected expired entry to not count as revoked")
	}
}

func TestRedisRevocationLedger(t *testing.T) {
	srv := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: srv.Addr()})
	defer client.Close()

	ledger := NewRedisRevocationLedger(client)
	ctx := context.Background()
	expiresAt := time.Now().UTC().Add(time.Hour)

	recorded, err := ledger.Record(ctx, "tok-1", expiresAt)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !recorded {
		t.Fatal("expected first record to succeed")
	}

	recorded, err = ledger.Record(ctx, "tok-1", expiresAt)
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if recorded {
		t.Fatal("expected duplicate record to report already revoked")
	}

	revoked, err := ledger.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if !revoked {
		t.Fatal("expected token to be revoked")
	}

	// Pasada la expiración del refresh token, la clave se poda sola.
	srv.FastForward(2 * time.Hour)
	revoked, err = ledger.IsRevoked(ctx, "tok-1")
	if err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if revoked {
		t.Fatal("expected entry to expire with the token")
	}
}
