package remote

import (
	"context"
	"errors"
	"fmt"
	"os"
	"testing"
	"time"

	"tabtimer/internal/core/model"
)

func payloadOf(count int) model.SyncPayload {
	timers := make([]model.TimerPreset, count)
	for i := range timers {
		timers[i] = model.TimerPreset{
			ID:      fmt.Sprintf("00000000-0000-0000-0000-%012d", i),
			Minutes: 5,
			Color:   "#10B981",
			Sound:   "bell.mp3",
			Order:   float64(i),
		}
	}
	return model.SyncPayload{Timers: timers, LastUpdated: time.UnixMilli(1700000000000)}
}

func TestEncodeWithinQuota(t *testing.T) {
	raw, err := Encode(payloadOf(3), DefaultQuotaBytes)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if len(raw) > DefaultQuotaBytes {
		t.Fatalf("encoded %d bytes", len(raw))
	}
}

func TestEncodeRejectsOversizedPayload(t *testing.T) {
	if _, err := Encode(payloadOf(200), DefaultQuotaBytes); !errors.Is(err, ErrQuotaExceeded) {
		t.Fatalf("Encode = %v, want ErrQuotaExceeded", err)
	}
	if _, err := Encode(payloadOf(200), 0); err != nil {
		t.Fatalf("unlimited quota rejected payload: %v", err)
	}
}

// TestStoreRoundTrip runs against a real database when TABTIMER_TEST_DSN is set.
func TestStoreRoundTrip(t *testing.T) {
	dsn := os.Getenv("TABTIMER_TEST_DSN")
	if dsn == "" {
		t.Skip("TABTIMER_TEST_DSN not set")
	}
	ctx := context.Background()
	profile := fmt.Sprintf("test-%d", time.Now().UnixNano())
	store, err := Open(ctx, dsn, profile, 0)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer store.Close()
	defer func() {
		_, _ = store.pool.Exec(ctx, `DELETE FROM sync_payloads WHERE profile = $1`, profile)
	}()

	if _, ok, err := store.Fetch(ctx); ok || err != nil {
		t.Fatalf("Fetch empty = %v, %v", ok, err)
	}
	want := payloadOf(2)
	if err := store.Push(ctx, want); err != nil {
		t.Fatalf("Push: %v", err)
	}
	got, ok, err := store.Fetch(ctx)
	if err != nil || !ok {
		t.Fatalf("Fetch = %v, %v", ok, err)
	}
	if !got.LastUpdated.Equal(want.LastUpdated) || len(got.Timers) != 2 {
		t.Fatalf("Fetch = %+v", got)
	}
}
