package volumestore

import (
	"context"
	"testing"

	"golang.org/x/time/rate"
)

func TestKeyFormat(t *testing.T) {
	got := Key(1, 2)
	want := "android.car.VOLUME_GROUP/258" // (1<<8)|2 == 258
	if got != want {
		t.Fatalf("Key(1,2) = %q, want %q", got, want)
	}
}

func TestMemStoreUnsetIsMinusOne(t *testing.T) {
	s := NewMemStore()
	v, err := s.Load(context.Background(), Key(0, 0))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != Unset {
		t.Fatalf("expected Unset for unwritten key, got %d", v)
	}
}

func TestMemStoreRoundTrip(t *testing.T) {
	s := NewMemStore()
	key := Key(1, 3)
	if err := s.Save(context.Background(), key, 12); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, err := s.Load(context.Background(), key)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if v != 12 {
		t.Fatalf("got %d, want 12", v)
	}
}

func TestDebouncedWriterPassesThroughUnderInfRate(t *testing.T) {
	inner := NewMemStore()
	w := NewDebouncedWriter(inner, rate.Inf, 1)
	key := Key(0, 1)

	// rate.Inf never throttles, so every write should land; this
	// exercises the pass-through path with no drops.
	if err := w.Save(context.Background(), key, 1); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := w.Save(context.Background(), key, 2); err != nil {
		t.Fatalf("Save: %v", err)
	}
	v, _ := w.Load(context.Background(), key)
	if v != 2 {
		t.Fatalf("got %d, want 2", v)
	}
}

func TestDebouncedWriterThrottlesBurstToOne(t *testing.T) {
	inner := NewMemStore()
	w := NewDebouncedWriter(inner, rate.Limit(0), 1)
	key := Key(0, 2)

	if err := w.Save(context.Background(), key, 7); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if err := w.Save(context.Background(), key, 8); err != nil {
		t.Fatalf("second Save: %v", err)
	}
	v, _ := w.Load(context.Background(), key)
	if v != 7 {
		t.Fatalf("expected first write to persist and second to be dropped, got %d", v)
	}
}
