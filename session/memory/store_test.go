package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	till "github.com/xraph/till"
)

func TestPutGetRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	if err := s.Put(ctx, "sess-1", "invoice:1700000000000", []byte(`{"total":30}`), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, err := s.Get(ctx, "sess-1", "invoice:1700000000000")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if string(got) != `{"total":30}` {
		t.Errorf("Get = %q", got)
	}
}

func TestGetMissAndSessionScoping(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	if err := s.Put(ctx, "sess-1", "invoice:1", []byte("a"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}

	if _, err := s.Get(ctx, "sess-1", "invoice:2"); !errors.Is(err, till.ErrSessionMiss) {
		t.Errorf("absent key: got %v, want ErrSessionMiss", err)
	}
	// Another session never sees sess-1's values.
	if _, err := s.Get(ctx, "sess-2", "invoice:1"); !errors.Is(err, till.ErrSessionMiss) {
		t.Errorf("other session: got %v, want ErrSessionMiss", err)
	}
}

func TestExpiry(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	current := time.Now()
	s.now = func() time.Time { return current }

	if err := s.Put(ctx, "sess-1", "invoice:1", []byte("a"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if _, err := s.Get(ctx, "sess-1", "invoice:1"); err != nil {
		t.Fatalf("Get before expiry: %v", err)
	}

	current = current.Add(2 * time.Minute)
	if _, err := s.Get(ctx, "sess-1", "invoice:1"); !errors.Is(err, till.ErrSessionMiss) {
		t.Errorf("after expiry: got %v, want ErrSessionMiss", err)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	ctx := context.Background()
	s := New()
	defer s.Close()

	if err := s.Put(ctx, "sess-1", "invoice:1", []byte("a"), time.Minute); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := s.Delete(ctx, "sess-1", "invoice:1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := s.Delete(ctx, "sess-1", "invoice:1"); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if _, err := s.Get(ctx, "sess-1", "invoice:1"); !errors.Is(err, till.ErrSessionMiss) {
		t.Errorf("after delete: got %v, want ErrSessionMiss", err)
	}
}
