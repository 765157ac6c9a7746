package token

import (
	"context"
	"fmt"
	"testing"
	"time"
)

func TestMemoryLocker_AcquireAndExpire(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Now()
	l.now = func() time.Time { return now }

	taken, _, err := l.Acquire(context.Background(), "fp1", time.Hour)
	if err != nil || !taken {
		t.Fatalf("first acquire: taken=%v err=%v", taken, err)
	}

	taken, wait, err := l.Acquire(context.Background(), "fp1", time.Hour)
	if err != nil || taken {
		t.Fatalf("second acquire must be refused: taken=%v err=%v", taken, err)
	}
	if wait <= 0 || wait > time.Hour {
		t.Fatalf("unexpected wait %s", wait)
	}

	now = now.Add(time.Hour + time.Second)
	taken, _, err = l.Acquire(context.Background(), "fp1", time.Hour)
	if err != nil || !taken {
		t.Fatalf("acquire after expiry: taken=%v err=%v", taken, err)
	}
}

func TestMemoryLocker_EvictsExpiredPastThreshold(t *testing.T) {
	l := NewMemoryLocker()
	now := time.Now()
	l.now = func() time.Time { return now }

	for i := 0; i < evictThreshold+1; i++ {
		if taken, _, _ := l.Acquire(context.Background(), fmt.Sprintf("fp%d", i), time.Minute); !taken {
			t.Fatalf("seed acquire %d refused", i)
		}
	}
	if l.Len() <= evictThreshold {
		t.Fatalf("expected table above threshold, got %d", l.Len())
	}

	// all seeded locks expire; the next acquire sweeps them
	now = now.Add(2 * time.Minute)
	if taken, _, _ := l.Acquire(context.Background(), "fresh", time.Minute); !taken {
		t.Fatalf("fresh acquire refused")
	}
	if l.Len() != 1 {
		t.Fatalf("expected only the fresh lock to remain, got %d", l.Len())
	}
}
