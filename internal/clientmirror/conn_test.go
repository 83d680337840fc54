package clientmirror

import (
	"context"
	"testing"
	"time"
)

func TestSleepReturnsTrueWhenDurationElapses(t *testing.T) {
	ok := sleep(context.Background(), 10*time.Millisecond)
	if !ok {
		t.Fatalf("sleep should return true when the duration elapses without cancellation")
	}
}

func TestSleepReturnsFalseWhenContextCancelledFirst(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	ok := sleep(ctx, time.Second)
	if ok {
		t.Fatalf("sleep should return false when ctx is already cancelled")
	}
}
