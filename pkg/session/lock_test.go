package session

import (
	"context"
	"fmt"
	"testing"

	"github.com/aretw0/joule/pkg/adapters/memory"
)

func TestManager_LockLifecycle(t *testing.T) {
	mgr := NewManager(memory.NewStore())
	ctx := context.Background()
	count := 10000

	// 1. Create and Delete many sessions
	for i := 0; i < count; i++ {
		sid := fmt.Sprintf("session-%d", i)
		_ = mgr.AdvanceStep(ctx, sid)
		_ = mgr.Delete(ctx, sid)
	}

	// 2. Count locks remaining in map
	lockCount := len(mgr.locks)
	t.Logf("Sessions Created: %d, Locks Leaked: %d", count, lockCount)

	if lockCount != 0 {
		t.Errorf("Memory Leak Detected: %d locks remaining in memory after Delete", lockCount)
	}
}
