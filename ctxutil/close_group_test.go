// Copyright (c) 2023 BVK Chaitanya

package ctxutil

import (
	"context"
	"sync/atomic"
	"testing"
)

func TestCloseGroup(t *testing.T) {
	var cg CloseGroup

	var finished atomic.Int32
	for i := 0; i < 100; i++ {
		cg.Go(func(ctx context.Context) {
			<-ctx.Done()
			finished.Add(1)
		})
	}

	cg.Close()
	if n := finished.Load(); n != 100 {
		t.Fatalf("close must wait for all goroutines: %d of 100 finished", n)
	}
}
