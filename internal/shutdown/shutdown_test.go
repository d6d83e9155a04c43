package shutdown

import (
	"context"
	"testing"
)

func TestContext_CancelStops(t *testing.T) {
	ctx, cancel := Context(context.Background())
	if ctx.Err() != nil {
		t.Fatalf("context done before cancel: %v", ctx.Err())
	}
	cancel()
	<-ctx.Done()
}

func TestContext_FollowsParent(t *testing.T) {
	parent, cancelParent := context.WithCancel(context.Background())
	ctx, cancel := Context(parent)
	defer cancel()

	cancelParent()
	<-ctx.Done()
	if ctx.Err() != context.Canceled {
		t.Errorf("Err() = %v, want context.Canceled", ctx.Err())
	}
}
