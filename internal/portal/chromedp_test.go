package portal

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type browserKey struct{}

func TestBridgeCancel_CallerCancelAbortsChild(t *testing.T) {
	t.Parallel()

	parent := context.WithValue(context.Background(), browserKey{}, "browser")
	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	child, cleanup := bridgeCancel(caller, parent)
	defer cleanup()

	// The child keeps the parent's values, not the caller's lifetime alone.
	assert.Equal(t, "browser", child.Value(browserKey{}))
	require.NoError(t, child.Err())

	cancelCaller()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not canceled after caller cancel")
	}
	assert.NoError(t, parent.Err(), "parent must survive the caller's cancel")
}

func TestBridgeCancel_CleanupDetachesCaller(t *testing.T) {
	t.Parallel()

	caller, cancelCaller := context.WithCancel(context.Background())
	defer cancelCaller()

	child, cleanup := bridgeCancel(caller, context.Background())
	cleanup()
	require.Error(t, child.Err(), "cleanup cancels the child itself")
}

func TestBridgeCancel_ParentCancelPropagates(t *testing.T) {
	t.Parallel()

	parent, cancelParent := context.WithCancel(context.Background())
	child, cleanup := bridgeCancel(context.Background(), parent)
	defer cleanup()

	cancelParent()
	select {
	case <-child.Done():
	case <-time.After(time.Second):
		t.Fatal("child context not canceled after parent cancel")
	}
}
