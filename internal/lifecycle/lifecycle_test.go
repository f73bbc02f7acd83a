package lifecycle

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCleanupAddContext(t *testing.T) {
	t.Run("runs registered hook", func(t *testing.T) {
		c := &Cleanup{}
		called := false

		c.AddContext("test", func(ctx context.Context) error {
			called = true
			return nil
		})

		require.Len(t, c.hooks, 1)
		assert.Equal(t, "test", c.hooks[0].name)

		c.Run(context.Background())
		assert.True(t, called)
	})

	t.Run("ignores nil hook", func(t *testing.T) {
		c := &Cleanup{}
		c.AddContext("nil-hook", nil)
		assert.Empty(t, c.hooks)
	})
}

func TestCleanupRunsInReverseOrder(t *testing.T) {
	c := &Cleanup{}
	var order []string

	c.Add("first", func() error { order = append(order, "first"); return nil })
	c.Add("second", func() error { order = append(order, "second"); return nil })
	c.Add("third", func() error { order = append(order, "third"); return nil })

	c.Run(context.Background())

	assert.Equal(t, []string{"third", "second", "first"}, order,
		"hooks run newest first, like defer")
}

func TestCleanupContinuesPastFailures(t *testing.T) {
	c := &Cleanup{}
	var order []string

	c.Add("ok-1", func() error { order = append(order, "ok-1"); return nil })
	c.Add("boom", func() error { return errors.New("release failed") })
	c.Add("ok-2", func() error { order = append(order, "ok-2"); return nil })

	c.Run(context.Background())

	assert.Equal(t, []string{"ok-2", "ok-1"}, order)
}

type closable struct {
	closed bool
}

func (c *closable) Close() { c.closed = true }

func TestCleanupAddClose(t *testing.T) {
	c := &Cleanup{}
	resource := &closable{}

	c.AddClose("resource", resource)
	c.Run(context.Background())

	assert.True(t, resource.closed)
}

func TestSignalContext(t *testing.T) {
	ctx, cancel := SignalContext(context.Background())
	require.NoError(t, ctx.Err())

	cancel()
	assert.ErrorIs(t, ctx.Err(), context.Canceled)
}
