// Package storetest holds behaviour checks shared by every store.History implementation.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vovakirdan/wirechat-relay/internal/store"
)

// Run exercises a fresh History returned by factory for each subtest.
func Run(t *testing.T, factory func(t *testing.T) store.History) {
	t.Run("empty channel", func(t *testing.T) {
		h := factory(t)
		ctx := context.Background()

		recs, err := h.Since(ctx, "#nobody", 0)
		require.NoError(t, err)
		assert.Empty(t, recs)

		n, err := h.Len(ctx, "#nobody")
		require.NoError(t, err)
		assert.Zero(t, n)
	})

	t.Run("append order and filter", func(t *testing.T) {
		h := factory(t)
		ctx := context.Background()

		// Timestamps are deliberately not monotonic: order must follow appends.
		input := []store.Record{
			{Channel: "#a", Timestamp: 10, Author: "*server*", Text: "alice has joined the channel"},
			{Channel: "#b", Timestamp: 11, Author: "bob", Text: "elsewhere"},
			{Channel: "#a", Timestamp: 30, Author: "alice", Text: "first"},
			{Channel: "#a", Timestamp: 20, Author: "alice", Text: "clock went back"},
			{Channel: "#a", Timestamp: 30, Author: "bob", Text: "hello   world"},
		}
		for _, rec := range input {
			require.NoError(t, h.Append(ctx, rec))
		}

		all, err := h.Since(ctx, "#a", 0)
		require.NoError(t, err)
		assert.Equal(t, []store.Record{input[0], input[2], input[3], input[4]}, all)

		recent, err := h.Since(ctx, "#a", 25)
		require.NoError(t, err)
		assert.Equal(t, []store.Record{input[2], input[4]}, recent)

		again, err := h.Since(ctx, "#a", 25)
		require.NoError(t, err)
		assert.Equal(t, recent, again)

		n, err := h.Len(ctx, "#a")
		require.NoError(t, err)
		assert.Equal(t, 4, n)
	})
}
