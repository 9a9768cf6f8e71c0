package channel

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryDeduplicator(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2025, 3, 10, 9, 0, 0, 0, time.UTC)
	d := NewMemoryDeduplicator(time.Hour)
	d.now = func() time.Time { return now }

	ok, err := d.Claim(ctx, "wamid.1")
	require.NoError(t, err)
	assert.True(t, ok)

	ok, _ = d.Claim(ctx, "wamid.1")
	assert.False(t, ok)

	ok, _ = d.Claim(ctx, "wamid.2")
	assert.True(t, ok)

	now = now.Add(2 * time.Hour)
	ok, _ = d.Claim(ctx, "wamid.1")
	assert.True(t, ok)
}
