package redis

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pscheid92/chatledger/internal/domain"
)

func TestMemberDirectory_RememberAndResolve(t *testing.T) {
	client, _ := setupTestRedis(t)
	dir := NewMemberDirectory(client, time.Hour)
	ctx := context.Background()

	require.NoError(t, dir.Remember(ctx, "g1", "u1", "Alice"))

	name, err := dir.ResolveName(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)

	_, err = dir.ResolveName(ctx, "g2", "u1")
	assert.ErrorIs(t, err, domain.ErrNameNotFound)
}

func TestMemberDirectory_NamesExpire(t *testing.T) {
	client, mr := setupTestRedis(t)
	dir := NewMemberDirectory(client, time.Minute)
	ctx := context.Background()

	require.NoError(t, dir.Remember(ctx, "g1", "u1", "Alice"))
	mr.FastForward(2 * time.Minute)

	_, err := dir.ResolveName(ctx, "g1", "u1")
	assert.ErrorIs(t, err, domain.ErrNameNotFound)
}

func TestMemberDirectory_ZeroTTLKeepsNames(t *testing.T) {
	client, mr := setupTestRedis(t)
	dir := NewMemberDirectory(client, 0)
	ctx := context.Background()

	require.NoError(t, dir.Remember(ctx, "g1", "u1", "Alice"))
	mr.FastForward(24 * time.Hour)

	name, err := dir.ResolveName(ctx, "g1", "u1")
	require.NoError(t, err)
	assert.Equal(t, "Alice", name)
}
