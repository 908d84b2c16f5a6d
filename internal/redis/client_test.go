package redisclient

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRedisClient_AppliesPoolSettings(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(Options{
		Addr:         mr.Addr(),
		PoolSize:     24,
		MinIdleConns: 3,
		Timeout:      500 * time.Millisecond,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, 24, opts.PoolSize)
	assert.Equal(t, 3, opts.MinIdleConns)
	assert.Equal(t, 500*time.Millisecond, opts.ReadTimeout)
	assert.Equal(t, 500*time.Millisecond, opts.WriteTimeout)
}

func TestNewRedisClient_ZeroOptionsUseDefaults(t *testing.T) {
	mr := miniredis.RunT(t)

	client, err := NewRedisClient(Options{Addr: mr.Addr()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })

	opts := client.Options()
	assert.Equal(t, 10, opts.PoolSize)
	assert.Equal(t, 1, opts.MinIdleConns)
	assert.Equal(t, 2*time.Second, opts.ReadTimeout)
}

func TestNewRedisClient_PingFailure(t *testing.T) {
	mr := miniredis.RunT(t)
	addr := mr.Addr()
	mr.Close()

	_, err := NewRedisClient(Options{Addr: addr, Timeout: 200 * time.Millisecond})
	assert.ErrorContains(t, err, "ping redis "+addr)
}
