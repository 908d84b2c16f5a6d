package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options selects the server and sizes the connection pool. Zero values fall
// back to a pool of 10 with one idle connection and 2s read/write timeouts.
type Options struct {
	Addr         string
	Username     string
	Password     string
	PoolSize     int
	MinIdleConns int
	Timeout      time.Duration
}

func (o Options) clientOptions() *redis.Options {
	opts := &redis.Options{
		Addr:         o.Addr,
		Username:     o.Username,
		Password:     o.Password,
		DB:           0,
		ReadTimeout:  o.Timeout,
		WriteTimeout: o.Timeout,
		PoolSize:     o.PoolSize,
		MinIdleConns: o.MinIdleConns,
	}
	if opts.ReadTimeout <= 0 {
		opts.ReadTimeout, opts.WriteTimeout = 2*time.Second, 2*time.Second
	}
	if opts.PoolSize <= 0 {
		opts.PoolSize = 10
	}
	if opts.MinIdleConns <= 0 {
		opts.MinIdleConns = 1
	}
	if opts.MinIdleConns > opts.PoolSize {
		opts.MinIdleConns = opts.PoolSize
	}
	return opts
}

// NewRedisClient connects and pings; the client is closed again if the ping fails.
func NewRedisClient(o Options) (*redis.Client, error) {
	rdb := redis.NewClient(o.clientOptions())

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", o.Addr, err)
	}

	return rdb, nil
}
