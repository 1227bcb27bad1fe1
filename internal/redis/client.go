package redisclient

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// Options carries the connection settings the binaries load from the
// environment. Zero values fall back to defaults sized for booking lock
// traffic, which is small and latency-sensitive.
type Options struct {
	Addr     string
	Username string
	Password string
	PoolSize int
}

const (
	defaultAddr     = "127.0.0.1:6379"
	defaultPoolSize = 10

	// Lock keys expire on their own, so a slow command is better failed
	// fast than retried past the lock TTL.
	commandTimeout = 2 * time.Second
	dialTimeout    = 5 * time.Second
)

func (o Options) normalized() Options {
	if o.Addr == "" {
		o.Addr = defaultAddr
	}
	if o.PoolSize <= 0 {
		o.PoolSize = defaultPoolSize
	}
	return o
}

// NewClient connects the client backing the booking Locker and the
// readiness probe, verifying the server is reachable before returning.
func NewClient(opts Options) (*redis.Client, error) {
	opts = opts.normalized()

	rdb := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Username:     opts.Username,
		Password:     opts.Password,
		ReadTimeout:  commandTimeout,
		WriteTimeout: commandTimeout,
		PoolSize:     opts.PoolSize,
		MinIdleConns: 1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), dialTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		_ = rdb.Close()
		return nil, fmt.Errorf("ping redis %s: %w", opts.Addr, err)
	}

	return rdb, nil
}
