package redisclient

import "testing"

func TestOptionsNormalized(t *testing.T) {
	t.Run("zero values get defaults", func(t *testing.T) {
		got := Options{}.normalized()
		if got.Addr != defaultAddr {
			t.Fatalf("addr %q, want %q", got.Addr, defaultAddr)
		}
		if got.PoolSize != defaultPoolSize {
			t.Fatalf("pool size %d, want %d", got.PoolSize, defaultPoolSize)
		}
	})

	t.Run("explicit values kept", func(t *testing.T) {
		in := Options{
			Addr:     "cache.internal:6380",
			Username: "scheduler",
			Password: "hunter2",
			PoolSize: 25,
		}
		got := in.normalized()
		if got != in {
			t.Fatalf("normalized changed explicit options: %+v", got)
		}
	})

	t.Run("negative pool size replaced", func(t *testing.T) {
		if got := (Options{Addr: "x:1", PoolSize: -3}).normalized(); got.PoolSize != defaultPoolSize {
			t.Fatalf("pool size %d, want %d", got.PoolSize, defaultPoolSize)
		}
	})
}
