package endpoint

import (
	"context"
	"sync"
	"time"

	"domogateway/pkg/runtime/constant"
	"golang.org/x/sync/semaphore"
	"k8s.io/klog/v2"
)

const DefaultAcquireTimeout = 3 * time.Second

// LockRegistry hands out one exclusive lock per endpoint. The physical
// gateways accept a single TCP session, so every exchange with an endpoint
// runs under its lock.
type LockRegistry struct {
	mu             sync.Mutex
	locks          map[Endpoint]*semaphore.Weighted
	acquireTimeout time.Duration
}

type Option func(*LockRegistry)

func WithAcquireTimeout(d time.Duration) Option {
	return func(r *LockRegistry) {
		if d > 0 {
			r.acquireTimeout = d
		}
	}
}

func NewLockRegistry(opts ...Option) *LockRegistry {
	r := &LockRegistry{
		locks:          make(map[Endpoint]*semaphore.Weighted),
		acquireTimeout: DefaultAcquireTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

var defaultRegistry = NewLockRegistry()

// Default is the process wide registry shared by every device.
func Default() *LockRegistry {
	return defaultRegistry
}

func (r *LockRegistry) lockFor(ep Endpoint) *semaphore.Weighted {
	r.mu.Lock()
	defer r.mu.Unlock()
	l, ok := r.locks[ep]
	if !ok {
		l = semaphore.NewWeighted(1)
		r.locks[ep] = l
	}
	return l
}

// WithLock runs fn while holding the lock of ep. It returns a BusyError when
// the lock is not acquired within the acquire timeout or before ctx ends.
func (r *LockRegistry) WithLock(ctx context.Context, ep Endpoint, fn func(ctx context.Context) error) error {
	l := r.lockFor(ep)

	acquireCtx, cancel := context.WithTimeout(ctx, r.acquireTimeout)
	defer cancel()
	if err := l.Acquire(acquireCtx, 1); err != nil {
		klog.V(2).InfoS("Failed to acquire gateway lock", "endpoint", ep.String(), "err", err)
		return &constant.BusyError{Endpoint: ep.String(), Err: err}
	}
	defer l.Release(1)

	return fn(ctx)
}
