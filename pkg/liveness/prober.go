// Package liveness implements the health probe consumed by the /k8s/probe
// endpoint.
package liveness

import (
	"context"
	"sync"
	"time"
)

// Liveness is implemented by components that can report their health.
type Liveness interface {
	IsAlive(ctx context.Context) bool
}

// Prober aggregates the health of watched components.
type Prober interface {
	Watch(target Liveness)
	IsAlive() bool
}

// Probe polls every watched component and reports failure once any of
// them has been unhealthy for longer than the failed timeout. A short
// grace period keeps a slow-starting component from flapping the probe.
type Probe struct {
	mu            sync.Mutex
	failedTimeout time.Duration
	lastAlive     map[Liveness]time.Time
}

func NewProbe(failedTimeout time.Duration) *Probe {
	if failedTimeout <= 0 {
		failedTimeout = time.Second * 10
	}
	return &Probe{
		failedTimeout: failedTimeout,
		lastAlive:     make(map[Liveness]time.Time),
	}
}

// Watch registers target and starts polling it. Watch does not block the
// caller.
func (p *Probe) Watch(target Liveness) {
	p.mu.Lock()
	p.lastAlive[target] = time.Now()
	p.mu.Unlock()

	go func() {
		t := time.NewTicker(p.failedTimeout / 2)
		defer t.Stop()
		for range t.C {
			ctx, cancel := context.WithTimeout(context.Background(), p.failedTimeout/2)
			alive := target.IsAlive(ctx)
			cancel()
			if alive {
				p.mu.Lock()
				p.lastAlive[target] = time.Now()
				p.mu.Unlock()
			}
		}
	}()
}

// IsAlive reports whether every watched component responded within its
// failed timeout.
func (p *Probe) IsAlive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	now := time.Now()
	for _, at := range p.lastAlive {
		if now.Sub(at) > p.failedTimeout {
			return false
		}
	}
	return true
}
