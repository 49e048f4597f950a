// Package shutdown coordinates graceful termination of the application's
// long-lived goroutines on OS signals or context cancellation.
package shutdown

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"
)

var GracefulTimeoutExceededError = errors.New("graceful shutdown timeout exceeded, components were not stopped properly")

// Gracefuller is the contract handed to managed components: each one is
// registered with Add and reports termination with Done.
type Gracefuller interface {
	Add(delta int)
	Done()
}

// Graceful listens for SIGINT/SIGTERM or cancellation of the root context
// and then waits, bounded by the graceful timeout, for every registered
// component to report Done.
type Graceful struct {
	ctx     context.Context
	cancel  context.CancelFunc
	wg      *sync.WaitGroup
	timeout time.Duration
}

func NewGraceful(ctx context.Context, cancel context.CancelFunc) *Graceful {
	return &Graceful{
		ctx:     ctx,
		cancel:  cancel,
		wg:      &sync.WaitGroup{},
		timeout: time.Second * 5,
	}
}

func (g *Graceful) SetGracefulTimeout(timeout time.Duration) {
	g.timeout = timeout
}

func (g *Graceful) Add(delta int) {
	g.wg.Add(delta)
}

func (g *Graceful) Done() {
	g.wg.Done()
}

// ListenCancelAndAwait blocks until an OS signal arrives or the root
// context is cancelled, cancels the application context and awaits the
// registered components. Components still running when the graceful
// timeout fires are abandoned and an error is returned.
func (g *Graceful) ListenCancelAndAwait() error {
	signalsCh := make(chan os.Signal, 1)
	signal.Notify(signalsCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(signalsCh)

	select {
	case s := <-signalsCh:
		log.Info().Msgf("[shutdown] caught %v signal, stopping components", s)
	case <-g.ctx.Done():
		log.Info().Msg("[shutdown] context was cancelled, stopping components")
	}

	g.cancel()

	doneCh := make(chan struct{})
	go func() {
		defer close(doneCh)
		g.wg.Wait()
	}()

	select {
	case <-doneCh:
		log.Info().Msg("[shutdown] all components were gracefully stopped")
		return nil
	case <-time.After(g.timeout):
		log.Error().Msg("[shutdown] graceful timeout exceeded, exiting anyway")
		return GracefulTimeoutExceededError
	}
}
