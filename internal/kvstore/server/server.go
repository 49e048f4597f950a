package server

import (
	"context"
	"errors"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Borislavv/shardmap/internal/kvstore/api"
	"github.com/Borislavv/shardmap/internal/kvstore/config"
	"github.com/Borislavv/shardmap/pkg/liveness"
	"github.com/Borislavv/shardmap/pkg/prometheus/metrics"
	metricscontroller "github.com/Borislavv/shardmap/pkg/prometheus/metrics/controller"
	prometheusrequestmiddleware "github.com/Borislavv/shardmap/pkg/prometheus/metrics/middleware"
	httpserver "github.com/Borislavv/shardmap/pkg/server"
	"github.com/Borislavv/shardmap/pkg/server/controller"
	"github.com/Borislavv/shardmap/pkg/server/middleware"
	"github.com/Borislavv/shardmap/pkg/shardmap"
	"github.com/Borislavv/shardmap/pkg/utils"
	"github.com/rs/zerolog/log"
)

// Error messages used for server and metrics initialization.
var (
	InitFailedErrorMessage        = "[server] init. failed"
	MetricsInitFailedErrorMessage = "[server] init. prometheus metrics failed"
)

// Http interface exposes methods for starting and liveness probing.
type Http interface {
	Start()
	IsAlive() bool
}

// HttpServer implements Http, wraps all dependencies required for running the HTTP server.
type HttpServer struct {
	ctx    context.Context
	cancel context.CancelFunc

	cfg           *config.Config
	metrics       *metrics.Metrics
	server        *httpserver.HTTP
	isServerAlive *atomic.Bool
	store         *shardmap.Map[string, []byte]
}

// New creates a new HttpServer, initializing metrics and the HTTP server itself.
// If any step fails, returns an error and performs cleanup.
func New(
	ctx context.Context,
	cfg *config.Config,
	store *shardmap.Map[string, []byte],
	probe liveness.Prober,
) (*HttpServer, error) {
	var err error

	// Create cancellable context for graceful shutdown.
	ctx, cancel := context.WithCancel(ctx)
	defer func() {
		if err != nil {
			cancel()
		}
	}()

	srv := &HttpServer{
		ctx:           ctx,
		cancel:        cancel,
		cfg:           cfg,
		store:         store,
		isServerAlive: &atomic.Bool{},
	}

	// Initialize Prometheus or other metrics.
	if err = srv.initMetrics(); err != nil {
		log.Err(err).Msg(MetricsInitFailedErrorMessage)
		return nil, errors.New(MetricsInitFailedErrorMessage)
	}

	// Initialize HTTP server with all controllers and middlewares.
	if err = srv.initServer(probe); err != nil {
		log.Err(err).Msg(InitFailedErrorMessage)
		return nil, errors.New(InitFailedErrorMessage)
	}

	srv.runMetricsUpdater()

	return srv, nil
}

// Start runs the HTTP server in a goroutine and waits for it to finish.
func (s *HttpServer) Start() {
	defer s.stop()

	waitCh := make(chan struct{})

	go func() {
		defer close(waitCh)
		wg := &sync.WaitGroup{}
		defer wg.Wait()
		s.spawnServer(wg)
	}()

	<-waitCh
}

// stop cancels the context, signaling shutdown to all server goroutines.
func (s *HttpServer) stop() {
	s.cancel()
}

// IsAlive returns true if the server is marked as alive.
func (s *HttpServer) IsAlive() bool {
	return s.isServerAlive.Load()
}

// spawnServer starts the HTTP server in a new goroutine, sets server liveness flags, and blocks until it exits.
func (s *HttpServer) spawnServer(wg *sync.WaitGroup) {
	wg.Add(1)
	go func() {
		defer func() {
			s.isServerAlive.Store(false)
			wg.Done()
		}()
		s.isServerAlive.Store(true)
		s.server.ListenAndServe()
	}()
}

// initMetrics initializes Prometheus (or custom) metrics registry and binds it to the server.
func (s *HttpServer) initMetrics() error {
	prometheusMetrics, err := metrics.New()
	if err != nil {
		log.Err(err).Msg(MetricsInitFailedErrorMessage)
		return errors.New(MetricsInitFailedErrorMessage)
	}
	s.metrics = prometheusMetrics
	return nil
}

// initServer creates the HTTP server instance, sets up controllers and middlewares, and stores the result.
func (s *HttpServer) initServer(probe liveness.Prober) error {
	ctx, cancel := context.WithCancel(s.ctx)
	s.cancel = cancel

	// Compose server with controllers and middlewares.
	if server, err := httpserver.New(ctx, s.cfg, s.controllers(probe), s.middlewares()); err != nil {
		cancel()
		log.Err(err).Msg(InitFailedErrorMessage)
		return errors.New(InitFailedErrorMessage)
	} else {
		s.server = server
	}

	return nil
}

// controllers returns all HTTP controllers for the server (endpoints/handlers).
func (s *HttpServer) controllers(probe liveness.Prober) []controller.HttpController {
	return []controller.HttpController{
		api.NewLivenessController(probe),                  // Liveness/healthcheck endpoint
		api.NewStoreController(s.ctx, s.cfg, s.store, s.metrics), // Main KV handler
		api.NewStatsController(s.ctx, s.store),            // Store stats endpoint
		metricscontroller.NewPrometheusMetrics(s.ctx),     // Prometheus metrics endpoint
	}
}

// middlewares returns the request middlewares for the server. They are wrapped in reverse order, so they execute in slice order.
func (s *HttpServer) middlewares() []middleware.HttpMiddleware {
	return []middleware.HttpMiddleware{
		/** exec 1st. */ middleware.NewApplicationJsonMiddleware(), // Sets Content-Type
		/** exec 2nd. */ middleware.NewWatermarkMiddleware(s.ctx, s.cfg), // Adds watermark info
		/** exec 3rd. */ middleware.NewDuration(s.ctx, s.cfg), // Adds Server-Timing header
		/** exec 4th. */ prometheusrequestmiddleware.NewPrometheusMetrics(s.ctx, s.metrics), // Prometheus instrumentation
	}
}

// runMetricsUpdater periodically publishes the store's length, capacity
// and per-shard distribution as gauges.
func (s *HttpServer) runMetricsUpdater() {
	go func() {
		tickerCh := utils.NewTicker(s.ctx, 5*time.Second)
		for {
			select {
			case <-s.ctx.Done():
				return
			case <-tickerCh:
				total := 0
				for i, shard := range s.store.Shards() {
					shard.RLock()
					n := shard.Len()
					shard.RUnlock()
					total += n
					s.metrics.SetShardEntries(strconv.Itoa(i), n)
				}
				s.metrics.SetMapEntries(total)
				s.metrics.SetMapCapacity(s.store.Capacity())
			}
		}
	}()
}
