package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"runtime"
	"time"

	"github.com/Borislavv/shardmap/internal/kvstore/config"
	"github.com/Borislavv/shardmap/pkg/prometheus/metrics"
	serverutils "github.com/Borislavv/shardmap/pkg/server/utils"
	"github.com/Borislavv/shardmap/pkg/shardmap"
	synced "github.com/Borislavv/shardmap/pkg/sync"
	"github.com/Borislavv/shardmap/pkg/utils"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/savsgio/gotils/strconv"
	"github.com/valyala/fasthttp"
)

// StorePath serves single-key operations; the key is a path segment.
const StorePath = "/api/v1/store/{key}"

// Predefined HTTP response templates for error handling (400/404)
var (
	notFoundResponseBytes = []byte(`{
	  "status": 404,
	  "error": "Not Found",
	  "message": "` + string(messagePlaceholder) + `"
	}`)
	badRequestResponseBytes = []byte(`{
	  "status": 400,
	  "error": "Bad Request",
	  "message": "` + string(messagePlaceholder) + `"
	}`)
	messagePlaceholder = []byte("${message}")
	zeroLiteral        = "0"
)

var errEmptyKey = errors.New("the key path segment must not be empty")

// Buffered channel for request durations (used only if debug enabled)
var (
	durCh chan time.Duration
)

// StoreController handles the KV API: read, write and delete of single
// keys over the sharded map.
type StoreController struct {
	cfg   *config.Config
	ctx   context.Context
	store *shardmap.Map[string, []byte]
	meter metrics.Meter
}

// NewStoreController builds the KV API controller. If debug is enabled,
// launches the internal stats logger goroutine.
func NewStoreController(
	ctx context.Context,
	cfg *config.Config,
	store *shardmap.Map[string, []byte],
	meter metrics.Meter,
) *StoreController {
	c := &StoreController{
		cfg:   cfg,
		ctx:   ctx,
		store: store,
		meter: meter,
	}
	if c.cfg.IsDebugOn() {
		c.runLogger(ctx)
	}
	return c
}

// Get handles GET /api/v1/store/{key}. The value guard is released as
// soon as the value has been read, before the response is written, so
// concurrent writers on the same shard never wait on the response write.
func (c *StoreController) Get(r *fasthttp.RequestCtx) {
	f := time.Now()

	key, ok := r.UserValue("key").(string)
	if !ok || key == "" {
		c.respondThatTheRequestIsBad(errEmptyKey, r)
		return
	}

	ref, found := c.store.Get(key)
	if !found {
		c.meter.IncStoreMiss()
		c.respondThatTheKeyWasNotFound(key, r)
		return
	}
	value := ref.Value()
	ref.Release()
	c.meter.IncStoreHit()

	r.Response.SetStatusCode(fasthttp.StatusOK)
	c.writeEnvelope(r, key, value, false)

	if c.cfg.IsDebugOn() {
		select {
		case durCh <- time.Since(f):
		default:
		}
	}
}

// Put handles PUT /api/v1/store/{key}. The request body is the value.
// Replacing an existing value answers 200 with the envelope's replaced
// flag set; the previous value is not returned.
func (c *StoreController) Put(r *fasthttp.RequestCtx) {
	f := time.Now()

	key, ok := r.UserValue("key").(string)
	if !ok || key == "" {
		c.respondThatTheRequestIsBad(errEmptyKey, r)
		return
	}

	value := append([]byte(nil), r.PostBody()...)
	_, replaced := c.store.Insert(key, value)

	if replaced {
		r.Response.SetStatusCode(fasthttp.StatusOK)
	} else {
		r.Response.SetStatusCode(fasthttp.StatusCreated)
	}
	c.writeEnvelope(r, key, value, replaced)

	if c.cfg.IsDebugOn() {
		select {
		case durCh <- time.Since(f):
		default:
		}
	}
}

// Delete handles DELETE /api/v1/store/{key}.
func (c *StoreController) Delete(r *fasthttp.RequestCtx) {
	key, ok := r.UserValue("key").(string)
	if !ok || key == "" {
		c.respondThatTheRequestIsBad(errEmptyKey, r)
		return
	}

	_, value, removed := c.store.Remove(key)
	if !removed {
		c.respondThatTheKeyWasNotFound(key, r)
		return
	}

	r.Response.SetStatusCode(fasthttp.StatusOK)
	c.writeEnvelope(r, key, value, true)
}

type storeEnvelope struct {
	Status   int    `json:"status"`
	Key      string `json:"key"`
	Value    string `json:"value"`
	Replaced bool   `json:"replaced,omitempty"`
}

// envelopeBufferPool recycles the scratch buffers the envelopes are
// encoded into, keeping the hot path allocation-free.
var envelopeBufferPool = synced.NewBatchPool[*bytes.Buffer](synced.PreallocationBatchSize, func() *bytes.Buffer {
	return new(bytes.Buffer)
})

func (c *StoreController) writeEnvelope(r *fasthttp.RequestCtx, key string, value []byte, replaced bool) {
	buf := envelopeBufferPool.Get()
	defer func() {
		buf.Reset()
		envelopeBufferPool.Put(buf)
	}()

	if err := json.NewEncoder(buf).Encode(storeEnvelope{
		Status:   r.Response.StatusCode(),
		Key:      key,
		Value:    strconv.B2S(value),
		Replaced: replaced,
	}); err != nil {
		log.Err(err).Msg("[store-controller] failed to marshal response envelope")
		r.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}
	if _, err := serverutils.Write(buf.Bytes(), r); err != nil {
		log.Err(err).Msg("[store-controller] failed to write into *fasthttp.RequestCtx")
	}
}

// respondThatTheKeyWasNotFound returns 404 with the missing key named.
func (c *StoreController) respondThatTheKeyWasNotFound(key string, ctx *fasthttp.RequestCtx) {
	ctx.SetStatusCode(fasthttp.StatusNotFound)
	msg := []byte("key '" + key + "' does not exist")
	if _, err := serverutils.Write(bytes.ReplaceAll(notFoundResponseBytes, messagePlaceholder, msg), ctx); err != nil {
		log.Err(err).Msg("[store-controller] failed to write into *fasthttp.RequestCtx")
	}
}

// respondThatTheRequestIsBad returns 400 and logs the error.
func (c *StoreController) respondThatTheRequestIsBad(err error, ctx *fasthttp.RequestCtx) {
	log.Err(err).Msg("[store-controller] bad request: " + err.Error())

	ctx.SetStatusCode(fasthttp.StatusBadRequest)
	escaped, _ := json.Marshal(err.Error())
	if _, err = serverutils.Write(bytes.ReplaceAll(badRequestResponseBytes, messagePlaceholder, escaped[1:len(escaped)-1]), ctx); err != nil {
		log.Err(err).Msg("[store-controller] failed to write into *fasthttp.RequestCtx")
	}
}

// AddRoute attaches controller's routes to the provided router.
func (c *StoreController) AddRoute(router *router.Router) {
	router.GET(StorePath, c.Get)
	router.PUT(StorePath, c.Put)
	router.POST(StorePath, c.Put)
	router.DELETE(StorePath, c.Delete)
}

// stat is an internal structure for windowed request statistics (for debug logging).
type stat struct {
	label    string
	divider  int // window size in seconds
	tickerCh <-chan time.Time
	count    int
	total    time.Duration
}

// runLogger runs a goroutine to periodically log RPS and avg duration per window, if debug enabled.
func (c *StoreController) runLogger(ctx context.Context) {
	durCh = make(chan time.Duration, runtime.GOMAXPROCS(0))

	go func() {
		stats := []*stat{
			{label: "5s", divider: 5, tickerCh: utils.NewTicker(ctx, 5*time.Second)},
			{label: "1m", divider: 60, tickerCh: utils.NewTicker(ctx, time.Minute)},
			{label: "5m", divider: 300, tickerCh: utils.NewTicker(ctx, 5*time.Minute)},
			{label: "1h", divider: 3600, tickerCh: utils.NewTicker(ctx, time.Hour)},
		}

		for {
			select {
			case <-ctx.Done():
				return
			case dur := <-durCh:
				for _, s := range stats {
					s.count++
					s.total += dur
				}
			case <-stats[0].tickerCh:
				c.logAndReset(stats[0])
			case <-stats[1].tickerCh:
				c.logAndReset(stats[1])
			case <-stats[2].tickerCh:
				c.logAndReset(stats[2])
			case <-stats[3].tickerCh:
				c.logAndReset(stats[3])
			}
		}
	}()
}

// logAndReset prints and resets stat counters for a given window (5s, 1m, etc).
func (c *StoreController) logAndReset(s *stat) {
	var avg string
	if s.count > 0 {
		avg = (s.total / time.Duration(s.count)).String()
	} else {
		avg = zeroLiteral
	}
	log.Info().Msgf("[store-controller][%s] served %d requests (rps: %d, avgDuration: %s)", s.label, s.count, s.count/s.divider, avg)
	s.count = 0
	s.total = 0
}
