package api

import (
	"context"
	"encoding/json"

	serverutils "github.com/Borislavv/shardmap/pkg/server/utils"
	"github.com/Borislavv/shardmap/pkg/shardmap"
	"github.com/fasthttp/router"
	"github.com/rs/zerolog/log"
	"github.com/valyala/fasthttp"
)

const StatsPath = "/api/v1/stats"

// StatsController reports the store's length, capacity and per-shard
// distribution. The numbers are per-shard snapshots, not one consistent
// view of the whole map.
type StatsController struct {
	ctx   context.Context
	store *shardmap.Map[string, []byte]
}

func NewStatsController(ctx context.Context, store *shardmap.Map[string, []byte]) *StatsController {
	return &StatsController{ctx: ctx, store: store}
}

type statsEnvelope struct {
	Status   int   `json:"status"`
	Len      int   `json:"len"`
	Capacity int   `json:"capacity"`
	Shards   []int `json:"shards"`
}

func (c *StatsController) Get(r *fasthttp.RequestCtx) {
	shards := make([]int, c.store.ShardCount())
	total := 0
	for i, s := range c.store.Shards() {
		s.RLock()
		shards[i] = s.Len()
		s.RUnlock()
		total += shards[i]
	}

	body, err := json.Marshal(statsEnvelope{
		Status:   fasthttp.StatusOK,
		Len:      total,
		Capacity: c.store.Capacity(),
		Shards:   shards,
	})
	if err != nil {
		log.Err(err).Msg("[stats-controller] failed to marshal stats")
		r.SetStatusCode(fasthttp.StatusInternalServerError)
		return
	}

	r.SetStatusCode(fasthttp.StatusOK)
	if _, err = serverutils.Write(body, r); err != nil {
		log.Err(err).Msg("[stats-controller] failed to write into *fasthttp.RequestCtx")
	}
}

func (c *StatsController) AddRoute(router *router.Router) {
	router.GET(StatsPath, c.Get)
}
