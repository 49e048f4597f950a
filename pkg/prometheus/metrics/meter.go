package metrics

import (
	"errors"

	"github.com/Borislavv/shardmap/pkg/prometheus/metrics/keyword"
	"github.com/Borislavv/shardmap/pkg/prometheus/metrics/validator"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
)

var MetricRegisterErrorMessage = "failed to register metric counter"

type Meter interface {
	IncTotal(path string, method string, status string)
	IncStatus(path string, method string, status string)
	NewResponseTimeTimer(path string, method string) *prometheus.Timer
	FlushResponseTimeTimer(t *prometheus.Timer)
	SetMapEntries(n int)
	SetMapCapacity(n int)
	SetShardEntries(shard string, n int)
	IncStoreHit()
	IncStoreMiss()
}

type Metrics struct {
	totalRequestsCounter    *prometheus.CounterVec
	totalResponsesCounter   *prometheus.CounterVec
	responseStatusesCounter *prometheus.CounterVec
	responseTimeMsCounter   *prometheus.HistogramVec
	mapEntriesGauge         prometheus.Gauge
	mapCapacityGauge        prometheus.Gauge
	shardEntriesGauge       *prometheus.GaugeVec
	storeHitsCounter        prometheus.Counter
	storeMissesCounter      prometheus.Counter
}

func New() (*Metrics, error) {
	m := &Metrics{
		totalRequestsCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.TotalHttpRequestsMetricName,
				Help: "Number of all requests.",
			},
			[]string{"path", "method"},
		),
		totalResponsesCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.TotalHttpResponsesMetricName,
				Help: "Number of all responses.",
			},
			[]string{"path", "method", "status"},
		),
		responseStatusesCounter: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: keyword.HttpResponseStatusesMetricName,
				Help: "Status of HTTP response",
			},
			[]string{"path", "method", "status"},
		),
		responseTimeMsCounter: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name: keyword.HttpResponseTimeMsMetricName,
			Help: "Duration of HTTP requests.",
		}, []string{"path", "method"}),
		mapEntriesGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: keyword.MapEntriesMetricName,
			Help: "Number of entries stored in the map.",
		}),
		mapCapacityGauge: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: keyword.MapCapacityMetricName,
			Help: "Reserved capacity of the map.",
		}),
		shardEntriesGauge: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: keyword.ShardEntriesMetricName,
			Help: "Number of entries stored per shard.",
		}, []string{"shard"}),
		storeHitsCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.StoreHitsMetricName,
			Help: "Number of store reads which found the key.",
		}),
		storeMissesCounter: prometheus.NewCounter(prometheus.CounterOpts{
			Name: keyword.StoreMissesMetricName,
			Help: "Number of store reads which missed the key.",
		}),
	}

	if err := prometheus.Register(m.totalRequestsCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.totalResponsesCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.responseStatusesCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.responseTimeMsCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.mapEntriesGauge); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.mapCapacityGauge); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.shardEntriesGauge); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.storeHitsCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}
	if err := prometheus.Register(m.storeMissesCounter); err != nil {
		log.Err(err).Msg(MetricRegisterErrorMessage)
		return nil, errors.New(MetricRegisterErrorMessage)
	}

	return m, nil
}

// IncTotal method is increments request/response total counters and depends on
// *status* argument (numeric or empty string available).
// If the *status* argument is empty string then will be used request_counter,
// in other way will be used response_counter.
func (m *Metrics) IncTotal(path string, method string, status string) {
	if status != "" {
		if err := validator.ValidateStrStatusCode(status); err != nil {
			panic(err)
		}
		m.totalResponsesCounter.With(
			prometheus.Labels{
				"path":   path,
				"method": method,
				"status": status,
			},
		).Inc()
		return
	}
	m.totalRequestsCounter.With(
		prometheus.Labels{
			"path":   path,
			"method": method,
		},
	).Inc()
}

func (m *Metrics) IncStatus(path string, method string, status string) {
	if err := validator.ValidateStrStatusCode(status); err != nil {
		panic(err)
	}

	m.responseStatusesCounter.With(
		prometheus.Labels{
			"path":   path,
			"method": method,
			"status": status,
		},
	).Inc()
}

func (m *Metrics) NewResponseTimeTimer(path string, method string) *prometheus.Timer {
	return prometheus.NewTimer(m.responseTimeMsCounter.WithLabelValues(path, method))
}

func (m *Metrics) FlushResponseTimeTimer(t *prometheus.Timer) {
	t.ObserveDuration()
}

func (m *Metrics) SetMapEntries(n int) {
	m.mapEntriesGauge.Set(float64(n))
}

func (m *Metrics) SetMapCapacity(n int) {
	m.mapCapacityGauge.Set(float64(n))
}

func (m *Metrics) SetShardEntries(shard string, n int) {
	m.shardEntriesGauge.WithLabelValues(shard).Set(float64(n))
}

func (m *Metrics) IncStoreHit() {
	m.storeHitsCounter.Inc()
}

func (m *Metrics) IncStoreMiss() {
	m.storeMissesCounter.Inc()
}
