package keyword

const (
	TotalHttpRequestsMetricName    = "http_requests_total"
	TotalHttpResponsesMetricName   = "http_responses_total"
	HttpResponseStatusesMetricName = "http_response_statuses"
	HttpResponseTimeMsMetricName   = "http_response_time_ms"
	MapEntriesMetricName           = "shardmap_entries"
	MapCapacityMetricName          = "shardmap_capacity"
	ShardEntriesMetricName         = "shardmap_shard_entries"
	StoreHitsMetricName            = "shardmap_store_hits_total"
	StoreMissesMetricName          = "shardmap_store_misses_total"
)
