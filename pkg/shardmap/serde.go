package shardmap

import "encoding/json"

// MarshalJSON serializes the map as a plain K → V JSON object. Shards are
// read-locked one at a time, so the serialized view is weakly consistent
// the same way iteration is. Shard layout is not part of the encoding.
func (m *Map[K, V]) MarshalJSON() ([]byte, error) {
	plain := make(map[K]V, m.Len())
	m.Range(func(k K, v V) bool {
		plain[k] = v
		return true
	})
	return json.Marshal(plain)
}

// UnmarshalJSON inserts every pair of a K → V JSON object into the map.
// Existing entries with colliding keys are replaced. The receiver must
// already be constructed; the shard layout of the source map, if any, is
// not restored.
func (m *Map[K, V]) UnmarshalJSON(data []byte) error {
	plain := make(map[K]V)
	if err := json.Unmarshal(data, &plain); err != nil {
		return err
	}
	for k, v := range plain {
		m.Insert(k, v)
	}
	return nil
}
