package codec

import "encoding/json"

// JSON stores values as plain encoding/json documents, so the cached bytes
// are exactly what the HTTP layer would serve.
type JSON[V any] struct{}

func (JSON[V]) Encode(v V) ([]byte, error) { return json.Marshal(v) }
func (JSON[V]) Decode(b []byte) (V, error) {
	var v V
	err := json.Unmarshal(b, &v)
	return v, err
}
