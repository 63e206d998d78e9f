package cache

import (
	"bytes"
	"encoding/gob"
	"fmt"

	"github.com/goccy/go-json"
)

// Codec converts item values to and from the bytes kept by the backing store.
type Codec[V any] interface {
	Encode(value V) ([]byte, error)
	Decode(data []byte) (V, error)
}

// JSONCodec encodes values as JSON.
type JSONCodec[V any] struct{}

func (JSONCodec[V]) Encode(value V) ([]byte, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return nil, fmt.Errorf("marshal value: %w", err)
	}
	return data, nil
}

func (JSONCodec[V]) Decode(data []byte) (V, error) {
	var value V
	if err := json.Unmarshal(data, &value); err != nil {
		return value, fmt.Errorf("unmarshal value: %w", err)
	}
	return value, nil
}

// GobCodec encodes values with encoding/gob. Interface-typed values must be
// registered with gob.Register by the caller.
type GobCodec[V any] struct{}

func (GobCodec[V]) Encode(value V) ([]byte, error) {
	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(&value); err != nil {
		return nil, fmt.Errorf("gob encode value: %w", err)
	}
	return buf.Bytes(), nil
}

func (GobCodec[V]) Decode(data []byte) (V, error) {
	var value V
	if err := gob.NewDecoder(bytes.NewReader(data)).Decode(&value); err != nil {
		return value, fmt.Errorf("gob decode value: %w", err)
	}
	return value, nil
}

// BytesCodec passes raw byte payloads through unchanged.
type BytesCodec struct{}

func (BytesCodec) Encode(value []byte) ([]byte, error) {
	return append([]byte(nil), value...), nil
}

func (BytesCodec) Decode(data []byte) ([]byte, error) {
	return append([]byte(nil), data...), nil
}
