package cache

import (
	"github.com/vmihailenco/msgpack/v5"
)

// Entries are stored encoded. Every Get decodes a private copy, so callers
// can never mutate a cached value in place or observe a partially built one.

func encode[T any](value T) ([]byte, error) {
	return msgpack.Marshal(value)
}

func decode[T any](data []byte) (T, error) {
	var value T
	err := msgpack.Unmarshal(data, &value)
	return value, err
}
