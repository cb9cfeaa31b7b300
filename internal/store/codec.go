package store

import (
	"encoding/json"

	"github.com/vmihailenco/msgpack/v5"
)

// Codec is an interface for encoding and decoding data.
// It is used to abstract away the underlying serialization format.
// This allows for flexibility in choosing the serialization format without changing the implementation of the store.
// The default codec is MessagePack.
type Codec interface {
	// Marshal encodes the given value into a byte slice.
	Marshal(v any) ([]byte, error)
	// Unmarshal decodes the given byte slice into the provided value.
	Unmarshal(data []byte, v any) error
}

// DefaultCodec is MessagePack.
var DefaultCodec Codec = msgpackCodec{}

type msgpackCodec struct{}

func (msgpackCodec) Marshal(v any) ([]byte, error) {
	return msgpack.Marshal(v)
}

func (msgpackCodec) Unmarshal(b []byte, v any) error {
	return msgpack.Unmarshal(b, v)
}

// JSONCodec stores revisions as JSON, which is larger but readable with any
// bbolt browser.
var JSONCodec Codec = jsonCodec{}

type jsonCodec struct{}

func (jsonCodec) Marshal(v any) ([]byte, error) {
	return json.Marshal(v)
}

func (jsonCodec) Unmarshal(b []byte, v any) error {
	return json.Unmarshal(b, v)
}
