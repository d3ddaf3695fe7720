// Package serde wraps the JSON codec used on the stack's RPC socket.
package serde

import "github.com/ugorji/go/codec"

var jsonHandle = newHandle()

func newHandle() *codec.JsonHandle {
	h := &codec.JsonHandle{}
	h.TypeInfos = codec.NewTypeInfos([]string{"json"})

	return h
}

// Marshal encodes a value as JSON.
func Marshal[T any](v T) ([]byte, error) {
	var out []byte
	err := codec.NewEncoderBytes(&out, jsonHandle).Encode(v)

	return out, err
}

// Unmarshal decodes JSON into the given value.
func Unmarshal[T any](data []byte, into T) error {
	return codec.NewDecoderBytes(data, jsonHandle).Decode(into)
}
