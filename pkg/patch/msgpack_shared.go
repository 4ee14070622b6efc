package patch

import (
	"bytes"

	"github.com/vmihailenco/msgpack/v5"
)

// EncodeMsgpackValue encodes v to MessagePack with deterministic,
// ASCII-sorted map key order. Exported so pkg/wire can reuse the same
// deterministic encoding for its own opcode-array wire envelopes.
func EncodeMsgpackValue(v interface{}) ([]byte, error) {
	return encodeMsgpack(v)
}

// DecodeMsgpackValue decodes a MessagePack payload into the generic
// interface{} shape (map[string]interface{}, []interface{}, numeric types,
// string, bool, nil) used throughout this module.
func DecodeMsgpackValue(data []byte) (interface{}, error) {
	dec := msgpack.NewDecoder(bytes.NewReader(data))
	return dec.DecodeInterface()
}
