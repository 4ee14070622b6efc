package patch

import (
	"encoding/json"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// buildOpcodeArray assembles the wire-agnostic [updateOpcode, patch...]
// structure shared by opcodeJsonArray and opcodeMessagePack.
func (e *Encoder) buildOpcodeArray(update StateUpdate, scope Scope) ([]interface{}, error) {
	forceDefine := update.Kind == KindFirstSync
	prepared, err := e.preparePatches(update.Patches, scope, forceDefine)
	if err != nil {
		return nil, err
	}

	arr := make([]interface{}, 0, 1+len(prepared))
	arr = append(arr, update.Kind.opcode())
	for _, pp := range prepared {
		if pp.hasValue {
			arr = append(arr, []interface{}{pp.pathRepr, pp.opcode, pp.value})
		} else {
			arr = append(arr, []interface{}{pp.pathRepr, pp.opcode})
		}
	}
	return arr, nil
}

func (e *Encoder) encodeOpcodeArray(update StateUpdate, scope Scope, codec wireCodec) ([]byte, error) {
	arr, err := e.buildOpcodeArray(update, scope)
	if err != nil {
		return nil, err
	}
	switch codec {
	case wireJSON:
		return json.Marshal(arr)
	case wireMsgpack:
		return encodeMsgpack(arr)
	default:
		return nil, fmt.Errorf("patch: unknown wire codec %d", codec)
	}
}

func encodeMsgpack(v interface{}) ([]byte, error) {
	var buf []byte
	w := &byteSliceWriter{buf: &buf}
	enc := msgpack.NewEncoder(w)
	if err := writeMsgpackValue(enc, v); err != nil {
		return nil, err
	}
	return buf, nil
}

// writeMsgpackValue encodes v with deterministic, ASCII-sorted map key
// order, since vmihailenco/msgpack's generic Encode does not guarantee map
// iteration order.
func writeMsgpackValue(enc *msgpack.Encoder, v interface{}) error {
	switch val := v.(type) {
	case nil:
		return enc.EncodeNil()
	case bool:
		return enc.EncodeBool(val)
	case string:
		return enc.EncodeString(val)
	case int:
		return enc.EncodeInt(int64(val))
	case int32:
		return enc.EncodeInt32(val)
	case uint32:
		return enc.EncodeUint32(val)
	case int64:
		return enc.EncodeInt64(val)
	case float64:
		return enc.EncodeFloat64(val)
	case []interface{}:
		if err := enc.EncodeArrayLen(len(val)); err != nil {
			return err
		}
		for _, item := range val {
			if err := writeMsgpackValue(enc, item); err != nil {
				return err
			}
		}
		return nil
	case map[string]interface{}:
		keys := sortedKeys(val)
		if err := enc.EncodeMapLen(len(keys)); err != nil {
			return err
		}
		for _, k := range keys {
			if err := enc.EncodeString(k); err != nil {
				return err
			}
			if err := writeMsgpackValue(enc, val[k]); err != nil {
				return err
			}
		}
		return nil
	default:
		return enc.Encode(val)
	}
}

// byteSliceWriter adapts a *[]byte to io.Writer for msgpack.NewEncoder.
type byteSliceWriter struct {
	buf *[]byte
}

func (w *byteSliceWriter) Write(p []byte) (int, error) {
	*w.buf = append(*w.buf, p...)
	return len(p), nil
}
