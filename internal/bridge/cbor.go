package bridge

import (
	"fmt"
	"reflect"
	"sort"

	"github.com/fxamacker/cbor/v2"
	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/value"
)

// encMode is the CBOR encoder configured with Core Deterministic Encoding
// (RFC 8949 §4.2): the same tree always produces identical bytes.
var encMode cbor.EncMode

// decMode is the CBOR decoder. Map targets decode as map[string]any since
// the value tree only has string keys.
var decMode cbor.DecMode

func init() {
	var err error
	encMode, err = cbor.CoreDetEncOptions().EncMode()
	if err != nil {
		panic("bridge: CBOR encoder initialization failed: " + err.Error())
	}
	decMode, err = cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic("bridge: CBOR decoder initialization failed: " + err.Error())
	}
}

// EncodeCBOR renders a value tree as deterministic CBOR. CBOR maps have no
// defined order, so record key order does not survive this encoding.
func EncodeCBOR(v *value.Value) ([]byte, error) {
	data, err := encMode.Marshal(toNative(v))
	if err != nil {
		return nil, codecerr.Wrap(codecerr.KindEncode, "failed to encode CBOR", err)
	}
	return data, nil
}

// DecodeCBOR parses CBOR bytes into a value tree. Record keys come back in
// sorted order.
func DecodeCBOR(data []byte) (*value.Value, error) {
	var raw any
	if err := decMode.Unmarshal(data, &raw); err != nil {
		return nil, codecerr.Wrap(codecerr.KindParse, "failed to decode CBOR", err)
	}
	v, err := fromNative(raw)
	if err != nil {
		return nil, codecerr.Wrap(codecerr.KindParse, "unsupported CBOR content", err)
	}
	return v, nil
}

// toNative lowers a tree into plain Go containers for the CBOR encoder.
func toNative(v *value.Value) any {
	if v.IsNull() {
		return nil
	}
	switch v.Kind() {
	case value.KindBool:
		return v.BoolVal()
	case value.KindNumber:
		return v.NumberVal()
	case value.KindString:
		return v.StringVal()
	case value.KindSequence:
		out := make([]any, 0, v.Len())
		for _, elem := range v.Elements() {
			out = append(out, toNative(elem))
		}
		return out
	default:
		out := make(map[string]any, v.Len())
		for _, e := range v.Entries() {
			out[e.Key] = toNative(e.Value)
		}
		return out
	}
}

// fromNative lifts decoded CBOR content into a tree. All integer widths
// collapse into the tree's single float64 number kind.
func fromNative(raw any) (*value.Value, error) {
	switch t := raw.(type) {
	case nil:
		return value.Null(), nil
	case bool:
		return value.Bool(t), nil
	case int64:
		return value.Number(float64(t)), nil
	case uint64:
		return value.Number(float64(t)), nil
	case float32:
		return value.Number(float64(t)), nil
	case float64:
		return value.Number(t), nil
	case string:
		return value.String(t), nil
	case []any:
		seq := value.NewSequence()
		for _, elem := range t {
			child, err := fromNative(elem)
			if err != nil {
				return nil, err
			}
			seq.Append(child)
		}
		return seq, nil
	case map[string]any:
		keys := make([]string, 0, len(t))
		for k := range t {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		rec := value.NewRecord()
		for _, k := range keys {
			child, err := fromNative(t[k])
			if err != nil {
				return nil, err
			}
			rec.Set(k, child)
		}
		return rec, nil
	default:
		return nil, fmt.Errorf("cannot represent %T in the value tree", raw)
	}
}
