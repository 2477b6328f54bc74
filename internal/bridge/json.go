// Package bridge converts between encoded bytes and the intermediate value
// tree. The codec engine itself never sees source text; these converters are
// its external collaborators.
package bridge

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/wouanagaine/treecodec/internal/codecerr"
	"github.com/wouanagaine/treecodec/internal/value"
)

// DecodeJSON parses JSON bytes into a value tree. Record keys keep their
// order of appearance in the source text, and numbers are read through
// json.Number so no precision is lost before the float64 coercion.
func DecodeJSON(data []byte) (*value.Value, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, codecerr.New(codecerr.KindParse, "input is empty or contains only whitespace")
	}

	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	v, err := decodeJSONValue(dec)
	if err != nil {
		var syntaxError *json.SyntaxError
		if errors.As(err, &syntaxError) {
			return nil, codecerr.Wrap(codecerr.KindParse,
				fmt.Sprintf("JSON syntax error at offset %d", syntaxError.Offset), err)
		}
		return nil, codecerr.Wrap(codecerr.KindParse, "failed to decode JSON", err)
	}
	if dec.More() {
		return nil, codecerr.New(codecerr.KindParse, "multiple JSON values found at the root")
	}
	return v, nil
}

// DecodeJSONString parses JSON from a string.
func DecodeJSONString(s string) (*value.Value, error) {
	return DecodeJSON([]byte(s))
}

// decodeJSONValue reads one value from the token stream. Walking tokens
// instead of unmarshalling into map[string]any is what preserves key order.
func decodeJSONValue(dec *json.Decoder) (*value.Value, error) {
	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			rec := value.NewRecord()
			for dec.More() {
				keyTok, err := dec.Token()
				if err != nil {
					return nil, err
				}
				key, ok := keyTok.(string)
				if !ok {
					return nil, fmt.Errorf("object key is %T, not a string", keyTok)
				}
				child, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				rec.Set(key, child)
			}
			// Consume the closing brace.
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return rec, nil
		case '[':
			seq := value.NewSequence()
			for dec.More() {
				child, err := decodeJSONValue(dec)
				if err != nil {
					return nil, err
				}
				seq.Append(child)
			}
			if _, err := dec.Token(); err != nil {
				return nil, err
			}
			return seq, nil
		default:
			return nil, fmt.Errorf("unexpected delimiter %q", t)
		}
	case bool:
		return value.Bool(t), nil
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %q does not fit a float64: %w", t.String(), err)
		}
		return value.Number(f), nil
	case string:
		return value.String(t), nil
	case nil:
		return value.Null(), nil
	default:
		return nil, fmt.Errorf("unexpected token %v", tok)
	}
}

// EncodeJSON renders a value tree as compact JSON. Record entries are
// emitted in stored order.
func EncodeJSON(v *value.Value) ([]byte, error) {
	return encodeJSON(v, "")
}

// EncodeJSONIndent renders a value tree as indented JSON.
func EncodeJSONIndent(v *value.Value, indent string) ([]byte, error) {
	return encodeJSON(v, indent)
}

func encodeJSON(v *value.Value, indent string) ([]byte, error) {
	var buf bytes.Buffer
	if err := writeJSONValue(&buf, v, indent, 0); err != nil {
		return nil, codecerr.Wrap(codecerr.KindEncode, "failed to encode JSON", err)
	}
	return buf.Bytes(), nil
}

func writeJSONValue(buf *bytes.Buffer, v *value.Value, indent string, depth int) error {
	if v.IsNull() {
		buf.WriteString("null")
		return nil
	}

	switch v.Kind() {
	case value.KindBool:
		buf.WriteString(strconv.FormatBool(v.BoolVal()))
	case value.KindNumber:
		return writeJSONNumber(buf, v.NumberVal())
	case value.KindString:
		escaped, err := json.Marshal(v.StringVal())
		if err != nil {
			return err
		}
		buf.Write(escaped)
	case value.KindSequence:
		buf.WriteByte('[')
		for i, elem := range v.Elements() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeNewlineIndent(buf, indent, depth+1)
			if err := writeJSONValue(buf, elem, indent, depth+1); err != nil {
				return err
			}
		}
		if v.Len() > 0 {
			writeNewlineIndent(buf, indent, depth)
		}
		buf.WriteByte(']')
	case value.KindRecord:
		buf.WriteByte('{')
		for i, e := range v.Entries() {
			if i > 0 {
				buf.WriteByte(',')
			}
			writeNewlineIndent(buf, indent, depth+1)
			escaped, err := json.Marshal(e.Key)
			if err != nil {
				return err
			}
			buf.Write(escaped)
			buf.WriteByte(':')
			if indent != "" {
				buf.WriteByte(' ')
			}
			if err := writeJSONValue(buf, e.Value, indent, depth+1); err != nil {
				return err
			}
		}
		if v.Len() > 0 {
			writeNewlineIndent(buf, indent, depth)
		}
		buf.WriteByte('}')
	}
	return nil
}

// writeJSONNumber emits integral values without a fractional part so that
// round-tripped integers look like integers.
func writeJSONNumber(buf *bytes.Buffer, f float64) error {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fmt.Errorf("value %v has no JSON representation", f)
	}
	if f == math.Trunc(f) && math.Abs(f) < 1e15 {
		buf.WriteString(strconv.FormatInt(int64(f), 10))
		return nil
	}
	buf.WriteString(strconv.FormatFloat(f, 'g', -1, 64))
	return nil
}

func writeNewlineIndent(buf *bytes.Buffer, indent string, depth int) {
	if indent == "" {
		return
	}
	buf.WriteByte('\n')
	buf.WriteString(strings.Repeat(indent, depth))
}
