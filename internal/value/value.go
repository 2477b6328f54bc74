// Package value defines the dynamically-typed intermediate tree shared by
// both codec directions. A Value is one of: null, bool, number, string,
// sequence, or record. Records keep their keys in insertion order so that
// textual output is deterministic and field order survives a round trip.
package value

import (
	"fmt"
	"strconv"
)

// Kind identifies which variant a Value holds.
type Kind uint8

const (
	KindNull Kind = iota
	KindBool
	KindNumber
	KindString
	KindSequence
	KindRecord
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindNull:
		return "null"
	case KindBool:
		return "bool"
	case KindNumber:
		return "number"
	case KindString:
		return "string"
	case KindSequence:
		return "sequence"
	case KindRecord:
		return "record"
	default:
		return "unknown"
	}
}

// Entry is a single key/value pair in a record.
type Entry struct {
	Key   string
	Value *Value
}

// Value is the tagged-union node of the intermediate tree. All numbers are
// stored as float64 regardless of the source integer/float distinction.
type Value struct {
	kind Kind

	boolVal bool
	numVal  float64
	strVal  string

	seqVal []*Value

	// recVal keeps insertion order; recIdx maps key to its slot in recVal.
	recVal []Entry
	recIdx map[string]int
}

// Null returns the null value.
func Null() *Value {
	return &Value{kind: KindNull}
}

// Bool returns a boolean value.
func Bool(b bool) *Value {
	return &Value{kind: KindBool, boolVal: b}
}

// Number returns a numeric value.
func Number(f float64) *Value {
	return &Value{kind: KindNumber, numVal: f}
}

// String returns a string value.
func String(s string) *Value {
	return &Value{kind: KindString, strVal: s}
}

// NewSequence returns a sequence holding the given elements in order.
func NewSequence(elems ...*Value) *Value {
	return &Value{kind: KindSequence, seqVal: elems}
}

// NewRecord returns an empty record.
func NewRecord() *Value {
	return &Value{kind: KindRecord, recIdx: make(map[string]int)}
}

// Kind reports which variant this value holds.
func (v *Value) Kind() Kind {
	if v == nil {
		return KindNull
	}
	return v.kind
}

// IsNull reports whether the value is null (or a nil pointer).
func (v *Value) IsNull() bool {
	return v == nil || v.kind == KindNull
}

// BoolVal returns the boolean payload. Valid only for KindBool.
func (v *Value) BoolVal() bool { return v.boolVal }

// NumberVal returns the numeric payload. Valid only for KindNumber.
func (v *Value) NumberVal() float64 { return v.numVal }

// StringVal returns the string payload. Valid only for KindString.
func (v *Value) StringVal() string { return v.strVal }

// Len returns the number of elements in a sequence or entries in a record,
// and 0 for every other kind.
func (v *Value) Len() int {
	switch v.kind {
	case KindSequence:
		return len(v.seqVal)
	case KindRecord:
		return len(v.recVal)
	default:
		return 0
	}
}

// Append adds an element to the end of a sequence.
func (v *Value) Append(elem *Value) {
	if v.kind != KindSequence {
		panic(fmt.Sprintf("value: Append on %s", v.kind))
	}
	v.seqVal = append(v.seqVal, elem)
}

// At returns the i'th element of a sequence.
func (v *Value) At(i int) *Value {
	return v.seqVal[i]
}

// Elements returns the sequence's backing slice. Callers must not modify it.
func (v *Value) Elements() []*Value {
	return v.seqVal
}

// Set inserts or replaces a record entry. New keys go to the end, keeping
// insertion order; existing keys are updated in place.
func (v *Value) Set(key string, val *Value) {
	if v.kind != KindRecord {
		panic(fmt.Sprintf("value: Set on %s", v.kind))
	}
	if i, ok := v.recIdx[key]; ok {
		v.recVal[i].Value = val
		return
	}
	v.recIdx[key] = len(v.recVal)
	v.recVal = append(v.recVal, Entry{Key: key, Value: val})
}

// Get returns the record entry for key, if present.
func (v *Value) Get(key string) (*Value, bool) {
	if v == nil || v.kind != KindRecord {
		return nil, false
	}
	if i, ok := v.recIdx[key]; ok {
		return v.recVal[i].Value, true
	}
	return nil, false
}

// Entries returns the record's entries in insertion order. Callers must not
// modify the returned slice.
func (v *Value) Entries() []Entry {
	return v.recVal
}

// Keys returns the record's keys in insertion order.
func (v *Value) Keys() []string {
	keys := make([]string, len(v.recVal))
	for i, e := range v.recVal {
		keys[i] = e.Key
	}
	return keys
}

// Equal reports structural equality. Records compare by key set and
// per-key values; entry order does not affect equality.
func Equal(a, b *Value) bool {
	if a.IsNull() || b.IsNull() {
		return a.IsNull() && b.IsNull()
	}
	if a.kind != b.kind {
		return false
	}
	switch a.kind {
	case KindBool:
		return a.boolVal == b.boolVal
	case KindNumber:
		return a.numVal == b.numVal
	case KindString:
		return a.strVal == b.strVal
	case KindSequence:
		if len(a.seqVal) != len(b.seqVal) {
			return false
		}
		for i := range a.seqVal {
			if !Equal(a.seqVal[i], b.seqVal[i]) {
				return false
			}
		}
		return true
	case KindRecord:
		if len(a.recVal) != len(b.recVal) {
			return false
		}
		for _, e := range a.recVal {
			other, ok := b.Get(e.Key)
			if !ok || !Equal(e.Value, other) {
				return false
			}
		}
		return true
	default:
		return false
	}
}

// String renders a compact debug representation. Not a JSON encoder; use the
// bridge package for interchange output.
func (v *Value) String() string {
	if v.IsNull() {
		return "null"
	}
	switch v.kind {
	case KindBool:
		return strconv.FormatBool(v.boolVal)
	case KindNumber:
		return strconv.FormatFloat(v.numVal, 'g', -1, 64)
	case KindString:
		return strconv.Quote(v.strVal)
	case KindSequence:
		s := "["
		for i, e := range v.seqVal {
			if i > 0 {
				s += ", "
			}
			s += e.String()
		}
		return s + "]"
	case KindRecord:
		s := "{"
		for i, e := range v.recVal {
			if i > 0 {
				s += ", "
			}
			s += strconv.Quote(e.Key) + ": " + e.Value.String()
		}
		return s + "}"
	default:
		return "unknown"
	}
}
