package observation

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strings"
)

type slot struct {
	kind Kind // zero until written
	b    bool
	i    int64
}

// Vector is one tick's worth of semantic feature values.
// The zero value has no channel set. Vectors are plain values: copying one
// yields an independent snapshot.
type Vector struct {
	slots [NumChannels]slot
}

// New returns an empty vector.
func New() Vector {
	return Vector{}
}

// Zero returns a total vector with every bool false and every int 0,
// except WhoTalking which is SelfID.
func Zero() Vector {
	var v Vector
	for _, ch := range Channels() {
		switch ch.Kind() {
		case KindBool:
			v.SetBool(ch, false)
		case KindInt:
			v.SetInt(ch, 0)
		}
	}
	v.SetInt(WhoTalking, SelfID)
	return v
}

// SetBool writes a boolean to ch. Writing a bool to an int channel is kept
// and reported by Validate.
func (v *Vector) SetBool(ch Channel, b bool) {
	if !ch.Valid() {
		return
	}
	v.slots[ch] = slot{kind: KindBool, b: b}
}

// SetInt writes an integer to ch. Writing an int to a bool channel is kept
// and reported by Validate.
func (v *Vector) SetInt(ch Channel, i int64) {
	if !ch.Valid() {
		return
	}
	v.slots[ch] = slot{kind: KindInt, i: i}
}

// Bool reads a bool channel. Unset or mistyped slots read as false.
func (v Vector) Bool(ch Channel) bool {
	if !ch.Valid() || v.slots[ch].kind != KindBool {
		return false
	}
	return v.slots[ch].b
}

// Int reads an int channel. Unset or mistyped slots read as 0.
func (v Vector) Int(ch Channel) int64 {
	if !ch.Valid() || v.slots[ch].kind != KindInt {
		return 0
	}
	return v.slots[ch].i
}

// IsSet reports whether ch has been written.
func (v Vector) IsSet(ch Channel) bool {
	return ch.Valid() && v.slots[ch].kind != 0
}

// Validate checks that every channel holds a value of its declared kind and
// that time_since_last_activity is not negative.
func (v Vector) Validate() error {
	for _, ch := range Channels() {
		s := v.slots[ch]
		switch {
		case s.kind == 0:
			return &ValidationError{Index: int(ch), Reason: "missing value"}
		case s.kind != ch.Kind():
			return &ValidationError{
				Index:  int(ch),
				Reason: fmt.Sprintf("got %s, want %s", s.kind, ch.Kind()),
			}
		case ch == TimeSinceLastActivity && s.i < 0:
			return &ValidationError{
				Index:  int(ch),
				Reason: fmt.Sprintf("negative elapsed time %d", s.i),
			}
		}
	}
	return nil
}

// Slice encodes the vector as the ordered wire tuple. Unset slots are nil.
func (v Vector) Slice() []any {
	out := make([]any, NumChannels)
	for i, s := range v.slots {
		switch s.kind {
		case KindBool:
			out[i] = s.b
		case KindInt:
			out[i] = s.i
		}
	}
	return out
}

// Map returns the vector keyed by channel name, for display.
func (v Vector) Map() map[string]any {
	vals := v.Slice()
	out := make(map[string]any, NumChannels)
	for i, val := range vals {
		out[Channel(i).String()] = val
	}
	return out
}

// String renders the vector as name=value pairs in wire order.
func (v Vector) String() string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, val := range v.Slice() {
		if i > 0 {
			sb.WriteByte(' ')
		}
		fmt.Fprintf(&sb, "%s=%v", Channel(i), val)
	}
	sb.WriteByte(']')
	return sb.String()
}

// FromSlice decodes an ordered wire tuple. It fails with a *ValidationError
// when the length is not NumChannels or a slot has the wrong type.
func FromSlice(values []any) (Vector, error) {
	var v Vector
	if len(values) != NumChannels {
		return v, &ValidationError{
			Index:  -1,
			Reason: fmt.Sprintf("got %d slots, want %d", len(values), NumChannels),
		}
	}
	for i, raw := range values {
		ch := Channel(i)
		switch ch.Kind() {
		case KindBool:
			b, ok := raw.(bool)
			if !ok {
				return Vector{}, &ValidationError{Index: i, Reason: fmt.Sprintf("got %T, want bool", raw)}
			}
			v.SetBool(ch, b)
		case KindInt:
			n, ok := toInt(raw)
			if !ok {
				return Vector{}, &ValidationError{Index: i, Reason: fmt.Sprintf("got %T, want int", raw)}
			}
			v.SetInt(ch, n)
		}
	}
	return v, nil
}

func toInt(raw any) (int64, bool) {
	switch n := raw.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	case uint64:
		if n > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case uint:
		if uint64(n) > math.MaxInt64 {
			return 0, false
		}
		return int64(n), true
	case float64:
		if n != math.Trunc(n) || math.IsInf(n, 0) || math.IsNaN(n) {
			return 0, false
		}
		return int64(n), true
	case json.Number:
		i, err := n.Int64()
		return i, err == nil
	default:
		return 0, false
	}
}

// MarshalJSON encodes the vector as a JSON array in wire order.
func (v Vector) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.Slice())
}

// UnmarshalJSON decodes a JSON array in wire order and validates it.
func (v *Vector) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw []any
	if err := dec.Decode(&raw); err != nil {
		return fmt.Errorf("observation: decode vector: %w", err)
	}
	decoded, err := FromSlice(raw)
	if err != nil {
		return err
	}
	*v = decoded
	return nil
}
