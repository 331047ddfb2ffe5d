package domain

import (
	"encoding/json"
	"strconv"
)

// Kind identifies the concrete type held by a Value.
type Kind int

const (
	KindNull Kind = iota
	KindText
	KindNumber
	KindInteger
)

// Value is one table cell: text, float64, int64, or null.
// The zero Value is null.
type Value struct {
	kind Kind
	text string
	num  float64
	iv   int64
}

// Null returns the null Value.
func Null() Value { return Value{} }

// Text returns a text Value.
func Text(s string) Value { return Value{kind: KindText, text: s} }

// Number returns a float Value.
func Number(f float64) Value { return Value{kind: KindNumber, num: f} }

// Integer returns an integer Value.
func Integer(i int64) Value { return Value{kind: KindInteger, iv: i} }

// Kind reports the concrete type of the cell.
func (v Value) Kind() Kind { return v.kind }

// IsNull reports whether the cell holds no value.
func (v Value) IsNull() bool { return v.kind == KindNull }

// AsText returns the text content and whether the cell is text.
func (v Value) AsText() (string, bool) { return v.text, v.kind == KindText }

// AsNumber returns the float content and whether the cell is a number.
func (v Value) AsNumber() (float64, bool) { return v.num, v.kind == KindNumber }

// AsInteger returns the integer content and whether the cell is an integer.
func (v Value) AsInteger() (int64, bool) { return v.iv, v.kind == KindInteger }

// String renders the cell for display. Null renders as the empty string.
func (v Value) String() string {
	switch v.kind {
	case KindText:
		return v.text
	case KindNumber:
		return strconv.FormatFloat(v.num, 'g', -1, 64)
	case KindInteger:
		return strconv.FormatInt(v.iv, 10)
	default:
		return ""
	}
}

// MarshalJSON encodes null as JSON null, text as a string, and numeric
// kinds as JSON numbers.
func (v Value) MarshalJSON() ([]byte, error) {
	switch v.kind {
	case KindText:
		return json.Marshal(v.text)
	case KindNumber:
		return json.Marshal(v.num)
	case KindInteger:
		return json.Marshal(v.iv)
	default:
		return []byte("null"), nil
	}
}
