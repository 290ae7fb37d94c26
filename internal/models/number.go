package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
)

// Number is an optional numeric field from the Oura API. The provider is not
// consistent about types, so anything other than a finite JSON number decodes
// as absent instead of failing the whole record.
type Number struct {
	Value float64
	Valid bool
}

// Num returns a present Number.
func Num(v float64) Number {
	return Number{Value: v, Valid: true}
}

// Get returns the value and whether it is present and finite.
func (n Number) Get() (float64, bool) {
	if !n.Valid || math.IsNaN(n.Value) || math.IsInf(n.Value, 0) {
		return 0, false
	}
	return n.Value, true
}

// Or0 returns the value, or 0 when absent.
func (n Number) Or0() float64 {
	v, _ := n.Get()
	return v
}

func (n *Number) UnmarshalJSON(data []byte) error {
	*n = Number{}
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] == 'n' || data[0] == '"' || data[0] == '{' || data[0] == '[' || data[0] == 't' || data[0] == 'f' {
		return nil
	}
	v, err := strconv.ParseFloat(string(data), 64)
	if err != nil {
		return nil
	}
	*n = Num(v)
	return nil
}

func (n Number) MarshalJSON() ([]byte, error) {
	v, ok := n.Get()
	if !ok {
		return []byte("null"), nil
	}
	return json.Marshal(v)
}
