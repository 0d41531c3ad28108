package db

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cast"
)

// Record is one result row keyed by column name, in select-list order.
type Record struct {
	columns []string
	values  []interface{}
	index   map[string]int
}

// NewRecord builds a Record. []byte values are stored as strings.
func NewRecord(columns []string, values []interface{}) Record {
	idx := make(map[string]int, len(columns))
	for i, c := range columns {
		if _, dup := idx[c]; !dup {
			idx[c] = i
		}
		if b, ok := values[i].([]byte); ok {
			values[i] = string(b)
		}
	}
	return Record{columns: columns, values: values, index: idx}
}

// Columns returns the column names in order.
func (r Record) Columns() []string {
	return r.columns
}

// Len returns the number of columns.
func (r Record) Len() int {
	return len(r.columns)
}

// Has reports whether the record carries the column.
func (r Record) Has(name string) bool {
	_, ok := r.index[name]
	return ok
}

// Get returns the raw value of a column.
func (r Record) Get(name string) (interface{}, bool) {
	i, ok := r.index[name]
	if !ok {
		return nil, false
	}
	return r.values[i], true
}

// Value returns the raw value of a column, or nil.
func (r Record) Value(name string) interface{} {
	v, _ := r.Get(name)
	return v
}

// IsNull reports whether the column is missing or SQL NULL.
func (r Record) IsNull(name string) bool {
	return r.Value(name) == nil
}

func (r Record) String(name string) string {
	return cast.ToString(r.Value(name))
}

func (r Record) Int64(name string) int64 {
	return cast.ToInt64(r.Value(name))
}

func (r Record) Uint(name string) uint {
	return cast.ToUint(r.Value(name))
}

// NullUint returns nil for SQL NULL.
func (r Record) NullUint(name string) *uint {
	if r.IsNull(name) {
		return nil
	}
	v := r.Uint(name)
	return &v
}

func (r Record) Bool(name string) bool {
	return cast.ToBool(r.Value(name))
}

// Time returns the column as UTC time; zero time for NULL or unparsable values.
func (r Record) Time(name string) time.Time {
	t, err := cast.ToTimeE(r.Value(name))
	if err != nil {
		return time.Time{}
	}
	return t.UTC()
}

// NullTime returns nil for SQL NULL.
func (r Record) NullTime(name string) *time.Time {
	if r.IsNull(name) {
		return nil
	}
	t := r.Time(name)
	return &t
}

// Decimal returns the column as a decimal; zero for NULL or unparsable values.
func (r Record) Decimal(name string) decimal.Decimal {
	switch v := r.Value(name).(type) {
	case nil:
		return decimal.Zero
	case float64:
		return decimal.NewFromFloat(v)
	case float32:
		return decimal.NewFromFloat32(v)
	default:
		d, err := decimal.NewFromString(cast.ToString(v))
		if err != nil {
			return decimal.Zero
		}
		return d
	}
}

// Map copies the record into a plain map.
func (r Record) Map() map[string]interface{} {
	m := make(map[string]interface{}, len(r.columns))
	for i, c := range r.columns {
		m[c] = r.values[i]
	}
	return m
}

// MarshalJSON encodes the record as an object, keeping column order.
func (r Record) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, c := range r.columns {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(c)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(r.values[i])
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}
