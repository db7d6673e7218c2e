// Package tabular holds the spreadsheet data model shared by every table
// backend and by the store adapter: header row, data rows addressed by their
// 1-based ordinal, and the response envelopes of the wire protocol.
package tabular

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// IDKey is the synthesized field carrying a record's row ordinal.
const IDKey = "id"

// Record is one data row keyed by header name.
type Record map[string]any

// ID returns the row ordinal synthesized on read, or 0 when absent.
func (r Record) ID() int {
	n, _ := strconv.Atoi(r.String(IDKey))
	return n
}

// String renders a cell the way it would show in the sheet.
func (r Record) String(key string) string {
	return CellString(r[key])
}

// Int parses a numeric cell; blanks and garbage yield 0.
func (r Record) Int(key string) int {
	s := strings.TrimSpace(r.String(key))
	if s == "" {
		return 0
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0
	}
	return int(f)
}

// CellString formats a decoded cell value without float noise.
func CellString(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case json.Number:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}

// Field is one column value of a write.
type Field struct {
	Name  string
	Value any
}

// Fields is an ordered set of column values. The order matters on the first
// insert into a table, where it becomes the header row.
type Fields []Field

// Get returns the value stored under name.
func (f Fields) Get(name string) (any, bool) {
	for _, fl := range f {
		if fl.Name == name {
			return fl.Value, true
		}
	}
	return nil, false
}

// Set replaces the value under name or appends it.
func (f Fields) Set(name string, v any) Fields {
	for i := range f {
		if f[i].Name == name {
			f[i].Value = v
			return f
		}
	}
	return append(f, Field{Name: name, Value: v})
}

// Names lists field names in order.
func (f Fields) Names() []string {
	out := make([]string, 0, len(f))
	for _, fl := range f {
		out = append(out, fl.Name)
	}
	return out
}

// Record converts to an unordered record.
func (f Fields) Record() Record {
	r := make(Record, len(f))
	for _, fl := range f {
		r[fl.Name] = fl.Value
	}
	return r
}

// MarshalJSON writes a JSON object keeping field order.
func (f Fields) MarshalJSON() ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, fl := range f {
		if i > 0 {
			buf.WriteByte(',')
		}
		k, err := json.Marshal(fl.Name)
		if err != nil {
			return nil, err
		}
		v, err := json.Marshal(fl.Value)
		if err != nil {
			return nil, fmt.Errorf("field %s: %w", fl.Name, err)
		}
		buf.Write(k)
		buf.WriteByte(':')
		buf.Write(v)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// UnmarshalJSON reads a JSON object keeping key order.
func (f *Fields) UnmarshalJSON(b []byte) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("fields: expected object, got %v", tok)
	}
	out := Fields{}
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("fields: unexpected key %v", tok)
		}
		var v any
		if err := dec.Decode(&v); err != nil {
			return fmt.Errorf("fields: %s: %w", key, err)
		}
		out = out.Set(key, v)
	}
	if _, err := dec.Token(); err != nil {
		return err
	}
	*f = out
	return nil
}
