package tabular

import (
	"context"
	"fmt"
)

// Backend stores named tables with spreadsheet semantics. Tables are created
// lazily by the first Create, whose field names become the header row. Ids are
// row ordinals among data rows and shift down after a Delete.
type Backend interface {
	Read(ctx context.Context, table string) (*Sheet, error)
	Create(ctx context.Context, table string, fields Fields) error
	Update(ctx context.Context, table string, id int, fields Fields) error
	Delete(ctx context.Context, table string, id int) error
}

// Sheet is a header row plus data rows.
type Sheet struct {
	Headers []string
	Rows    [][]any
}

// NewSheet starts an empty table whose header is the first write's keys.
func NewSheet(first Fields) *Sheet {
	return &Sheet{Headers: first.Names()}
}

// SheetRow is the 1-based sheet row holding record id (row 1 is the header).
func SheetRow(id int) int { return id + 1 }

// Len is the number of data rows.
func (s *Sheet) Len() int { return len(s.Rows) }

// Records returns the rows keyed by header, each carrying its ordinal id.
func (s *Sheet) Records() []Record {
	out := make([]Record, 0, len(s.Rows))
	for i, row := range s.Rows {
		rec := Record{IDKey: i + 1}
		for j, h := range s.Headers {
			if j < len(row) {
				rec[h] = row[j]
			} else {
				rec[h] = ""
			}
		}
		out = append(out, rec)
	}
	return out
}

// RowFor lays fields out in header order. Absent or null values become "";
// fields without a header are dropped.
func (s *Sheet) RowFor(f Fields) []any {
	row := make([]any, len(s.Headers))
	for i, h := range s.Headers {
		v, ok := f.Get(h)
		if !ok || v == nil {
			v = ""
		}
		row[i] = v
	}
	return row
}

// Append adds a row built by RowFor.
func (s *Sheet) Append(f Fields) {
	s.Rows = append(s.Rows, s.RowFor(f))
}

// CheckID validates that id addresses an existing data row.
func (s *Sheet) CheckID(id int) error {
	if id < 1 {
		return fmt.Errorf("%w: %d", ErrInvalidID, id)
	}
	if id > len(s.Rows) {
		return fmt.Errorf("%w: %d", ErrRowNotFound, id)
	}
	return nil
}

// Patch returns a copy of row with only the columns named in f replaced.
func (s *Sheet) Patch(row []any, f Fields) []any {
	out := make([]any, len(s.Headers))
	copy(out, row)
	for i := len(row); i < len(out); i++ {
		out[i] = ""
	}
	for i, h := range s.Headers {
		if v, ok := f.Get(h); ok {
			out[i] = v
		}
	}
	return out
}

// Update sets the columns present in f on row id.
func (s *Sheet) Update(id int, f Fields) error {
	if err := s.CheckID(id); err != nil {
		return err
	}
	s.Rows[id-1] = s.Patch(s.Rows[id-1], f)
	return nil
}

// Delete removes row id; every later row moves up by one.
func (s *Sheet) Delete(id int) error {
	if err := s.CheckID(id); err != nil {
		return err
	}
	s.Rows = append(s.Rows[:id-1], s.Rows[id:]...)
	return nil
}

// Clone deep-copies headers and rows.
func (s *Sheet) Clone() *Sheet {
	c := &Sheet{Headers: append([]string{}, s.Headers...), Rows: make([][]any, len(s.Rows))}
	for i, r := range s.Rows {
		c.Rows[i] = append([]any{}, r...)
	}
	return c
}
