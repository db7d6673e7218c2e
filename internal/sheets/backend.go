package sheets

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"athletics-registry/internal/tabular"
)

var _ tabular.Backend = (*Client)(nil)

func (c *Client) Read(ctx context.Context, table string) (*tabular.Sheet, error) {
	_, ok, err := c.sheetID(ctx, table)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, tabular.ErrTableNotFound
	}
	values, err := c.readAll(ctx, table)
	if err != nil {
		return nil, err
	}
	return sheetFromValues(values), nil
}

// Create adds a row, creating the tab and its header from fields when the
// tab is missing or blank.
func (c *Client) Create(ctx context.Context, table string, fields tabular.Fields) error {
	_, ok, err := c.sheetID(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		if len(fields) == 0 {
			return tabular.ErrNoFields
		}
		if err := c.addSheet(ctx, table); err != nil {
			return err
		}
	}

	sh := &tabular.Sheet{}
	if ok {
		values, err := c.readAll(ctx, table)
		if err != nil {
			return err
		}
		sh = sheetFromValues(values)
	}
	if len(sh.Headers) == 0 {
		if len(fields) == 0 {
			return tabular.ErrNoFields
		}
		sh = tabular.NewSheet(fields)
		if err := c.updateRow(ctx, table, 1, toRow(sh.Headers)); err != nil {
			return err
		}
		c.log.Debug("header written", zap.String("sheet", table), zap.Strings("headers", sh.Headers))
	}
	return c.appendRow(ctx, table, sh.RowFor(fields))
}

func (c *Client) Update(ctx context.Context, table string, id int, fields tabular.Fields) error {
	sh, err := c.Read(ctx, table)
	if err != nil {
		return err
	}
	if err := sh.CheckID(id); err != nil {
		return err
	}
	row := sh.Patch(sh.Rows[id-1], fields)
	return c.updateRow(ctx, table, tabular.SheetRow(id), row)
}

func (c *Client) Delete(ctx context.Context, table string, id int) error {
	sid, ok, err := c.sheetID(ctx, table)
	if err != nil {
		return err
	}
	if !ok {
		return tabular.ErrTableNotFound
	}
	values, err := c.readAll(ctx, table)
	if err != nil {
		return err
	}
	if err := sheetFromValues(values).CheckID(id); err != nil {
		return err
	}
	if err := c.deleteRow(ctx, sid, tabular.SheetRow(id)); err != nil {
		return fmt.Errorf("delete %s row %d: %w", table, id, err)
	}
	return nil
}

// sheetFromValues splits a value grid into header and data rows. Trailing
// blank rows returned by the API are dropped.
func sheetFromValues(values [][]interface{}) *tabular.Sheet {
	sh := &tabular.Sheet{}
	if len(values) == 0 {
		return sh
	}
	for _, h := range values[0] {
		sh.Headers = append(sh.Headers, strings.TrimSpace(tabular.CellString(h)))
	}
	rows := values[1:]
	for len(rows) > 0 && blank(rows[len(rows)-1]) {
		rows = rows[:len(rows)-1]
	}
	for _, r := range rows {
		sh.Rows = append(sh.Rows, append([]any{}, r...))
	}
	return sh
}

func blank(row []interface{}) bool {
	for _, v := range row {
		if tabular.CellString(v) != "" {
			return false
		}
	}
	return true
}

func toRow(headers []string) []interface{} {
	out := make([]interface{}, len(headers))
	for i, h := range headers {
		out[i] = h
	}
	return out
}

// tableRange addresses a whole tab.
func tableRange(table string) string {
	return quote(table)
}

// rowRange addresses width cells of one sheet row starting at column A.
func rowRange(table string, sheetRow, width int) string {
	if width < 1 {
		width = 1
	}
	return fmt.Sprintf("%s!A%d:%s%d", quote(table), sheetRow, colLetter(width), sheetRow)
}

func quote(table string) string {
	return "'" + strings.ReplaceAll(table, "'", "''") + "'"
}

// colLetter converts a 1-based column index to its A1 letters.
func colLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
