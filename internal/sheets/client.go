// Package sheets stores registry tables as tabs of one Google spreadsheet.
// Row 1 of each tab is the header; data rows follow without gaps.
package sheets

import (
	"context"
	"fmt"
	"os"
	"sync"

	"go.uber.org/zap"
	"google.golang.org/api/option"
	sheetsv4 "google.golang.org/api/sheets/v4"
)

type Client struct {
	srv           *sheetsv4.Service
	spreadsheetID string
	log           *zap.Logger

	mu       sync.Mutex
	sheetIDs map[string]int64
}

// New authenticates with a service account key file.
func New(ctx context.Context, serviceAccountJSONPath, spreadsheetID string, log *zap.Logger) (*Client, error) {
	if _, err := os.Stat(serviceAccountJSONPath); err != nil {
		return nil, fmt.Errorf("service account json: %w", err)
	}
	return NewWithOptions(ctx, spreadsheetID, log,
		option.WithCredentialsFile(serviceAccountJSONPath),
		option.WithScopes(sheetsv4.SpreadsheetsScope),
	)
}

// NewWithOptions builds a client from raw API options.
func NewWithOptions(ctx context.Context, spreadsheetID string, log *zap.Logger, opts ...option.ClientOption) (*Client, error) {
	if spreadsheetID == "" {
		return nil, fmt.Errorf("spreadsheet id is empty")
	}
	if log == nil {
		log = zap.NewNop()
	}
	srv, err := sheetsv4.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return &Client{srv: srv, spreadsheetID: spreadsheetID, log: log}, nil
}

func (c *Client) SpreadsheetID() string { return c.spreadsheetID }

// sheetID resolves a tab title to its numeric id, refreshing the cache once
// on a miss.
func (c *Client) sheetID(ctx context.Context, table string) (int64, bool, error) {
	c.mu.Lock()
	id, ok := c.sheetIDs[table]
	c.mu.Unlock()
	if ok {
		return id, true, nil
	}

	ss, err := c.srv.Spreadsheets.Get(c.spreadsheetID).
		Fields("sheets.properties(sheetId,title)").
		Context(ctx).
		Do()
	if err != nil {
		return 0, false, fmt.Errorf("list sheets: %w", err)
	}
	ids := make(map[string]int64, len(ss.Sheets))
	for _, sh := range ss.Sheets {
		if sh.Properties == nil {
			continue
		}
		ids[sh.Properties.Title] = sh.Properties.SheetId
	}
	c.mu.Lock()
	c.sheetIDs = ids
	c.mu.Unlock()
	id, ok = ids[table]
	return id, ok, nil
}

func (c *Client) forget(table string) {
	c.mu.Lock()
	delete(c.sheetIDs, table)
	c.mu.Unlock()
}

func (c *Client) addSheet(ctx context.Context, table string) error {
	req := &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			AddSheet: &sheetsv4.AddSheetRequest{
				Properties: &sheetsv4.SheetProperties{Title: table},
			},
		}},
	}
	resp, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("add sheet %s: %w", table, err)
	}
	if len(resp.Replies) > 0 && resp.Replies[0].AddSheet != nil && resp.Replies[0].AddSheet.Properties != nil {
		c.mu.Lock()
		if c.sheetIDs == nil {
			c.sheetIDs = map[string]int64{}
		}
		c.sheetIDs[table] = resp.Replies[0].AddSheet.Properties.SheetId
		c.mu.Unlock()
	} else {
		c.forget(table)
	}
	c.log.Info("sheet created", zap.String("sheet", table))
	return nil
}

func (c *Client) readAll(ctx context.Context, table string) ([][]interface{}, error) {
	resp, err := c.srv.Spreadsheets.Values.Get(c.spreadsheetID, tableRange(table)).
		ValueRenderOption("UNFORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", table, err)
	}
	return resp.Values, nil
}

func (c *Client) appendRow(ctx context.Context, table string, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Append(c.spreadsheetID, tableRange(table), vr).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("append %s: %w", table, err)
	}
	return nil
}

func (c *Client) updateRow(ctx context.Context, table string, sheetRow int, row []interface{}) error {
	vr := &sheetsv4.ValueRange{Values: [][]interface{}{row}}
	_, err := c.srv.Spreadsheets.Values.Update(c.spreadsheetID, rowRange(table, sheetRow, len(row)), vr).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("update %s row %d: %w", table, sheetRow, err)
	}
	return nil
}

func (c *Client) deleteRow(ctx context.Context, sheetID int64, sheetRow int) error {
	req := &sheetsv4.BatchUpdateSpreadsheetRequest{
		Requests: []*sheetsv4.Request{{
			DeleteDimension: &sheetsv4.DeleteDimensionRequest{
				Range: &sheetsv4.DimensionRange{
					SheetId:    sheetID,
					Dimension:  "ROWS",
					StartIndex: int64(sheetRow - 1),
					EndIndex:   int64(sheetRow),
				},
			},
		}},
	}
	_, err := c.srv.Spreadsheets.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do()
	return err
}
