package sheets

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"

	"google.golang.org/api/option"

	"athletics-registry/internal/tabular"
)

func TestColLetter(t *testing.T) {
	for n, want := range map[int]string{1: "A", 7: "G", 26: "Z", 27: "AA", 52: "AZ", 703: "AAA"} {
		if got := colLetter(n); got != want {
			t.Errorf("colLetter(%d) = %s, want %s", n, got, want)
		}
	}
}

func TestRanges(t *testing.T) {
	if got := rowRange("Daftar", 3, 9); got != "'Daftar'!A3:I3" {
		t.Fatalf("rowRange = %s", got)
	}
	if got := tableRange("O'Neil"); got != "'O''Neil'" {
		t.Fatalf("tableRange = %s", got)
	}
}

func TestSheetFromValues(t *testing.T) {
	sh := sheetFromValues([][]interface{}{
		{"NAMA_KEJOHANAN", " JUMLAH_LORONG_100M "},
		{"Sukan", float64(8)},
		{"Kejohanan B"},
		{"", ""},
	})
	if len(sh.Headers) != 2 || sh.Headers[1] != "JUMLAH_LORONG_100M" {
		t.Fatalf("headers = %v", sh.Headers)
	}
	recs := sh.Records()
	if len(recs) != 2 || recs[0].Int("JUMLAH_LORONG_100M") != 8 || recs[1].String("JUMLAH_LORONG_100M") != "" {
		t.Fatalf("records = %v", recs)
	}
}

// fakeSheets answers the handful of Sheets API calls the backend makes.
type fakeSheets struct {
	mu     sync.Mutex
	nextID int64
	ids    map[string]int64
	tabs   map[string][][]interface{}
}

func (f *fakeSheets) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	path := strings.TrimPrefix(r.URL.Path, "/v4/spreadsheets/")
	id, rest, _ := strings.Cut(path, "/")
	switch {
	case strings.HasSuffix(id, ":batchUpdate"):
		f.batchUpdate(w, r)
	case rest == "" && r.Method == http.MethodGet:
		var sheets []map[string]any
		for title, sid := range f.ids {
			sheets = append(sheets, map[string]any{"properties": map[string]any{"sheetId": sid, "title": title}})
		}
		writeJSON(w, map[string]any{"spreadsheetId": id, "sheets": sheets})
	case strings.HasPrefix(rest, "values/"):
		rng := strings.TrimPrefix(rest, "values/")
		if strings.HasSuffix(rng, ":append") {
			table, _ := parseRange(strings.TrimSuffix(rng, ":append"))
			f.tabs[table] = append(f.tabs[table], decodeValues(r)[0])
			writeJSON(w, map[string]any{"spreadsheetId": id})
			return
		}
		table, row := parseRange(rng)
		if r.Method == http.MethodGet {
			writeJSON(w, map[string]any{"range": rng, "majorDimension": "ROWS", "values": f.tabs[table]})
			return
		}
		vals := decodeValues(r)[0]
		for len(f.tabs[table]) < row {
			f.tabs[table] = append(f.tabs[table], []interface{}{})
		}
		f.tabs[table][row-1] = vals
		writeJSON(w, map[string]any{"spreadsheetId": id})
	default:
		http.NotFound(w, r)
	}
}

func (f *fakeSheets) batchUpdate(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Requests []struct {
			AddSheet *struct {
				Properties struct {
					Title string `json:"title"`
				} `json:"properties"`
			} `json:"addSheet"`
			DeleteDimension *struct {
				Range struct {
					SheetID    int64 `json:"sheetId"`
					StartIndex int   `json:"startIndex"`
				} `json:"range"`
			} `json:"deleteDimension"`
		} `json:"requests"`
	}
	_ = json.NewDecoder(r.Body).Decode(&req)
	var replies []map[string]any
	for _, rq := range req.Requests {
		switch {
		case rq.AddSheet != nil:
			f.nextID++
			title := rq.AddSheet.Properties.Title
			f.ids[title] = f.nextID
			f.tabs[title] = nil
			replies = append(replies, map[string]any{"addSheet": map[string]any{
				"properties": map[string]any{"sheetId": f.nextID, "title": title},
			}})
		case rq.DeleteDimension != nil:
			for title, sid := range f.ids {
				if sid == rq.DeleteDimension.Range.SheetID {
					rows := f.tabs[title]
					i := rq.DeleteDimension.Range.StartIndex
					f.tabs[title] = append(rows[:i], rows[i+1:]...)
				}
			}
			replies = append(replies, map[string]any{})
		}
	}
	writeJSON(w, map[string]any{"replies": replies})
}

func parseRange(rng string) (string, int) {
	table := rng
	cells := ""
	if strings.HasPrefix(rng, "'") {
		end := strings.Index(rng[1:], "'") + 1
		table = rng[1:end]
		cells = strings.TrimPrefix(rng[end+1:], "!")
	}
	if !strings.HasPrefix(cells, "A") {
		return table, 0
	}
	digits := strings.TrimPrefix(cells, "A")
	if i := strings.Index(digits, ":"); i >= 0 {
		digits = digits[:i]
	}
	n, _ := strconv.Atoi(digits)
	return table, n
}

func decodeValues(r *http.Request) [][]interface{} {
	var vr struct {
		Values [][]interface{} `json:"values"`
	}
	_ = json.NewDecoder(r.Body).Decode(&vr)
	return vr.Values
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func newFakeClient(t *testing.T) *Client {
	t.Helper()
	fake := &fakeSheets{ids: map[string]int64{}, tabs: map[string][][]interface{}{}}
	srv := httptest.NewServer(fake)
	t.Cleanup(srv.Close)
	c, err := NewWithOptions(context.Background(), "sheet-1", nil,
		option.WithEndpoint(srv.URL+"/"),
		option.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("client: %v", err)
	}
	return c
}

func TestBackendRoundTrip(t *testing.T) {
	c := newFakeClient(t)
	ctx := context.Background()

	if _, err := c.Read(ctx, "Maklumat"); !errors.Is(err, tabular.ErrTableNotFound) {
		t.Fatalf("missing tab: %v", err)
	}
	for _, name := range []string{"A", "B", "C"} {
		if err := c.Create(ctx, "Maklumat", tabular.Fields{
			{Name: "NAMA_KEJOHANAN", Value: name},
			{Name: "TEMPAT_KEJOHANAN", Value: "Stadium " + name},
		}); err != nil {
			t.Fatalf("create %s: %v", name, err)
		}
	}
	if err := c.Update(ctx, "Maklumat", 2, tabular.Fields{{Name: "TEMPAT_KEJOHANAN", Value: "Stadium Z"}}); err != nil {
		t.Fatalf("update: %v", err)
	}
	if err := c.Delete(ctx, "Maklumat", 1); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if err := c.Delete(ctx, "Maklumat", 7); !errors.Is(err, tabular.ErrRowNotFound) {
		t.Fatalf("delete past end: %v", err)
	}

	sh, err := c.Read(ctx, "Maklumat")
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	recs := sh.Records()
	if len(recs) != 2 {
		t.Fatalf("rows = %v", recs)
	}
	if recs[0].ID() != 1 || recs[0].String("NAMA_KEJOHANAN") != "B" || recs[0].String("TEMPAT_KEJOHANAN") != "Stadium Z" {
		t.Fatalf("first = %v", recs[0])
	}
	if recs[1].String("NAMA_KEJOHANAN") != "C" {
		t.Fatalf("second = %v", recs[1])
	}
}
