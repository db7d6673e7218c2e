package store_test

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/labstack/echo/v4"

	"athletics-registry/internal/endpoint"
	"athletics-registry/internal/memstore"
	"athletics-registry/internal/store"
	"athletics-registry/internal/tabular"
	"athletics-registry/internal/util"
)

const testSecret = "s3cret"

func newEndpoint(t *testing.T) *httptest.Server {
	t.Helper()
	e := echo.New()
	endpoint.New(store.NewLocal(memstore.New(), nil), testSecret, nil).Register(e, "/exec")
	srv := httptest.NewServer(e)
	t.Cleanup(srv.Close)
	return srv
}

func newRemote(srv *httptest.Server) *store.Remote {
	return store.NewRemote(srv.URL+"/exec", nil, store.WithSecret(testSecret))
}

// signed sends raw protocol parameters the way Remote would.
func signed(t *testing.T, srv *httptest.Server, method string, params url.Values) (*http.Response, error) {
	t.Helper()
	sig := util.RequestSignature(testSecret, params.Get("action"), params.Get("sheet"), params.Get("id"), params.Get("data"))
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequest(method, srv.URL+"/exec?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequest(method, srv.URL+"/exec", strings.NewReader(params.Encode()))
		if req != nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return nil, err
	}
	req.Header.Set(store.SignatureHeader, sig)
	return http.DefaultClient.Do(req)
}

func event(name, venue string) tabular.Fields {
	return tabular.Fields{
		{Name: "NAMA_KEJOHANAN", Value: name},
		{Name: "TARIKH_KEJOHANAN", Value: "2025-05-01"},
		{Name: "TEMPAT_KEJOHANAN", Value: venue},
		{Name: "JUMLAH_LORONG_100M", Value: 4},
	}
}

func writeOK(t *testing.T) func(*tabular.WriteResult, error) {
	return func(res *tabular.WriteResult, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("transport: %v", err)
		}
		if !res.OK() {
			t.Fatalf("write failed: %s", res.Message)
		}
	}
}

func TestRemoteCreateThenFetch(t *testing.T) {
	st := newRemote(newEndpoint(t))
	ctx := context.Background()

	res, err := st.InsertRecord(ctx, "Maklumat", event("Sukan 2025", "Stadium A"))
	writeOK(t)(res, err)
	if res.Message != tabular.MsgCreated {
		t.Fatalf("message = %q", res.Message)
	}
	// second insert misses a header and carries an unknown field
	writeOK(t)(st.InsertRecord(ctx, "Maklumat", tabular.Fields{
		{Name: "NAMA_KEJOHANAN", Value: "Sukan 2026"},
		{Name: "NOTA", Value: "dropped"},
	}))

	got, err := st.FetchTable(ctx, "Maklumat")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if !got.OK() {
		t.Fatalf("fetch status %s: %s", got.Status, got.Message)
	}
	if len(got.Headers) != 4 || got.Headers[0] != "NAMA_KEJOHANAN" || got.Headers[3] != "JUMLAH_LORONG_100M" {
		t.Fatalf("headers = %v", got.Headers)
	}
	if len(got.Data) != 2 {
		t.Fatalf("rows = %d", len(got.Data))
	}
	first := got.Data[0]
	if first.ID() != 1 || first.String("NAMA_KEJOHANAN") != "Sukan 2025" || first.Int("JUMLAH_LORONG_100M") != 4 {
		t.Fatalf("first = %v", first)
	}
	second := got.Data[1]
	if second.ID() != 2 || second.String("TEMPAT_KEJOHANAN") != "" {
		t.Fatalf("second = %v", second)
	}
	if _, ok := second["NOTA"]; ok {
		t.Fatalf("unknown field leaked: %v", second)
	}
}

func TestRemoteUpdateAndDelete(t *testing.T) {
	st := newRemote(newEndpoint(t))
	ctx := context.Background()

	for _, n := range []string{"A", "B", "C"} {
		writeOK(t)(st.InsertRecord(ctx, "Maklumat", event(n, "Stadium "+n)))
	}

	writeOK(t)(st.UpdateRecord(ctx, "Maklumat", 2, tabular.Fields{{Name: "TEMPAT_KEJOHANAN", Value: "Stadium Z"}}))
	got, err := st.FetchTable(ctx, "Maklumat")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	b := got.Data[1]
	if b.String("TEMPAT_KEJOHANAN") != "Stadium Z" || b.String("NAMA_KEJOHANAN") != "B" || b.String("TARIKH_KEJOHANAN") != "2025-05-01" {
		t.Fatalf("updated row = %v", b)
	}

	writeOK(t)(st.DeleteRecord(ctx, "Maklumat", 1))
	got, err = st.FetchTable(ctx, "Maklumat")
	if err != nil {
		t.Fatalf("fetch: %v", err)
	}
	if len(got.Data) != 2 {
		t.Fatalf("rows = %d", len(got.Data))
	}
	if got.Data[0].ID() != 1 || got.Data[0].String("NAMA_KEJOHANAN") != "B" {
		t.Fatalf("B should now be id 1: %v", got.Data[0])
	}
	if got.Data[1].ID() != 2 || got.Data[1].String("NAMA_KEJOHANAN") != "C" {
		t.Fatalf("C should now be id 2: %v", got.Data[1])
	}
}

func TestRemoteStoreErrorsStayInEnvelope(t *testing.T) {
	st := newRemote(newEndpoint(t))
	ctx := context.Background()

	got, err := st.FetchTable(ctx, "Tiada")
	if err != nil {
		t.Fatalf("missing sheet should not be a transport error: %v", err)
	}
	if got.OK() || got.Message != tabular.MsgSheetNotFound {
		t.Fatalf("envelope = %+v", got)
	}
	if !errors.Is(got.Err(), tabular.ErrTableNotFound) {
		t.Fatalf("Err() = %v", got.Err())
	}

	res, err := st.UpdateRecord(ctx, "Tiada", 1, tabular.Fields{{Name: "x", Value: 1}})
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if !errors.Is(res.Err(), tabular.ErrTableNotFound) {
		t.Fatalf("update Err() = %v", res.Err())
	}

	writeOK(t)(st.InsertRecord(ctx, "Daftar", tabular.Fields{{Name: "PASUKAN", Value: "A"}}))
	res, err = st.DeleteRecord(ctx, "Daftar", 5)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if !errors.Is(res.Err(), tabular.ErrRowNotFound) {
		t.Fatalf("delete Err() = %v", res.Err())
	}
}

func TestEndpointInvalidAction(t *testing.T) {
	srv := newEndpoint(t)

	check := func(resp *http.Response, err error) {
		t.Helper()
		if err != nil {
			t.Fatalf("request: %v", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d", resp.StatusCode)
		}
		var env tabular.WriteResult
		if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.Status != tabular.StatusError || env.Message != tabular.MsgInvalidAction {
			t.Fatalf("envelope = %+v", env)
		}
	}
	check(signed(t, srv, http.MethodGet, url.Values{"action": {"drop"}, "sheet": {"Login"}}))
	// read is only valid on GET
	check(signed(t, srv, http.MethodPost, url.Values{"action": {"read"}, "sheet": {"Login"}}))

	st := newRemote(srv)
	res, err := st.DeleteRecord(context.Background(), "Login", 0)
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if res.OK() {
		t.Fatalf("id 0 should fail")
	}
}

func TestRemoteTransportFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	st := store.NewRemote(srv.URL, nil)
	_, err := st.FetchTable(context.Background(), "Maklumat")
	var te *tabular.TransportError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransportError, got %v", err)
	}
	if te.StatusCode != http.StatusInternalServerError {
		t.Fatalf("status = %d", te.StatusCode)
	}
	if tabular.KindOf(err) != tabular.KindTransport {
		t.Fatalf("kind = %v", tabular.KindOf(err))
	}
}

func TestRemoteSignature(t *testing.T) {
	srv := newEndpoint(t)
	ctx := context.Background()

	unsigned := store.NewRemote(srv.URL+"/exec", nil)
	if _, err := unsigned.FetchTable(ctx, "Login"); tabular.KindOf(err) != tabular.KindTransport {
		t.Fatalf("unsigned request should be rejected, got %v", err)
	}
	wrong := store.NewRemote(srv.URL+"/exec", nil, store.WithSecret("other"))
	if _, err := wrong.InsertRecord(ctx, "Login", tabular.Fields{{Name: "username", Value: "mallory"}}); err == nil {
		t.Fatalf("request signed with another secret should be rejected")
	}

	st := newRemote(srv)
	writeOK(t)(st.InsertRecord(ctx, "Login", tabular.Fields{{Name: "username", Value: "alice"}}))
	got, err := st.FetchTable(ctx, "Login")
	if err != nil {
		t.Fatalf("signed fetch: %v", err)
	}
	if len(got.Data) != 1 {
		t.Fatalf("rows = %d", len(got.Data))
	}
}

func TestEndpointWithoutSecretRefusesAll(t *testing.T) {
	e := echo.New()
	endpoint.New(store.NewLocal(memstore.New(), nil), "", nil).Register(e, "/exec")
	srv := httptest.NewServer(e)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/exec?action=read&sheet=Login")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("read status = %d", resp.StatusCode)
	}
	resp, err = http.PostForm(srv.URL+"/exec", url.Values{
		"action": {"update"}, "sheet": {"Login"}, "id": {"1"}, "data": {`{"userType":"admin"}`},
	})
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusUnauthorized {
		t.Fatalf("update status = %d", resp.StatusCode)
	}
}

func TestEndpointWriteNeedsData(t *testing.T) {
	srv := newEndpoint(t)
	st := newRemote(srv)
	writeOK(t)(st.InsertRecord(context.Background(), "Daftar", tabular.Fields{{Name: "PASUKAN", Value: "A"}}))

	for _, params := range []url.Values{
		{"action": {"create"}, "sheet": {"Daftar"}},
		{"action": {"update"}, "sheet": {"Daftar"}, "id": {"1"}},
	} {
		resp, err := signed(t, srv, http.MethodPost, params)
		if err != nil {
			t.Fatalf("%s: %v", params.Get("action"), err)
		}
		var env tabular.WriteResult
		err = json.NewDecoder(resp.Body).Decode(&env)
		resp.Body.Close()
		if err != nil {
			t.Fatalf("decode: %v", err)
		}
		if env.OK() || !errors.Is(env.Err(), tabular.ErrNoFields) {
			t.Fatalf("%s without data = %+v", params.Get("action"), env)
		}
	}

	got, err := st.FetchTable(context.Background(), "Daftar")
	if err != nil || len(got.Data) != 1 || got.Data[0].String("PASUKAN") != "A" {
		t.Fatalf("table changed: %+v %v", got, err)
	}
}

func TestLocalCancelledContext(t *testing.T) {
	st := store.NewLocal(memstore.New(), nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := st.FetchTable(ctx, "Login"); tabular.KindOf(err) != tabular.KindTransport {
		t.Fatalf("expected transport error, got %v", err)
	}
}
