package store

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"athletics-registry/internal/tabular"
	"athletics-registry/internal/util"
)

// SignatureHeader carries the HMAC of a request when a shared secret is set.
const SignatureHeader = "X-Signature"

// Remote talks to the spreadsheet web app over HTTP: reads are GET with query
// parameters, writes are form-encoded POSTs.
type Remote struct {
	baseURL string
	client  *http.Client
	secret  string
	timeout time.Duration
	log     *zap.Logger
}

type RemoteOption func(*Remote)

func WithHTTPClient(c *http.Client) RemoteOption {
	return func(r *Remote) { r.client = c }
}

// WithSecret signs every request with the shared endpoint secret.
func WithSecret(secret string) RemoteOption {
	return func(r *Remote) { r.secret = secret }
}

// WithTimeout bounds each request; zero leaves only the caller's context.
func WithTimeout(d time.Duration) RemoteOption {
	return func(r *Remote) { r.timeout = d }
}

func NewRemote(baseURL string, log *zap.Logger, opts ...RemoteOption) *Remote {
	if log == nil {
		log = zap.NewNop()
	}
	r := &Remote{
		baseURL: strings.TrimSpace(baseURL),
		client:  http.DefaultClient,
		log:     log,
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

func (r *Remote) FetchTable(ctx context.Context, table string) (*tabular.ReadResult, error) {
	params := url.Values{"action": {ActionRead}, "sheet": {table}}
	var out tabular.ReadResult
	if err := r.do(ctx, http.MethodGet, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Remote) InsertRecord(ctx context.Context, table string, fields tabular.Fields) (*tabular.WriteResult, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", table, err)
	}
	params := url.Values{"action": {ActionCreate}, "sheet": {table}, "data": {string(data)}}
	return r.write(ctx, params)
}

func (r *Remote) UpdateRecord(ctx context.Context, table string, id int, fields tabular.Fields) (*tabular.WriteResult, error) {
	data, err := json.Marshal(fields)
	if err != nil {
		return nil, fmt.Errorf("encode %s record: %w", table, err)
	}
	params := url.Values{
		"action": {ActionUpdate},
		"sheet":  {table},
		"id":     {strconv.Itoa(id)},
		"data":   {string(data)},
	}
	return r.write(ctx, params)
}

func (r *Remote) DeleteRecord(ctx context.Context, table string, id int) (*tabular.WriteResult, error) {
	params := url.Values{"action": {ActionDelete}, "sheet": {table}, "id": {strconv.Itoa(id)}}
	return r.write(ctx, params)
}

func (r *Remote) write(ctx context.Context, params url.Values) (*tabular.WriteResult, error) {
	var out tabular.WriteResult
	if err := r.do(ctx, http.MethodPost, params, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (r *Remote) do(ctx context.Context, method string, params url.Values, out any) error {
	op := params.Get("action") + " " + params.Get("sheet")
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}

	req, err := r.newRequest(ctx, method, params)
	if err != nil {
		return &tabular.TransportError{Op: op, Err: err}
	}
	if r.secret != "" {
		req.Header.Set(SignatureHeader, util.RequestSignature(r.secret,
			params.Get("action"), params.Get("sheet"), params.Get("id"), params.Get("data")))
	}

	start := time.Now()
	resp, err := r.client.Do(req)
	if err != nil {
		r.log.Warn("store request failed", zap.String("op", op), zap.Error(err))
		return &tabular.TransportError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	r.log.Debug("store request",
		zap.String("op", op),
		zap.Int("status", resp.StatusCode),
		zap.Duration("took", time.Since(start)),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		_, _ = io.Copy(io.Discard, resp.Body)
		return &tabular.TransportError{Op: op, StatusCode: resp.StatusCode}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &tabular.TransportError{Op: op, Err: fmt.Errorf("decode response: %w", err)}
	}
	return nil
}

func (r *Remote) newRequest(ctx context.Context, method string, params url.Values) (*http.Request, error) {
	u, err := url.Parse(r.baseURL)
	if err != nil {
		return nil, fmt.Errorf("endpoint url: %w", err)
	}
	if method == http.MethodGet {
		q := u.Query()
		for k, vs := range params {
			q[k] = vs
		}
		u.RawQuery = q.Encode()
		return http.NewRequestWithContext(ctx, method, u.String(), nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), strings.NewReader(params.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return req, nil
}
