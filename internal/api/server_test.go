package api

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/iconsearch/token-renderer/internal/config"
	"github.com/iconsearch/token-renderer/internal/headless"
	"github.com/iconsearch/token-renderer/internal/icons"
	"github.com/iconsearch/token-renderer/internal/ratelimit"
	"github.com/iconsearch/token-renderer/internal/render"
)

type fakeHeadless struct {
	mu      sync.Mutex
	calls   []render.Request
	payload string
	err     error
}

func (f *fakeHeadless) record(req render.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, req)
}

func (f *fakeHeadless) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeHeadless) RenderToImage(_ context.Context, req render.Request) (string, error) {
	f.record(req)
	if f.err != nil {
		return "", f.err
	}
	return f.payload, nil
}

func (f *fakeHeadless) RenderToMarkup(_ context.Context, req render.Request) (string, error) {
	return f.RenderToImage(context.Background(), req)
}

func (f *fakeHeadless) renderBatch(reqs []render.Request) []render.BatchResult {
	results := make([]render.BatchResult, len(reqs))
	for i, req := range reqs {
		req = req.Normalized()
		if err := req.Validate(); err != nil {
			results[i] = render.BatchResult{Request: req, Err: err}
			continue
		}
		f.record(req)
		if req.Icon == "broken" {
			results[i] = render.BatchResult{Request: req, Err: headless.ErrNoElement}
			continue
		}
		results[i] = render.BatchResult{Request: req, Payload: f.payload}
	}
	return results
}

func (f *fakeHeadless) RenderImageBatch(_ context.Context, reqs []render.Request) []render.BatchResult {
	return f.renderBatch(reqs)
}

func (f *fakeHeadless) RenderMarkupBatch(_ context.Context, reqs []render.Request) []render.BatchResult {
	return f.renderBatch(reqs)
}

type fakeStatic struct {
	markup string
}

func (f *fakeStatic) RenderToSVG(string, icons.Size) string {
	return f.markup
}

func newTestServer(t *testing.T, fake *fakeHeadless, limit int) *Server {
	t.Helper()
	cfg := config.Config{}
	cfg.Preview.Dir = t.TempDir()
	return NewServer(fake, &fakeStatic{markup: "<span><svg></svg></span>"}, ratelimit.New(limit), cfg, zap.NewNop())
}

func postJSON(t *testing.T, srv *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	raw, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestHealth(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, ServiceName, body["service"])
	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestRenderIcon_Success(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "aGVsbG8="}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-icon", map[string]string{
		"iconName": "check", "componentType": "icon", "size": "s",
	})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Equal(t, "aGVsbG8=", body["image"])
	assert.Equal(t, "check", body["iconName"])
	assert.Equal(t, "icon", body["componentType"])
	assert.Equal(t, "s", body["size"])
}

func TestRenderIcon_ValidationErrors(t *testing.T) {
	t.Parallel()
	cases := []struct {
		name string
		body map[string]string
	}{
		{"missing icon name", map[string]string{"componentType": "icon"}},
		{"invalid component type", map[string]string{"iconName": "check", "componentType": "widget"}},
		{"invalid size", map[string]string{"iconName": "check", "componentType": "icon", "size": "huge"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			fake := &fakeHeadless{payload: "x"}
			srv := newTestServer(t, fake, 10)

			rec := postJSON(t, srv, "/render-icon", tc.body)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decodeBody(t, rec), "error")
			assert.Zero(t, fake.callCount(), "invalid request must not reach the renderer")
		})
	}
}

func TestRenderIcon_RenderFailure(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{err: headless.ErrNoElement}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-icon", map[string]string{
		"iconName": "check", "componentType": "icon",
	})

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestRenderIcon_PreviewMissingIsUnavailable(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{err: headless.ErrPreviewMissing}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-icon", map[string]string{
		"iconName": "check", "componentType": "icon",
	})

	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestRenderToken_ForcesTokenKind(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "aW1n"}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-token", map[string]string{"iconName": "bell"})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, render.KindToken, fake.calls[0].Kind)
	body := decodeBody(t, rec)
	assert.Equal(t, "token", body["componentType"])
	assert.Equal(t, "m", body["size"], "size defaults when omitted")
}

func TestRenderIconBatch_RequiresArray(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := postJSON(t, srv, "/render-icons", map[string]any{})

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRenderIconBatch_EmptyIsValid(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := postJSON(t, srv, "/render-icons", map[string]any{"icons": []any{}})

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"results":[]}`, rec.Body.String())
}

func TestRenderIconBatch_PerItemIsolation(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "cGF5bG9hZA=="}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-icons", map[string]any{"icons": []map[string]string{
		{"iconName": "check", "componentType": "icon"},
		{"iconName": "broken", "componentType": "icon"},
		{"iconName": "", "componentType": "icon"},
		{"iconName": "bell", "componentType": "token", "size": "l"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	results, ok := body["results"].([]any)
	require.True(t, ok)
	require.Len(t, results, 4)

	first := results[0].(map[string]any)
	assert.Equal(t, "cGF5bG9hZA==", first["image"])
	assert.Nil(t, first["error"])

	second := results[1].(map[string]any)
	assert.Nil(t, second["image"])
	assert.Contains(t, second["error"], "no element")

	third := results[2].(map[string]any)
	assert.Nil(t, third["image"])
	assert.Contains(t, third["error"], "iconName")

	fourth := results[3].(map[string]any)
	assert.Equal(t, "cGF5bG9hZA==", fourth["image"])
	assert.Equal(t, "token", fourth["componentType"])
	assert.Equal(t, "l", fourth["size"])
}

func TestRenderTokenBatch_LegacyShape(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "aW1n"}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-tokens", map[string]any{"tokens": []map[string]string{
		{"iconName": "star"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, fake.calls, 1)
	assert.Equal(t, render.KindToken, fake.calls[0].Kind)
}

func TestRenderSVGBatch_CarriesMarkup(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "<svg></svg>"}
	srv := newTestServer(t, fake, 10)

	rec := postJSON(t, srv, "/render-svgs", map[string]any{"icons": []map[string]string{
		{"iconName": "check", "componentType": "icon"},
	}})

	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	results := body["results"].([]any)
	require.Len(t, results, 1)
	item := results[0].(map[string]any)
	assert.Equal(t, "<svg></svg>", item["svgContent"])
}

func TestRateLimit_CapAndHeaders(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "aW1n"}
	srv := newTestServer(t, fake, 2)

	body := map[string]string{"iconName": "check", "componentType": "icon"}
	for i := 0; i < 2; i++ {
		rec := postJSON(t, srv, "/render-icon", body)
		require.Equal(t, http.StatusOK, rec.Code)
	}

	rec := postJSON(t, srv, "/render-icon", body)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Equal(t, "2", rec.Header().Get("X-RateLimit-Limit"))
	assert.Equal(t, "0", rec.Header().Get("X-RateLimit-Remaining"))
	assert.NotEmpty(t, rec.Header().Get("X-RateLimit-Reset"))
	assert.NotEmpty(t, rec.Header().Get("Retry-After"))
	assert.Equal(t, 2, fake.callCount(), "limited request must not render")
}

func TestRateLimit_HealthExempt(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{payload: "x"}, 1)

	rec := postJSON(t, srv, "/render-icon", map[string]string{"iconName": "check", "componentType": "icon"})
	require.Equal(t, http.StatusOK, rec.Code)

	for i := 0; i < 3; i++ {
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	}
}

func TestRateLimit_PerClientAddress(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{payload: "x"}
	srv := newTestServer(t, fake, 1)

	body, err := json.Marshal(map[string]string{"iconName": "check", "componentType": "icon"})
	require.NoError(t, err)

	send := func(addr string) int {
		req := httptest.NewRequest(http.MethodPost, "/render-icon", bytes.NewReader(body))
		req.RemoteAddr = addr
		rec := httptest.NewRecorder()
		srv.Handler().ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusOK, send("10.0.0.1:5000"))
	require.Equal(t, http.StatusTooManyRequests, send("10.0.0.1:5001"))
	assert.Equal(t, http.StatusOK, send("10.0.0.2:5000"), "other clients keep their own window")
}

func TestRenderSVGStatic(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := postJSON(t, srv, "/render-svg-static", map[string]string{"iconName": "check", "size": "l"})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	assert.Contains(t, body["svgContent"], "<svg")
	assert.Equal(t, "l", body["size"])

	rec = postJSON(t, srv, "/render-svg-static", map[string]string{"iconName": "no-such-icon"})
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = postJSON(t, srv, "/render-svg-static", map[string]string{"iconName": "check", "size": "giant"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestNormalizeSVG(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := postJSON(t, srv, "/normalize-svg", map[string]any{
		"svgContent": `<svg width="16" height="16" fill="red"><path d="M0 0"/></svg>`,
		"targetSize": 64,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	body := decodeBody(t, rec)
	content := body["svgContent"].(string)
	assert.Contains(t, content, `viewBox="0 0 16 16"`)
	assert.Contains(t, content, `width="64"`)
	assert.NotContains(t, content, "fill=")
	assert.Equal(t, float64(64), body["targetSize"])
}

func TestNormalizeSVG_RequiresContent(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := postJSON(t, srv, "/normalize-svg", map[string]any{})
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestIconAsset(t *testing.T) {
	t.Parallel()
	srv := newTestServer(t, &fakeHeadless{}, 10)

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/icons/check.svg", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Body.String(), "<svg")

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/icons/missing.svg", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestPreviewIndex(t *testing.T) {
	t.Parallel()
	fake := &fakeHeadless{}
	cfg := config.Config{}
	cfg.Preview.Dir = t.TempDir()
	srv := NewServer(fake, &fakeStatic{}, ratelimit.New(10), cfg, zap.NewNop())

	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	index := filepath.Join(cfg.Preview.Dir, "index.html")
	require.NoError(t, os.WriteFile(index, []byte(`<html><body><div id="root"></div></body></html>`), 0o644))

	rec = httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="root"`)
}
