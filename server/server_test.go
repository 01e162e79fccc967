package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"seo_content_generator/generator"
	"seo_content_generator/metrics"
)

type stubLLM struct {
	calls int
	out   string
	err   error
	panic bool
}

func (s *stubLLM) Complete(_ context.Context, _ generator.Prompt) (string, error) {
	s.calls++
	if s.panic {
		panic("model exploded")
	}
	return s.out, s.err
}

func newTestServer(t *testing.T, llm *stubLLM, opts generator.AgentOptions, showDetail bool) http.Handler {
	t.Helper()
	return newLoggingTestServer(t, llm, opts, showDetail, io.Discard)
}

func newLoggingTestServer(t *testing.T, llm *stubLLM, opts generator.AgentOptions, showDetail bool, logOut io.Writer) http.Handler {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(logOut, nil))
	opts.Logger = logger
	agent, err := generator.NewAgent(func(string) (generator.LLMClient, error) { return llm, nil }, opts)
	require.NoError(t, err)
	srv, err := New(agent, Options{ShowErrorDetail: showDetail, Logger: logger})
	require.NoError(t, err)
	return srv.Routes()
}

func postForm(h http.Handler, form url.Values) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodPost, "/generate", strings.NewReader(form.Encode()))
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)
	return w
}

func validForm() url.Values {
	return url.Values{
		"api_key":  {"gsk_user"},
		"topic":    {"sleep health"},
		"platform": {"Blog"},
		"tone":     {"Informative"},
		"length":   {"Medium"},
		"audience": {"Seniors"},
		"cta":      {"on"},
		"keywords": {"melatonin, insomnia"},
	}
}

func TestNew(t *testing.T) {
	_, err := New(nil, Options{})
	assert.Error(t, err)
}

func TestIndexFormMode(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{}, false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	body := w.Body.String()
	assert.Contains(t, body, `name="api_key"`)
	assert.Contains(t, body, "<option selected>Instagram</option>")
	assert.Contains(t, body, "<option>Young adults</option>")
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
}

func TestIndexEnvModeHidesKeyField(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{Source: generator.KeySourceEnv, EnvKey: "gsk_env"}, false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

	require.Equal(t, http.StatusOK, w.Code)
	assert.NotContains(t, w.Body.String(), `name="api_key"`)
}

func TestGenerateFormSuccess(t *testing.T) {
	llm := &stubLLM{out: "# Sleep well\n\nRest is **key**."}
	h := newTestServer(t, llm, generator.AgentOptions{}, false)

	w := postForm(h, validForm())

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	body := w.Body.String()
	assert.Contains(t, body, `<section id="result"`)
	assert.Contains(t, body, "<h1>Sleep well</h1>")
	assert.Contains(t, body, "<strong>key</strong>")
	assert.Contains(t, body, "<option selected>Seniors</option>", "selection is kept")
	assert.Contains(t, body, `name="cta" checked`)
	assert.Equal(t, 1, llm.calls)
}

func TestGenerateFormEmptyTopic(t *testing.T) {
	llm := &stubLLM{out: "x"}
	h := newTestServer(t, llm, generator.AgentOptions{}, false)

	form := validForm()
	form.Set("topic", "   ")
	w := postForm(h, form)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter a topic.")
	assert.NotContains(t, w.Body.String(), `id="result"`)
	assert.Zero(t, llm.calls)
}

func TestGenerateFormMissingKey(t *testing.T) {
	llm := &stubLLM{out: "x"}
	h := newTestServer(t, llm, generator.AgentOptions{}, false)

	form := validForm()
	form.Del("api_key")
	w := postForm(h, form)

	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Please enter your API key to get started.")
	assert.Zero(t, llm.calls)
}

func TestGenerateFormFailureIsVisible(t *testing.T) {
	llm := &stubLLM{err: errors.New("dial tcp 10.0.0.1:443: connect: network is unreachable")}

	w := postForm(newTestServer(t, llm, generator.AgentOptions{}, false), validForm())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "Error: the API key seems invalid or there is a connection problem.")
	assert.NotContains(t, w.Body.String(), "network is unreachable")

	w = postForm(newTestServer(t, llm, generator.AgentOptions{}, true), validForm())
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Contains(t, w.Body.String(), "network is unreachable")
}

func TestGeneratePanicIsRecovered(t *testing.T) {
	h := newTestServer(t, &stubLLM{panic: true}, generator.AgentOptions{}, false)

	w := postForm(h, validForm())
	assert.Equal(t, http.StatusInternalServerError, w.Code)
}

func TestGenerateJSON(t *testing.T) {
	llm := &stubLLM{out: "Short *copy*"}
	h := newTestServer(t, llm, generator.AgentOptions{Source: generator.KeySourceEnv, EnvKey: "gsk_env"}, false)

	body := `{"topic":"nutrition","platform":"LinkedIn","include_hashtags":true}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var resp generateResp
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.NotEmpty(t, resp.ID)
	assert.Equal(t, "Short *copy*", resp.Markdown)
	assert.Contains(t, resp.HTML, "<em>copy</em>")
}

func TestGenerateJSONErrors(t *testing.T) {
	tests := []struct {
		name string
		body string
		llm  *stubLLM
		code int
		want string
	}{
		{name: "bad json", body: `{`, llm: &stubLLM{}, code: http.StatusBadRequest, want: "bad request body"},
		{name: "empty topic", body: `{"topic":"","api_key":"k"}`, llm: &stubLLM{}, code: http.StatusUnprocessableEntity, want: "Please enter a topic."},
		{name: "bad choice", body: `{"topic":"x","tone":"Angry","api_key":"k"}`, llm: &stubLLM{}, code: http.StatusBadRequest, want: "tone"},
		{name: "no key", body: `{"topic":"x"}`, llm: &stubLLM{}, code: http.StatusUnauthorized, want: "API key"},
		{name: "auth", body: `{"topic":"x","api_key":"bad"}`, llm: &stubLLM{err: generator.ErrAuth}, code: http.StatusBadGateway, want: "invalid"},
		{name: "timeout", body: `{"topic":"x","api_key":"k"}`, llm: &stubLLM{err: context.DeadlineExceeded}, code: http.StatusGatewayTimeout, want: "connection problem"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newTestServer(t, tt.llm, generator.AgentOptions{}, false)
			w := httptest.NewRecorder()
			h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(tt.body)))

			assert.Equal(t, tt.code, w.Code)
			var resp errorResp
			require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
			assert.Contains(t, resp.Error, tt.want)
			if tt.code != http.StatusBadGateway && tt.code != http.StatusGatewayTimeout {
				assert.Zero(t, tt.llm.calls)
			}
		})
	}
}

func TestOptionsHealthMetrics(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{}, false)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/options", nil))
	require.Equal(t, http.StatusOK, w.Code)
	var opts generator.FormOptions
	require.NoError(t, json.NewDecoder(w.Body).Decode(&opts))
	assert.Equal(t, generator.Platforms, opts.Platforms)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"ok":true`)

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "http_requests_total")
}

func TestRequestIDIsEchoed(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{}, false)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/health", nil)
	req.Header.Set("X-Request-ID", "abc-123")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	assert.Equal(t, "abc-123", w.Header().Get("X-Request-ID"))
}

func requestCount(method, route string) float64 {
	return testutil.ToFloat64(metrics.HTTPRequests.WithLabelValues(method, route))
}

func TestUnmatchedRouteIsObserved(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{}, false)
	before := requestCount(http.MethodGet, "unmatched")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))

	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, before+1, requestCount(http.MethodGet, "unmatched"))
}

func TestRecoveredPanicIsObserved(t *testing.T) {
	h := newTestServer(t, &stubLLM{panic: true}, generator.AgentOptions{}, false)
	before := requestCount(http.MethodPost, "/generate")

	w := postForm(h, validForm())

	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	assert.Equal(t, before+1, requestCount(http.MethodPost, "/generate"))
}

func TestMatchedRouteUsesTemplate(t *testing.T) {
	h := newTestServer(t, &stubLLM{}, generator.AgentOptions{}, false)
	before := requestCount(http.MethodGet, "/api/v1/health")

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/health", nil))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, before+1, requestCount(http.MethodGet, "/api/v1/health"))
}

func TestFailedGenerationLoggedOnce(t *testing.T) {
	var logs bytes.Buffer
	llm := &stubLLM{err: errors.New("upstream unreachable")}
	h := newLoggingTestServer(t, llm, generator.AgentOptions{}, false, &logs)

	req := httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(`{"topic":"x","api_key":"k"}`))
	req.Header.Set("X-Request-ID", "req-42")
	w := httptest.NewRecorder()
	h.ServeHTTP(w, req)

	require.Equal(t, http.StatusBadGateway, w.Code)
	assert.Equal(t, 1, strings.Count(logs.String(), "upstream unreachable"))
	assert.Contains(t, logs.String(), "request_id=req-42")
}

func TestGenerateJSONBodyTooLarge(t *testing.T) {
	llm := &stubLLM{out: "x"}
	h := newTestServer(t, llm, generator.AgentOptions{}, false)

	body := `{"api_key":"k","topic":"` + strings.Repeat("a", maxJSONBody) + `"}`
	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/api/v1/generate", strings.NewReader(body)))

	assert.Equal(t, http.StatusRequestEntityTooLarge, w.Code)
	assert.Zero(t, llm.calls)
}
