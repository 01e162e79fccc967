package server

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"html/template"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"seo_content_generator/generator"
	"seo_content_generator/metrics"
)

//go:embed web/index.html
var webFS embed.FS

var pageTmpl = template.Must(template.ParseFS(webFS, "web/index.html"))

type Server struct {
	agent      *generator.Agent
	showDetail bool
	timeout    time.Duration
	logger     *slog.Logger
}

type Options struct {
	// ShowErrorDetail adds the raw error text under the generic failure message.
	ShowErrorDetail bool
	// GenerateTimeout bounds a single model call; zero means 60s.
	GenerateTimeout time.Duration
	Logger          *slog.Logger
}

func New(agent *generator.Agent, opts Options) (*Server, error) {
	if agent == nil {
		return nil, errors.New("generator agent required")
	}
	timeout := opts.GenerateTimeout
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		agent:      agent,
		showDetail: opts.ShowErrorDetail,
		timeout:    timeout,
		logger:     logger,
	}, nil
}

func (s *Server) Routes() http.Handler {
	r := mux.NewRouter()
	r.Use(captureRoute)

	r.HandleFunc("/", s.handleIndex).Methods(http.MethodGet)
	r.HandleFunc("/generate", s.handleGenerateForm).Methods(http.MethodPost)

	api := r.PathPrefix("/api/v1").Subrouter()
	api.HandleFunc("/generate", s.handleGenerateJSON).Methods(http.MethodPost)
	api.HandleFunc("/options", s.handleOptions).Methods(http.MethodGet)
	api.HandleFunc("/health", s.handleHealth).Methods(http.MethodGet)

	r.Handle("/metrics", promhttp.Handler())

	cors := handlers.CORS(
		handlers.AllowedOrigins([]string{"*"}),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type"}),
	)
	recovery := handlers.RecoveryHandler(
		handlers.RecoveryLogger(slog.NewLogLogger(s.logger.Handler(), slog.LevelError)),
	)
	return s.withObservability(recovery(cors(r)))
}

// --- Form page ---

type pageData struct {
	Options   generator.FormOptions
	Req       generator.Request
	AskKey    bool
	Submitted bool
	Warning   string
	Info      string
	Error     string
	Detail    string
	Result    *pageResult
}

type pageResult struct {
	ID       string
	Markdown string
	HTML     template.HTML
}

func (s *Server) newPage() pageData {
	req := generator.Request{}
	req.Normalize()
	return pageData{
		Options: generator.Options(),
		Req:     req,
		AskKey:  s.agent.Source() == generator.KeySourceForm,
	}
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	s.render(w, http.StatusOK, s.newPage())
}

func (s *Server) handleGenerateForm(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		page := s.newPage()
		page.Warning = "Could not read the form."
		s.render(w, http.StatusBadRequest, page)
		return
	}
	req := generator.Request{
		Topic:           r.PostForm.Get("topic"),
		Platform:        r.PostForm.Get("platform"),
		Tone:            r.PostForm.Get("tone"),
		Length:          r.PostForm.Get("length"),
		Audience:        r.PostForm.Get("audience"),
		IncludeCTA:      checked(r.PostForm.Get("cta")),
		IncludeHashtags: checked(r.PostForm.Get("hashtags")),
		Keywords:        r.PostForm.Get("keywords"),
	}

	page := s.newPage()
	page.Submitted = true
	page.Req = req
	page.Req.Normalize()

	res, err := s.generate(r.Context(), req, r.PostForm.Get("api_key"))
	if err != nil {
		code := statusFor(err)
		msg := generator.UserMessage(err)
		switch {
		case generator.IsUserError(err):
			page.Warning = msg
		case errors.Is(err, generator.ErrMissingCredential):
			page.Info = msg
		default:
			page.Error = msg
			if s.showDetail {
				page.Detail = err.Error()
			}
		}
		s.render(w, code, page)
		return
	}

	page.Result = &pageResult{
		ID:       res.ID,
		Markdown: res.Markdown,
		// goldmark drops raw HTML from model output, so the rendered body is trusted.
		HTML: template.HTML(res.HTML),
	}
	s.render(w, http.StatusOK, page)
}

func checked(v string) bool {
	b, err := strconv.ParseBool(v)
	return v == "on" || (err == nil && b)
}

func (s *Server) render(w http.ResponseWriter, code int, page pageData) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	if err := pageTmpl.Execute(w, page); err != nil {
		metrics.IncError("server", "render")
		s.logger.Error("render page failed", "err", err)
	}
}

// --- JSON API ---

const maxJSONBody = 64 << 10

type generateReq struct {
	generator.Request
	APIKey string `json:"api_key,omitempty"`
}

type generateResp struct {
	ID       string `json:"id"`
	Markdown string `json:"markdown"`
	HTML     string `json:"html"`
	Model    string `json:"model,omitempty"`
}

type errorResp struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

// POST /api/v1/generate
func (s *Server) handleGenerateJSON(w http.ResponseWriter, r *http.Request) {
	var req generateReq
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody)).Decode(&req); err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeJSON(w, http.StatusRequestEntityTooLarge, errorResp{Error: "request body too large"})
			return
		}
		writeJSON(w, http.StatusBadRequest, errorResp{Error: "bad request body", Detail: err.Error()})
		return
	}
	res, err := s.generate(r.Context(), req.Request, req.APIKey)
	if err != nil {
		body := errorResp{Error: generator.UserMessage(err)}
		if s.showDetail {
			body.Detail = err.Error()
		}
		writeJSON(w, statusFor(err), body)
		return
	}
	writeJSON(w, http.StatusOK, generateResp{
		ID:       res.ID,
		Markdown: res.Markdown,
		HTML:     res.HTML,
		Model:    res.Model,
	})
}

// GET /api/v1/options
func (s *Server) handleOptions(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, generator.Options())
}

// GET /api/v1/health
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"ok": true,
		"ts": time.Now().UTC(),
	})
}

// --- Helpers ---

func (s *Server) generate(ctx context.Context, req generator.Request, apiKey string) (generator.Result, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	res, err := s.agent.Generate(ctx, req, apiKey)
	if err != nil && !generator.IsUserError(err) {
		s.logger.Error("generation failed", "request_id", requestID(ctx), "err", err)
	}
	return res, err
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, generator.ErrEmptyTopic):
		return http.StatusUnprocessableEntity
	case errors.Is(err, generator.ErrInvalidField):
		return http.StatusBadRequest
	case errors.Is(err, generator.ErrMissingCredential):
		return http.StatusUnauthorized
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type (
	ctxKey   struct{}
	routeKey struct{}
)

// routeLabel is filled in by captureRoute once mux has matched the request.
type routeLabel struct {
	name string
}

func captureRoute(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if lbl, ok := r.Context().Value(routeKey{}).(*routeLabel); ok {
			if cur := mux.CurrentRoute(r); cur != nil {
				if tpl, err := cur.GetPathTemplate(); err == nil {
					lbl.name = tpl
				}
			}
		}
		next.ServeHTTP(w, r)
	})
}

func requestID(ctx context.Context) string {
	id, _ := ctx.Value(ctxKey{}).(string)
	return id
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

// withObservability wraps the whole handler chain, so unmatched routes and
// recovered panics are recorded too.
func (s *Server) withObservability(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		id := r.Header.Get("X-Request-ID")
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		route := &routeLabel{name: "unmatched"}
		ctx := context.WithValue(r.Context(), ctxKey{}, id)
		ctx = context.WithValue(ctx, routeKey{}, route)
		r = r.WithContext(ctx)

		rw := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rw, r)

		elapsed := time.Since(start)
		metrics.ObserveHTTPRequest(r.Method, route.name, strconv.Itoa(rw.status), elapsed)
		s.logger.Info("http request",
			"request_id", id,
			"method", r.Method,
			"route", route.name,
			"status", rw.status,
			"duration", elapsed,
		)
	})
}
