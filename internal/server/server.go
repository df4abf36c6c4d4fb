// Package server exposes the analysis service over HTTP.
package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"go.uber.org/zap"

	"github.com/sells-group/site-feasibility/internal/model"
	"github.com/sells-group/site-feasibility/internal/poicache"
	"github.com/sells-group/site-feasibility/internal/resilience"
	"github.com/sells-group/site-feasibility/internal/store"
)

// maxBodyBytes bounds request bodies.
const maxBodyBytes = 1 << 20

// Analyzer runs analyses and predictions.
type Analyzer interface {
	Analyze(ctx context.Context, req model.AnalysisRequest) (*model.AnalysisReport, error)
	Predict(ctx context.Context, f model.PredictionFeatures) (model.PredictionResult, error)
}

// History reads persisted analyses and purges the durable cache tier.
type History interface {
	GetAnalysis(ctx context.Context, id string) (*model.AnalysisReport, error)
	ListAnalyses(ctx context.Context, filter model.AnalysisFilter) ([]model.AnalysisReport, error)
	PurgeCacheEntries(ctx context.Context, fetchedBefore time.Time) (int64, error)
}

// CacheAdmin is the observable, clearable POI cache.
type CacheAdmin interface {
	Stats() poicache.Stats
	InvalidateAll() int
}

// RasterStatus reports whether the density raster loaded.
type RasterStatus interface {
	Available() bool
}

// ModelStatus reports the loaded viability model.
type ModelStatus interface {
	Loaded() bool
	ModelName() string
}

// Options wires a Server. Only Analyzer is required.
type Options struct {
	Analyzer       Analyzer
	History        History
	Cache          CacheAdmin
	Raster         RasterStatus
	Model          ModelStatus
	Breaker        *resilience.Breaker
	CORSOrigins    []string
	RequestTimeout time.Duration
	Now            func() time.Time
}

// Server holds the HTTP handlers.
type Server struct {
	opts Options
}

// New creates a Server.
func New(opts Options) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Server{opts: opts}
}

// Handler builds the router.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(accessLog)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: s.opts.CORSOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-Id"},
		ExposedHeaders: []string{"X-Request-Id"},
		MaxAge:         300,
	}))
	r.Use(middleware.Timeout(s.opts.RequestTimeout))

	r.Get("/health", s.handleHealth)
	r.Post("/analyze", s.handleAnalyze)
	r.Post("/predict", s.handlePredict)
	r.Route("/analyses", func(r chi.Router) {
		r.Get("/", s.handleListAnalyses)
		r.Get("/{id}", s.handleGetAnalysis)
	})
	r.Get("/cache/stats", s.handleCacheStats)
	r.Delete("/cache", s.handlePurgeCache)
	return r
}

// accessLog logs one line per request through the global zap logger.
func accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		defer func() {
			zap.L().Info("server: request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Int("bytes", ww.BytesWritten()),
				zap.Duration("elapsed", time.Since(start)),
				zap.String("request_id", middleware.GetReqID(r.Context())),
			)
		}()
		next.ServeHTTP(ww, r)
	})
}

type healthResponse struct {
	Status       string          `json:"status"`
	RasterLoaded bool            `json:"raster_loaded"`
	ModelLoaded  bool            `json:"model_loaded"`
	ModelName    string          `json:"model_name,omitempty"`
	Persistence  bool            `json:"persistence"`
	Cache        *poicache.Stats `json:"cache,omitempty"`
	Breaker      string          `json:"breaker,omitempty"`
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	resp := healthResponse{Status: "ok", Persistence: s.opts.History != nil}
	if s.opts.Raster != nil {
		resp.RasterLoaded = s.opts.Raster.Available()
	}
	if s.opts.Model != nil && s.opts.Model.Loaded() {
		resp.ModelLoaded = true
		resp.ModelName = s.opts.Model.ModelName()
	}
	if s.opts.Cache != nil {
		stats := s.opts.Cache.Stats()
		resp.Cache = &stats
	}
	if s.opts.Breaker != nil {
		resp.Breaker = s.opts.Breaker.State().String()
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req model.AnalysisRequest
	if !decodeBody(w, r, &req) {
		return
	}
	report, err := s.opts.Analyzer.Analyze(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handlePredict(w http.ResponseWriter, r *http.Request) {
	var f model.PredictionFeatures
	if !decodeBody(w, r, &f) {
		return
	}
	res, err := s.opts.Analyzer.Predict(r.Context(), f)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleListAnalyses(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusNotFound, "analysis history is not enabled")
		return
	}
	filter, err := parseFilter(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	reports, err := s.opts.History.ListAnalyses(r.Context(), filter)
	if err != nil {
		zap.L().Error("server: list analyses failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list analyses")
		return
	}
	if reports == nil {
		reports = []model.AnalysisReport{}
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleGetAnalysis(w http.ResponseWriter, r *http.Request) {
	if s.opts.History == nil {
		writeError(w, http.StatusNotFound, "analysis history is not enabled")
		return
	}
	id := chi.URLParam(r, "id")
	report, err := s.opts.History.GetAnalysis(r.Context(), id)
	if errors.Is(err, store.ErrNotFound) {
		writeError(w, http.StatusNotFound, "analysis "+id+" not found")
		return
	}
	if err != nil {
		zap.L().Error("server: get analysis failed", zap.String("id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load analysis")
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleCacheStats(w http.ResponseWriter, _ *http.Request) {
	if s.opts.Cache == nil {
		writeError(w, http.StatusNotFound, "competitor cache is not enabled")
		return
	}
	writeJSON(w, http.StatusOK, s.opts.Cache.Stats())
}

type purgeResponse struct {
	Memory  int   `json:"memory_entries"`
	Durable int64 `json:"durable_entries"`
}

func (s *Server) handlePurgeCache(w http.ResponseWriter, r *http.Request) {
	var resp purgeResponse
	if s.opts.Cache != nil {
		resp.Memory = s.opts.Cache.InvalidateAll()
	}
	if s.opts.History != nil {
		n, err := s.opts.History.PurgeCacheEntries(r.Context(), s.opts.Now())
		if err != nil {
			zap.L().Error("server: purge durable cache failed", zap.Error(err))
			writeError(w, http.StatusInternalServerError, "failed to purge durable cache")
			return
		}
		resp.Durable = n
	}
	zap.L().Info("server: cache purged", zap.Int("memory", resp.Memory), zap.Int64("durable", resp.Durable))
	writeJSON(w, http.StatusOK, resp)
}

func parseFilter(r *http.Request) (model.AnalysisFilter, error) {
	q := r.URL.Query()
	f := model.AnalysisFilter{City: strings.TrimSpace(q.Get("city"))}
	if bt := strings.TrimSpace(q.Get("business_type")); bt != "" {
		f.BusinessType = model.ParseBusinessType(bt)
		if f.BusinessType == model.BusinessOther && !strings.EqualFold(bt, string(model.BusinessOther)) {
			return f, errors.New("unknown business_type " + bt)
		}
	}
	var err error
	if f.Limit, err = queryInt(q.Get("limit"), "limit"); err != nil {
		return f, err
	}
	if f.Offset, err = queryInt(q.Get("offset"), "offset"); err != nil {
		return f, err
	}
	return f, nil
}

func queryInt(v, name string) (int, error) {
	if v == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, errors.New(name + " must be a non-negative integer")
	}
	return n, nil
}

func decodeBody(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return false
	}
	return true
}

// writeServiceError maps the engine's error taxonomy onto status codes.
func writeServiceError(w http.ResponseWriter, err error) {
	var ve *model.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: ve.Error(), Field: ve.Field})
	case errors.Is(err, model.ErrModelUnavailable):
		writeError(w, http.StatusServiceUnavailable, "prediction model is not loaded")
	case errors.Is(err, context.DeadlineExceeded):
		writeError(w, http.StatusGatewayTimeout, "request timed out")
	default:
		zap.L().Error("server: request failed", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

type errorResponse struct {
	Error string `json:"error"`
	Field string `json:"field,omitempty"`
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.L().Debug("server: encode response failed", zap.Error(err))
	}
}
