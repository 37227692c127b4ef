package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/google/uuid"

	"leadgen-agent/internal/credential"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/logger"
	"leadgen-agent/internal/usecase"
)

const (
	maxBodyBytes         = 64 << 10
	defaultActivityLimit = 50
	emptyScanMessage     = "No leads found for this search criteria. Try a different city or keyword."
)

type routerOptions struct {
	metrics        http.Handler
	rekeyer        Rekeyer
	logger         *slog.Logger
	allowedOrigins []string
}

type Option func(*routerOptions)

// WithMetrics mounts h at GET /metrics.
func WithMetrics(h http.Handler) Option {
	return func(o *routerOptions) { o.metrics = h }
}

// WithRekeyer mounts PUT /credentials.
func WithRekeyer(r Rekeyer) Option {
	return func(o *routerOptions) { o.rekeyer = r }
}

func WithLogger(l *slog.Logger) Option {
	return func(o *routerOptions) { o.logger = l }
}

func WithAllowedOrigins(origins ...string) Option {
	return func(o *routerOptions) { o.allowedOrigins = origins }
}

type api struct {
	svc     Service
	rekeyer Rekeyer
	logger  *slog.Logger
}

type scanRequest struct {
	City    string `json:"city"`
	Keyword string `json:"keyword"`
}

type scanResponse struct {
	Leads   []domain.Lead `json:"leads"`
	Count   int           `json:"count"`
	Message string        `json:"message,omitempty"`
}

type replyRequest struct {
	Text string `json:"text"`
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

type pilotRequest struct {
	LeadIDs []string `json:"leadIds"`
}

type credentialsRequest struct {
	APIKey string `json:"apiKey"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Reason  string `json:"reason,omitempty"`
	Message string `json:"message,omitempty"`
}

var newCorrelationID = func() string {
	return uuid.NewString()
}

// NewRouter builds the HTTP surface over svc.
func NewRouter(svc Service, opts ...Option) (http.Handler, error) {
	if svc == nil {
		return nil, errors.New("handler: service must not be nil")
	}
	o := routerOptions{allowedOrigins: []string{"*"}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.logger == nil {
		o.logger = slog.Default()
	}
	a := &api{svc: svc, rekeyer: o.rekeyer, logger: o.logger}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(a.correlate)
	r.Use(a.logRequests)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: o.allowedOrigins,
		AllowedMethods: []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders: []string{"Content-Type", correlationHeader},
		ExposedHeaders: []string{correlationHeader},
	}))

	r.Get("/leads", a.listLeads)
	r.Delete("/leads", a.clearLeads)
	r.Post("/scan", a.scan)
	r.Post("/leads/{id}/reply", a.reply)
	r.Post("/leads/{id}/draft", a.draft)
	r.Post("/leads/{id}/reject", a.reject)
	r.Post("/pilot", a.pilot)
	r.Get("/meetings", a.listMeetings)
	r.Get("/stats", a.stats)
	r.Get("/activity", a.activity)
	if o.rekeyer != nil {
		r.Put("/credentials", a.credentials)
	}
	if o.metrics != nil {
		r.Method(http.MethodGet, "/metrics", o.metrics)
	}
	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusNotFound, errorResponse{Error: string(usecase.ErrorNotFound), Reason: "route_not_found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusMethodNotAllowed, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "method_not_allowed"})
	})
	return r, nil
}

func (a *api) correlate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get(correlationHeader))
		if id == "" {
			id = newCorrelationID()
		}
		w.Header().Set(correlationHeader, id)
		next.ServeHTTP(w, r.WithContext(logger.WithCorrelationID(r.Context(), id)))
	})
}

func (a *api) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		logger.FromContext(r.Context(), a.logger).InfoContext(r.Context(), "http_request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Float64("latency_ms", float64(time.Since(start).Microseconds())/1000),
		)
	})
}

func (a *api) listLeads(w http.ResponseWriter, r *http.Request) {
	leads, err := a.svc.ListLeads(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(leads))
}

func (a *api) clearLeads(w http.ResponseWriter, r *http.Request) {
	if err := a.svc.ClearLeads(r.Context()); err != nil {
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (a *api) scan(w http.ResponseWriter, r *http.Request) {
	var in scanRequest
	if !a.decode(w, r, &in, true) {
		return
	}
	out, err := a.svc.Scan(r.Context(), usecase.ScanInput{City: in.City, Keyword: in.Keyword})
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	resp := scanResponse{Leads: nonNil(out.Leads), Count: len(out.Leads)}
	if resp.Count == 0 {
		resp.Message = emptyScanMessage
	}
	writeJSON(w, http.StatusOK, resp)
}

func (a *api) reply(w http.ResponseWriter, r *http.Request) {
	var in replyRequest
	if !a.decode(w, r, &in, true) {
		return
	}
	lead, err := a.svc.InjectReply(r.Context(), chi.URLParam(r, "id"), in.Text)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (a *api) draft(w http.ResponseWriter, r *http.Request) {
	lead, err := a.svc.DraftMessage(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (a *api) reject(w http.ResponseWriter, r *http.Request) {
	var in rejectRequest
	if !a.decode(w, r, &in, false) {
		return
	}
	lead, err := a.svc.RejectLead(r.Context(), chi.URLParam(r, "id"), in.Reason)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, lead)
}

func (a *api) pilot(w http.ResponseWriter, r *http.Request) {
	var in pilotRequest
	if !a.decode(w, r, &in, false) {
		return
	}
	report, err := a.svc.RunPilot(r.Context(), in.LeadIDs)
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (a *api) listMeetings(w http.ResponseWriter, r *http.Request) {
	meetings, err := a.svc.ListMeetings(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, nonNil(meetings))
}

func (a *api) stats(w http.ResponseWriter, r *http.Request) {
	s, err := a.svc.Stats(r.Context())
	if err != nil {
		a.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s)
}

func (a *api) activity(w http.ResponseWriter, r *http.Request) {
	limit := defaultActivityLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_limit"})
			return
		}
		limit = n
	}
	writeJSON(w, http.StatusOK, nonNil(a.svc.Activity(limit)))
}

func (a *api) credentials(w http.ResponseWriter, r *http.Request) {
	var in credentialsRequest
	if !a.decode(w, r, &in, true) {
		return
	}
	if err := a.rekeyer.Rekey(r.Context(), in.APIKey); err != nil {
		if errors.Is(err, credential.ErrMissing) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "api_key_required"})
			return
		}
		a.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// decode reads a JSON body into dst. An empty body is accepted unless
// required is set.
func (a *api) decode(w http.ResponseWriter, r *http.Request, dst any, required bool) bool {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil || (errors.Is(err, io.EOF) && !required) {
		return true
	}
	writeJSON(w, http.StatusBadRequest, errorResponse{Error: string(usecase.ErrorInvalidInput), Reason: "invalid_body"})
	return false
}

func (a *api) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := mapError(err)
	log := logger.FromContext(r.Context(), a.logger)
	if status >= http.StatusInternalServerError {
		log.ErrorContext(r.Context(), "request failed", slog.String("code", body.Error), slog.Any("err", err))
	} else {
		log.WarnContext(r.Context(), "request rejected", slog.String("code", body.Error), slog.Any("err", err))
	}
	writeJSON(w, status, body)
}

func mapError(err error) (int, errorResponse) {
	var ue *usecase.Error
	if !errors.As(err, &ue) {
		return http.StatusInternalServerError, errorResponse{Error: string(usecase.ErrorInternal)}
	}
	body := errorResponse{Error: string(ue.Code), Reason: ue.Reason}
	switch ue.Code {
	case usecase.ErrorInvalidInput:
		return http.StatusBadRequest, body
	case usecase.ErrorInvalidState:
		return http.StatusConflict, body
	case usecase.ErrorNotFound:
		return http.StatusNotFound, body
	case usecase.ErrorMissingCredential:
		body.Message = "An API key is required. Supply one and retry."
		return http.StatusUnauthorized, body
	case usecase.ErrorAuthFailed:
		body.Message = "The API key was rejected or cannot access the requested model. Supply a valid key from a paid project."
		return http.StatusUnauthorized, body
	case usecase.ErrorRateLimited:
		return http.StatusTooManyRequests, body
	case usecase.ErrorUpstream:
		return http.StatusBadGateway, body
	default:
		return http.StatusInternalServerError, body
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
