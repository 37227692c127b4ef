package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-lambda-go/events"

	"leadgen-agent/internal/activity"
	"leadgen-agent/internal/domain"
	"leadgen-agent/internal/usecase"
)

const correlationHeader = "X-Correlation-Id"

// Service is the operator-facing surface served over HTTP and Lambda.
type Service interface {
	Scan(ctx context.Context, in usecase.ScanInput) (usecase.ScanOutput, error)
	ListLeads(ctx context.Context) ([]domain.Lead, error)
	ClearLeads(ctx context.Context) error
	InjectReply(ctx context.Context, leadID, text string) (domain.Lead, error)
	DraftMessage(ctx context.Context, leadID string) (domain.Lead, error)
	RejectLead(ctx context.Context, leadID, reason string) (domain.Lead, error)
	RunPilot(ctx context.Context, ids []string) (usecase.RunReport, error)
	ListMeetings(ctx context.Context) ([]domain.Meeting, error)
	Stats(ctx context.Context) (usecase.Stats, error)
	Activity(limit int) []activity.Entry
}

// Rekeyer accepts a replacement API key for the generation collaborator.
type Rekeyer interface {
	Rekey(ctx context.Context, apiKey string) error
}

// Handler adapts API Gateway proxy events onto the router.
type Handler struct {
	router http.Handler
}

func NewHandler(svc Service, opts ...Option) (*Handler, error) {
	router, err := NewRouter(svc, opts...)
	if err != nil {
		return nil, err
	}
	return &Handler{router: router}, nil
}

func (h *Handler) Handle(ctx context.Context, event events.APIGatewayProxyRequest) (events.APIGatewayProxyResponse, error) {
	req, err := toHTTPRequest(ctx, event)
	if err != nil {
		slog.WarnContext(ctx, "invalid proxy event", "err", err)
		return events.APIGatewayProxyResponse{
			StatusCode: http.StatusBadRequest,
			Headers:    map[string]string{"Content-Type": "application/json"},
			Body:       `{"error":"INVALID_INPUT","reason":"invalid_event"}`,
		}, nil
	}

	rec := newRecorder()
	h.router.ServeHTTP(rec, req)

	headers := make(map[string]string, len(rec.header))
	for k, v := range rec.header {
		if len(v) > 0 {
			headers[k] = v[0]
		}
	}
	return events.APIGatewayProxyResponse{
		StatusCode: rec.status,
		Headers:    headers,
		Body:       rec.body.String(),
	}, nil
}

func toHTTPRequest(ctx context.Context, event events.APIGatewayProxyRequest) (*http.Request, error) {
	body := []byte(event.Body)
	if event.IsBase64Encoded {
		decoded, err := base64.StdEncoding.DecodeString(event.Body)
		if err != nil {
			return nil, fmt.Errorf("decode body: %w", err)
		}
		body = decoded
	}

	path := event.Path
	if path == "" {
		path = "/"
	}
	query := url.Values{}
	for k, vs := range event.MultiValueQueryStringParameters {
		for _, v := range vs {
			query.Add(k, v)
		}
	}
	for k, v := range event.QueryStringParameters {
		if _, ok := query[k]; !ok {
			query.Set(k, v)
		}
	}
	target := path
	if len(query) > 0 {
		target += "?" + query.Encode()
	}

	method := strings.ToUpper(strings.TrimSpace(event.HTTPMethod))
	if method == "" {
		return nil, errors.New("missing http method")
	}
	req, err := http.NewRequestWithContext(ctx, method, target, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	for k, vs := range event.MultiValueHeaders {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}
	for k, v := range event.Headers {
		if req.Header.Get(k) == "" {
			req.Header.Set(k, v)
		}
	}
	return req, nil
}

// recorder is the minimal http.ResponseWriter needed to capture a response
// for the proxy integration.
type recorder struct {
	header      http.Header
	body        bytes.Buffer
	status      int
	wroteHeader bool
}

func newRecorder() *recorder {
	return &recorder{header: http.Header{}, status: http.StatusOK}
}

func (r *recorder) Header() http.Header { return r.header }

func (r *recorder) WriteHeader(status int) {
	if r.wroteHeader {
		return
	}
	r.status = status
	r.wroteHeader = true
}

func (r *recorder) Write(p []byte) (int, error) {
	r.wroteHeader = true
	return r.body.Write(p)
}
