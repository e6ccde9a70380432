// Package contentful executes GraphQL queries against the Contentful Content API.
package contentful

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"git.home.luguber.info/inful/pagebuilder/internal/config"
	ferrors "git.home.luguber.info/inful/pagebuilder/internal/foundation/errors"
	"git.home.luguber.info/inful/pagebuilder/internal/logfields"
	"git.home.luguber.info/inful/pagebuilder/internal/metrics"
	"git.home.luguber.info/inful/pagebuilder/internal/queries"
)

// DefaultTimeout bounds one Content API round trip when no HTTP client is injected.
const DefaultTimeout = 30 * time.Second

// maxErrorBody limits how much of a failed response is kept for diagnostics.
const maxErrorBody = 2048

// Request is one GraphQL execution.
type Request struct {
	Query      queries.Query
	Variables  map[string]any
	Preview    bool
	Revalidate Revalidate
}

// Executor runs a query and returns the GraphQL data member.
type Executor interface {
	Execute(ctx context.Context, req Request) (json.RawMessage, error)
}

// Client is the transport-level Executor. It never caches; see fetchcache.
type Client struct {
	cfg        config.ContentfulConfig
	endpoint   string
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	recorder   metrics.Recorder
}

// Option configures a Client.
type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithRecorder(r metrics.Recorder) Option {
	return func(c *Client) { c.recorder = metrics.OrNoop(r) }
}

// New creates a Client for cfg. Credentials are checked per call so commands
// that only need one token still work with the other absent.
func New(cfg config.ContentfulConfig, opts ...Option) *Client {
	rps := cfg.RequestsPerSecond
	if rps <= 0 {
		rps = config.DefaultRequestsPerSecond
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = config.DefaultBurst
	}
	if cfg.GraphQLURL == "" {
		cfg.GraphQLURL = config.DefaultGraphQLURL
	}
	if cfg.Environment == "" {
		cfg.Environment = config.DefaultEnvironment
	}
	c := &Client{
		cfg:        cfg,
		endpoint:   cfg.Endpoint(),
		httpClient: &http.Client{Timeout: DefaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(rps), burst),
		logger:     slog.Default(),
		recorder:   metrics.NoopRecorder{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type graphQLRequest struct {
	Query         string         `json:"query"`
	OperationName string         `json:"operationName,omitempty"`
	Variables     map[string]any `json:"variables,omitempty"`
}

// GraphQLError is one entry of a response's top-level errors list.
type GraphQLError struct {
	Message    string         `json:"message"`
	Path       []any          `json:"path,omitempty"`
	Extensions map[string]any `json:"extensions,omitempty"`
}

type graphQLResponse struct {
	Data   json.RawMessage `json:"data"`
	Errors []GraphQLError  `json:"errors"`
}

// Execute sends req and returns the data member of the response.
func (c *Client) Execute(ctx context.Context, req Request) (json.RawMessage, error) {
	start := time.Now()
	data, status, err := c.execute(ctx, req)
	result := metrics.ResultSuccess
	if err != nil {
		result = metrics.ResultFailed
		c.logger.ErrorContext(ctx, "Content request failed",
			logfields.Operation(req.Query.Name),
			logfields.Variables(req.Variables),
			logfields.Preview(req.Preview),
			logfields.Status(status),
			logfields.Duration(time.Since(start)),
			logfields.Error(err))
	}
	c.recorder.ObserveFetch(req.Query.Name, req.Preview, time.Since(start), result)
	return data, err
}

func (c *Client) execute(ctx context.Context, req Request) (json.RawMessage, int, error) {
	if err := c.cfg.RequireCredentials(req.Preview); err != nil {
		return nil, 0, err
	}
	token := c.cfg.AccessToken
	if req.Preview {
		token = c.cfg.PreviewAccessToken
	}

	body, err := json.Marshal(graphQLRequest{
		Query:         req.Query.Text,
		OperationName: req.Query.Name,
		Variables:     req.Variables,
	})
	if err != nil {
		return nil, 0, ferrors.WrapError(err, ferrors.CategoryInternal, "encode GraphQL request").Build()
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return nil, 0, ferrors.WrapError(err, ferrors.CategoryNetwork, "rate limiter wait aborted").
			WithContext("operation", req.Query.Name).
			Build()
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, 0, ferrors.WrapError(err, ferrors.CategoryInternal, "build GraphQL request").Build()
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, 0, ferrors.WrapError(err, ferrors.CategoryNetwork, "content API request failed").
			WithContext("operation", req.Query.Name).
			Build()
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, resp.StatusCode, statusError(req.Query.Name, resp.StatusCode, snippet)
	}

	var decoded graphQLResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, resp.StatusCode, ferrors.WrapError(err, ferrors.CategoryDecode, "malformed GraphQL response").
			WithContext("operation", req.Query.Name).
			Build()
	}
	if len(decoded.Errors) > 0 {
		return nil, resp.StatusCode, graphQLErrors(req.Query.Name, decoded.Errors)
	}
	if len(decoded.Data) == 0 || string(decoded.Data) == "null" {
		return nil, resp.StatusCode, ferrors.DecodeError("GraphQL response has no data").
			WithContext("operation", req.Query.Name).
			Build()
	}
	return decoded.Data, resp.StatusCode, nil
}

func statusError(operation string, status int, body []byte) error {
	msg := fmt.Sprintf("content API returned %d %s", status, http.StatusText(status))
	var b *ferrors.ErrorBuilder
	switch status {
	case http.StatusUnauthorized, http.StatusForbidden:
		b = ferrors.AuthError(msg)
	case http.StatusTooManyRequests:
		b = ferrors.RemoteError(msg).WithRetry(ferrors.RetryRateLimit)
	default:
		b = ferrors.RemoteError(msg)
	}
	b = b.WithContext("operation", operation).WithContext("status", status)
	if s := strings.TrimSpace(string(body)); s != "" {
		b = b.WithContext("body", s)
	}
	return b.Build()
}

func graphQLErrors(operation string, errs []GraphQLError) error {
	msgs := make([]string, 0, len(errs))
	for _, e := range errs {
		msgs = append(msgs, e.Message)
	}
	return ferrors.RemoteError("GraphQL errors: "+strings.Join(msgs, "; ")).
		WithContext("operation", operation).
		WithContext("errors", len(errs)).
		Build()
}
