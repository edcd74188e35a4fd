package predict

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/sells-group/crime-map/internal/resilience"
)

// maxErrorBody caps how much of an error response is kept in messages.
const maxErrorBody = 512

// Option configures the HTTP client.
type Option func(*HTTPClient)

// WithHTTPClient sets the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *HTTPClient) {
		c.http = hc
	}
}

// WithRetry sets the retry policy for transient failures.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *HTTPClient) {
		c.retry = cfg
	}
}

// WithCircuitBreaker sets the breaker guarding the model server.
func WithCircuitBreaker(cb *resilience.CircuitBreaker) Option {
	return func(c *HTTPClient) {
		c.breaker = cb
	}
}

// WithRateLimit sets the requests-per-second limit for model calls.
func WithRateLimit(rps float64) Option {
	return func(c *HTTPClient) {
		burst := int(rps)
		if burst < 1 {
			burst = 1
		}
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// HTTPClient calls a model server exposing POST /predict and GET /health.
type HTTPClient struct {
	baseURL string
	http    *http.Client
	limiter *rate.Limiter
	retry   resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

// NewHTTPClient creates a model client for baseURL.
func NewHTTPClient(baseURL string, opts ...Option) *HTTPClient {
	c := &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
		limiter: rate.NewLimiter(20, 20),
		retry:   resilience.DefaultRetryConfig(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.breaker == nil {
		cfg := resilience.NewCircuitBreakerConfig(0, 0)
		cfg.ShouldTrip = TripOnUnavailable
		c.breaker = resilience.NewCircuitBreaker(cfg)
	}
	c.retry.OnRetry = resilience.RetryLogger("predict")
	return c
}

type predictRequest struct {
	Data []Query `json:"data"`
}

type predictResponse struct {
	Label json.RawMessage `json:"prediction_label"`
	Score float64         `json:"prediction_score"`
}

// Predict sends q to the model server. Transient failures are retried;
// the returned error is an *Error classified by kind.
func (c *HTTPClient) Predict(ctx context.Context, q Query) (*Prediction, error) {
	body, err := json.Marshal(predictRequest{Data: []Query{q}})
	if err != nil {
		return nil, &Error{Kind: ErrBadResponse, Message: "encode query", Err: err}
	}

	pred, err := resilience.ExecuteVal(ctx, c.breaker, func(ctx context.Context) (*Prediction, error) {
		return resilience.DoVal(ctx, c.retry, func(ctx context.Context) (*Prediction, error) {
			return c.post(ctx, body)
		})
	})
	if err != nil {
		err = classify(err)
		zap.L().Warn("predict: model call failed", zap.Error(err))
		return nil, err
	}

	zap.L().Debug("predict: model answered",
		zap.Int("label", pred.Label),
		zap.Float64("score", pred.Score),
	)
	return pred, nil
}

func (c *HTTPClient) post(ctx context.Context, body []byte) (*Prediction, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, &Error{Kind: ErrModelUnavailable, Message: "rate limiter wait", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/predict", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: ErrModelUnavailable, Message: "create request", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, resilience.NewTransientError(err, 0)
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resilience.NewTransientError(err, resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK {
		msg := strings.TrimSpace(string(raw))
		if len(msg) > maxErrorBody {
			msg = msg[:maxErrorBody]
		}
		if resilience.IsTransientHTTPStatus(resp.StatusCode) {
			return nil, resilience.NewTransientError(
				&Error{Kind: ErrModelUnavailable, StatusCode: resp.StatusCode, Message: msg},
				resp.StatusCode,
			)
		}
		return nil, &Error{Kind: ErrModelRejected, StatusCode: resp.StatusCode, Message: msg}
	}

	var out predictResponse
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &Error{Kind: ErrBadResponse, Message: "decode response", Err: err}
	}
	label, err := parseLabel(out.Label)
	if err != nil {
		return nil, &Error{Kind: ErrBadResponse, Err: err}
	}

	return &Prediction{Label: label, Score: out.Score}, nil
}

// parseLabel accepts 7, 7.0 and "7".
func parseLabel(raw json.RawMessage) (int, error) {
	s := strings.Trim(strings.TrimSpace(string(raw)), `"`)
	if s == "" || s == "null" {
		return 0, eris.New("predict: missing prediction_label")
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n, nil
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil || f != float64(int(f)) {
		return 0, eris.Errorf("predict: non-integer prediction_label %q", s)
	}
	return int(f), nil
}

// TripOnUnavailable counts only unavailability toward opening the circuit.
func TripOnUnavailable(err error) bool {
	return resilience.IsTransient(err) || errors.Is(err, ErrModelUnavailable)
}

// classify turns whatever came out of the retry/breaker stack into an *Error.
func classify(err error) error {
	var pe *Error
	if errors.As(err, &pe) {
		return pe
	}
	if errors.Is(err, resilience.ErrCircuitOpen) {
		return &Error{Kind: ErrModelUnavailable, Message: "circuit open", Err: err}
	}
	return &Error{Kind: ErrModelUnavailable, Err: err}
}

// Health probes GET /health.
func (c *HTTPClient) Health(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health", nil)
	if err != nil {
		return &Error{Kind: ErrModelUnavailable, Message: "create request", Err: err}
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return &Error{Kind: ErrModelUnavailable, Err: err}
	}
	defer resp.Body.Close() //nolint:errcheck
	if resp.StatusCode != http.StatusOK {
		return &Error{Kind: ErrModelUnavailable, StatusCode: resp.StatusCode, Message: "health check failed"}
	}
	return nil
}
