package prediction

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/crimelens/crime-insights-service/internal/config"
	"github.com/crimelens/crime-insights-service/internal/domain"
)

const maxErrorBody = 4 << 10

var errMalformedResponse = errors.New("malformed prediction response")

type predictRequest struct {
	Data   []Feature      `json:"data"`
	Params map[string]any `json:"params"`
}

// Client calls a MindsDB-style model endpoint over HTTP
type Client struct {
	endpoint   string
	target     string
	httpClient *http.Client
	log        *zap.Logger
}

// NewHTTPClient builds the transport used for model calls. Deadlines come from
// the request context, so the client itself has no overall timeout.
func NewHTTPClient() *http.Client {
	tr := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		DialContext:         (&net.Dialer{Timeout: 5 * time.Second, KeepAlive: 60 * time.Second}).DialContext,
		MaxIdleConns:        100,
		IdleConnTimeout:     90 * time.Second,
		TLSHandshakeTimeout: 5 * time.Second,
	}
	return &http.Client{Transport: tr}
}

// NewClient creates a model client for the configured project and model
func NewClient(cfg config.Predictor, httpClient *http.Client, log *zap.Logger) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid predictor base URL %q", cfg.BaseURL)
	}
	if cfg.Target == "" {
		return nil, errors.New("predictor target column is required")
	}
	if httpClient == nil {
		httpClient = NewHTTPClient()
	}

	endpoint := base.JoinPath("api", "projects", cfg.Project, "models", cfg.Model, "predict")

	log.Info("Prediction client configured",
		zap.String("endpoint", endpoint.String()),
		zap.String("target", cfg.Target))

	return &Client{
		endpoint:   endpoint.String(),
		target:     cfg.Target,
		httpClient: httpClient,
		log:        log,
	}, nil
}

// Predict sends the whole batch in a single request
func (c *Client) Predict(ctx context.Context, features []Feature) ([]domain.PredictionResult, error) {
	body, err := json.Marshal(predictRequest{
		Data:   features,
		Params: map[string]any{"predict_proba": true},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal features: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create prediction request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("prediction request failed: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			c.log.Warn("Failed to close prediction response body", zap.Error(err))
		}
	}()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return nil, fmt.Errorf("model service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	var rows []map[string]json.RawMessage
	if err := json.NewDecoder(resp.Body).Decode(&rows); err != nil {
		return nil, fmt.Errorf("%w: %v", errMalformedResponse, err)
	}

	results := make([]domain.PredictionResult, len(rows))
	for i, row := range rows {
		result, err := c.parseRow(row)
		if err != nil {
			return nil, fmt.Errorf("%w: row %d: %v", errMalformedResponse, i, err)
		}
		results[i] = result
	}

	return results, nil
}

func (c *Client) parseRow(row map[string]json.RawMessage) (domain.PredictionResult, error) {
	row = foldKeys(row)
	target := strings.ToLower(c.target)

	var category string
	if err := json.Unmarshal(row[target], &category); err != nil || category == "" {
		return domain.PredictionResult{}, fmt.Errorf("missing %s", c.target)
	}

	confidence, err := c.confidence(row, target)
	if err != nil {
		return domain.PredictionResult{}, err
	}
	if math.IsNaN(confidence) || confidence < 0 || confidence > 1 {
		return domain.PredictionResult{}, fmt.Errorf("confidence %v outside [0,1]", confidence)
	}

	return domain.PredictionResult{Category: category, Confidence: confidence}, nil
}

// confidence reads <target>_confidence, falling back to the confidence inside <target>_explain
func (c *Client) confidence(row map[string]json.RawMessage, target string) (float64, error) {
	if raw, ok := row[target+"_confidence"]; ok {
		return parseFloat(raw)
	}

	raw, ok := row[target+"_explain"]
	if !ok {
		return 0, fmt.Errorf("missing %s_confidence", c.target)
	}

	// explain arrives either as an object or as a JSON-encoded string of one
	var encoded string
	if err := json.Unmarshal(raw, &encoded); err == nil {
		raw = json.RawMessage(encoded)
	}
	var explain struct {
		Confidence json.RawMessage `json:"confidence"`
	}
	if err := json.Unmarshal(raw, &explain); err != nil || explain.Confidence == nil {
		return 0, fmt.Errorf("missing confidence in %s_explain", c.target)
	}
	return parseFloat(explain.Confidence)
}

func parseFloat(raw json.RawMessage) (float64, error) {
	var f float64
	if err := json.Unmarshal(raw, &f); err == nil {
		return f, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return 0, fmt.Errorf("confidence %s is not a number", string(raw))
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("confidence %q is not a number", s)
	}
	return f, nil
}

func foldKeys(row map[string]json.RawMessage) map[string]json.RawMessage {
	out := make(map[string]json.RawMessage, len(row))
	for k, v := range row {
		out[strings.ToLower(k)] = v
	}
	return out
}
