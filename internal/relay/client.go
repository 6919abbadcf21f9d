package relay

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/kapu/vn-en-translate-go/internal/domain"
	"github.com/kapu/vn-en-translate-go/pkg/errors"
	"go.uber.org/zap"
)

// Client talks to the relay's plain HTTP surface. Interactive asks the
// relay for pinned sampling on every request.
type Client struct {
	Interactive bool

	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

func NewClient(baseURL string, timeout time.Duration, logger *zap.Logger) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		logger: logger,
	}
}

// Translate posts one request. A relay-side failure comes back as a result
// carrying Error; only transport problems are returned as errors.
func (c *Client) Translate(ctx context.Context, req domain.SelectionRequest) (domain.TranslationResult, error) {
	msg := domain.NewMessage("", domain.ActionTranslate, req)
	msg.Interactive = c.Interactive

	var resp domain.Response
	status, err := c.doRequest(ctx, http.MethodPost, "/translate", msg, &resp)
	if err != nil && status != http.StatusBadGateway && status != http.StatusBadRequest {
		c.logger.Error("Relay translate request failed", zap.Error(err))
		return domain.TranslationResult{}, err
	}
	return resp.Result(), nil
}

func (c *Client) Health(ctx context.Context) (*HealthResponse, error) {
	var health HealthResponse
	if _, err := c.doRequest(ctx, http.MethodGet, "/healthz", nil, &health); err != nil {
		c.logger.Error("Failed to get relay health", zap.Error(err))
		return nil, err
	}
	return &health, nil
}

func (c *Client) Ping(ctx context.Context) bool {
	_, err := c.Health(ctx)
	return err == nil
}

// doRequest decodes the body into respBody even on error statuses so callers
// can read the relay's error reply.
func (c *Client) doRequest(ctx context.Context, method, path string, reqBody, respBody any) (int, error) {
	url := c.baseURL + path

	var bodyReader io.Reader
	if reqBody != nil {
		jsonData, err := json.Marshal(reqBody)
		if err != nil {
			return 0, errors.NewAPIError("failed to marshal request", 400, map[string]any{
				"url": url,
			}).WithCause(err)
		}
		bodyReader = bytes.NewReader(jsonData)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return 0, errors.NewAPIError("failed to create request", 500, map[string]any{
			"url": url,
		}).WithCause(err)
	}

	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, errors.NewAPIError("request failed", 500, map[string]any{
			"url": url,
		}).WithCause(err)
	}
	defer resp.Body.Close()

	bodyBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, errors.NewAPIError("failed to read response", 500, map[string]any{
			"url": url,
		}).WithCause(err)
	}

	if respBody != nil && len(bodyBytes) > 0 {
		if err := json.Unmarshal(bodyBytes, respBody); err != nil {
			return resp.StatusCode, errors.NewAPIError("failed to decode response", 500, map[string]any{
				"url": url,
			}).WithCause(err)
		}
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return resp.StatusCode, errors.NewAPIError(
			fmt.Sprintf("relay API error: %s", resp.Status),
			resp.StatusCode,
			map[string]any{
				"url":  url,
				"body": string(bodyBytes),
			},
		)
	}

	return resp.StatusCode, nil
}
