package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	"taskconsole/internal/config"
)

// Envelope is the backend's uniform response wrapper.
type Envelope struct {
	IsSuccess bool            `json:"isSuccess"`
	Message   string          `json:"message"`
	Data      json.RawMessage `json:"data"`
}

// APIError is a non-login backend failure: either a transport-level status
// or an isSuccess=false envelope.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend request failed (status %d): %s", e.Status, e.Message)
}

// Client talks to the two backend surfaces the console consumes: the
// transversal layer (Authentication, GetAccessibleModulesAndMenus) and the
// application API (Users, Tasks).
type Client struct {
	transversalURL string
	applicationURL string
	http           *http.Client
	logger         *zap.Logger
	maxRetries     uint64
}

func NewClient(cfg *config.BackendConfig, logger *zap.Logger) *Client {
	return &Client{
		transversalURL: strings.TrimRight(cfg.TransversalURL, "/"),
		applicationURL: strings.TrimRight(cfg.ApplicationURL, "/"),
		http:           &http.Client{Timeout: cfg.RequestTimeout},
		logger:         logger,
		maxRetries:     uint64(cfg.MaxRetries),
	}
}

// do performs one backend call and unwraps the envelope. Callers receive the
// raw data payload; an isSuccess=false envelope or an error status becomes an
// *APIError.
func (c *Client) do(ctx context.Context, method, base, path string, query url.Values, body any) (json.RawMessage, error) {
	endpoint := base + "/" + strings.TrimLeft(path, "/")
	if len(query) > 0 {
		endpoint += "?" + query.Encode()
	}

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	var env Envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil {
		if resp.StatusCode >= 400 {
			return nil, &APIError{Status: resp.StatusCode, Message: resp.Status}
		}
		return nil, err
	}
	if resp.StatusCode >= 400 || !env.IsSuccess {
		return nil, &APIError{Status: resp.StatusCode, Message: env.Message}
	}
	return env.Data, nil
}
