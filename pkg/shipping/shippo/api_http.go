package shippo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tournevent/tradepost/pkg/shipping"
)

// DefaultBaseURL is the public Shippo API endpoint.
const DefaultBaseURL = "https://api.goshippo.com"

// DefaultAuthScheme prefixes the API key in the Authorization header.
const DefaultAuthScheme = "ShippoToken"

// HTTPAPIClient is the production implementation of APIClient using HTTP.
type HTTPAPIClient struct {
	baseURL    string
	authHeader string
	httpClient *http.Client
}

// HTTPAPIClientConfig holds configuration for the HTTP client.
type HTTPAPIClientConfig struct {
	BaseURL    string
	APIKey     string
	AuthScheme string
	Timeout    time.Duration
	HTTPClient *http.Client // optional, overrides Timeout
}

// NewHTTPAPIClient creates a new HTTP-based API client for production use.
func NewHTTPAPIClient(cfg HTTPAPIClientConfig) *HTTPAPIClient {
	baseURL := strings.TrimRight(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}

	scheme := cfg.AuthScheme
	if scheme == "" {
		scheme = DefaultAuthScheme
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		timeout := cfg.Timeout
		if timeout == 0 {
			timeout = 30 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}

	return &HTTPAPIClient{
		baseURL:    baseURL,
		authHeader: scheme + " " + cfg.APIKey,
		httpClient: httpClient,
	}
}

// CreateShipment creates a shipment via the Shippo API.
// POST /shipments with async=false returns the rates in the same response.
func (c *HTTPAPIClient) CreateShipment(ctx context.Context, req *ShipmentRequest) (*ShipmentResponse, error) {
	var result ShipmentResponse
	if err := c.do(ctx, http.MethodPost, "/shipments", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// CreateTransaction purchases a label via the Shippo API.
// POST /transactions
func (c *HTTPAPIClient) CreateTransaction(ctx context.Context, req *TransactionRequest) (*TransactionResponse, error) {
	var result TransactionResponse
	if err := c.do(ctx, http.MethodPost, "/transactions", req, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// GetTrack retrieves tracking information via the Shippo API.
// GET /tracks/{carrier}/{tracking_number}
func (c *HTTPAPIClient) GetTrack(ctx context.Context, carrier, trackingNumber string) (*TrackResponse, error) {
	path := fmt.Sprintf("/tracks/%s/%s", url.PathEscape(carrier), url.PathEscape(trackingNumber))

	var result TrackResponse
	if err := c.do(ctx, http.MethodGet, path, nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// do performs a request and decodes a 2xx body into out.
func (c *HTTPAPIClient) do(ctx context.Context, method, path string, body, out any) error {
	resp, err := c.doRequest(ctx, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return c.parseError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %v", shipping.ErrMalformedResponse, method, path, err)
	}
	return nil
}

// doRequest performs an HTTP request with proper headers and authentication.
func (c *HTTPAPIClient) doRequest(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Authorization", c.authHeader)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "tradepost/1.0")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	return c.httpClient.Do(req)
}

// parseError extracts error information from an HTTP response.
func (c *HTTPAPIClient) parseError(resp *http.Response) error {
	body, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))

	msg := extractMessage(body)
	if msg == "" {
		msg = http.StatusText(resp.StatusCode)
	}

	return &APIError{
		StatusCode: resp.StatusCode,
		Message:    msg,
	}
}

// extractMessage pulls a human readable message out of a Shippo error body.
// Shippo answers with one of {"detail": ...}, {"message": ...}, {"error": ...}
// or {"messages": [{"text": ...}]}. Bodies that are not JSON yield "".
func extractMessage(body []byte) string {
	var payload struct {
		Detail   string `json:"detail"`
		Message  string `json:"message"`
		Error    string `json:"error"`
		Messages []struct {
			Text string `json:"text"`
		} `json:"messages"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return ""
	}

	switch {
	case payload.Detail != "":
		return payload.Detail
	case payload.Message != "":
		return payload.Message
	case payload.Error != "":
		return payload.Error
	}

	texts := make([]string, 0, len(payload.Messages))
	for _, m := range payload.Messages {
		if m.Text != "" {
			texts = append(texts, m.Text)
		}
	}
	return strings.Join(texts, "; ")
}

// Ensure HTTPAPIClient implements APIClient interface
var _ APIClient = (*HTTPAPIClient)(nil)
