// Package vmsone is the client for the VMSONE backend API.
package vmsone

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/kozaktomas/vms-kiosk/internal/config"
	"github.com/kozaktomas/vms-kiosk/internal/visitor"
	"go.uber.org/zap"
)

// Client talks to one VMSONE deployment. It holds no credentials; callers pass the
// access token per request.
type Client struct {
	URL        string
	parsedURL  *url.URL
	endpoints  config.Endpoints
	httpClient *http.Client
	logger     *zap.Logger
}

// New creates a client for the API rooted at rawURL, e.g. http://localhost:3000/api.
func New(rawURL string, endpoints config.Endpoints, logger *zap.Logger) (*Client, error) {
	parsed, err := url.Parse(strings.TrimRight(rawURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid VMSONE URL: %w", err)
	}
	if parsed.Scheme == "" || parsed.Host == "" {
		return nil, fmt.Errorf("invalid VMSONE URL %q: scheme and host required", rawURL)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{
		URL:        parsed.String(),
		parsedURL:  parsed,
		endpoints:  endpoints,
		httpClient: &http.Client{},
		logger:     logger,
	}, nil
}

// SetHTTPClient replaces the underlying HTTP client.
func (c *Client) SetHTTPClient(hc *http.Client) {
	c.httpClient = hc
}

// resolveURL builds a full URL from the base API URL and an endpoint path.
func (c *Client) resolveURL(endpoint string) string {
	return c.parsedURL.JoinPath(strings.Split(strings.Trim(endpoint, "/"), "/")...).String()
}

// Message is the message field of a response. Validation failures carry a list of
// messages, which are joined.
type Message string

func (m *Message) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case bytes.Equal(data, []byte("null")):
		*m = ""
	case len(data) > 0 && data[0] == '[':
		var list []string
		if err := json.Unmarshal(data, &list); err != nil {
			return err
		}
		*m = Message(strings.Join(list, "; "))
	default:
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*m = Message(s)
	}
	return nil
}

// Response is the common shape of VMSONE responses. Each endpoint fills a subset.
type Response struct {
	Message     Message         `json:"message,omitempty"`
	Visitor     *visitor.Record `json:"visitor,omitempty"`
	Distance    *float64        `json:"distance,omitempty"`
	AccessToken string          `json:"access_token,omitempty"`
}

// readMessage extracts the message of an error response body. Non-JSON bodies are
// returned trimmed, capped at 200 bytes.
func readMessage(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, 64<<10))
	if err != nil {
		return ""
	}
	var resp struct {
		Message Message `json:"message"`
		Error   string  `json:"error"`
	}
	if err := json.Unmarshal(body, &resp); err == nil {
		if resp.Message != "" {
			return string(resp.Message)
		}
		return resp.Error
	}
	text := strings.TrimSpace(string(body))
	if len(text) > 200 {
		text = text[:200]
	}
	if strings.HasPrefix(text, "<") {
		// HTML error page from a proxy
		return ""
	}
	return text
}
