package cfimages

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
)

// DefaultBaseURL is the production Cloudflare API endpoint.
const DefaultBaseURL = "https://api.cloudflare.com/client/v4"

// ErrInvalidRequest is wrapped by every validation failure the client
// raises before dispatching a request. No network exchange happens when
// a call fails with it.
var ErrInvalidRequest = errors.New("cfimages: invalid request")

// ClientOptions configures a Client.
type ClientOptions struct {
	// APIKey authenticates every request as a bearer token. Required.
	APIKey string
	// AccountID scopes every request to a Cloudflare account. Required.
	AccountID string
	// BaseURL overrides the API endpoint, e.g. to target a local
	// stand-in server. Defaults to DefaultBaseURL.
	BaseURL string
	// HTTPClient performs the actual exchanges. Timeouts and transport
	// behavior are its concern, not the client's. Defaults to
	// http.DefaultClient.
	HTTPClient *http.Client
	// Logger receives request and error logging when enabled. Defaults
	// to a no-op.
	Logger      Logger
	LogRequests bool
	LogErrors   bool
}

// Client is a typed client for the Cloudflare Images v1 API. Its
// credentials are fixed at construction; a Client is safe for
// concurrent use and holds no other state between calls.
type Client struct {
	apiKey      string
	accountID   string
	baseURL     string
	httpc       *http.Client
	log         Logger
	logRequests bool
	logErrors   bool
}

// New creates a Client from opts. APIKey and AccountID are required.
func New(opts ClientOptions) (*Client, error) {
	if opts.APIKey == "" {
		return nil, fmt.Errorf("%w: APIKey is required", ErrInvalidRequest)
	}
	if opts.AccountID == "" {
		return nil, fmt.Errorf("%w: AccountID is required", ErrInvalidRequest)
	}

	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	httpc := opts.HTTPClient
	if httpc == nil {
		httpc = http.DefaultClient
	}
	log := opts.Logger
	if log == nil {
		log = NopLogger{}
	}

	return &Client{
		apiKey:      opts.APIKey,
		accountID:   opts.AccountID,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpc:       httpc,
		log:         log,
		logRequests: opts.LogRequests,
		logErrors:   opts.LogErrors,
	}, nil
}

// apiPath builds the full URL for a path suffix under the account's
// images resource, e.g. "/v1/variants".
func (c *Client) apiPath(suffix string) string {
	return c.baseURL + "/accounts/" + c.accountID + "/images" + suffix
}

// do performs one request/response exchange and decodes the envelope.
//
// Remote rejections come back as a decoded envelope with Success=false
// for the caller to branch on; only transport-level failures (dial,
// context cancellation, read, malformed JSON) are returned as errors.
func do[T any](ctx context.Context, c *Client, method, suffix, contentType string, body io.Reader) (*Response[T], error) {
	url := c.apiPath(suffix)

	if c.logRequests {
		c.log.Debug("images api request", "method", method, "path", suffix)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpc.Do(req)
	if err != nil {
		if c.logErrors {
			c.log.Error("images api request failed", "method", method, "path", suffix, "error", err)
		}
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		if c.logErrors {
			c.log.Error("images api read failed", "method", method, "path", suffix, "error", err)
		}
		return nil, fmt.Errorf("read response: %w", err)
	}

	env := &Response[T]{}
	if err := json.Unmarshal(data, env); err != nil {
		if c.logErrors {
			c.log.Error("images api decode failed", "method", method, "path", suffix, "status", resp.StatusCode, "error", err)
		}
		return nil, fmt.Errorf("decode response envelope (status %d): %w", resp.StatusCode, err)
	}

	if !env.Success && c.logErrors {
		first := env.FirstError()
		c.log.Error("images api error", "method", method, "path", suffix,
			"status", resp.StatusCode, "code", first.Code, "message", first.Message)
	}

	return env, nil
}
