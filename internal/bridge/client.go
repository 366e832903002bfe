package bridge

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/go-retryablehttp"
)

// ///////////////////////////////////////////////
// Client
// ///////////////////////////////////////////////

// CommandError is a failure reported by the running bridge for one command.
type CommandError struct {
	Command string
	Message string
}

func (e *CommandError) Error() string { return e.Command + ": " + e.Message }

// Client calls a running bridge over HTTP. The CLI uses it to reach the
// presence connection owned by `deskcord serve`.
type Client struct {
	base string
	http *retryablehttp.Client
}

// NewClient returns a Client for the bridge listening on addr
// ("host:port" or a full http URL).
func NewClient(addr string) *Client {
	base := strings.TrimRight(addr, "/")
	if !strings.Contains(base, "://") {
		base = "http://" + base
	}
	c := retryablehttp.NewClient()
	c.RetryMax = 2
	c.RetryWaitMin = 100 * time.Millisecond
	c.RetryWaitMax = time.Second
	c.HTTPClient.Timeout = 30 * time.Second
	c.Logger = nil
	return &Client{base: base, http: c}
}

// Invoke runs a named command with args (any JSON-encodable value, nil for
// none) and returns the raw result.
func (c *Client) Invoke(ctx context.Context, name string, args any) (json.RawMessage, error) {
	body := []byte("{}")
	if args != nil {
		var err error
		if body, err = json.Marshal(args); err != nil {
			return nil, fmt.Errorf("encoding %s args: %w", name, err)
		}
	}

	url := c.base + "/api/invoke/" + name
	req, err := retryablehttp.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("POST %s: %w", url, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return nil, fmt.Errorf("reading response: %w", err)
	}

	var out struct {
		Result json.RawMessage `json:"result"`
		Error  *string         `json:"error"`
	}
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("POST %s: status %d: %w", url, resp.StatusCode, err)
	}
	if out.Error != nil {
		return nil, &CommandError{Command: name, Message: *out.Error}
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("POST %s: status %d", url, resp.StatusCode)
	}
	return out.Result, nil
}
