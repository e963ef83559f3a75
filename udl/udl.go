// Copyright 2023 UrbanDataLab AG

// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at

//     http://www.apache.org/licenses/LICENSE-2.0

// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package udl

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/stockparfait/errors"
	"github.com/stockparfait/logging"
)

type contextKey int

const (
	clientContextKey contextKey = iota
)

// URL is the default base URL of the platform. It may be overwritten in
// tests before creating a new client.
var URL = "https://api.udl.ai/api/v1/public"

// DefaultTimeout bounds a single API round trip of the default HTTP client.
const DefaultTimeout = 60 * time.Second

// Client issues authenticated requests against the UDL.AI API. It holds no
// session state beyond the credential and is safe for concurrent use.
type Client struct {
	baseURL    string // the base URL of the server
	token      string // API token assigned to a user
	httpClient *http.Client
}

// newClient creates a new client.
func newClient(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: httpClient,
	}
}

// GetClient extracts the Client from the context, if any.
func GetClient(ctx context.Context) *Client {
	c, ok := ctx.Value(clientContextKey).(*Client)
	if !ok {
		return nil
	}
	return c
}

// UseClient creates a new client based on the API token and injects it into
// the context.
func UseClient(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, token, nil))
}

// UseClientHTTP is UseClient with a custom HTTP client, for tests and for
// callers layering their own timeout or retry policy on the transport.
func UseClientHTTP(ctx context.Context, token string, httpClient *http.Client) context.Context {
	return context.WithValue(ctx, clientContextKey, newClient(URL, token, httpClient))
}

// clientFrom extracts the client from the context, failing with an
// authentication error when no client was injected.
func clientFrom(ctx context.Context) (*Client, error) {
	c := GetClient(ctx)
	if c == nil {
		return nil, &Error{Kind: KindAuthentication, Message: "no client in context"}
	}
	return c, nil
}

// apiError is the error payload shape of the platform.
type apiError struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details"`
	Status  int             `json:"status"`
}

// detailsString renders the details field, which the server sends either as
// a string or as a list of strings.
func detailsString(raw json.RawMessage) string {
	if len(raw) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	var list []string
	if err := json.Unmarshal(raw, &list); err == nil {
		return strings.Join(list, "; ")
	}
	return string(raw)
}

// propagateError converts a non-2xx response into a typed error.
func propagateError(code int, body []byte) error {
	e := &Error{Kind: statusKind(code), Status: code}
	var ae apiError
	if err := json.Unmarshal(body, &ae); err == nil && ae.Error != "" {
		e.Message = ae.Error
		e.Details = detailsString(ae.Details)
		if ae.Status != 0 {
			e.Status = ae.Status
			e.Kind = statusKind(ae.Status)
		}
	} else {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" {
		e.Message = http.StatusText(code)
	}
	return e
}

// do performs a single authenticated round trip and returns the raw body of
// a 2xx response. It never retries.
func (c *Client) do(ctx context.Context, method, path string, body io.Reader) ([]byte, error) {
	if c.token == "" {
		return nil, &Error{Kind: KindAuthentication, Message: "empty API token"}
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, errors.Annotate(err, "failed to create %s request for %s",
			method, path)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &Error{Kind: KindTransport, Message: "request failed", Err: err}
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &Error{Kind: KindTransport,
			Message: "failed to read response body", Err: err}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, propagateError(resp.StatusCode, data)
	}
	logging.Debugf(ctx, "udl.ai: %s %s: received %d bytes", method, path, len(data))
	return data, nil
}

func (c *Client) get(ctx context.Context, path string) ([]byte, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *Client) post(ctx context.Context, path string, payload interface{}) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, errors.Annotate(err, "failed to encode request body for %s", path)
	}
	return c.do(ctx, http.MethodPost, path, bytes.NewReader(data))
}
