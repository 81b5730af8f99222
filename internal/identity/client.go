package identity

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const noreplyDomain = "@users.noreply.github.com"

// searchResponse models the subset of the GitHub user search payload in use.
type searchResponse struct {
	TotalCount int `json:"total_count"`
	Items      []struct {
		Login string `json:"login"`
	} `json:"items"`
}

// Client queries the GitHub REST API.
type Client struct {
	token      string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// New creates a GitHub identity client. The token may be empty, in which
// case unauthenticated rate limits apply.
func New(token, baseURL string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("identity base url required")
	}
	client := &Client{
		token:      strings.TrimSpace(token),
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// ResolveUsername returns the GitHub login registered for email, or an
// empty string when no unique account matches.
func (c *Client) ResolveUsername(ctx context.Context, email string) (string, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return "", errors.New("email must not be empty")
	}
	if login, ok := noreplyLogin(email); ok {
		return login, nil
	}

	endpoint, err := url.Parse(c.baseURL + "/search/users")
	if err != nil {
		return "", fmt.Errorf("parse endpoint: %w", err)
	}
	params := url.Values{}
	params.Set("q", email+" in:email")
	params.Set("per_page", "2")
	endpoint.RawQuery = params.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	requestStart := time.Now()
	resp, err := c.httpClient.Do(req)
	latency := time.Since(requestStart)
	if err != nil {
		return "", fmt.Errorf("execute request (latency=%v): %w", latency, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("github user search returned %d (latency=%v)", resp.StatusCode, latency)
	}

	var payload searchResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", fmt.Errorf("decode github response: %w", err)
	}
	if len(payload.Items) != 1 {
		return "", nil
	}
	return strings.TrimSpace(payload.Items[0].Login), nil
}

// noreplyLogin extracts the login from "<id>+<login>@users.noreply.github.com"
// and "<login>@users.noreply.github.com" addresses.
func noreplyLogin(email string) (string, bool) {
	local, ok := strings.CutSuffix(email, noreplyDomain)
	if !ok || local == "" {
		return "", false
	}
	if _, login, found := strings.Cut(local, "+"); found {
		local = login
	}
	if local == "" {
		return "", false
	}
	return local, true
}
