package claudeusage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os/exec"
	"strings"
	"time"
)

const (
	DefaultURL     = "https://api.anthropic.com/api/oauth/usage"
	DefaultService = "Claude Code-credentials"
	userAgent      = "claude-code/2.0.32"
	betaFlag       = "oauth-2025-04-20"
)

// ErrNoToken is returned when the credential entry exists but carries no
// access token.
var ErrNoToken = errors.New("accessToken not found in credentials")

// TokenFunc resolves a bearer token.
type TokenFunc func(ctx context.Context) (string, error)

// KeychainToken returns a TokenFunc reading the Claude Code OAuth token from
// the macOS Keychain entry named service.
func KeychainToken(service string) TokenFunc {
	return func(ctx context.Context) (string, error) {
		out, err := exec.CommandContext(ctx, "security", "find-generic-password", "-s", service, "-w").Output()
		if err != nil {
			return "", fmt.Errorf("keychain lookup: %w", err)
		}
		return ParseCredentials(out)
	}
}

// ParseCredentials extracts the access token from the keychain JSON blob.
func ParseCredentials(raw []byte) (string, error) {
	var creds struct {
		ClaudeAiOauth struct {
			AccessToken string `json:"accessToken"`
		} `json:"claudeAiOauth"`
	}
	if err := json.Unmarshal([]byte(strings.TrimSpace(string(raw))), &creds); err != nil {
		return "", fmt.Errorf("parse credentials: %w", err)
	}
	if creds.ClaudeAiOauth.AccessToken == "" {
		return "", ErrNoToken
	}
	return creds.ClaudeAiOauth.AccessToken, nil
}

// Client fetches usage from the Anthropic OAuth usage endpoint.
type Client struct {
	URL   string
	HTTP  *http.Client
	Token TokenFunc
}

// New returns a Client for url using the keychain entry service.
func New(url, service string, timeout time.Duration) *Client {
	if url == "" {
		url = DefaultURL
	}
	if service == "" {
		service = DefaultService
	}
	return &Client{
		URL:   url,
		HTTP:  &http.Client{Timeout: timeout},
		Token: KeychainToken(service),
	}
}

// FetchUsage issues a single GET and returns the decoded body along with the
// raw bytes.
func (c *Client) FetchUsage(ctx context.Context) (*UsageResponse, []byte, error) {
	token, err := c.Token(ctx)
	if err != nil {
		return nil, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.URL, nil)
	if err != nil {
		return nil, nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("anthropic-beta", betaFlag)

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return nil, nil, fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, body, fmt.Errorf("API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var usage UsageResponse
	if err := json.Unmarshal(body, &usage); err != nil {
		return nil, body, fmt.Errorf("parse response: %w", err)
	}
	if usage.Error != "" {
		return nil, body, fmt.Errorf("API error: %s", usage.Error)
	}
	return &usage, body, nil
}
