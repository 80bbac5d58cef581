package openedx

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/eskills-store/backend/internal/config"
)

const (
	userAgent    = "EDXStore/1.0"
	maxErrorBody = 4096
)

// Client talks to the OpenEdX LMS REST APIs (catalog, commerce, enrollment,
// user). It authenticates with OAuth2 client credentials and caches both the
// access token and the csrftoken cookie the LMS hands out.
type Client struct {
	baseURL      string
	clientID     string
	clientSecret string
	httpClient   *http.Client

	mu          sync.Mutex
	accessToken string
	tokenExpiry time.Time
	csrfToken   string
}

// NewClient creates a client for the configured LMS. With VerifySSL off the
// transport skips certificate checks; development LMS instances commonly run
// on self-signed certificates.
func NewClient(cfg config.OpenEdXConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSec) * time.Second
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	transport := http.DefaultTransport
	if !cfg.VerifySSL {
		transport = &http.Transport{
			TLSClientConfig: &tls.Config{InsecureSkipVerify: true},
		}
	}

	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		clientID:     cfg.ClientID,
		clientSecret: cfg.ClientSecret,
		httpClient: &http.Client{
			Timeout:   timeout,
			Transport: transport,
		},
	}
}

// BaseURL returns the configured LMS base URL
func (c *Client) BaseURL() string {
	return c.baseURL
}

// APIError describes a non-2xx response from the LMS
type APIError struct {
	StatusCode int
	Body       string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openedx api error (%d): %s", e.StatusCode, e.Body)
}

// IsNotFound reports whether an error is an LMS 404
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusNotFound
}

// getAccessToken returns a cached OAuth2 token, requesting a new one when
// the cache is empty or about to expire.
func (c *Client) getAccessToken(ctx context.Context) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.accessToken != "" && time.Now().Before(c.tokenExpiry) {
		return c.accessToken, nil
	}

	form := url.Values{
		"grant_type":    {"client_credentials"},
		"client_id":     {c.clientID},
		"client_secret": {c.clientSecret},
		"token_type":    {"jwt"},
	}

	tokenURL := c.baseURL + "/oauth2/access_token/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("token request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
		return "", &APIError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	var tokenData struct {
		AccessToken string `json:"access_token"`
		ExpiresIn   int    `json:"expires_in"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tokenData); err != nil {
		return "", fmt.Errorf("failed to decode token response: %w", err)
	}
	if tokenData.AccessToken == "" {
		return "", fmt.Errorf("access token not found in response")
	}

	// Refresh a minute early so in-flight requests never carry a token
	// that expires mid-call.
	lifetime := time.Duration(tokenData.ExpiresIn) * time.Second
	if lifetime > time.Minute {
		lifetime -= time.Minute
	}
	c.accessToken = tokenData.AccessToken
	c.tokenExpiry = time.Now().Add(lifetime)

	log.Printf("🔐 Obtained OpenEdX access token (expires in %ds)", tokenData.ExpiresIn)
	return c.accessToken, nil
}

// invalidateToken drops the cached token so the next call fetches a fresh one
func (c *Client) invalidateToken() {
	c.mu.Lock()
	c.accessToken = ""
	c.mu.Unlock()
}

// getCSRFToken returns the csrftoken cookie the LMS sets on its landing
// page. Mutating endpoints reject requests without it.
func (c *Client) getCSRFToken(ctx context.Context) string {
	c.mu.Lock()
	if c.csrfToken != "" {
		token := c.csrfToken
		c.mu.Unlock()
		return token
	}
	c.mu.Unlock()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL, nil)
	if err != nil {
		return ""
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		log.Printf("⚠️ Failed to fetch CSRF token: %v", err)
		return ""
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))

	var token string
	for _, cookie := range resp.Cookies() {
		if cookie.Name == "csrftoken" {
			token = cookie.Value
			break
		}
	}
	if token == "" {
		token = resp.Header.Get("X-CSRFToken")
	}
	if token == "" {
		log.Printf("⚠️ No CSRF token found in LMS response")
		return ""
	}

	c.mu.Lock()
	c.csrfToken = token
	c.mu.Unlock()
	return token
}

// doJSON executes an authenticated JSON request against the LMS. A 401
// response invalidates the cached token and the request is retried once
// with a fresh one.
func (c *Client) doJSON(ctx context.Context, method, path string, body interface{}, result interface{}, withCSRF bool) error {
	var bodyBytes []byte
	if body != nil {
		var err error
		bodyBytes, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal body: %w", err)
		}
	}

	for attempt := 0; attempt < 2; attempt++ {
		token, err := c.getAccessToken(ctx)
		if err != nil {
			return err
		}

		var reqBody io.Reader
		if bodyBytes != nil {
			reqBody = bytes.NewReader(bodyBytes)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
		if err != nil {
			return fmt.Errorf("failed to create request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)
		req.Header.Set("Authorization", "jwt "+token)
		if withCSRF {
			if csrf := c.getCSRFToken(ctx); csrf != "" {
				req.Header.Set("X-CSRFToken", csrf)
				req.Header.Set("Cookie", "csrftoken="+csrf)
			}
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("request failed: %w", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			c.invalidateToken()
			log.Printf("⚠️ OpenEdX token rejected, retrying with a fresh one")
			continue
		}

		if resp.StatusCode >= 400 {
			respBytes, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
			resp.Body.Close()
			return &APIError{StatusCode: resp.StatusCode, Body: string(respBytes)}
		}

		if result != nil {
			if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
				resp.Body.Close()
				return fmt.Errorf("failed to decode response: %w", err)
			}
		} else {
			_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxErrorBody))
		}
		resp.Body.Close()
		return nil
	}

	return fmt.Errorf("request failed after token refresh")
}

// doForm executes an authenticated form-encoded POST. The LMS registration
// endpoint only accepts form payloads.
func (c *Client) doForm(ctx context.Context, path string, form url.Values, result interface{}) (int, []byte, error) {
	token, err := c.getAccessToken(ctx)
	if err != nil {
		return 0, nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, strings.NewReader(form.Encode()))
	if err != nil {
		return 0, nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Authorization", "jwt "+token)
	if csrf := c.getCSRFToken(ctx); csrf != "" {
		req.Header.Set("X-CSRFToken", csrf)
		req.Header.Set("Cookie", "csrftoken="+csrf)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBytes, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return resp.StatusCode, nil, fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode < 400 && result != nil {
		if err := json.Unmarshal(respBytes, result); err != nil {
			// Some deployments answer registration with an empty body
			return resp.StatusCode, respBytes, nil
		}
	}

	return resp.StatusCode, respBytes, nil
}
