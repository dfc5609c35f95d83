package mpesa

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// tokenExpirySafetyMargin is subtracted from the gateway's expires_in so
// a token is never presented when it is about to lapse mid-flight.
const tokenExpirySafetyMargin = 60 * time.Second

// TokenCache holds a short-lived Daraja access token and refreshes it
// only on expiry. It is an explicit injectable component rather than a
// package global so multiple gateway accounts can coexist in one
// process and so tests can drive it directly.
//
// The cache entry is guarded by a mutex; the exchange itself runs under
// the lock, so concurrent callers racing an expired token perform a
// single refresh. No retry is attempted here.
type TokenCache struct {
	authURL        string
	consumerKey    string
	consumerSecret string
	httpClient     *http.Client

	mu        sync.Mutex
	token     string
	expiresAt time.Time

	now func() time.Time
}

// NewTokenCache creates a TokenCache for the given Daraja base URL and
// consumer credentials. A nil httpClient falls back to a default with a
// 30-second timeout.
func NewTokenCache(baseURL, consumerKey, consumerSecret string, httpClient *http.Client) *TokenCache {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 30 * time.Second}
	}
	return &TokenCache{
		authURL:        baseURL + "/oauth/v1/generate?grant_type=client_credentials",
		consumerKey:    consumerKey,
		consumerSecret: consumerSecret,
		httpClient:     httpClient,
		now:            time.Now,
	}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	// Daraja returns expires_in as a string ("3599").
	ExpiresIn string `json:"expires_in"`
}

// Token returns the cached access token, performing the client
// credentials exchange only when no valid token is held.
func (c *TokenCache) Token(ctx context.Context) (string, error) {
	if c.consumerKey == "" || c.consumerSecret == "" {
		return "", ErrMissingCredentials
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.token != "" && c.now().Before(c.expiresAt) {
		return c.token, nil
	}

	token, expiresIn, err := c.exchange(ctx)
	if err != nil {
		return "", err
	}

	c.token = token
	c.expiresAt = c.now().Add(expiresIn - tokenExpirySafetyMargin)

	return c.token, nil
}

// exchange performs the Basic-auth client credentials call.
func (c *TokenCache) exchange(ctx context.Context) (string, time.Duration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.authURL, nil)
	if err != nil {
		return "", 0, err
	}
	req.SetBasicAuth(c.consumerKey, c.consumerSecret)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", 0, err
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", 0, &GatewayError{Status: resp.StatusCode, Body: string(body)}
	}

	var tr tokenResponse
	if err := json.Unmarshal(body, &tr); err != nil {
		return "", 0, fmt.Errorf("failed to decode token response: %w", err)
	}

	if tr.AccessToken == "" {
		return "", 0, fmt.Errorf("token response missing access_token")
	}

	seconds, err := strconv.Atoi(tr.ExpiresIn)
	if err != nil {
		return "", 0, fmt.Errorf("invalid expires_in %q: %w", tr.ExpiresIn, err)
	}

	return tr.AccessToken, time.Duration(seconds) * time.Second, nil
}
