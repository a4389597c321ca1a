// Package pbx is the call-platform client: JWT-bearer token exchange,
// paginated call-log retrieval, and recording media download.
package pbx

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/mwhitford/ringlead/internal/auth"
	"github.com/mwhitford/ringlead/internal/retry"
)

const (
	DefaultBaseURL      = "https://platform.ringcentral.com"
	DefaultMediaBaseURL = "https://media.ringcentral.com"
	DefaultPerPage      = 250

	// defaultRetryAfter is the page-fetch wait after a 429 without a
	// Retry-After header.
	defaultRetryAfter = 10 * time.Second
)

// Config holds platform connection settings and credentials.
type Config struct {
	BaseURL      string
	MediaBaseURL string
	ClientID     string
	ClientSecret string
	JWT          string
	AccountID    string
	Timeout      time.Duration
	PerPage      int
}

// Client talks to the call platform's REST API.
type Client struct {
	baseURL      string
	mediaBaseURL string
	accountID    string
	perPage      int

	tokens *auth.Manager
	client *http.Client
	logger *slog.Logger

	pageRetry  retry.Config
	mediaRetry retry.Config
}

// New creates a platform client. The token manager exchanges the configured
// JWT for an access token on first use.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.MediaBaseURL == "" {
		cfg.MediaBaseURL = DefaultMediaBaseURL
	}
	if cfg.AccountID == "" {
		cfg.AccountID = "~"
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}
	if cfg.PerPage == 0 {
		cfg.PerPage = DefaultPerPage
	}

	c := &Client{
		baseURL:      cfg.BaseURL,
		mediaBaseURL: cfg.MediaBaseURL,
		accountID:    cfg.AccountID,
		perPage:      cfg.PerPage,
		client:       &http.Client{Timeout: cfg.Timeout},
		logger:       logger,
		pageRetry:    retry.DefaultConfig,
		mediaRetry:   retry.Config{Attempts: 5, BaseDelay: time.Second, Multiplier: 2},
	}
	c.tokens = auth.NewManager("pbx", c.refreshToken(cfg), logger)
	return c
}

// refreshToken returns the JWT-bearer grant exchange for the token manager.
func (c *Client) refreshToken(cfg Config) auth.RefreshFunc {
	return func(ctx context.Context) (string, time.Duration, error) {
		form := url.Values{
			"grant_type": {"urn:ietf:params:oauth:grant-type:jwt-bearer"},
			"assertion":  {cfg.JWT},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			c.baseURL+"/restapi/oauth/token", strings.NewReader(form.Encode()))
		if err != nil {
			return "", 0, fmt.Errorf("failed to create token request: %w", err)
		}
		basic := base64.StdEncoding.EncodeToString([]byte(cfg.ClientID + ":" + cfg.ClientSecret))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		req.Header.Set("Authorization", "Basic "+basic)

		resp, err := c.client.Do(req)
		if err != nil {
			return "", 0, fmt.Errorf("token request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return "", 0, fmt.Errorf("failed to read token response: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return "", 0, fmt.Errorf("token exchange failed (status %d): %s", resp.StatusCode, body)
		}

		var tok tokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return "", 0, fmt.Errorf("failed to unmarshal token response: %w", err)
		}
		return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
	}
}

// FetchCalls retrieves every page of inbound voice calls for one extension in
// the date range, in platform order. On a page failure past the retry budget
// it returns the pages already accumulated together with the error, never
// discarding partial progress.
func (c *Client) FetchCalls(ctx context.Context, extensionID string, from, to time.Time) ([]CallRecord, error) {
	var all []CallRecord

	for page := 1; ; page++ {
		records, totalPages, err := c.fetchPage(ctx, extensionID, from, to, page)
		if err != nil {
			c.logger.Error("call log page fetch failed",
				"extension_id", extensionID, "page", page, "error", err)
			return all, err
		}
		all = append(all, records...)

		if len(records) == 0 || (totalPages > 0 && page >= totalPages) {
			return all, nil
		}
	}
}

func (c *Client) fetchPage(ctx context.Context, extensionID string, from, to time.Time, page int) ([]CallRecord, int, error) {
	q := url.Values{
		"direction":     {"Inbound"},
		"type":          {"Voice"},
		"view":          {"Detailed"},
		"withRecording": {"false"},
		"showBlocked":   {"true"},
		"showDeleted":   {"false"},
		"perPage":       {strconv.Itoa(c.perPage)},
		"page":          {strconv.Itoa(page)},
		"dateFrom":      {from.Format(time.RFC3339)},
		"dateTo":        {to.Format(time.RFC3339)},
	}
	endpoint := fmt.Sprintf("%s/restapi/v1.0/account/%s/extension/%s/call-log?%s",
		c.baseURL, c.accountID, extensionID, q.Encode())

	var result callLogPage
	err := retry.Do(func() error {
		return c.getJSON(ctx, endpoint, &result)
	}, retryable, c.pageRetry, retrygo.Context(ctx))
	if err != nil {
		return nil, 0, err
	}
	return result.Records, result.Paging.TotalPages, nil
}

// retryable classifies page and media fetch errors. A token refresh failure
// is already a fully exhausted ladder of its own, so re-driving it through
// the outer budget only multiplies the refresh attempts; it and cancellation
// stop immediately. Everything else follows the standard HTTP policy.
func retryable(err error) bool {
	var aerr *auth.Error
	if errors.As(err, &aerr) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	return retry.RetryableHTTP(err)
}

// getJSON performs an authenticated GET. A 401 triggers exactly one forced
// token refresh and an immediate same-request retry, which does not count
// against the surrounding retry budget.
func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	res, err := c.get(ctx, endpoint)
	if err != nil {
		return err
	}
	if res.status == http.StatusUnauthorized {
		if _, err := c.tokens.ForceRefresh(ctx); err != nil {
			return err
		}
		res, err = c.get(ctx, endpoint)
		if err != nil {
			return err
		}
	}
	if res.status != http.StatusOK {
		herr := &retry.HTTPError{Status: res.status, Body: string(res.body)}
		if res.status == http.StatusTooManyRequests {
			herr.RetryAfter = res.retryAfter
			if herr.RetryAfter == 0 {
				herr.RetryAfter = defaultRetryAfter
			}
		}
		return herr
	}
	if err := json.Unmarshal(res.body, out); err != nil {
		return fmt.Errorf("failed to unmarshal call log response: %w", err)
	}
	return nil
}

type getResult struct {
	status     int
	body       []byte
	retryAfter time.Duration
}

func (c *Client) get(ctx context.Context, endpoint string) (getResult, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return getResult{}, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return getResult{}, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return getResult{}, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return getResult{}, fmt.Errorf("failed to read response: %w", err)
	}
	return getResult{
		status:     resp.StatusCode,
		body:       body,
		retryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
	}, nil
}
