// Package crm is the CRM REST client: refresh-token auth, lead search and
// mutation, notes, and attachment handling.
package crm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"time"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/mwhitford/ringlead/internal/auth"
	"github.com/mwhitford/ringlead/internal/retry"
)

const (
	DefaultAccountsURL = "https://accounts.zoho.com"
	DefaultBaseURL     = "https://www.zohoapis.com/crm/v7"

	authScheme = "Zoho-oauthtoken"
)

// Config holds CRM connection settings and credentials.
type Config struct {
	AccountsURL  string
	BaseURL      string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
}

// Client talks to the CRM's REST API.
type Client struct {
	baseURL string

	tokens   *auth.Manager
	client   *http.Client
	logger   *slog.Logger
	retryCfg retry.Config
}

// New creates a CRM client. The token manager trades the configured refresh
// token for an access token on first use.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.AccountsURL == "" {
		cfg.AccountsURL = DefaultAccountsURL
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 60 * time.Second
	}

	c := &Client{
		baseURL:  cfg.BaseURL,
		client:   &http.Client{Timeout: cfg.Timeout},
		logger:   logger,
		retryCfg: retry.DefaultConfig,
	}
	c.tokens = auth.NewManager("crm", c.refreshToken(cfg), logger)
	return c
}

func (c *Client) refreshToken(cfg Config) auth.RefreshFunc {
	return func(ctx context.Context) (string, time.Duration, error) {
		form := url.Values{
			"refresh_token": {cfg.RefreshToken},
			"client_id":     {cfg.ClientID},
			"client_secret": {cfg.ClientSecret},
			"grant_type":    {"refresh_token"},
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost,
			cfg.AccountsURL+"/oauth/v2/token", strings.NewReader(form.Encode()))
		if err != nil {
			return "", 0, fmt.Errorf("failed to create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

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
			return "", 0, fmt.Errorf("token refresh failed (status %d): %s", resp.StatusCode, body)
		}

		var tok tokenResponse
		if err := json.Unmarshal(body, &tok); err != nil {
			return "", 0, fmt.Errorf("failed to unmarshal token response: %w", err)
		}
		return tok.AccessToken, time.Duration(tok.ExpiresIn) * time.Second, nil
	}
}

// SearchLeadByPhone looks up a lead whose Phone exactly equals phoneVariant.
// Returns (nil, nil) when nothing matches; the CRM signals that either with
// 204 or an empty data array.
func (c *Client) SearchLeadByPhone(ctx context.Context, phoneVariant string) (*Lead, error) {
	endpoint := fmt.Sprintf("%s/Leads/search?criteria=%s",
		c.baseURL, url.QueryEscape(fmt.Sprintf("Phone:equals:%s", phoneVariant)))

	var found *Lead
	err := c.withRetry(ctx, func() error {
		status, body, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
		if err != nil {
			return err
		}
		if status == http.StatusNoContent {
			found = nil
			return nil
		}
		if status != http.StatusOK {
			return httpError(status, body)
		}
		var sr searchResponse
		if err := json.Unmarshal(body, &sr); err != nil {
			return fmt.Errorf("failed to unmarshal search response: %w", err)
		}
		if len(sr.Data) == 0 {
			found = nil
			return nil
		}
		found = sr.Data[0].toLead()
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("lead search for %q failed: %w", phoneVariant, err)
	}
	return found, nil
}

// CreateLead creates a lead and returns its id.
func (c *Client) CreateLead(ctx context.Context, payload LeadPayload) (string, error) {
	body, err := envelope(wireLead(payload))
	if err != nil {
		return "", fmt.Errorf("failed to marshal lead payload: %w", err)
	}

	var leadID string
	err = c.withRetry(ctx, func() error {
		status, respBody, err := c.do(ctx, http.MethodPost, c.baseURL+"/Leads", body, "application/json")
		if err != nil {
			return err
		}
		if status != http.StatusCreated && status != http.StatusOK {
			return httpError(status, respBody)
		}
		var mr mutationResponse
		if err := json.Unmarshal(respBody, &mr); err != nil {
			return fmt.Errorf("failed to unmarshal create response: %w", err)
		}
		if len(mr.Data) == 0 || mr.Data[0].recordID() == "" {
			return fmt.Errorf("no lead id in create response")
		}
		leadID = mr.Data[0].recordID()
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("lead create failed: %w", err)
	}

	c.logger.Info("lead created", "lead_id", leadID, "phone", payload.Phone)
	return leadID, nil
}

// UpdateLeadStatus sets the Lead_Status field of an existing lead.
func (c *Client) UpdateLeadStatus(ctx context.Context, leadID, status string) error {
	body, err := envelope(map[string]any{"Lead_Status": status})
	if err != nil {
		return fmt.Errorf("failed to marshal status update: %w", err)
	}

	err = c.withRetry(ctx, func() error {
		st, respBody, err := c.do(ctx, http.MethodPut, c.baseURL+"/Leads/"+leadID, body, "application/json")
		if err != nil {
			return err
		}
		if st != http.StatusOK && st != http.StatusAccepted {
			return httpError(st, respBody)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("lead %s status update failed: %w", leadID, err)
	}
	return nil
}

// AddNote appends a note to a lead.
func (c *Client) AddNote(ctx context.Context, leadID, title, body string) error {
	payload, err := envelope(map[string]any{
		"Note_Title":   title,
		"Note_Content": body,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal note: %w", err)
	}

	err = c.withRetry(ctx, func() error {
		status, respBody, err := c.do(ctx, http.MethodPost, c.baseURL+"/Leads/"+leadID+"/Notes", payload, "application/json")
		if err != nil {
			return err
		}
		if status != http.StatusCreated && status != http.StatusOK {
			return httpError(status, respBody)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("adding note to lead %s failed: %w", leadID, err)
	}
	return nil
}

// ListAttachments returns the attachments of a lead (file names only).
func (c *Client) ListAttachments(ctx context.Context, leadID string) ([]Attachment, error) {
	endpoint := c.baseURL + "/Leads/" + leadID + "/Attachments?fields=id,File_Name"

	var attachments []Attachment
	err := c.withRetry(ctx, func() error {
		status, body, err := c.do(ctx, http.MethodGet, endpoint, nil, "")
		if err != nil {
			return err
		}
		if status == http.StatusNoContent {
			attachments = nil
			return nil
		}
		if status != http.StatusOK {
			return httpError(status, body)
		}
		var ar attachmentsResponse
		if err := json.Unmarshal(body, &ar); err != nil {
			return fmt.Errorf("failed to unmarshal attachments response: %w", err)
		}
		attachments = ar.Data
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("listing attachments for lead %s failed: %w", leadID, err)
	}
	return attachments, nil
}

// UploadAttachment attaches a file to a lead via multipart upload.
func (c *Client) UploadAttachment(ctx context.Context, leadID, fileName string, content []byte, contentType string) error {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)

	hdr := make(textproto.MIMEHeader)
	hdr.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, fileName))
	if contentType != "" {
		hdr.Set("Content-Type", contentType)
	}
	part, err := mw.CreatePart(hdr)
	if err != nil {
		return fmt.Errorf("failed to create multipart: %w", err)
	}
	if _, err := part.Write(content); err != nil {
		return fmt.Errorf("failed to write attachment body: %w", err)
	}
	if err := mw.Close(); err != nil {
		return fmt.Errorf("failed to finalize multipart: %w", err)
	}

	body := buf.Bytes()
	err = c.withRetry(ctx, func() error {
		status, respBody, err := c.do(ctx, http.MethodPost,
			c.baseURL+"/Leads/"+leadID+"/Attachments", body, mw.FormDataContentType())
		if err != nil {
			return err
		}
		if status != http.StatusOK && status != http.StatusCreated && status != http.StatusAccepted {
			return httpError(status, respBody)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("uploading %s to lead %s failed: %w", fileName, leadID, err)
	}

	c.logger.Info("attachment uploaded", "lead_id", leadID, "file_name", fileName)
	return nil
}

// withRetry runs op under the client's standard ladder.
func (c *Client) withRetry(ctx context.Context, op func() error) error {
	return retry.Do(op, retryable, c.retryCfg, retrygo.Context(ctx))
}

// retryable classifies request errors for the ladder. A failed token refresh
// has already exhausted its own attempt budget and cancellation never
// recovers, so both stop immediately; everything else follows the standard
// HTTP policy.
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

// do performs one authenticated request. A 401 triggers exactly one forced
// token refresh followed by a same-request retry before the status is
// surfaced to the caller.
func (c *Client) do(ctx context.Context, method, endpoint string, body []byte, contentType string) (int, []byte, error) {
	status, respBody, retryAfter, err := c.doOnce(ctx, method, endpoint, body, contentType)
	if err != nil {
		return 0, nil, err
	}
	if status == http.StatusUnauthorized {
		if _, err := c.tokens.ForceRefresh(ctx); err != nil {
			return 0, nil, err
		}
		status, respBody, retryAfter, err = c.doOnce(ctx, method, endpoint, body, contentType)
		if err != nil {
			return 0, nil, err
		}
	}
	if status == http.StatusTooManyRequests {
		return status, respBody, &retry.HTTPError{
			Status:     status,
			Body:       string(respBody),
			RetryAfter: retryAfter,
		}
	}
	return status, respBody, nil
}

func (c *Client) doOnce(ctx context.Context, method, endpoint string, body []byte, contentType string) (int, []byte, time.Duration, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return 0, nil, 0, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authScheme+" "+token)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, 0, fmt.Errorf("failed to read response: %w", err)
	}
	return resp.StatusCode, respBody, retry.ParseRetryAfter(resp.Header.Get("Retry-After")), nil
}

func httpError(status int, body []byte) error {
	return &retry.HTTPError{Status: status, Body: string(body)}
}
