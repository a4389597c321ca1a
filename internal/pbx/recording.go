package pbx

import (
	"context"
	"fmt"
	"io"
	"net/http"

	retrygo "github.com/avast/retry-go/v4"

	"github.com/mwhitford/ringlead/internal/retry"
)

// GetRecording downloads recording media and reports its content type.
// Recording endpoints rate-limit aggressively, so this uses a longer ladder
// (5 attempts) than regular API calls.
func (c *Client) GetRecording(ctx context.Context, recordingID string) ([]byte, string, error) {
	endpoint := fmt.Sprintf("%s/restapi/v1.0/account/%s/recording/%s/content",
		c.mediaBaseURL, c.accountID, recordingID)

	var content []byte
	var contentType string

	err := retry.Do(func() error {
		token, err := c.tokens.Token(ctx)
		if err != nil {
			return err
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return fmt.Errorf("failed to create recording request: %w", err)
		}
		req.Header.Set("Authorization", "Bearer "+token)

		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("recording request failed: %w", err)
		}
		defer resp.Body.Close()

		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("failed to read recording body: %w", err)
		}
		if resp.StatusCode != http.StatusOK {
			return &retry.HTTPError{
				Status:     resp.StatusCode,
				Body:       string(body),
				RetryAfter: retry.ParseRetryAfter(resp.Header.Get("Retry-After")),
			}
		}

		content = body
		contentType = resp.Header.Get("Content-Type")
		return nil
	}, retryable, c.mediaRetry, retrygo.Context(ctx))
	if err != nil {
		return nil, "", fmt.Errorf("failed to download recording %s: %w", recordingID, err)
	}

	c.logger.Debug("recording downloaded", "recording_id", recordingID, "bytes", len(content))
	return content, contentType, nil
}
