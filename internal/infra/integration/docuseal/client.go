package docuseal

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// MaxDocumentSize caps a signed document download.
const MaxDocumentSize = 20 << 20

var (
	ErrInsecureURL      = errors.New("document url must use https")
	ErrDocumentTooLarge = fmt.Errorf("document exceeds %d bytes", MaxDocumentSize)
)

// Client downloads completed documents. Webhook URLs are usually pre-signed;
// self-hosted instances may also require the API token, sent when configured.
type Client struct {
	apiKey string
	http   *http.Client
}

func NewClient(apiKey string) *Client {
	return &Client{apiKey: apiKey, http: &http.Client{Timeout: 30 * time.Second}}
}

func (c *Client) DownloadDocument(ctx context.Context, rawURL string) ([]byte, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, fmt.Errorf("parse document url: %w", err)
	}
	if u.Scheme != "https" || u.Host == "" {
		return nil, ErrInsecureURL
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, err
	}
	if c.apiKey != "" {
		req.Header.Set("X-Auth-Token", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download document: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download document: status %d", resp.StatusCode)
	}
	if resp.ContentLength > MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, MaxDocumentSize+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if len(body) > MaxDocumentSize {
		return nil, ErrDocumentTooLarge
	}
	return body, nil
}
