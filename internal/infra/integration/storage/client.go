package storage

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// SupabaseClient uploads files to Supabase Storage through its REST API and
// returns public object URLs.
type SupabaseClient struct {
	baseURL    string
	serviceKey string
	http       *http.Client
}

func NewSupabaseClient(baseURL, serviceKey string) *SupabaseClient {
	return &SupabaseClient{
		baseURL:    strings.TrimRight(baseURL, "/"),
		serviceKey: serviceKey,
		http:       &http.Client{Timeout: 30 * time.Second},
	}
}

// Upload writes content at bucket/path, replacing any existing object.
func (c *SupabaseClient) Upload(ctx context.Context, bucket, path string, content []byte, contentType string) (string, error) {
	objectPath := escapePath(bucket + "/" + strings.TrimLeft(path, "/"))
	endpoint := c.baseURL + "/storage/v1/object/" + objectPath

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(content))
	if err != nil {
		return "", err
	}
	req.Header.Set("Authorization", "Bearer "+c.serviceKey)
	req.Header.Set("apikey", c.serviceKey)
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("x-upsert", "true")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("storage upload %s: %w", objectPath, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("storage upload %s: status %d: %s", objectPath, resp.StatusCode, strings.TrimSpace(string(msg)))
	}

	return c.PublicURL(bucket, path), nil
}

func (c *SupabaseClient) PublicURL(bucket, path string) string {
	return c.baseURL + "/storage/v1/object/public/" + escapePath(bucket+"/"+strings.TrimLeft(path, "/"))
}

func escapePath(p string) string {
	parts := strings.Split(p, "/")
	for i, s := range parts {
		parts[i] = url.PathEscape(s)
	}
	return strings.Join(parts, "/")
}
