package service

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// ImageClient deletes user icons at an external image host. Only hosts on
// its allow-list are contacted.
type ImageClient struct {
	hosts  map[string]bool
	client *http.Client
	logger *slog.Logger
}

// NewImageClient creates an ImageClient allowed to contact hosts.
func NewImageClient(hosts []string, timeout time.Duration, logger *slog.Logger) *ImageClient {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	allowed := make(map[string]bool, len(hosts))
	for _, h := range hosts {
		if h = strings.ToLower(strings.TrimSpace(h)); h != "" {
			allowed[h] = true
		}
	}
	return &ImageClient{
		hosts:  allowed,
		client: &http.Client{Timeout: timeout},
		logger: logger,
	}
}

// Allowed reports whether rawURL is an http(s) URL on an allowed host.
func (c *ImageClient) Allowed(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return c.hosts[strings.ToLower(u.Host)] || c.hosts[strings.ToLower(u.Hostname())]
}

// Delete issues DELETE rawURL. An image that is already gone counts as
// deleted.
func (c *ImageClient) Delete(ctx context.Context, rawURL string) error {
	if !c.Allowed(rawURL) {
		return ErrImageHost
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, rawURL, nil)
	if err != nil {
		return fmt.Errorf("image delete request: %w", err)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("image delete: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))

	if resp.StatusCode == http.StatusNotFound || (resp.StatusCode >= 200 && resp.StatusCode < 300) {
		c.logger.Debug("image deleted", "host", req.URL.Host, "status", resp.StatusCode)
		return nil
	}
	return fmt.Errorf("image delete: host returned %s", resp.Status)
}
