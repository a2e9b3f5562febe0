// Package youtube proxies video-tutorial searches to the YouTube Data API,
// keeping the API key off the client.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"go.uber.org/zap"
)

const defaultBaseURL = "https://www.googleapis.com/youtube/v3/search"

type Client struct {
	httpClient *http.Client
	baseURL    string
	apiKey     string
	logger     *zap.Logger
}

func NewClient(apiKey string, logger *zap.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: 10 * time.Second},
		baseURL:    defaultBaseURL,
		apiKey:     apiKey,
		logger:     logger.Named("YouTubeClient"),
	}
}

func (c *Client) Configured() bool {
	return c.apiKey != ""
}

// Search runs a video search and returns the raw API payload; the app
// renders it as-is. type=video is forced because the duration filter only
// applies to videos.
func (c *Client) Search(ctx context.Context, query, duration, pageToken string) (json.RawMessage, error) {
	if duration == "" {
		duration = "any"
	}

	params := url.Values{}
	params.Set("part", "snippet")
	params.Set("q", query)
	params.Set("type", "video")
	params.Set("videoDuration", duration)
	params.Set("maxResults", "10")
	params.Set("key", c.apiKey)
	if pageToken != "" {
		params.Set("pageToken", pageToken)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("build youtube request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("youtube call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read youtube response: %w", err)
	}

	var probe struct {
		Error *struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(body, &probe); err != nil {
		return nil, fmt.Errorf("malformed youtube response: %w", err)
	}
	if probe.Error != nil {
		c.logger.Warn("YouTube API returned an error", zap.String("message", probe.Error.Message))
		return nil, fmt.Errorf("youtube api error: %s", probe.Error.Message)
	}

	return json.RawMessage(body), nil
}
