package extract

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// TikaClient extracts text through an Apache Tika server's /tika endpoint.
type TikaClient struct {
	serverURL  string
	httpClient *http.Client
}

func NewTikaClient(serverURL string) *TikaClient {
	return &TikaClient{
		serverURL:  strings.TrimRight(strings.TrimSpace(serverURL), "/"),
		httpClient: &http.Client{Timeout: 60 * time.Second},
	}
}

func (c *TikaClient) Extract(ctx context.Context, data []byte, contentType string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPut, c.serverURL+"/tika", bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("tika request: %w", err)
	}
	req.Header.Set("Accept", "text/plain")
	req.Header.Set("Content-Type", contentType)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("tika call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("tika status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	out, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("tika read: %w", err)
	}
	return string(out), nil
}
