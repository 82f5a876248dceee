// Package netx holds small helpers for talking to object storage through
// presigned URLs.
package netx

import (
	"context"
	"fmt"
	"io"
	"net/http"
)

// MaxDownloadBytes caps how much DownloadFromPresignedURL will read.
const MaxDownloadBytes = 16 << 20

var httpClient = &http.Client{}

// DownloadFromPresignedURL fetches an object through a presigned GET URL.
func DownloadFromPresignedURL(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}

	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("download failed: %s; body: %s", resp.Status, string(b))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, MaxDownloadBytes+1))
	if err != nil {
		return nil, err
	}
	if len(data) > MaxDownloadBytes {
		return nil, fmt.Errorf("download failed: object larger than %d bytes", MaxDownloadBytes)
	}
	return data, nil
}
