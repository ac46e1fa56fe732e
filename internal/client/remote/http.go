package remote

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/memoria-app/memoria/internal/client/models"
	"github.com/memoria-app/memoria/internal/common"
)

const (
	recordsPath = "/api/v1/records"
	mediaPath   = "/api/v1/media"
	healthPath  = "/healthz"
)

// HTTPClient implements Client over plain HTTP/JSON.
type HTTPClient struct {
	baseURL string
	http    *http.Client
}

// NewHTTPClient returns a client for the backend at baseURL. The timeout
// applies per request; there is no deadline across a whole batch.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		http:    &http.Client{Timeout: timeout},
	}
}

// Ping probes the backend health endpoint. Any failure to get a 200 back
// is reported as ErrOffline; connectivity loss is expected operation, not
// a remote fault.
func (c *HTTPClient) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+healthPath, nil)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrOffline, err)
	}
	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrOffline, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: health endpoint returned %s", common.ErrOffline, resp.Status)
	}
	return nil
}

// IsOnline reports whether the backend answers its health endpoint.
func (c *HTTPClient) IsOnline(ctx context.Context) bool {
	return c.Ping(ctx) == nil
}

func (c *HTTPClient) ListRecords(ctx context.Context) ([]models.RemoteRecord, error) {
	body, err := c.get(ctx, c.baseURL+recordsPath)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeRemoteRecords(body)
	if err != nil {
		// A malformed listing will not get better on retry.
		return nil, fmt.Errorf("%w: %v", common.ErrPermanent, err)
	}
	return items, nil
}

func (c *HTTPClient) ListMedia(ctx context.Context) ([]models.RemoteMedia, error) {
	body, err := c.get(ctx, c.baseURL+mediaPath)
	if err != nil {
		return nil, err
	}
	items, err := models.DecodeRemoteMedia(body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPermanent, err)
	}
	return items, nil
}

func (c *HTTPClient) FetchPayload(ctx context.Context, url string) ([]byte, error) {
	return c.get(ctx, url)
}

// get performs one GET and classifies failures: transport errors and 5xx
// (plus 408/429) are transient, any other non-2xx is permanent.
func (c *HTTPClient) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrPermanent, err)
	}
	req.Header.Set("Accept", "application/json, */*")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrTransient, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		class := common.ErrPermanent
		if resp.StatusCode >= 500 ||
			resp.StatusCode == http.StatusRequestTimeout ||
			resp.StatusCode == http.StatusTooManyRequests {
			class = common.ErrTransient
		}
		return nil, fmt.Errorf("%w: GET %s: %s: %s", class, url, resp.Status, string(b))
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: reading body: %v", common.ErrTransient, err)
	}
	return body, nil
}
