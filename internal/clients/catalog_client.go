// internal/clients/catalog_client.go
package clients

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/nguyenquyen/evdata-backend/internal/services"
)

// HTTPCatalogClient implements services.CatalogClient against a remote data
// service. Used when the catalog runs as its own deployment.
type HTTPCatalogClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func NewHTTPCatalogClient(baseURL, serviceToken string, timeout time.Duration) *HTTPCatalogClient {
	return &HTTPCatalogClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPCatalogClient) GetDatasetInfo(ctx context.Context, datasetID int64) (*services.DatasetInfo, error) {
	url := fmt.Sprintf("%s/api/v1/internal/datasets/%d", c.baseURL, datasetID)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	c.authorize(req)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "dataset not found"); err != nil {
		return nil, err
	}

	var envelope struct {
		Data services.DatasetInfo `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode data service response: %w", err)
	}

	return &envelope.Data, nil
}

func (c *HTTPCatalogClient) authorize(req *http.Request) {
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	req.Header.Set("Content-Type", "application/json")
}

func checkStatus(resp *http.Response, notFoundMsg string) error {
	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))

	if resp.StatusCode == http.StatusNotFound {
		return fmt.Errorf("%s: %s", notFoundMsg, string(body))
	}
	return fmt.Errorf("upstream returned %d: %s", resp.StatusCode, string(body))
}
