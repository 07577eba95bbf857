// internal/clients/access_client.go
package clients

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/nguyenquyen/evdata-backend/internal/models"
	"github.com/nguyenquyen/evdata-backend/internal/services"
)

// HTTPAccessClient implements services.AccessClient against a remote data
// service's access endpoint.
type HTTPAccessClient struct {
	baseURL      string
	serviceToken string
	httpClient   *http.Client
}

func NewHTTPAccessClient(baseURL, serviceToken string, timeout time.Duration) *HTTPAccessClient {
	return &HTTPAccessClient{
		baseURL:      baseURL,
		serviceToken: serviceToken,
		httpClient:   &http.Client{Timeout: timeout},
	}
}

func (c *HTTPAccessClient) GrantAccess(ctx context.Context, cmd services.GrantAccessCommand) (*models.DatasetAccess, error) {
	url := fmt.Sprintf("%s/api/v1/internal/access/grants", c.baseURL)

	payload, err := json.Marshal(cmd)
	if err != nil {
		return nil, fmt.Errorf("failed to encode grant request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	if c.serviceToken != "" {
		req.Header.Set("Authorization", "Bearer "+c.serviceToken)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("data service unreachable: %w", err)
	}
	defer resp.Body.Close()

	if err := checkStatus(resp, "dataset not found"); err != nil {
		return nil, err
	}

	var envelope struct {
		Data models.DatasetAccess `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return nil, fmt.Errorf("failed to decode grant response: %w", err)
	}

	return &envelope.Data, nil
}
