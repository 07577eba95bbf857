// internal/services/clients.go
package services

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nguyenquyen/evdata-backend/internal/models"
)

// DatasetInfo is the slice of catalog state the transaction and refund flows
// need. Both the in-process adapters and the HTTP clients return it.
type DatasetInfo struct {
	ID           int64                 `json:"id"`
	Code         string                `json:"code"`
	Name         string                `json:"name"`
	ProviderID   int64                 `json:"provider_id"`
	ProviderName string                `json:"provider_name"`
	Status       models.DatasetStatus  `json:"status"`
	PricingModel models.PricingModel   `json:"pricing_model"`
	Price        decimal.Decimal       `json:"price"`
	Currency     string                `json:"currency"`
}

// GrantAccessCommand is what the payment flow sends to the access ledger
// after a transaction completes.
type GrantAccessCommand struct {
	DatasetID        int64              `json:"dataset_id"`
	UserID           int64              `json:"user_id"`
	UserEmail        string             `json:"user_email"`
	UserName         string             `json:"user_name"`
	AccessType       models.AccessType  `json:"access_type"`
	PricePaid        decimal.Decimal    `json:"price_paid"`
	TransactionID    string             `json:"transaction_id"`
	SubscriptionDays *int               `json:"subscription_days,omitempty"`
	APICallsLimit    *int               `json:"api_calls_limit,omitempty"`
}

// CatalogClient resolves datasets for the payment flows. In a single-process
// deployment this is the DatasetService itself; in a split deployment it is
// an HTTP client against the data service.
type CatalogClient interface {
	GetDatasetInfo(ctx context.Context, datasetID int64) (*DatasetInfo, error)
}

// AccessClient grants access on behalf of a completed transaction.
type AccessClient interface {
	GrantAccess(ctx context.Context, cmd GrantAccessCommand) (*models.DatasetAccess, error)
}

// localCatalogClient adapts DatasetService to CatalogClient without a network
// hop.
type localCatalogClient struct {
	datasets *DatasetService
}

func NewLocalCatalogClient(datasets *DatasetService) CatalogClient {
	return &localCatalogClient{datasets: datasets}
}

func (c *localCatalogClient) GetDatasetInfo(ctx context.Context, datasetID int64) (*DatasetInfo, error) {
	dataset, err := c.datasets.GetDataset(datasetID)
	if err != nil {
		return nil, err
	}

	return &DatasetInfo{
		ID:           dataset.ID,
		Code:         dataset.Code,
		Name:         dataset.Name,
		ProviderID:   dataset.ProviderID,
		ProviderName: dataset.ProviderName,
		Status:       dataset.Status,
		PricingModel: dataset.PricingModel,
		Price:        dataset.Price,
		Currency:     dataset.Currency,
	}, nil
}

// localAccessClient adapts AccessService to AccessClient.
type localAccessClient struct {
	access *AccessService
}

func NewLocalAccessClient(access *AccessService) AccessClient {
	return &localAccessClient{access: access}
}

func (c *localAccessClient) GrantAccess(ctx context.Context, cmd GrantAccessCommand) (*models.DatasetAccess, error) {
	var expiresAt *time.Time
	if cmd.SubscriptionDays != nil {
		t := time.Now().AddDate(0, 0, *cmd.SubscriptionDays)
		expiresAt = &t
	}

	return c.access.GrantAccess(cmd.UserID, cmd.UserEmail, cmd.UserName, &GrantAccessRequest{
		DatasetID:     cmd.DatasetID,
		AccessType:    string(cmd.AccessType),
		ExpiresAt:     expiresAt,
		PricePaid:     cmd.PricePaid,
		TransactionID: cmd.TransactionID,
		APICallsLimit: cmd.APICallsLimit,
	})
}
