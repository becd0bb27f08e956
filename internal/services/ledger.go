package services

import (
	"context"

	"rank-api/internal/models"
)

// PurchaseLedger is the persistence the webhook pipeline depends on.
// Implementations must be safe for concurrent use.
type PurchaseLedger interface {
	Exists(ctx context.Context, orderID string) (bool, error)
	Insert(ctx context.Context, purchase *models.Purchase) error
	// SetStatus moves the pending record with the given id to a terminal status.
	SetStatus(ctx context.Context, id uint, status models.PurchaseStatus, errorMessage string) error
}
