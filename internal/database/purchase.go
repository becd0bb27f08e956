package database

import (
	"context"
	"errors"
	"fmt"
	"time"

	"rank-api/internal/models"

	"gorm.io/gorm"
)

// ErrNoPendingPurchase is returned by SetStatus when no pending row matched.
var ErrNoPendingPurchase = errors.New("no pending purchase matched")

// PurchaseStore persists purchase records. Every method is a single
// statement so no pooled connection outlives the call.
type PurchaseStore struct {
	db *gorm.DB
}

// NewPurchaseStore creates a purchase store
func NewPurchaseStore(db *gorm.DB) *PurchaseStore {
	return &PurchaseStore{db: db}
}

// Exists reports whether any record was stored for the order.
func (s *PurchaseStore) Exists(ctx context.Context, orderID string) (bool, error) {
	var count int64
	err := s.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("order_id = ?", orderID).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check order %s: %w", orderID, err)
	}
	return count > 0, nil
}

// Insert stores a new pending record.
func (s *PurchaseStore) Insert(ctx context.Context, purchase *models.Purchase) error {
	purchase.Status = models.StatusPending
	purchase.ErrorMessage = nil
	if err := s.db.WithContext(ctx).Create(purchase).Error; err != nil {
		return fmt.Errorf("failed to insert purchase for order %s: %w", purchase.OrderID, err)
	}
	return nil
}

// SetStatus moves one pending record to a terminal status. A record that
// already left pending is never touched.
func (s *PurchaseStore) SetStatus(ctx context.Context, id uint, status models.PurchaseStatus, errorMessage string) error {
	if !status.IsTerminal() {
		return fmt.Errorf("invalid target status %q", status)
	}

	updates := map[string]interface{}{
		"status":        string(status),
		"error_message": nil,
		"updated_at":    time.Now(),
	}
	if status == models.StatusFailed {
		updates["error_message"] = errorMessage
	}

	result := s.db.WithContext(ctx).
		Model(&models.Purchase{}).
		Where("id = ? AND status = ?", id, string(models.StatusPending)).
		Updates(updates)
	if result.Error != nil {
		return fmt.Errorf("failed to update purchase status: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("purchase %d: %w", id, ErrNoPendingPurchase)
	}
	return nil
}

// ListRecent returns the most recent records, newest first.
func (s *PurchaseStore) ListRecent(ctx context.Context, limit int) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Order("id DESC").
		Limit(limit).
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list purchases: %w", err)
	}
	return purchases, nil
}

// FindByOrder returns all records of an order in insertion order.
func (s *PurchaseStore) FindByOrder(ctx context.Context, orderID string) ([]models.Purchase, error) {
	var purchases []models.Purchase
	err := s.db.WithContext(ctx).
		Where("order_id = ?", orderID).
		Order("id ASC").
		Find(&purchases).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find purchases for order %s: %w", orderID, err)
	}
	return purchases, nil
}
