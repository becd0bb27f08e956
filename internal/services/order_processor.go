package services

import (
	"context"
	"fmt"

	"rank-api/internal/models"
	"rank-api/pkg/logging"
)

// DefaultNickProperty is the line item property the storefront writes the player name to.
const DefaultNickProperty = "Nick Minecraft"

// Provisioner applies one purchase.
type Provisioner interface {
	Provision(ctx context.Context, purchase models.Purchase) error
}

// TaskDispatcher starts detached work.
type TaskDispatcher interface {
	Go(name string, task func(ctx context.Context) error) bool
}

// OrderProcessor turns order line items into pending purchases and dispatches provisioning.
type OrderProcessor struct {
	ledger       PurchaseLedger
	provisioner  Provisioner
	dispatcher   TaskDispatcher
	nickProperty string
}

// ProcessResult summarizes one order.
type ProcessResult struct {
	Recorded int
	Skipped  int
}

// NewOrderProcessor creates an order processor
func NewOrderProcessor(ledger PurchaseLedger, provisioner Provisioner, dispatcher TaskDispatcher, nickProperty string) *OrderProcessor {
	if nickProperty == "" {
		nickProperty = DefaultNickProperty
	}
	return &OrderProcessor{
		ledger:       ledger,
		provisioner:  provisioner,
		dispatcher:   dispatcher,
		nickProperty: nickProperty,
	}
}

// Process records every provisionable line item and dispatches it. Items
// without a nick or rank group are skipped. A ledger insert failure stops
// the order and is returned; items recorded before it are already dispatched.
func (p *OrderProcessor) Process(ctx context.Context, order *models.ShopifyOrder) (ProcessResult, error) {
	var result ProcessResult
	orderID := order.ID.String()

	for _, item := range order.LineItems {
		nick := item.Property(p.nickProperty)
		if nick == "" {
			logging.Warnf("No nick for item %s in order %s", item.ID, orderID)
			result.Skipped++
			continue
		}

		group := item.RankGroup()
		if group == "" {
			logging.Warnf("No LuckPerms group for product %s (item %s, order %s)", productID(item), item.ID, orderID)
			result.Skipped++
			continue
		}

		purchase := &models.Purchase{
			OrderID:     orderID,
			Identity:    nick,
			Entitlement: group,
			Status:      models.StatusPending,
		}
		if err := p.ledger.Insert(ctx, purchase); err != nil {
			return result, fmt.Errorf("order %s item %s: %w", orderID, item.ID, err)
		}
		result.Recorded++

		p.dispatch(ctx, *purchase)
	}

	return result, nil
}

func (p *OrderProcessor) dispatch(ctx context.Context, purchase models.Purchase) {
	name := fmt.Sprintf("provision order=%s nick=%s rank=%s", purchase.OrderID, purchase.Identity, purchase.Entitlement)
	started := p.dispatcher.Go(name, func(taskCtx context.Context) error {
		return p.provisioner.Provision(taskCtx, purchase)
	})
	if started {
		return
	}

	// Shutting down: close the record instead of leaving it pending forever.
	err := p.ledger.SetStatus(context.WithoutCancel(ctx), purchase.ID,
		models.StatusFailed, "service shutting down before provisioning started")
	if err != nil {
		logging.Errorf("Failed to mark undispatched purchase as failed (order: %s, nick: %s): %v",
			purchase.OrderID, purchase.Identity, err)
	}
}

func productID(item models.OrderLineItem) string {
	if item.Product != nil && item.Product.ID != "" {
		return item.Product.ID.String()
	}
	return item.ProductID.String()
}
