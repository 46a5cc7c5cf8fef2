package service

import (
	"context"
	"time"

	"github.com/fjod/go_cart/storefront/internal/domain"
	"go.uber.org/zap"
)

const rollbackTimeout = 10 * time.Second

// rollback restores stock for the already-decremented lines and deletes the
// order. It runs detached from the request so a cancelled client cannot stop
// it half way. Failures are logged with the order id for manual repair.
func (s *CheckoutService) rollback(ctx context.Context, log *zap.Logger, order *domain.Order, decremented []domain.CartItem) {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), rollbackTimeout)
	defer cancel()

	for _, item := range decremented {
		if err := s.products.IncrementStock(ctx, item.ProductID, item.Quantity); err != nil {
			log.Error("restore stock failed",
				zap.String("product_id", item.ProductID),
				zap.Int("quantity", item.Quantity),
				zap.Error(err))
		}
	}

	if err := s.orders.DeleteOrder(ctx, order.ID); err != nil {
		log.Error("delete order during rollback failed", zap.Error(err))
		return
	}
	log.Info("checkout rolled back", zap.Int("restored_lines", len(decremented)))
}
