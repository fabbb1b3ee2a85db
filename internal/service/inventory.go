package service

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"

	"atelier/internal/domain"
	"atelier/internal/repository"
)

// InventoryCommitter applies the stock changes of an order. It must run inside
// the order's transaction.
type InventoryCommitter struct {
	products repository.ProductRepository
}

func NewInventoryCommitter(products repository.ProductRepository) *InventoryCommitter {
	return &InventoryCommitter{products: products}
}

type stockChange struct {
	productID string
	qty       int64
}

// physicalDemand sums quantities per product, ordered by product id so that
// concurrent orders touch rows in the same order. Design lines have no stock.
func physicalDemand(items []domain.LineItem) ([]stockChange, error) {
	byID := make(map[string]int64)
	for _, it := range items {
		ref, ok := it.Ref.(domain.PhysicalRef)
		if !ok {
			continue
		}
		if it.Quantity < 1 || byID[ref.ProductID] > math.MaxInt64-it.Quantity {
			return nil, fmt.Errorf("%w: quantity %d of product %s", ErrInvalidInput, it.Quantity, ref.ProductID)
		}
		byID[ref.ProductID] += it.Quantity
	}
	out := make([]stockChange, 0, len(byID))
	for id, qty := range byID {
		out = append(out, stockChange{productID: id, qty: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].productID < out[j].productID })
	return out, nil
}

// Commit decrements stock with one conditional update per product. A product
// whose stock is already below the requested quantity fails the whole order
// with repository.ErrConflict.
func (c *InventoryCommitter) Commit(ctx context.Context, items []domain.LineItem) error {
	demand, err := physicalDemand(items)
	if err != nil {
		return err
	}
	for _, ch := range demand {
		if err := c.products.DecrementStock(ctx, ch.productID, ch.qty); err != nil {
			return fmt.Errorf("reserve product %s: %w", ch.productID, err)
		}
	}
	return nil
}

// Restore puts the stock of a cancelled order back. Products deleted since
// the order was placed are skipped.
func (c *InventoryCommitter) Restore(ctx context.Context, items []domain.LineItem) error {
	demand, err := physicalDemand(items)
	if err != nil {
		return err
	}
	for _, ch := range demand {
		err := c.products.IncrementStock(ctx, ch.productID, ch.qty)
		if errors.Is(err, repository.ErrNotFound) {
			continue
		}
		if err != nil {
			return fmt.Errorf("restock product %s: %w", ch.productID, err)
		}
	}
	return nil
}
