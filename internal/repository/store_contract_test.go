package repository

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/domain"
)

// runStoreContract checks the behaviour every backend must share. missingID
// is a well-formed id that names nothing in the store.
func runStoreContract(t *testing.T, store *Store, missingID string) {
	t.Run("ProductCRUD", func(t *testing.T) { contractProductCRUD(t, store, missingID) })
	t.Run("ConditionalDecrement", func(t *testing.T) { contractDecrement(t, store, missingID) })
	t.Run("ConcurrentLastUnit", func(t *testing.T) { contractLastUnit(t, store) })
	t.Run("RollbackOnError", func(t *testing.T) { contractRollback(t, store) })
	t.Run("OrderRoundTrip", func(t *testing.T) { contractOrders(t, store, missingID) })
	t.Run("Designs", func(t *testing.T) { contractDesigns(t, store) })
}

func newProduct(t *testing.T, store *Store, price string, stock int64) domain.Product {
	t.Helper()
	p := domain.Product{
		Name:     "Tee " + price,
		SKU:      "SKU-" + uuid.NewString(),
		Category: "shirts",
		Price:    decimal.RequireFromString(price),
		Stock:    stock,
	}
	require.NoError(t, store.Products.Create(context.Background(), &p))
	require.NotEmpty(t, p.ID)
	return p
}

func stockOf(t *testing.T, store *Store, id string) int64 {
	t.Helper()
	p, err := store.Products.GetByID(context.Background(), id)
	require.NoError(t, err)
	return p.Stock
}

func contractProductCRUD(t *testing.T, store *Store, missingID string) {
	ctx := context.Background()
	p := newProduct(t, store, "19.99", 5)

	got, err := store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.SKU, got.SKU)
	assert.True(t, p.Price.Equal(got.Price), "price %s", got.Price)

	p.Name = "Tee v2"
	p.Price = decimal.RequireFromString("21.50")
	require.NoError(t, store.Products.Update(ctx, &p))
	got, err = store.Products.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Tee v2", got.Name)

	lo := decimal.RequireFromString("21.50")
	list, err := store.Products.List(ctx, ProductFilter{NameSubstring: "v2", MinPrice: &lo, MaxPrice: &lo})
	require.NoError(t, err)
	ids := make([]string, 0, len(list))
	for _, x := range list {
		ids = append(ids, x.ID)
	}
	assert.Contains(t, ids, p.ID)

	_, err = store.Products.GetByID(ctx, missingID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Products.GetByID(ctx, "not-an-id")
	assert.ErrorIs(t, err, ErrInvalidID)

	require.NoError(t, store.Products.Delete(ctx, p.ID))
	_, err = store.Products.GetByID(ctx, p.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, store.Products.Delete(ctx, p.ID), ErrNotFound)
}

func contractDecrement(t *testing.T, store *Store, missingID string) {
	ctx := context.Background()
	p := newProduct(t, store, "5.00", 3)

	require.NoError(t, store.Products.DecrementStock(ctx, p.ID, 2))
	assert.Equal(t, int64(1), stockOf(t, store, p.ID))

	err := store.Products.DecrementStock(ctx, p.ID, 2)
	assert.ErrorIs(t, err, ErrConflict)
	assert.Equal(t, int64(1), stockOf(t, store, p.ID))

	require.NoError(t, store.Products.DecrementStock(ctx, p.ID, 1))
	assert.Equal(t, int64(0), stockOf(t, store, p.ID))

	require.NoError(t, store.Products.IncrementStock(ctx, p.ID, 4))
	assert.Equal(t, int64(4), stockOf(t, store, p.ID))

	assert.ErrorIs(t, store.Products.DecrementStock(ctx, missingID, 1), ErrNotFound)
	assert.ErrorIs(t, store.Products.IncrementStock(ctx, missingID, 1), ErrNotFound)

	// a non-positive quantity would turn the guard around
	for _, qty := range []int64{0, -1, math.MinInt64} {
		assert.ErrorIs(t, store.Products.DecrementStock(ctx, p.ID, qty), ErrInvalidValue, "decrement %d", qty)
		assert.ErrorIs(t, store.Products.IncrementStock(ctx, p.ID, qty), ErrInvalidValue, "increment %d", qty)
	}
	assert.Equal(t, int64(4), stockOf(t, store, p.ID))
}

func contractLastUnit(t *testing.T, store *Store) {
	ctx := context.Background()
	p := newProduct(t, store, "9.00", 1)

	const workers = 8
	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		wins int
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
				return store.Products.DecrementStock(ctx, p.ID, 1)
			})
			if err != nil && !errors.Is(err, ErrConflict) {
				t.Errorf("unexpected error: %v", err)
				return
			}
			if err == nil {
				mu.Lock()
				wins++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, wins)
	assert.Equal(t, int64(0), stockOf(t, store, p.ID))
}

func contractRollback(t *testing.T, store *Store) {
	ctx := context.Background()
	a := newProduct(t, store, "10.00", 5)
	b := newProduct(t, store, "20.00", 1)
	user := "rollback-" + uuid.NewString()

	err := store.Tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.Products.DecrementStock(ctx, a.ID, 3); err != nil {
			return err
		}
		o := sampleOrder(user, a.ID, 3)
		if err := store.Orders.Create(ctx, &o); err != nil {
			return err
		}
		return store.Products.DecrementStock(ctx, b.ID, 2)
	})
	require.ErrorIs(t, err, ErrConflict)

	assert.Equal(t, int64(5), stockOf(t, store, a.ID))
	assert.Equal(t, int64(1), stockOf(t, store, b.ID))
	orders, err := store.Orders.ListByUser(ctx, user)
	require.NoError(t, err)
	assert.Empty(t, orders)
}

func sampleOrder(userID, productID string, qty int64) domain.Order {
	now := time.Now().UTC().Truncate(time.Millisecond)
	price := decimal.RequireFromString("10.00")
	total := price.Mul(decimal.NewFromInt(qty))
	o := domain.Order{
		UserID: userID,
		Items: []domain.LineItem{{
			Ref:       domain.PhysicalRef{ProductID: productID},
			Name:      "Tee",
			Quantity:  qty,
			UnitPrice: price,
			Size:      "M",
		}},
		ShippingAddress: domain.Address{FullName: "A B", Line1: "1 Main", City: "X", PostalCode: "1", Country: "US"},
		Payment:         domain.PaymentInfo{Method: "card", Status: domain.PaymentStatusPending},
		Subtotal:        total,
		Tax:             decimal.Zero,
		Shipping:        decimal.Zero,
		Total:           total,
		Status:          domain.OrderStatusPending,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
	o.Track(domain.OrderStatusPending, "order placed", userID, now)
	return o
}

func contractOrders(t *testing.T, store *Store, missingID string) {
	ctx := context.Background()
	p := newProduct(t, store, "10.00", 10)
	user := "orders-" + uuid.NewString()

	first := sampleOrder(user, p.ID, 1)
	require.NoError(t, store.Orders.Create(ctx, &first))
	second := sampleOrder(user, p.ID, 2)
	second.CreatedAt = first.CreatedAt.Add(time.Second)
	second.Items = append(second.Items, domain.LineItem{
		Ref:           domain.CustomRef{DesignID: missingID},
		Name:          "Cat print",
		Quantity:      1,
		UnitPrice:     decimal.RequireFromString("30.00"),
		Customization: map[string]string{"placement": "back"},
	})
	require.NoError(t, store.Orders.Create(ctx, &second))

	got, err := store.Orders.GetByID(ctx, second.ID)
	require.NoError(t, err)
	require.Len(t, got.Items, 2)
	assert.Equal(t, domain.PhysicalRef{ProductID: p.ID}, got.Items[0].Ref)
	assert.Equal(t, domain.CustomRef{DesignID: missingID}, got.Items[1].Ref)
	assert.Equal(t, "back", got.Items[1].Customization["placement"])
	assert.True(t, second.Total.Equal(got.Total))
	assert.Equal(t, "US", got.ShippingAddress.Country)
	require.Len(t, got.Tracking, 1)

	list, err := store.Orders.ListByUser(ctx, user)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")

	got.Status = domain.OrderStatusProcessing
	got.Payment.Status = domain.PaymentStatusPaid
	got.UpdatedAt = got.UpdatedAt.Add(time.Minute)
	got.Track(domain.OrderStatusProcessing, "picked", "admin", got.UpdatedAt)
	require.NoError(t, store.Orders.Update(ctx, got))

	again, err := store.Orders.GetByID(ctx, second.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusProcessing, again.Status)
	assert.Equal(t, domain.PaymentStatusPaid, again.Payment.Status)
	require.Len(t, again.Tracking, 2)
	assert.Equal(t, "picked", again.Tracking[1].Note)

	require.NoError(t, store.Orders.Delete(ctx, first.ID))
	_, err = store.Orders.GetByID(ctx, first.ID)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = store.Orders.GetByID(ctx, missingID)
	assert.ErrorIs(t, err, ErrNotFound)
}

func contractDesigns(t *testing.T, store *Store) {
	ctx := context.Background()
	base := domain.StudioProduct{Name: "Crew tee", Price: decimal.RequireFromString("18.00"), Active: true}
	require.NoError(t, store.StudioProducts.Create(ctx, &base))
	base.Active = false
	require.NoError(t, store.StudioProducts.Update(ctx, &base))
	gotBase, err := store.StudioProducts.GetByID(ctx, base.ID)
	require.NoError(t, err)
	assert.False(t, gotBase.Active)

	owner := "designer-" + uuid.NewString()
	d := domain.Design{OwnerID: owner, StudioProductID: base.ID, Name: "Wave", Placement: "front", CreatedAt: time.Now().UTC()}
	require.NoError(t, store.Designs.Create(ctx, &d))

	got, err := store.Designs.GetByID(ctx, d.ID)
	require.NoError(t, err)
	assert.Equal(t, owner, got.OwnerID)
	assert.Equal(t, base.ID, got.StudioProductID)

	mine, err := store.Designs.ListByOwner(ctx, owner)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, store.Designs.Delete(ctx, d.ID))
	_, err = store.Designs.GetByID(ctx, d.ID)
	assert.ErrorIs(t, err, ErrNotFound)
}
