package repository

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

func TestMemoryStore_Contract(t *testing.T) {
	runStoreContract(t, NewMemory(), "00000000-0000-4000-8000-000000000000")
}

func TestMemoryTx_TransactionalUpdate(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	// seed product
	p := domain.Product{Name: "A", SKU: "S1", Price: decimal.NewFromInt(10), Stock: 5}
	if err := store.Create(ctx, &p); err != nil {
		t.Fatal(err)
	}

	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		if err := store.DecrementStock(ctx, p.ID, 3); err != nil {
			return err
		}
		// nested call joins the outer transaction instead of deadlocking
		return tx.WithTransaction(ctx, func(ctx context.Context) error {
			o := sampleOrder("john", p.ID, 3)
			return orders.Create(ctx, &o)
		})
	})
	if err != nil {
		t.Fatalf("tx: %v", err)
	}

	pp, _ := store.GetByID(ctx, p.ID)
	if pp.Stock != 2 {
		t.Fatalf("stock expected 2, got %v", pp.Stock)
	}
	list, _ := orders.ListByUser(ctx, "john")
	if len(list) != 1 {
		t.Fatalf("expected 1 order, got %d", len(list))
	}
}

func TestMemoryTx_RollbackRestoresOrders(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	tx := NewMemoryTx(store)
	orders := NewMemoryOrders(store)

	kept := sampleOrder("john", "00000000-0000-4000-8000-000000000001", 1)
	if err := orders.Create(ctx, &kept); err != nil {
		t.Fatal(err)
	}

	boom := errors.New("boom")
	err := tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := orders.GetByID(ctx, kept.ID)
		if err != nil {
			return err
		}
		o.Status = domain.OrderStatusCancelled
		if err := orders.Update(ctx, o); err != nil {
			return err
		}
		extra := sampleOrder("john", kept.Items[0].Ref.RefID(), 2)
		if err := orders.Create(ctx, &extra); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}

	list, _ := orders.ListByUser(ctx, "john")
	if len(list) != 1 || list[0].Status != domain.OrderStatusPending {
		t.Fatalf("rollback did not restore orders: %+v", list)
	}
}

func TestMemoryOrders_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	orders := NewMemoryOrders(store)

	o := sampleOrder("john", "00000000-0000-4000-8000-000000000001", 1)
	o.Items[0].Customization = map[string]string{"placement": "front"}
	if err := orders.Create(ctx, &o); err != nil {
		t.Fatal(err)
	}
	got, _ := orders.GetByID(ctx, o.ID)
	got.Items[0].Customization["placement"] = "back"
	got.Tracking[0].Note = "edited"

	again, _ := orders.GetByID(ctx, o.ID)
	if again.Items[0].Customization["placement"] != "front" || again.Tracking[0].Note != "order placed" {
		t.Fatalf("stored order was mutated through a returned copy")
	}
}

func TestList_Filtering(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	add := func(n, category string, price int64) {
		p := domain.Product{Name: n, SKU: n, Category: category, Price: decimal.NewFromInt(price), Stock: 1}
		if err := store.Create(ctx, &p); err != nil {
			t.Fatal(err)
		}
	}
	add("Canvas tote", "bags", 100)
	add("Cotton tee", "shirts", 50)
	add("Wool scarf", "accessories", 150)

	// name contains, case-insensitive
	list, _ := store.List(ctx, ProductFilter{NameSubstring: "COT"})
	if len(list) != 1 || list[0].Name != "Cotton tee" {
		t.Fatalf("name filter: %+v", list)
	}

	// min
	min := decimal.NewFromInt(100)
	list, _ = store.List(ctx, ProductFilter{MinPrice: &min})
	if len(list) != 2 {
		t.Fatalf("min filter: %+v", list)
	}
	for _, p := range list {
		if p.Price.LessThan(min) {
			t.Fatalf("min filter fail")
		}
	}

	// max
	max := decimal.NewFromInt(100)
	list, _ = store.List(ctx, ProductFilter{MaxPrice: &max})
	for _, p := range list {
		if p.Price.GreaterThan(max) {
			t.Fatalf("max filter fail")
		}
	}

	list, _ = store.List(ctx, ProductFilter{Category: "ACCESSORIES"})
	if len(list) != 1 {
		t.Fatalf("category filter: %+v", list)
	}
}

func TestMemoryIncrementStock_Overflow(t *testing.T) {
	store := NewMemory()
	ctx := context.Background()
	p := domain.Product{Name: "Mug", SKU: "MUG-1", Price: decimal.RequireFromString("9.00"), Stock: math.MaxInt64 - 1}
	if err := store.Products.Create(ctx, &p); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.Products.IncrementStock(ctx, p.ID, 2); !errors.Is(err, ErrInvalidValue) {
		t.Fatalf("want ErrInvalidValue, got %v", err)
	}
	got, _ := store.Products.GetByID(ctx, p.ID)
	if got.Stock != math.MaxInt64-1 {
		t.Fatalf("stock changed: %d", got.Stock)
	}
}
