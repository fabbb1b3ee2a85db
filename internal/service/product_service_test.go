package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"atelier/internal/cache"
	"atelier/internal/domain"
	"atelier/internal/repository"
)

type manualClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *manualClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *manualClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

// countingProducts counts List calls that reach the repository.
type countingProducts struct {
	repository.ProductRepository
	lists int
}

func (c *countingProducts) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	c.lists++
	return c.ProductRepository.List(ctx, f)
}

func setupPS(t *testing.T) (*ProductService, *countingProducts, *manualClock) {
	t.Helper()
	repo := &countingProducts{ProductRepository: repository.NewMemoryStore()}
	clock := &manualClock{now: time.Date(2025, 9, 28, 12, 0, 0, 0, time.UTC)}
	return NewProductService(repo, 30*time.Second, clock), repo, clock
}

func TestProduct_Create_Valid(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "Linen shirt", SKU: "LS-1", Price: dec("49.999"), Stock: 10})
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if p.ID == "" {
		t.Fatalf("expected id assigned")
	}
	assert.True(t, dec("50.00").Equal(p.Price), "price %s", p.Price)
}

func TestProduct_Create_Invalid(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setupPS(t)
	cases := []domain.Product{
		{Name: "", SKU: "S", Price: dec("1"), Stock: 1},
		{Name: "N", SKU: " ", Price: dec("1"), Stock: 1},
		{Name: "N", SKU: "S", Price: dec("-1"), Stock: 1},
		{Name: "N", SKU: "S", Price: dec("1"), Stock: -1},
	}
	for _, p := range cases {
		_, err := ps.Create(ctx, p)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected validation error for %+v, got %v", p, err)
		}
	}
}

func TestProduct_Update_Get_Delete(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setupPS(t)
	p, err := ps.Create(ctx, domain.Product{Name: "A", SKU: "S1", Price: dec("10"), Stock: 5})
	require.NoError(t, err)

	got, err := ps.GetByID(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, p.ID, got.ID)

	p.Name = "A+"
	p.Price = dec("12")
	p.Stock = 7
	up, err := ps.Update(ctx, *p)
	require.NoError(t, err)
	assert.Equal(t, "A+", up.Name)
	assert.Equal(t, int64(7), up.Stock)

	require.NoError(t, ps.Delete(ctx, p.ID))
	_, err = ps.GetByID(ctx, p.ID)
	require.ErrorIs(t, err, repository.ErrNotFound)

	_, err = ps.GetByID(ctx, "not-a-uuid")
	require.ErrorIs(t, err, repository.ErrInvalidID)
}

func TestProduct_List_Filtering(t *testing.T) {
	ctx := context.Background()
	ps, _, _ := setupPS(t)
	for _, p := range []domain.Product{
		{Name: "Canvas tote", SKU: "S1", Category: "bags", Price: dec("100"), Stock: 5},
		{Name: "Cotton tee", SKU: "S2", Category: "shirts", Price: dec("50"), Stock: 5},
		{Name: "Wool scarf", SKU: "S3", Category: "accessories", Price: dec("150"), Stock: 5},
	} {
		_, err := ps.Create(ctx, p)
		require.NoError(t, err)
	}

	list, err := ps.List(ctx, repository.ProductFilter{NameSubstring: "CO"})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Cotton tee", list[0].Name)

	list, err = ps.List(ctx, repository.ProductFilter{Category: "Bags"})
	require.NoError(t, err)
	require.Len(t, list, 1)

	lo, hi := dec("60"), dec("120")
	list, err = ps.List(ctx, repository.ProductFilter{MinPrice: &lo, MaxPrice: &hi})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Canvas tote", list[0].Name)
}

func TestProduct_List_Cache(t *testing.T) {
	ctx := context.Background()
	ps, repo, clock := setupPS(t)
	_, err := ps.Create(ctx, domain.Product{Name: "A", SKU: "S1", Price: dec("10"), Stock: 5})
	require.NoError(t, err)

	_, err = ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	_, err = ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, repo.lists, "second list should be served from cache")

	clock.Advance(30 * time.Second)
	_, err = ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Equal(t, 2, repo.lists, "entry should expire after ttl")

	_, err = ps.Create(ctx, domain.Product{Name: "B", SKU: "S2", Price: dec("10"), Stock: 5})
	require.NoError(t, err)
	list, err := ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.Len(t, list, 2)
	assert.Equal(t, 3, repo.lists, "writes should drop cached listings")

	// callers get copies
	list[0].Name = "mutated"
	again, err := ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	assert.NotEqual(t, "mutated", again[0].Name)
}

// pausingProducts holds the first List call after it has read the store,
// until release is closed.
type pausingProducts struct {
	repository.ProductRepository
	once    sync.Once
	loaded  chan struct{}
	release chan struct{}
}

func (p *pausingProducts) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	list, err := p.ProductRepository.List(ctx, f)
	p.once.Do(func() {
		close(p.loaded)
		<-p.release
	})
	return list, err
}

func TestProduct_List_OrderDuringLoad(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemory()
	repo := &pausingProducts{ProductRepository: store.Products, loaded: make(chan struct{}), release: make(chan struct{})}
	ps := NewProductService(repo, time.Minute, cache.SystemClock)
	orders := NewOrderService(store, ps, nil)

	p, err := ps.Create(ctx, domain.Product{Name: "Tee", SKU: "TEE-1", Price: dec("10.00"), Stock: 5})
	require.NoError(t, err)

	done := make(chan []domain.Product)
	go func() {
		list, _ := ps.List(ctx, repository.ProductFilter{})
		done <- list
	}()
	<-repo.loaded

	_, err = orders.PlaceOrder(ctx, alice, PlaceOrderInput{
		Lines:           []CartLine{{ProductID: p.ID, Quantity: 2}},
		ShippingAddress: address(),
	})
	require.NoError(t, err)
	close(repo.release)
	stale := <-done
	require.Len(t, stale, 1)
	assert.Equal(t, int64(5), stale[0].Stock)

	list, err := ps.List(ctx, repository.ProductFilter{})
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, int64(3), list[0].Stock)
}

func TestStudioAndDesigns(t *testing.T) {
	ctx := context.Background()
	f := setup(t)

	_, err := f.studio.Create(ctx, domain.StudioProduct{Name: " ", Price: dec("1")})
	require.ErrorIs(t, err, ErrInvalidInput)

	base, err := f.studio.Create(ctx, domain.StudioProduct{Name: "Crew tee", Price: dec("18.5"), Active: true})
	require.NoError(t, err)
	base.Active = false
	base, err = f.studio.Update(ctx, *base)
	require.NoError(t, err)
	assert.False(t, base.Active)

	_, err = f.designs.Create(ctx, alice, domain.Design{Name: "Wave", StudioProductID: "4f0c6a61-3d43-4a35-bd27-3b1a2c9a7e02"})
	require.ErrorIs(t, err, repository.ErrNotFound)

	d, err := f.designs.Create(ctx, alice, domain.Design{Name: "Wave", StudioProductID: base.ID, OwnerID: "mallory"})
	require.NoError(t, err)
	assert.Equal(t, "alice", d.OwnerID)

	_, err = f.designs.Get(ctx, bob, d.ID)
	require.ErrorIs(t, err, ErrNotAuthorized)
	require.ErrorIs(t, f.designs.Delete(ctx, bob, d.ID), ErrNotAuthorized)

	mine, err := f.designs.List(ctx, alice)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	require.NoError(t, f.designs.Delete(ctx, alice, d.ID))
	mine, err = f.designs.List(ctx, alice)
	require.NoError(t, err)
	assert.Empty(t, mine)
}
