package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"atelier/internal/cache"
	"atelier/internal/domain"
	"atelier/internal/repository"
)

// ProductService инкапсулирует бизнес-логику вокруг товаров
type ProductService struct {
	repo     repository.ProductRepository
	listings *cache.TTL[string, []domain.Product]
}

// NewProductService serves List through a cache whose entries live for ttl;
// every write through the service drops the cached listings.
func NewProductService(repo repository.ProductRepository, ttl time.Duration, clock cache.Clock) *ProductService {
	return &ProductService{
		repo:     repo,
		listings: cache.New[string, []domain.Product](ttl, clock),
	}
}

func validateProduct(p domain.Product) error {
	if strings.TrimSpace(p.Name) == "" {
		return fmt.Errorf("%w: name is required", ErrInvalidInput)
	}
	if strings.TrimSpace(p.SKU) == "" {
		return fmt.Errorf("%w: sku is required", ErrInvalidInput)
	}
	if p.Price.IsNegative() {
		return fmt.Errorf("%w: price must not be negative", ErrInvalidInput)
	}
	if p.Stock < 0 {
		return fmt.Errorf("%w: stock must not be negative", ErrInvalidInput)
	}
	return nil
}

func (s *ProductService) Create(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	cp.Price = cp.Price.Round(2)
	if err := s.repo.Create(ctx, &cp); err != nil {
		return nil, err
	}
	s.InvalidateListings()
	return &cp, nil
}

func (s *ProductService) GetByID(ctx context.Context, id string) (*domain.Product, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	return s.repo.GetByID(ctx, id)
}

func (s *ProductService) Update(ctx context.Context, p domain.Product) (*domain.Product, error) {
	if p.ID == "" {
		return nil, ErrInvalidInput
	}
	if err := validateProduct(p); err != nil {
		return nil, err
	}
	cp := p
	cp.Price = cp.Price.Round(2)
	if err := s.repo.Update(ctx, &cp); err != nil {
		return nil, err
	}
	s.InvalidateListings()
	return &cp, nil
}

func (s *ProductService) Delete(ctx context.Context, id string) error {
	if id == "" {
		return ErrInvalidInput
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return err
	}
	s.InvalidateListings()
	return nil
}

func (s *ProductService) List(ctx context.Context, f repository.ProductFilter) ([]domain.Product, error) {
	key := filterKey(f)
	if cached, ok := s.listings.Get(key); ok {
		return append([]domain.Product(nil), cached...), nil
	}
	gen := s.listings.Generation()
	list, err := s.repo.List(ctx, f)
	if err != nil {
		return nil, err
	}
	s.listings.Set(key, append([]domain.Product(nil), list...), gen)
	return list, nil
}

// InvalidateListings drops every cached listing. Order placement calls it
// after stock changes are committed.
func (s *ProductService) InvalidateListings() {
	s.listings.Purge()
}

func filterKey(f repository.ProductFilter) string {
	var minP, maxP string
	if f.MinPrice != nil {
		minP = f.MinPrice.String()
	}
	if f.MaxPrice != nil {
		maxP = f.MaxPrice.String()
	}
	return strings.Join([]string{strings.ToLower(f.NameSubstring), strings.ToLower(f.Category), minP, maxP}, "|")
}
