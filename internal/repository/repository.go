package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
)

var (
	// ErrNotFound возвращается, когда сущность не найдена
	ErrNotFound = errors.New("not found")
	// ErrInvalidID is returned for ids that are not in the backend's format.
	ErrInvalidID = errors.New("malformed id")
	// ErrConflict is returned when a conditional write matched nothing or the
	// store aborted the transaction because of a concurrent writer.
	ErrConflict = errors.New("conflict")
	// ErrInvalidValue is returned for quantities and amounts the store cannot apply.
	ErrInvalidValue = errors.New("invalid value")
)

func checkQuantity(qty int64) error {
	if qty < 1 {
		return fmt.Errorf("%w: quantity %d must be positive", ErrInvalidValue, qty)
	}
	return nil
}

// ProductFilter параметры фильтрации списка товаров
type ProductFilter struct {
	NameSubstring string
	Category      string
	MinPrice      *decimal.Decimal
	MaxPrice      *decimal.Decimal
}

// Match reports whether p passes the filter.
func (f ProductFilter) Match(p domain.Product) bool {
	if !containsIgnoreCase(p.Name, f.NameSubstring) {
		return false
	}
	if f.Category != "" && !strings.EqualFold(p.Category, f.Category) {
		return false
	}
	if f.MinPrice != nil && p.Price.LessThan(*f.MinPrice) {
		return false
	}
	if f.MaxPrice != nil && p.Price.GreaterThan(*f.MaxPrice) {
		return false
	}
	return true
}

// ProductRepository интерфейс репозитория товаров
type ProductRepository interface {
	Create(ctx context.Context, p *domain.Product) error
	GetByID(ctx context.Context, id string) (*domain.Product, error)
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id string) error
	List(ctx context.Context, f ProductFilter) ([]domain.Product, error)
	// DecrementStock subtracts qty only if the current stock is at least qty.
	// It returns ErrConflict when the condition does not hold and ErrNotFound
	// when the product is gone.
	DecrementStock(ctx context.Context, id string, qty int64) error
	IncrementStock(ctx context.Context, id string, qty int64) error
}

type StudioProductRepository interface {
	Create(ctx context.Context, sp *domain.StudioProduct) error
	GetByID(ctx context.Context, id string) (*domain.StudioProduct, error)
	Update(ctx context.Context, sp *domain.StudioProduct) error
	List(ctx context.Context) ([]domain.StudioProduct, error)
}

type DesignRepository interface {
	Create(ctx context.Context, d *domain.Design) error
	GetByID(ctx context.Context, id string) (*domain.Design, error)
	ListByOwner(ctx context.Context, ownerID string) ([]domain.Design, error)
	Delete(ctx context.Context, id string) error
}

// OrderRepository интерфейс репозитория заказов
type OrderRepository interface {
	Create(ctx context.Context, o *domain.Order) error
	GetByID(ctx context.Context, id string) (*domain.Order, error)
	// ListByUser returns the user's orders, newest first. An empty userID lists all orders.
	ListByUser(ctx context.Context, userID string) ([]domain.Order, error)
	Update(ctx context.Context, o *domain.Order) error
	Delete(ctx context.Context, id string) error
}

// TxManager абстракция транзакции. Repositories called with the context passed
// to fn take part in the transaction; an error returned by fn rolls it back.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

// Store bundles the repositories and transaction manager of one backend.
type Store struct {
	Products       ProductRepository
	StudioProducts StudioProductRepository
	Designs        DesignRepository
	Orders         OrderRepository
	Tx             TxManager
	// Close releases the backend's connections.
	Close func(ctx context.Context) error
}

// helper: case-insensitive contains
func containsIgnoreCase(s, substr string) bool {
	if substr == "" {
		return true
	}
	return strings.Contains(strings.ToLower(s), strings.ToLower(substr))
}
