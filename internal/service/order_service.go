package service

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"atelier/internal/domain"
	"atelier/internal/notify"
	"atelier/internal/repository"
)

// ListingInvalidator drops cached catalog listings after stock changes.
type ListingInvalidator interface {
	InvalidateListings()
}

// OrderService реализует логику заказов: оформление, смена статуса, оплата, отмена
type OrderService struct {
	orders    repository.OrderRepository
	tx        repository.TxManager
	validator *LineItemValidator
	inventory *InventoryCommitter
	listings  ListingInvalidator
	notifier  notify.Notifier
	now       func() time.Time
}

func NewOrderService(store *repository.Store, listings ListingInvalidator, notifier notify.Notifier) *OrderService {
	return &OrderService{
		orders:    store.Orders,
		tx:        store.Tx,
		validator: NewLineItemValidator(store.Products, store.StudioProducts, store.Designs),
		inventory: NewInventoryCommitter(store.Products),
		listings:  listings,
		notifier:  notifier,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// PlaceOrderInput is an order request after decoding. Client-side prices are
// not part of it.
type PlaceOrderInput struct {
	Lines           []CartLine
	ShippingAddress *domain.Address
	PaymentMethod   string
	TransactionID   string
	Tax             decimal.Decimal
	Shipping        decimal.Decimal
}

func validateAddress(a *domain.Address) error {
	if a == nil {
		return fmt.Errorf("%w: shipping address is required", ErrInvalidInput)
	}
	required := map[string]string{
		"full_name":   a.FullName,
		"line1":       a.Line1,
		"city":        a.City,
		"postal_code": a.PostalCode,
		"country":     a.Country,
	}
	for _, field := range []string{"full_name", "line1", "city", "postal_code", "country"} {
		if strings.TrimSpace(required[field]) == "" {
			return fmt.Errorf("%w: shipping address %s is required", ErrInvalidInput, field)
		}
	}
	return nil
}

// PlaceOrder validates the cart, prices it from the catalog, reserves stock and
// stores the order in one transaction. Any failure leaves no order and no
// stock change behind.
func (s *OrderService) PlaceOrder(ctx context.Context, actor Actor, in PlaceOrderInput) (*domain.Order, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	if len(in.Lines) == 0 {
		return nil, fmt.Errorf("%w: order has no items", ErrInvalidInput)
	}
	if err := validateAddress(in.ShippingAddress); err != nil {
		return nil, err
	}

	var created *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		items, err := s.validator.Validate(ctx, actor.UserID, in.Lines)
		if err != nil {
			return err
		}
		totals := CalculateTotals(items, in.Tax, in.Shipping)
		if err := s.inventory.Commit(ctx, items); err != nil {
			return err
		}

		now := s.now()
		o := domain.Order{
			UserID:          actor.UserID,
			Items:           items,
			ShippingAddress: *in.ShippingAddress,
			Payment: domain.PaymentInfo{
				Method:        strings.TrimSpace(in.PaymentMethod),
				Status:        domain.PaymentStatusPending,
				TransactionID: strings.TrimSpace(in.TransactionID),
			},
			Subtotal:  totals.Subtotal,
			Tax:       totals.Tax,
			Shipping:  totals.Shipping,
			Total:     totals.Total,
			Status:    domain.OrderStatusPending,
			CreatedAt: now,
			UpdatedAt: now,
		}
		o.Track(domain.OrderStatusPending, "order placed", actor.UserID, now)
		if err := s.orders.Create(ctx, &o); err != nil {
			return err
		}
		created = &o
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.listings.InvalidateListings()
	s.publish(ctx, notify.Event{
		Type:    notify.EventOrderPlaced,
		OrderID: created.ID,
		UserID:  created.UserID,
		Status:  string(created.Status),
		Actor:   actor.UserID,
		Total:   created.Total.String(),
		At:      created.CreatedAt,
	})
	return created, nil
}

// GetOrder возвращает заказ по id владельцу или администратору
func (s *OrderService) GetOrder(ctx context.Context, actor Actor, id string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	o, err := s.orders.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.canAccess(o.UserID) {
		return nil, fmt.Errorf("%w: order %s belongs to another user", ErrNotAuthorized, id)
	}
	return o, nil
}

// ListOrders returns the actor's own orders, newest first.
func (s *OrderService) ListOrders(ctx context.Context, actor Actor) ([]domain.Order, error) {
	if actor.UserID == "" {
		return nil, fmt.Errorf("%w: missing user", ErrInvalidInput)
	}
	return s.orders.ListByUser(ctx, actor.UserID)
}

func (s *OrderService) ListAllOrders(ctx context.Context, actor Actor) ([]domain.Order, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: admin role required", ErrNotAuthorized)
	}
	return s.orders.ListByUser(ctx, "")
}

// UpdateStatus moves an order along its lifecycle. Admin only.
func (s *OrderService) UpdateStatus(ctx context.Context, actor Actor, id string, status domain.OrderStatus, note string) (*domain.Order, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: admin role required", ErrNotAuthorized)
	}
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidInput, status)
	}
	return s.transition(ctx, actor, id, status, note)
}

// CancelOrder возвращает товары на склад и переводит заказ в cancelled, если он ещё не отправлен
func (s *OrderService) CancelOrder(ctx context.Context, actor Actor, id string, note string) (*domain.Order, error) {
	if note == "" {
		note = "cancelled"
	}
	return s.transition(ctx, actor, id, domain.OrderStatusCancelled, note)
}

func (s *OrderService) transition(ctx context.Context, actor Actor, id string, next domain.OrderStatus, note string) (*domain.Order, error) {
	if id == "" {
		return nil, ErrInvalidInput
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !actor.canAccess(o.UserID) {
			return fmt.Errorf("%w: order %s belongs to another user", ErrNotAuthorized, id)
		}
		if !o.Status.CanTransitionTo(next) {
			return fmt.Errorf("%w: cannot move order from %s to %s", ErrInvalidState, o.Status, next)
		}
		if next == domain.OrderStatusCancelled {
			if err := s.inventory.Restore(ctx, o.Items); err != nil {
				return err
			}
		}
		now := s.now()
		o.Status = next
		o.UpdatedAt = now
		o.Track(next, strings.TrimSpace(note), actor.UserID, now)
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}

	if next == domain.OrderStatusCancelled {
		s.listings.InvalidateListings()
	}
	s.publish(ctx, notify.Event{
		Type:    notify.EventStatusChanged,
		OrderID: updated.ID,
		UserID:  updated.UserID,
		Status:  string(updated.Status),
		Actor:   actor.UserID,
		Note:    strings.TrimSpace(note),
		At:      updated.UpdatedAt,
	})
	return updated, nil
}

// PaymentUpdate carries the new payment state reported for an order.
type PaymentUpdate struct {
	Method        string
	Status        domain.PaymentStatus
	TransactionID string
}

// UpdatePayment records a payment state change. Admin only.
func (s *OrderService) UpdatePayment(ctx context.Context, actor Actor, id string, upd PaymentUpdate) (*domain.Order, error) {
	if !actor.Admin {
		return nil, fmt.Errorf("%w: admin role required", ErrNotAuthorized)
	}
	if id == "" {
		return nil, ErrInvalidInput
	}
	if !upd.Status.Valid() {
		return nil, fmt.Errorf("%w: unknown payment status %q", ErrInvalidInput, upd.Status)
	}
	var updated *domain.Order
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.GetByID(ctx, id)
		if err != nil {
			return err
		}
		prev := o.Payment.Status
		if m := strings.TrimSpace(upd.Method); m != "" {
			o.Payment.Method = m
		}
		if t := strings.TrimSpace(upd.TransactionID); t != "" {
			o.Payment.TransactionID = t
		}
		o.Payment.Status = upd.Status
		now := s.now()
		o.UpdatedAt = now
		o.Track(o.Status, fmt.Sprintf("payment %s -> %s", prev, upd.Status), actor.UserID, now)
		if err := s.orders.Update(ctx, o); err != nil {
			return err
		}
		updated = o
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.publish(ctx, notify.Event{
		Type:    notify.EventPaymentUpdated,
		OrderID: updated.ID,
		UserID:  updated.UserID,
		Status:  string(updated.Payment.Status),
		Actor:   actor.UserID,
		At:      updated.UpdatedAt,
	})
	return updated, nil
}

// DeleteOrder removes an order for good. Admin only; stock is not restored.
func (s *OrderService) DeleteOrder(ctx context.Context, actor Actor, id string) error {
	if !actor.Admin {
		return fmt.Errorf("%w: admin role required", ErrNotAuthorized)
	}
	if id == "" {
		return ErrInvalidInput
	}
	return s.orders.Delete(ctx, id)
}

func (s *OrderService) publish(ctx context.Context, ev notify.Event) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.Notify(ctx, ev); err != nil {
		log.Printf("notify %s for order %s: %v", ev.Type, ev.OrderID, err)
	}
}
