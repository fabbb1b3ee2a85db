package domain

import (
	"encoding/json"
	"errors"
	"time"

	"github.com/shopspring/decimal"
)

// ErrInvalidItemRef is returned when a line item names both or neither of a
// product and a design.
var ErrInvalidItemRef = errors.New("line item must reference exactly one of product or design")

// OrderStatus тип статуса заказа
type OrderStatus string

const (
	OrderStatusPending    OrderStatus = "pending"
	OrderStatusProcessing OrderStatus = "processing"
	OrderStatusShipped    OrderStatus = "shipped"
	OrderStatusDelivered  OrderStatus = "delivered"
	OrderStatusCancelled  OrderStatus = "cancelled"
)

var orderTransitions = map[OrderStatus][]OrderStatus{
	OrderStatusPending:    {OrderStatusProcessing, OrderStatusCancelled},
	OrderStatusProcessing: {OrderStatusShipped, OrderStatusCancelled},
	OrderStatusShipped:    {OrderStatusDelivered},
}

// Valid reports whether s is one of the known statuses.
func (s OrderStatus) Valid() bool {
	switch s {
	case OrderStatusPending, OrderStatusProcessing, OrderStatusShipped, OrderStatusDelivered, OrderStatusCancelled:
		return true
	}
	return false
}

// CanTransitionTo reports whether an order in status s may move to next.
func (s OrderStatus) CanTransitionTo(next OrderStatus) bool {
	for _, allowed := range orderTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

type PaymentStatus string

const (
	PaymentStatusPending  PaymentStatus = "pending"
	PaymentStatusPaid     PaymentStatus = "paid"
	PaymentStatusFailed   PaymentStatus = "failed"
	PaymentStatusRefunded PaymentStatus = "refunded"
)

func (s PaymentStatus) Valid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusFailed, PaymentStatusRefunded:
		return true
	}
	return false
}

type PaymentInfo struct {
	Method        string        `json:"method,omitempty"`
	Status        PaymentStatus `json:"status"`
	TransactionID string        `json:"transaction_id,omitempty"`
}

// Address is a snapshot of the shipping address taken when the order is placed.
type Address struct {
	FullName   string `json:"full_name" binding:"required"`
	Line1      string `json:"line1" binding:"required"`
	Line2      string `json:"line2,omitempty"`
	City       string `json:"city" binding:"required"`
	State      string `json:"state,omitempty"`
	PostalCode string `json:"postal_code" binding:"required"`
	Country    string `json:"country" binding:"required"`
	Phone      string `json:"phone,omitempty"`
}

// TrackingEvent is one entry of an order's append-only history.
type TrackingEvent struct {
	Status OrderStatus `json:"status"`
	Note   string      `json:"note,omitempty"`
	Actor  string      `json:"actor"`
	At     time.Time   `json:"at"`
}

// ItemRef is what a line item points at: a catalog product or a custom design.
// The only implementations are PhysicalRef and CustomRef.
type ItemRef interface {
	RefID() string
	isItemRef()
}

type PhysicalRef struct{ ProductID string }

type CustomRef struct{ DesignID string }

func (r PhysicalRef) RefID() string { return r.ProductID }
func (r CustomRef) RefID() string   { return r.DesignID }
func (PhysicalRef) isItemRef()      {}
func (CustomRef) isItemRef()        {}

// NewItemRef builds a ref from the optional product and design ids of a cart
// line. Exactly one of them must be set.
func NewItemRef(productID, designID string) (ItemRef, error) {
	switch {
	case productID != "" && designID == "":
		return PhysicalRef{ProductID: productID}, nil
	case designID != "" && productID == "":
		return CustomRef{DesignID: designID}, nil
	default:
		return nil, ErrInvalidItemRef
	}
}

// MaxLineQuantity caps the quantity of a single order line.
const MaxLineQuantity = 10000

// LineItem позиция в заказе. UnitPrice фиксируется при оформлении и дальше не меняется.
type LineItem struct {
	Ref           ItemRef
	Name          string
	Quantity      int64
	UnitPrice     decimal.Decimal
	Size          string
	Color         string
	Notes         string
	Customization map[string]string
}

// LineTotal is UnitPrice × Quantity.
func (li LineItem) LineTotal() decimal.Decimal {
	return li.UnitPrice.Mul(decimal.NewFromInt(li.Quantity))
}

type lineItemJSON struct {
	Kind          string            `json:"kind"`
	Product       string            `json:"product,omitempty"`
	Design        string            `json:"design,omitempty"`
	Name          string            `json:"name,omitempty"`
	Quantity      int64             `json:"quantity"`
	UnitPrice     decimal.Decimal   `json:"unit_price"`
	Size          string            `json:"size,omitempty"`
	Color         string            `json:"color,omitempty"`
	Notes         string            `json:"notes,omitempty"`
	Customization map[string]string `json:"customization,omitempty"`
}

const (
	itemKindProduct = "product"
	itemKindDesign  = "design"
)

func (li LineItem) MarshalJSON() ([]byte, error) {
	out := lineItemJSON{
		Name:          li.Name,
		Quantity:      li.Quantity,
		UnitPrice:     li.UnitPrice,
		Size:          li.Size,
		Color:         li.Color,
		Notes:         li.Notes,
		Customization: li.Customization,
	}
	switch ref := li.Ref.(type) {
	case PhysicalRef:
		out.Kind, out.Product = itemKindProduct, ref.ProductID
	case CustomRef:
		out.Kind, out.Design = itemKindDesign, ref.DesignID
	default:
		return nil, ErrInvalidItemRef
	}
	return json.Marshal(out)
}

func (li *LineItem) UnmarshalJSON(data []byte) error {
	var in lineItemJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	ref, err := NewItemRef(in.Product, in.Design)
	if err != nil {
		return err
	}
	*li = LineItem{
		Ref:           ref,
		Name:          in.Name,
		Quantity:      in.Quantity,
		UnitPrice:     in.UnitPrice,
		Size:          in.Size,
		Color:         in.Color,
		Notes:         in.Notes,
		Customization: in.Customization,
	}
	return nil
}

// Order сущность заказа. Суммы считаются на сервере: Total == Subtotal + Tax + Shipping.
type Order struct {
	ID              string          `json:"id"`
	UserID          string          `json:"user_id"`
	Items           []LineItem      `json:"items"`
	ShippingAddress Address         `json:"shipping_address"`
	Payment         PaymentInfo     `json:"payment"`
	Subtotal        decimal.Decimal `json:"subtotal"`
	Tax             decimal.Decimal `json:"tax"`
	Shipping        decimal.Decimal `json:"shipping"`
	Total           decimal.Decimal `json:"total"`
	Status          OrderStatus     `json:"status"`
	Tracking        []TrackingEvent `json:"tracking"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// Track appends a history entry.
func (o *Order) Track(status OrderStatus, note, actor string, at time.Time) {
	o.Tracking = append(o.Tracking, TrackingEvent{Status: status, Note: note, Actor: actor, At: at})
}

// Clone returns a deep copy so callers never share slices or maps with a store.
func (o Order) Clone() Order {
	cp := o
	cp.Items = make([]LineItem, len(o.Items))
	for i, it := range o.Items {
		if it.Customization != nil {
			m := make(map[string]string, len(it.Customization))
			for k, v := range it.Customization {
				m[k] = v
			}
			it.Customization = m
		}
		cp.Items[i] = it
	}
	cp.Tracking = append([]TrackingEvent(nil), o.Tracking...)
	return cp
}
