package domain

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOrderStatus_Transitions(t *testing.T) {
	cases := []struct {
		from, to OrderStatus
		ok       bool
	}{
		{OrderStatusPending, OrderStatusProcessing, true},
		{OrderStatusPending, OrderStatusCancelled, true},
		{OrderStatusPending, OrderStatusShipped, false},
		{OrderStatusProcessing, OrderStatusShipped, true},
		{OrderStatusProcessing, OrderStatusCancelled, true},
		{OrderStatusShipped, OrderStatusDelivered, true},
		{OrderStatusShipped, OrderStatusCancelled, false},
		{OrderStatusDelivered, OrderStatusCancelled, false},
		{OrderStatusCancelled, OrderStatusPending, false},
		{OrderStatusPending, OrderStatusPending, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.ok, tc.from.CanTransitionTo(tc.to), "%s -> %s", tc.from, tc.to)
	}
	assert.False(t, OrderStatus("lost").Valid())
	assert.True(t, OrderStatusDelivered.Valid())
	assert.False(t, PaymentStatus("maybe").Valid())
}

func TestNewItemRef(t *testing.T) {
	ref, err := NewItemRef("p1", "")
	require.NoError(t, err)
	assert.Equal(t, PhysicalRef{ProductID: "p1"}, ref)

	ref, err = NewItemRef("", "d1")
	require.NoError(t, err)
	assert.Equal(t, CustomRef{DesignID: "d1"}, ref)

	_, err = NewItemRef("p1", "d1")
	assert.ErrorIs(t, err, ErrInvalidItemRef)
	_, err = NewItemRef("", "")
	assert.ErrorIs(t, err, ErrInvalidItemRef)
}

func TestLineItem_JSON(t *testing.T) {
	li := LineItem{
		Ref:           CustomRef{DesignID: "d1"},
		Name:          "Cat print",
		Quantity:      2,
		UnitPrice:     decimal.RequireFromString("45.50"),
		Customization: map[string]string{"placement": "front"},
	}
	raw, err := json.Marshal(li)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"design","design":"d1","name":"Cat print","quantity":2,"unit_price":"45.5","customization":{"placement":"front"}}`, string(raw))

	var back LineItem
	require.NoError(t, json.Unmarshal(raw, &back))
	assert.Equal(t, li.Ref, back.Ref)
	assert.True(t, li.LineTotal().Equal(decimal.RequireFromString("91")))

	err = json.Unmarshal([]byte(`{"kind":"product","product":"p1","design":"d1","quantity":1}`), &back)
	assert.ErrorIs(t, err, ErrInvalidItemRef)

	_, err = json.Marshal(LineItem{Quantity: 1})
	assert.Error(t, err)
}

func TestOrder_CloneIsDeep(t *testing.T) {
	o := Order{
		Items: []LineItem{{Ref: PhysicalRef{ProductID: "p"}, Quantity: 1, Customization: map[string]string{"k": "v"}}},
	}
	o.Track(OrderStatusPending, "placed", "u", time.Now())

	cp := o.Clone()
	cp.Items[0].Quantity = 5
	cp.Items[0].Customization["k"] = "changed"
	cp.Tracking[0].Note = "changed"
	cp.Track(OrderStatusCancelled, "", "u", time.Now())

	assert.Equal(t, int64(1), o.Items[0].Quantity)
	assert.Equal(t, "v", o.Items[0].Customization["k"])
	assert.Equal(t, "placed", o.Tracking[0].Note)
	assert.Len(t, o.Tracking, 1)
}
