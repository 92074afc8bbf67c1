package order

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending        Status = "pending"
	StatusPreparing      Status = "preparing"
	StatusReady          Status = "ready"
	StatusOutForDelivery Status = "out-for-delivery"
	StatusDelivered      Status = "delivered"
	StatusCancelled      Status = "cancelled"
)

type Type string

const (
	TypeDineIn   Type = "dine-in"
	TypeTakeaway Type = "takeaway"
	TypeDelivery Type = "delivery"
)

// UpdatableStatuses are the target values a status-update request may carry.
// pending is the creation state and is never a valid target.
var UpdatableStatuses = []Status{
	StatusPreparing,
	StatusReady,
	StatusOutForDelivery,
	StatusDelivered,
	StatusCancelled,
}

// statusRank orders the forward path of the state machine. cancelled is
// not ranked; it is reachable from any non-terminal state.
var statusRank = map[Status]int{
	StatusPending:        0,
	StatusPreparing:      1,
	StatusReady:          2,
	StatusOutForDelivery: 3,
	StatusDelivered:      4,
}

func isUpdatable(s Status) bool {
	for _, v := range UpdatableStatuses {
		if v == s {
			return true
		}
	}
	return false
}

func (s Status) Valid() bool {
	_, ok := statusRank[s]
	return ok || s == StatusCancelled
}

// Terminal reports whether no further transition is accepted from s.
func (s Status) Terminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

func (t Type) Valid() bool {
	return t == TypeDineIn || t == TypeTakeaway || t == TypeDelivery
}

type Customer struct {
	FullName string `json:"full_name"`
	Email    string `json:"email,omitempty"`
	Phone    string `json:"phone"`
}

type Item struct {
	ID                  string          `json:"id"`
	Name                string          `json:"name"`
	Quantity            int             `json:"quantity"`
	Price               decimal.Decimal `json:"price"`
	SpecialInstructions string          `json:"special_instructions,omitempty"`
}

// Details holds the order-type specific fields; unused fields stay empty.
type Details struct {
	TableNumber     string `json:"table_number,omitempty"`
	DeliveryAddress string `json:"delivery_address,omitempty"`
	PickupTime      string `json:"pickup_time,omitempty"`
	SpecialRequests string `json:"special_requests,omitempty"`
}

// Payment totals are caller-supplied; the store never recomputes them.
type Payment struct {
	Subtotal      decimal.Decimal `json:"subtotal"`
	Tax           decimal.Decimal `json:"tax"`
	DeliveryFee   decimal.Decimal `json:"delivery_fee"`
	ServiceCharge decimal.Decimal `json:"service_charge"`
	Total         decimal.Decimal `json:"total"`
	Method        string          `json:"method"`
}

type Order struct {
	OrderID    string    `json:"order_id"`
	InternalID string    `json:"internal_id"`
	Type       Type      `json:"order_type"`
	Status     Status    `json:"status"`
	Customer   Customer  `json:"customer"`
	Items      []Item    `json:"items"`
	Details    Details   `json:"order_details"`
	Payment    Payment   `json:"payment"`
	CreatedAt  time.Time `json:"created_at"`
	UpdatedAt  time.Time `json:"updated_at"`
}

var (
	ErrNotFound          = errors.New("order not found")
	ErrTerminalOrder     = errors.New("order is in a terminal state")
	ErrInvalidStatus     = errors.New("invalid status")
	ErrInvalidTransition = errors.New("invalid status transition")
)

// MissingFieldsError names the customer identity fields a status-update
// request lacked after falling back to the stored order.
type MissingFieldsError struct {
	Fields []string
}

func (e *MissingFieldsError) Error() string {
	return fmt.Sprintf("missing required fields: %v", e.Fields)
}

// CanTransitionTo reports whether the order may move to target. The path
// is forward-only (skipping ahead is allowed, e.g. preparing straight to
// delivered); cancelled is allowed from any non-terminal state;
// out-for-delivery is reserved for delivery orders.
func (o *Order) CanTransitionTo(target Status) bool {
	if o.Status.Terminal() {
		return false
	}
	if target == StatusCancelled {
		return true
	}
	if target == StatusOutForDelivery && o.Type != TypeDelivery {
		return false
	}
	from, ok := statusRank[o.Status]
	to, ok2 := statusRank[target]
	if !ok || !ok2 {
		return false
	}
	return to > from
}

// Validate applies creation-time business rules.
func (o *Order) Validate() error {
	if !o.Type.Valid() {
		return fmt.Errorf("order_type must be one of dine-in, takeaway, delivery")
	}
	if o.Customer.Phone == "" {
		return fmt.Errorf("customer phone is required")
	}
	if len(o.Items) == 0 {
		return fmt.Errorf("order must contain at least one item")
	}
	for i, it := range o.Items {
		if it.Name == "" {
			return fmt.Errorf("items[%d]: name is required", i)
		}
		if it.Quantity < 1 {
			return fmt.Errorf("items[%d]: quantity must be at least 1", i)
		}
		if it.Price.IsNegative() {
			return fmt.Errorf("items[%d]: price must be non-negative", i)
		}
	}
	for _, amt := range []struct {
		name string
		val  decimal.Decimal
	}{
		{"subtotal", o.Payment.Subtotal},
		{"tax", o.Payment.Tax},
		{"delivery_fee", o.Payment.DeliveryFee},
		{"service_charge", o.Payment.ServiceCharge},
		{"total", o.Payment.Total},
	} {
		if amt.val.IsNegative() {
			return fmt.Errorf("payment.%s must be non-negative", amt.name)
		}
	}
	switch o.Type {
	case TypeDineIn:
		if o.Details.TableNumber == "" {
			return fmt.Errorf("table number required for dine-in orders")
		}
	case TypeDelivery:
		if o.Details.DeliveryAddress == "" {
			return fmt.Errorf("delivery address required for delivery orders")
		}
	}
	return nil
}
