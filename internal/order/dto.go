package order

// StatusUpdateRequest is the body of POST /orders/:id/status. Customer
// fields are optional; the coordinator resolves anything missing from
// the stored order.
type StatusUpdateRequest struct {
	Status        string `json:"status"`
	CustomerPhone string `json:"customerPhone,omitempty"`
	CustomerName  string `json:"customerName,omitempty"`
	CustomerEmail string `json:"customerEmail,omitempty"`
	OrderType     string `json:"orderType,omitempty"`
	EstimatedTime string `json:"estimatedTime,omitempty"`
}

// CreateOrderRequest is the body of POST /orders. The order id is
// normally minted server-side; callers may supply their own.
type CreateOrderRequest struct {
	OrderID   string   `json:"orderId,omitempty"`
	OrderType string   `json:"orderType"`
	Customer  Customer `json:"customer"`
	Items     []Item   `json:"items"`
	Details   Details  `json:"orderDetails"`
	Payment   Payment  `json:"payment"`
}

func (r CreateOrderRequest) ToOrder() *Order {
	return &Order{
		OrderID:  r.OrderID,
		Type:     Type(r.OrderType),
		Customer: r.Customer,
		Items:    r.Items,
		Details:  r.Details,
		Payment:  r.Payment,
	}
}
