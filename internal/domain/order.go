package domain

import "time"

type PaymentStatus string

const (
	PaymentPending  PaymentStatus = "PENDING"
	PaymentVerified PaymentStatus = "VERIFIED"
	PaymentCaptured PaymentStatus = "CAPTURED"
	PaymentFailed   PaymentStatus = "FAILED"
)

type DeliveryStatus string

const (
	DeliveryPending   DeliveryStatus = "PENDING"
	DeliveryInTransit DeliveryStatus = "IN_TRANSIT"
	DeliveryDelivered DeliveryStatus = "DELIVERED"
	DeliveryFailed    DeliveryStatus = "FAILED"
)

// ParseDeliveryStatus reports whether s names a known delivery status.
func ParseDeliveryStatus(s string) (DeliveryStatus, bool) {
	switch st := DeliveryStatus(s); st {
	case DeliveryPending, DeliveryInTransit, DeliveryDelivered, DeliveryFailed:
		return st, true
	}
	return "", false
}

// Order is the aggregate root for lines, payment and delivery.
type Order struct {
	ID         int64       `json:"orderId"`
	IdentityID int64       `json:"userId"`
	CreatedAt  time.Time   `json:"orderDate"`
	Total      float64     `json:"totalAmount"`
	Lines      []OrderLine `json:"orderItems"`
	Payment    *Payment    `json:"payment,omitempty"`
	Delivery   *Delivery   `json:"delivery,omitempty"`
}

type OrderLine struct {
	ID        int64   `json:"orderItemId"`
	OrderID   int64   `json:"orderId"`
	ListingID int64   `json:"productId"`
	Quantity  int     `json:"quantity"`
	Subtotal  float64 `json:"subtotal"`
}

type Payment struct {
	ID            int64         `json:"paymentId"`
	OrderID       int64         `json:"orderId"`
	Amount        float64       `json:"amount"`
	Method        string        `json:"modeOfPay"`
	Gateway       string        `json:"payGateway"`
	TransactionID string        `json:"transactionId"`
	Status        PaymentStatus `json:"payStatus"`
	CreatedAt     time.Time     `json:"payDate"`
}

type Delivery struct {
	ID               int64          `json:"delId"`
	OrderID          int64          `json:"orderId"`
	Status           DeliveryStatus `json:"status"`
	Pickup           *Coordinates   `json:"pickup,omitempty"`
	Dropoff          *Coordinates   `json:"dropoff,omitempty"`
	DistanceKm       *float64       `json:"distance,omitempty"`
	DurationMin      *int           `json:"estimatedDurationMinutes,omitempty"`
	EstimatedArrival *time.Time     `json:"estDelTime,omitempty"`
	ActualArrival    *time.Time     `json:"actualDelTime,omitempty"`
	Courier          *string        `json:"delPerson,omitempty"`
}
