package usecase

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/metrics"
)

// OrderTx is the write surface available inside one order transaction.
type OrderTx interface {
	GetListing(ctx context.Context, id int64) (*domain.Listing, error)
	CreateOrder(ctx context.Context, o *domain.Order) error
	UpdateOrderTotal(ctx context.Context, id int64, total float64) error
	CreateOrderLine(ctx context.Context, l *domain.OrderLine) error
	CreatePayment(ctx context.Context, p *domain.Payment) error
}

type OrderRepo interface {
	// WithOrderTx commits when fn returns nil and rolls back otherwise.
	WithOrderTx(ctx context.Context, fn func(tx OrderTx) error) error
	GetOrder(ctx context.Context, id int64) (*domain.Order, error)
	CreateDelivery(ctx context.Context, d *domain.Delivery) error
}

// RoutePlanner never fails hard: a false result means "unavailable".
type RoutePlanner interface {
	Geocode(ctx context.Context, address string) (domain.Coordinates, bool)
	DistanceAndDuration(ctx context.Context, origin, dest domain.Coordinates) (domain.RouteEstimate, bool)
	Route(ctx context.Context, origin, dest domain.Coordinates) (domain.RoutePlan, bool)
}

type CartItem struct {
	ListingID int64
	Quantity  int
	Price     float64
}

type CheckoutInput struct {
	IdentityID    int64
	Address       string
	PaymentMethod string
	Items         []CartItem
}

const (
	DefaultPaymentMethod = "cod"
	GatewayRazorpay      = "Razorpay"
	GatewayCOD           = "COD"
)

type CheckoutService struct {
	Orders     OrderRepo
	Identities IdentityRepo
	Planner    RoutePlanner
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	Now        func() time.Time
	NewTxnID   func() string
}

// Checkout prices the cart with the client-supplied unit prices and writes
// the order, its lines and a PENDING payment in one transaction. Delivery
// planning runs after commit and degrades instead of failing. Stock is not
// reserved or decremented.
func (s *CheckoutService) Checkout(ctx context.Context, in CheckoutInput) (_ *domain.Order, err error) {
	defer func() { s.Metrics.Checkout(outcomeOf(err)) }()

	if len(in.Items) == 0 {
		return nil, ErrValidation("order items are required")
	}
	for _, it := range in.Items {
		if it.Quantity <= 0 {
			return nil, ErrValidation("item quantity must be positive")
		}
		if it.Price < 0 {
			return nil, ErrValidation("item price must not be negative")
		}
	}
	buyer, err := s.Identities.GetIdentity(ctx, in.IdentityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrAuth("user not found")
	}
	if err != nil {
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	subtotals := make([]decimal.Decimal, len(in.Items))
	total := decimal.Zero
	for i, it := range in.Items {
		subtotals[i] = decimal.NewFromFloat(it.Price).Mul(decimal.NewFromInt(int64(it.Quantity))).Round(2)
		total = total.Add(subtotals[i])
	}
	if !total.IsPositive() {
		return nil, ErrValidation("invalid order total amount")
	}

	method := strings.ToLower(strings.TrimSpace(in.PaymentMethod))
	if method == "" {
		method = DefaultPaymentMethod
	}
	order := &domain.Order{IdentityID: buyer.ID, CreatedAt: s.now().UTC()}
	var first *domain.Listing

	err = s.Orders.WithOrderTx(ctx, func(tx OrderTx) error {
		order.Total = total.InexactFloat64()
		if err := tx.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}
		lineTotal := decimal.Zero
		for i, it := range in.Items {
			if it.ListingID <= 0 {
				continue
			}
			l, err := tx.GetListing(ctx, it.ListingID)
			if errors.Is(err, domain.ErrNotFound) {
				continue
			}
			if err != nil {
				return fmt.Errorf("resolve listing %d: %w", it.ListingID, err)
			}
			line := domain.OrderLine{
				OrderID:   order.ID,
				ListingID: l.ID,
				Quantity:  it.Quantity,
				Subtotal:  subtotals[i].InexactFloat64(),
			}
			if err := tx.CreateOrderLine(ctx, &line); err != nil {
				return fmt.Errorf("create order line: %w", err)
			}
			order.Lines = append(order.Lines, line)
			lineTotal = lineTotal.Add(subtotals[i])
			if first == nil {
				first = l
			}
		}
		if len(order.Lines) == 0 {
			return ErrValidation("no valid products found in order")
		}
		if !lineTotal.IsPositive() {
			return ErrValidation("invalid order total amount")
		}
		if !lineTotal.Equal(total) {
			order.Total = lineTotal.InexactFloat64()
			if err := tx.UpdateOrderTotal(ctx, order.ID, order.Total); err != nil {
				return fmt.Errorf("update order total: %w", err)
			}
		}
		p := &domain.Payment{
			OrderID:       order.ID,
			Amount:        order.Total,
			Method:        method,
			Gateway:       gatewayFor(method),
			TransactionID: s.txnID(),
			Status:        domain.PaymentPending,
			CreatedAt:     order.CreatedAt,
		}
		if err := tx.CreatePayment(ctx, p); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}
		order.Payment = p
		return nil
	})
	if err != nil {
		if KindOf(err) == KindServer {
			s.logger().ErrorContext(ctx, "checkout failed", "userId", buyer.ID, "err", err)
		}
		return nil, err
	}

	if addr := strings.TrimSpace(in.Address); addr != "" {
		order.Delivery = s.planDelivery(ctx, order, first, addr)
	}
	return order, nil
}

func (s *CheckoutService) planDelivery(ctx context.Context, order *domain.Order, first *domain.Listing, address string) *domain.Delivery {
	log := s.logger().With("orderId", order.ID)
	d := &domain.Delivery{OrderID: order.ID, Status: domain.DeliveryPending}

	if s.Planner != nil {
		if c, ok := s.Planner.Geocode(ctx, address); ok {
			d.Dropoff = &c
		} else {
			log.WarnContext(ctx, "dropoff coordinates unavailable")
		}
	}
	if first != nil {
		owner, err := s.Identities.GetIdentity(ctx, first.OwnerID)
		switch {
		case err == nil:
			if c, ok := owner.Coordinates(); ok {
				d.Pickup = &c
			}
		case !errors.Is(err, domain.ErrNotFound):
			log.WarnContext(ctx, "pickup owner lookup failed", "listingId", first.ID, "err", err)
		}
	}
	if s.Planner != nil && d.Pickup != nil && d.Dropoff != nil {
		if est, ok := s.Planner.DistanceAndDuration(ctx, *d.Pickup, *d.Dropoff); ok {
			dist, dur := est.DistanceKm, est.DurationMin
			eta := order.CreatedAt.Add(time.Duration(dur) * time.Minute)
			d.DistanceKm = &dist
			d.DurationMin = &dur
			d.EstimatedArrival = &eta
		} else {
			log.WarnContext(ctx, "route estimate unavailable")
		}
	}

	if err := s.Orders.CreateDelivery(ctx, d); err != nil {
		log.ErrorContext(ctx, "delivery write failed", "err", err)
		s.Metrics.DeliveryPlan("failed")
		return nil
	}
	if d.EstimatedArrival != nil {
		s.Metrics.DeliveryPlan("routed")
	} else {
		s.Metrics.DeliveryPlan("partial")
	}
	return d
}

// GetOrder returns the aggregate to its owner or an Admin; others see 404.
func (s *CheckoutService) GetOrder(ctx context.Context, c *Claims, id int64) (*domain.Order, error) {
	if c == nil {
		return nil, ErrAuth("authentication required")
	}
	o, err := s.Orders.GetOrder(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound("order")
	}
	if err != nil {
		return nil, err
	}
	if o.IdentityID != c.IdentityID && c.Role != domain.RoleAdmin {
		return nil, ErrNotFound("order")
	}
	return o, nil
}

func (s *CheckoutService) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func (s *CheckoutService) txnID() string {
	if s.NewTxnID != nil {
		return s.NewTxnID()
	}
	return "TXN-" + uuid.NewString()
}

func (s *CheckoutService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func gatewayFor(method string) string {
	if method == "card" {
		return GatewayRazorpay
	}
	return GatewayCOD
}

func outcomeOf(err error) string {
	if err == nil {
		return "created"
	}
	return strings.ToLower(string(KindOf(err)))
}
