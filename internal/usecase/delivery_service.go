package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"harvesthub-backend/internal/domain"
)

type DeliveryRepo interface {
	GetDelivery(ctx context.Context, id int64) (*domain.Delivery, error)
	UpdateDelivery(ctx context.Context, d *domain.Delivery) error
}

var deliveryTransitions = map[domain.DeliveryStatus][]domain.DeliveryStatus{
	domain.DeliveryPending:   {domain.DeliveryInTransit, domain.DeliveryFailed},
	domain.DeliveryInTransit: {domain.DeliveryDelivered, domain.DeliveryFailed},
}

type DeliveryService struct {
	Deliveries DeliveryRepo
	Orders     OrderRepo
	Listings   ListingRepo
	Now        func() time.Time
}

func (s *DeliveryService) UpdateStatus(ctx context.Context, c *Claims, id int64, status, courier string) (*domain.Delivery, error) {
	if err := RequireRole(c, domain.RoleFarmer, domain.RoleAdmin); err != nil {
		return nil, err
	}
	next, ok := domain.ParseDeliveryStatus(strings.ToUpper(strings.TrimSpace(status)))
	if !ok {
		return nil, ErrValidation("unknown delivery status")
	}
	d, err := s.Deliveries.GetDelivery(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound("delivery")
	}
	if err != nil {
		return nil, err
	}
	if c.Role != domain.RoleAdmin {
		ok, err := s.suppliesOrder(ctx, c.IdentityID, d.OrderID)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, ErrNotFound("delivery")
		}
	}
	if !canTransition(d.Status, next) {
		return nil, ErrValidation("cannot move delivery from " + string(d.Status) + " to " + string(next))
	}
	d.Status = next
	if cr := strings.TrimSpace(courier); cr != "" {
		d.Courier = &cr
	}
	if next == domain.DeliveryDelivered {
		now := time.Now
		if s.Now != nil {
			now = s.Now
		}
		at := now().UTC()
		d.ActualArrival = &at
	}
	if err := s.Deliveries.UpdateDelivery(ctx, d); err != nil {
		return nil, err
	}
	return d, nil
}

// suppliesOrder reports whether farmerID owns a listing on one of the order's
// lines. Listings deleted since checkout are skipped.
func (s *DeliveryService) suppliesOrder(ctx context.Context, farmerID, orderID int64) (bool, error) {
	o, err := s.Orders.GetOrder(ctx, orderID)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	for _, line := range o.Lines {
		l, err := s.Listings.GetListing(ctx, line.ListingID)
		if errors.Is(err, domain.ErrNotFound) {
			continue
		}
		if err != nil {
			return false, err
		}
		if l.OwnerID == farmerID {
			return true, nil
		}
	}
	return false, nil
}

func canTransition(from, to domain.DeliveryStatus) bool {
	for _, s := range deliveryTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}
