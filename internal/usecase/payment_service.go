package usecase

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"harvesthub-backend/internal/domain"
)

type PaymentGateway interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (domain.GatewayOrder, error)
	Verify(ctx context.Context, remoteOrderID, paymentID, signature string) (domain.GatewayVerification, error)
	Capture(ctx context.Context, paymentID string, amount float64) (domain.GatewayCapture, error)
}

type PaymentRepo interface {
	GetPayment(ctx context.Context, id int64) (*domain.Payment, error)
	UpdatePayment(ctx context.Context, p *domain.Payment) error
}

type PaymentService struct {
	Gateway  PaymentGateway
	Payments PaymentRepo
	Orders   OrderRepo
	Currency string
	Logger   *slog.Logger
}

type VerifyInput struct {
	RemoteOrderID   string
	PaymentID       string
	Signature       string
	PaymentRecordID int64
}

type CaptureInput struct {
	PaymentID       string
	Amount          float64
	PaymentRecordID int64
}

func (s *PaymentService) CreateRemoteOrder(ctx context.Context, amount float64, currency, receipt string) (domain.GatewayOrder, error) {
	if amount <= 0 {
		return domain.GatewayOrder{}, ErrValidation("amount must be positive")
	}
	if strings.TrimSpace(currency) == "" {
		currency = s.Currency
	}
	if strings.TrimSpace(receipt) == "" {
		receipt = "rcpt_" + uuid.NewString()[:8]
	}
	o, err := s.Gateway.CreateOrder(ctx, amount, strings.ToUpper(currency), receipt)
	if err != nil {
		return domain.GatewayOrder{}, &GatewayError{Op: "create-order", Err: err}
	}
	return o, nil
}

// Verify reports whether the gateway confirms the payment. A false result is
// not an error; only transport or provider faults are.
func (s *PaymentService) Verify(ctx context.Context, c *Claims, in VerifyInput) (bool, error) {
	if strings.TrimSpace(in.RemoteOrderID) == "" || strings.TrimSpace(in.PaymentID) == "" {
		return false, ErrValidation("orderId and paymentId required")
	}
	var rec *domain.Payment
	if in.PaymentRecordID != 0 {
		p, err := s.ownedPayment(ctx, c, in.PaymentRecordID)
		if err != nil {
			return false, err
		}
		rec = p
	}
	v, err := s.Gateway.Verify(ctx, in.RemoteOrderID, in.PaymentID, in.Signature)
	if err != nil {
		return false, &GatewayError{Op: "verify", Err: err}
	}
	if !v.Verified || rec == nil {
		return v.Verified, nil
	}
	if rec.Status != domain.PaymentPending {
		// Already bound: only the payment it was verified with still matches.
		return rec.TransactionID == in.PaymentID, nil
	}
	if !sameAmount(v.Amount, rec.Amount) {
		s.logger().WarnContext(ctx, "gateway amount does not match payment record",
			"paymentId", rec.ID, "gatewayPaymentId", in.PaymentID, "want", rec.Amount, "got", v.Amount)
		return false, nil
	}
	rec.Status = domain.PaymentVerified
	rec.TransactionID = in.PaymentID
	if err := s.Payments.UpdatePayment(ctx, rec); err != nil {
		return false, err
	}
	return true, nil
}

func (s *PaymentService) Capture(ctx context.Context, c *Claims, in CaptureInput) (domain.GatewayCapture, error) {
	if strings.TrimSpace(in.PaymentID) == "" {
		return domain.GatewayCapture{}, ErrValidation("paymentId required")
	}
	if in.Amount <= 0 {
		return domain.GatewayCapture{}, ErrValidation("amount must be positive")
	}
	var rec *domain.Payment
	if in.PaymentRecordID != 0 {
		p, err := s.ownedPayment(ctx, c, in.PaymentRecordID)
		if err != nil {
			return domain.GatewayCapture{}, err
		}
		if p.Status != domain.PaymentVerified {
			return domain.GatewayCapture{}, ErrValidation("payment must be verified before capture")
		}
		if p.TransactionID != in.PaymentID {
			return domain.GatewayCapture{}, ErrValidation("paymentId does not match the verified payment")
		}
		if !sameAmount(p.Amount, in.Amount) {
			return domain.GatewayCapture{}, ErrValidation("capture amount does not match payment amount")
		}
		rec = p
	}
	res, err := s.Gateway.Capture(ctx, in.PaymentID, in.Amount)
	if err != nil {
		return domain.GatewayCapture{}, &GatewayError{Op: "capture", Err: err}
	}
	if rec != nil {
		rec.Status = domain.PaymentFailed
		if strings.EqualFold(res.Status, "captured") {
			rec.Status = domain.PaymentCaptured
		}
		if err := s.Payments.UpdatePayment(ctx, rec); err != nil {
			s.logger().ErrorContext(ctx, "payment status write failed after capture", "paymentId", rec.ID, "gatewayPaymentId", in.PaymentID, "err", err)
			return domain.GatewayCapture{}, err
		}
	}
	return res, nil
}

func (s *PaymentService) ownedPayment(ctx context.Context, c *Claims, id int64) (*domain.Payment, error) {
	if c == nil {
		return nil, ErrAuth("authentication required")
	}
	p, err := s.Payments.GetPayment(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound("payment")
	}
	if err != nil {
		return nil, err
	}
	if c.Role == domain.RoleAdmin {
		return p, nil
	}
	o, err := s.Orders.GetOrder(ctx, p.OrderID)
	if errors.Is(err, domain.ErrNotFound) || (err == nil && o.IdentityID != c.IdentityID) {
		return nil, ErrNotFound("payment")
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (s *PaymentService) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}
	return s.Logger
}

func sameAmount(a, b float64) bool {
	return decimal.NewFromFloat(a).Round(2).Equal(decimal.NewFromFloat(b).Round(2))
}
