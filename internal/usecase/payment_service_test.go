package usecase_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/usecase"
)

type stubGateway struct {
	verified      bool
	amount        float64
	captureStatus string
	err           error
	gotCurrency   string
	captures      int
}

func (g *stubGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (domain.GatewayOrder, error) {
	g.gotCurrency = currency
	if g.err != nil {
		return domain.GatewayOrder{}, g.err
	}
	return domain.GatewayOrder{RemoteOrderID: "order_1", Amount: amount, Currency: currency, Receipt: receipt}, nil
}

func (g *stubGateway) Verify(ctx context.Context, remoteOrderID, paymentID, signature string) (domain.GatewayVerification, error) {
	if g.err != nil {
		return domain.GatewayVerification{}, g.err
	}
	return domain.GatewayVerification{
		PaymentID:     paymentID,
		RemoteOrderID: remoteOrderID,
		Amount:        g.amount,
		Status:        "authorized",
		Verified:      g.verified,
	}, nil
}

func (g *stubGateway) Capture(ctx context.Context, paymentID string, amount float64) (domain.GatewayCapture, error) {
	g.captures++
	if g.err != nil {
		return domain.GatewayCapture{}, g.err
	}
	return domain.GatewayCapture{PaymentID: paymentID, Status: g.captureStatus, Amount: amount}, nil
}

type paymentFixture struct {
	*fixture
	gw      *stubGateway
	pay     *usecase.PaymentService
	order   *domain.Order
	owner   *usecase.Claims
	strange *usecase.Claims
}

func newPaymentFixture(t *testing.T) *paymentFixture {
	t.Helper()
	f := newFixture(t)
	id := f.listing(t)
	o, err := f.svc.Checkout(context.Background(), usecase.CheckoutInput{
		IdentityID:    f.buyer,
		PaymentMethod: "card",
		Items:         []usecase.CartItem{{ListingID: id, Quantity: 2, Price: 50}},
	})
	require.NoError(t, err)
	gw := &stubGateway{verified: true, amount: 100, captureStatus: "captured"}
	return &paymentFixture{
		fixture: f,
		gw:      gw,
		pay:     &usecase.PaymentService{Gateway: gw, Payments: f.store, Orders: f.store, Currency: "INR", Logger: quiet},
		order:   o,
		owner:   &usecase.Claims{IdentityID: f.buyer, Role: domain.RoleCustomer},
		strange: &usecase.Claims{IdentityID: f.farmer, Role: domain.RoleFarmer},
	}
}

func (p *paymentFixture) status(t *testing.T) domain.PaymentStatus {
	t.Helper()
	rec, err := p.store.GetPayment(context.Background(), p.order.Payment.ID)
	require.NoError(t, err)
	return rec.Status
}

func TestCreateRemoteOrder(t *testing.T) {
	p := newPaymentFixture(t)
	_, err := p.pay.CreateRemoteOrder(context.Background(), 0, "", "")
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))

	o, err := p.pay.CreateRemoteOrder(context.Background(), 100, "", "")
	require.NoError(t, err)
	assert.Equal(t, "INR", p.gw.gotCurrency)
	assert.Contains(t, o.Receipt, "rcpt_")

	_, err = p.pay.CreateRemoteOrder(context.Background(), 100, "usd", "r-1")
	require.NoError(t, err)
	assert.Equal(t, "USD", p.gw.gotCurrency)

	p.gw.err = errors.New("503")
	_, err = p.pay.CreateRemoteOrder(context.Background(), 100, "", "")
	assert.Equal(t, usecase.KindGateway, usecase.KindOf(err))
}

func TestPaymentLifecycle(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()
	recID := p.order.Payment.ID
	assert.Equal(t, usecase.GatewayRazorpay, p.order.Payment.Gateway)

	_, err := p.pay.Capture(ctx, p.owner, usecase.CaptureInput{PaymentID: "pay_1", Amount: 100, PaymentRecordID: recID})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err), "capture before verify")
	assert.Zero(t, p.gw.captures)

	p.gw.verified = false
	ok, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.PaymentPending, p.status(t))

	p.gw.verified = true
	ok, err = p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.PaymentVerified, p.status(t))

	_, err = p.pay.Capture(ctx, p.owner, usecase.CaptureInput{PaymentID: "pay_1", Amount: 99, PaymentRecordID: recID})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err), "amount mismatch")

	res, err := p.pay.Capture(ctx, p.owner, usecase.CaptureInput{PaymentID: "pay_1", Amount: 100, PaymentRecordID: recID})
	require.NoError(t, err)
	assert.Equal(t, "captured", res.Status)
	assert.Equal(t, domain.PaymentCaptured, p.status(t))
}

func TestVerifyRejectsAmountMismatch(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()
	recID := p.order.Payment.ID

	p.gw.amount = 1
	ok, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_cheap", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, domain.PaymentPending, p.status(t))

	p.gw.amount = 100
	ok, err = p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_other", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.False(t, ok, "record stays bound to the first verified payment")
}

func TestCaptureRequiresVerifiedPaymentID(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()
	recID := p.order.Payment.ID
	_, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)

	_, err = p.pay.Capture(ctx, p.owner, usecase.CaptureInput{PaymentID: "pay_OTHER", Amount: 100, PaymentRecordID: recID})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))
	assert.Zero(t, p.gw.captures)
	assert.Equal(t, domain.PaymentVerified, p.status(t))
}

func TestCaptureNotCapturedMarksFailed(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()
	recID := p.order.Payment.ID
	_, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)

	p.gw.captureStatus = "authorized"
	_, err = p.pay.Capture(ctx, p.owner, usecase.CaptureInput{PaymentID: "pay_1", Amount: 100, PaymentRecordID: recID})
	require.NoError(t, err)
	assert.Equal(t, domain.PaymentFailed, p.status(t))
}

func TestPaymentOwnership(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()
	recID := p.order.Payment.ID

	_, err := p.pay.Verify(ctx, p.strange, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(err))
	_, err = p.pay.Verify(ctx, nil, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	assert.Equal(t, usecase.KindAuth, usecase.KindOf(err))
	_, err = p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: 404})
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(err))

	admin := &usecase.Claims{IdentityID: 1000, Role: domain.RoleAdmin}
	ok, err := p.pay.Verify(ctx, admin, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1", PaymentRecordID: recID})
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyWithoutRecord(t *testing.T) {
	p := newPaymentFixture(t)
	ctx := context.Background()

	_, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{PaymentID: "pay_1"})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))

	ok, err := p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1"})
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, domain.PaymentPending, p.status(t), "no record id leaves stored payments alone")

	p.gw.err = errors.New("timeout")
	_, err = p.pay.Verify(ctx, p.owner, usecase.VerifyInput{RemoteOrderID: "order_1", PaymentID: "pay_1"})
	var gwErr *usecase.GatewayError
	require.ErrorAs(t, err, &gwErr)
	assert.Equal(t, "verify", gwErr.Op)
}
