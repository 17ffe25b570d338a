package razorpay

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/metrics"
)

const DefaultBaseURL = "https://api.razorpay.com/v1"

type Client struct {
	KeyID     string
	KeySecret string
	BaseURL   string
	Timeout   time.Duration
	HTTP      *http.Client
	Logger    *slog.Logger
	Metrics   *metrics.Metrics
}

// APIError is a non-2xx reply from the provider.
type APIError struct {
	Status      int
	Code        string
	Description string
}

func (e *APIError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("razorpay %d %s: %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("razorpay http %d", e.Status)
}

type orderReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt,omitempty"`
}

type orderResp struct {
	ID       string `json:"id"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
	Receipt  string `json:"receipt"`
	Status   string `json:"status"`
}

type paymentResp struct {
	ID       string `json:"id"`
	OrderID  string `json:"order_id"`
	Status   string `json:"status"`
	Amount   int64  `json:"amount"`
	Currency string `json:"currency"`
}

type captureReq struct {
	Amount   int64  `json:"amount"`
	Currency string `json:"currency,omitempty"`
}

type errorResp struct {
	Error struct {
		Code        string `json:"code"`
		Description string `json:"description"`
	} `json:"error"`
}

func (c *Client) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (domain.GatewayOrder, error) {
	if currency == "" {
		currency = "INR"
	}
	var out orderResp
	err := c.do(ctx, "create-order", http.MethodPost, "/orders", orderReq{Amount: toMinor(amount), Currency: currency, Receipt: receipt}, &out)
	if err != nil {
		return domain.GatewayOrder{}, err
	}
	if out.ID == "" {
		return domain.GatewayOrder{}, errors.New("razorpay: order id missing from response")
	}
	return domain.GatewayOrder{
		RemoteOrderID: out.ID,
		Amount:        fromMinor(out.Amount),
		Currency:      out.Currency,
		Receipt:       out.Receipt,
		KeyID:         c.KeyID,
	}, nil
}

// Verify checks the checkout signature when one is given, then confirms the
// payment belongs to remoteOrderID and is authorized. An unknown payment is
// reported as unverified, not as an error.
func (c *Client) Verify(ctx context.Context, remoteOrderID, paymentID, signature string) (domain.GatewayVerification, error) {
	v := domain.GatewayVerification{PaymentID: paymentID, RemoteOrderID: remoteOrderID}
	if signature != "" && !c.validSignature(remoteOrderID, paymentID, signature) {
		c.logger().WarnContext(ctx, "razorpay signature mismatch", "orderId", remoteOrderID, "paymentId", paymentID)
		return v, nil
	}
	var p paymentResp
	err := c.do(ctx, "verify", http.MethodGet, "/payments/"+url.PathEscape(paymentID), nil, &p)
	var apiErr *APIError
	if errors.As(err, &apiErr) && (apiErr.Status == http.StatusNotFound || apiErr.Status == http.StatusBadRequest) {
		return v, nil
	}
	if err != nil {
		return v, err
	}
	v.RemoteOrderID = p.OrderID
	v.Amount = fromMinor(p.Amount)
	v.Status = p.Status
	v.Verified = p.OrderID == remoteOrderID && p.Status == "authorized"
	return v, nil
}

func (c *Client) Capture(ctx context.Context, paymentID string, amount float64) (domain.GatewayCapture, error) {
	var p paymentResp
	err := c.do(ctx, "capture", http.MethodPost, "/payments/"+url.PathEscape(paymentID)+"/capture", captureReq{Amount: toMinor(amount)}, &p)
	if err != nil {
		return domain.GatewayCapture{}, err
	}
	return domain.GatewayCapture{PaymentID: p.ID, Status: p.Status, Amount: fromMinor(p.Amount)}, nil
}

// Signature computes the checkout signature for an order and payment pair.
func Signature(secret, remoteOrderID, paymentID string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(remoteOrderID + "|" + paymentID))
	return hex.EncodeToString(mac.Sum(nil))
}

func (c *Client) validSignature(remoteOrderID, paymentID, signature string) bool {
	want := Signature(c.KeySecret, remoteOrderID, paymentID)
	return hmac.Equal([]byte(want), []byte(strings.ToLower(signature)))
}

func (c *Client) do(ctx context.Context, op, method, path string, in, out any) (err error) {
	start := time.Now()
	defer func() { c.Metrics.ObserveExternal("razorpay", op, start, err == nil) }()

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	base := strings.TrimSpace(c.BaseURL)
	if base == "" {
		base = DefaultBaseURL
	}
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, strings.TrimRight(base, "/")+path, body)
	if err != nil {
		return err
	}
	req.SetBasicAuth(c.KeyID, c.KeySecret)
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	hc := c.HTTP
	if hc == nil {
		hc = &http.Client{Timeout: 15 * time.Second}
	}
	resp, err := hc.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		var e errorResp
		if json.Unmarshal(raw, &e) == nil {
			apiErr.Code, apiErr.Description = e.Error.Code, e.Error.Description
		}
		return apiErr
	}
	return json.Unmarshal(raw, out)
}

func (c *Client) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}
	return c.Logger
}

func toMinor(amount float64) int64 {
	return decimal.NewFromFloat(amount).Shift(2).Round(0).IntPart()
}

func fromMinor(v int64) float64 {
	return decimal.New(v, -2).InexactFloat64()
}
