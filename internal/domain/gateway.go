package domain

type GatewayOrder struct {
	RemoteOrderID string  `json:"remoteOrderId"`
	Amount        float64 `json:"amount"`
	Currency      string  `json:"currency"`
	Receipt       string  `json:"receipt,omitempty"`
	KeyID         string  `json:"keyId,omitempty"`
}

type GatewayCapture struct {
	PaymentID string  `json:"paymentId"`
	Status    string  `json:"status"`
	Amount    float64 `json:"amount"`
}

// GatewayVerification is the provider's view of a submitted payment.
// Verified holds only when the signature, order and authorized state all match.
type GatewayVerification struct {
	PaymentID     string  `json:"paymentId"`
	RemoteOrderID string  `json:"remoteOrderId"`
	Amount        float64 `json:"amount"`
	Status        string  `json:"status"`
	Verified      bool    `json:"verified"`
}
