package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/usecase"
)

type createRemoteOrderReq struct {
	Amount   float64 `json:"amount" binding:"gt=0"`
	Currency string  `json:"currency"`
	Receipt  string  `json:"receipt"`
}

type verifyReq struct {
	OrderID         string `json:"orderId" binding:"required"`
	PaymentID       string `json:"paymentId" binding:"required"`
	Signature       string `json:"signature"`
	PaymentRecordID int64  `json:"paymentRecordId" binding:"gte=0"`
}

type captureReq struct {
	PaymentID       string  `json:"paymentId" binding:"required"`
	Amount          float64 `json:"amount" binding:"gt=0"`
	PaymentRecordID int64   `json:"paymentRecordId" binding:"gte=0"`
}

func (s *Server) handleCreateRemoteOrder(c *gin.Context) {
	var req createRemoteOrderReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	o, err := s.deps.Payments.CreateRemoteOrder(c.Request.Context(), req.Amount, req.Currency, req.Receipt)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}

func (s *Server) handleVerifyPayment(c *gin.Context) {
	var req verifyReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	ok, err := s.deps.Payments.Verify(c.Request.Context(), claimsOf(c), usecase.VerifyInput{
		RemoteOrderID:   req.OrderID,
		PaymentID:       req.PaymentID,
		Signature:       req.Signature,
		PaymentRecordID: req.PaymentRecordID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"verified": ok})
}

func (s *Server) handleCapturePayment(c *gin.Context) {
	var req captureReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	res, err := s.deps.Payments.Capture(c.Request.Context(), claimsOf(c), usecase.CaptureInput{
		PaymentID:       req.PaymentID,
		Amount:          req.Amount,
		PaymentRecordID: req.PaymentRecordID,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}
