package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/usecase"
)

// A missing or null item quantity means 1.
type checkoutReq struct {
	Address       string `json:"address"`
	PaymentMethod string `json:"paymentMethod"`
	Items         []struct {
		ListingID int64   `json:"listingId" binding:"gte=0"`
		Quantity  *int    `json:"quantity" binding:"omitempty,gt=0"`
		Price     float64 `json:"price" binding:"gte=0"`
	} `json:"items" binding:"dive"`
}

func (s *Server) handleCheckout(c *gin.Context) {
	var req checkoutReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	in := usecase.CheckoutInput{
		IdentityID:    claimsOf(c).IdentityID,
		Address:       req.Address,
		PaymentMethod: req.PaymentMethod,
		Items:         make([]usecase.CartItem, 0, len(req.Items)),
	}
	for _, it := range req.Items {
		qty := 1
		if it.Quantity != nil {
			qty = *it.Quantity
		}
		in.Items = append(in.Items, usecase.CartItem{ListingID: it.ListingID, Quantity: qty, Price: it.Price})
	}
	o, err := s.deps.Checkout.Checkout(c.Request.Context(), in)
	if err != nil {
		s.failAs(c, err, "failed to create order")
		return
	}
	c.JSON(http.StatusCreated, o)
}

func (s *Server) handleGetOrder(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	o, err := s.deps.Checkout.GetOrder(c.Request.Context(), claimsOf(c), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, o)
}
