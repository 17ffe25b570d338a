package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type deliveryStatusReq struct {
	Status  string `json:"status" binding:"required"`
	Courier string `json:"courier"`
}

func (s *Server) handleDeliveryStatus(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	var req deliveryStatusReq
	if err := bindJSON(c, &req); err != nil {
		s.fail(c, err)
		return
	}
	d, err := s.deps.Deliveries.UpdateStatus(c.Request.Context(), claimsOf(c), id, req.Status, req.Courier)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, d)
}
