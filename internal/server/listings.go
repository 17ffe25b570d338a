package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/usecase"
)

type listingReq struct {
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	Price         float64 `json:"price" binding:"gte=0"`
	Quantity      int     `json:"quantity" binding:"gte=0"`
	Freshness     float64 `json:"freshness"`
	DateOfHarvest string  `json:"dateOfHarvest"`
	Image         string  `json:"image"`
}

func (r listingReq) input() (usecase.ListingInput, error) {
	in := usecase.ListingInput{
		Name:      r.Name,
		Category:  r.Category,
		Price:     r.Price,
		Quantity:  r.Quantity,
		Freshness: r.Freshness,
		Image:     r.Image,
	}
	if v := strings.TrimSpace(r.DateOfHarvest); v != "" {
		t, err := parseDate(v)
		if err != nil {
			return in, badRequest("dateOfHarvest must be YYYY-MM-DD or RFC3339")
		}
		in.HarvestDate = &t
	}
	return in, nil
}

func parseDate(v string) (time.Time, error) {
	if t, err := time.Parse("2006-01-02", v); err == nil {
		return t, nil
	}
	return time.Parse(time.RFC3339, v)
}

func (s *Server) handleListListings(c *gin.Context) {
	out, err := s.deps.Listings.List(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleGetListing(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.deps.Listings.Get(c.Request.Context(), id)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleMyListings(c *gin.Context) {
	out, err := s.deps.Listings.Mine(c.Request.Context(), claimsOf(c))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) handleCreateListing(c *gin.Context) {
	// Role is checked before the body so non-farmers always see 403.
	if err := usecase.RequireRole(claimsOf(c), domain.RoleFarmer); err != nil {
		s.fail(c, err)
		return
	}
	in, err := s.bindListing(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.deps.Listings.Create(c.Request.Context(), claimsOf(c), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, l)
}

func (s *Server) handleUpdateListing(c *gin.Context) {
	if err := usecase.RequireRole(claimsOf(c), domain.RoleFarmer); err != nil {
		s.fail(c, err)
		return
	}
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	in, err := s.bindListing(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	l, err := s.deps.Listings.Update(c.Request.Context(), claimsOf(c), id, in)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, l)
}

func (s *Server) handleDeleteListing(c *gin.Context) {
	id, err := pathID(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	if err := s.deps.Listings.Delete(c.Request.Context(), claimsOf(c), id); err != nil {
		s.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (s *Server) bindListing(c *gin.Context) (usecase.ListingInput, error) {
	var req listingReq
	if err := bindJSON(c, &req); err != nil {
		return usecase.ListingInput{}, err
	}
	return req.input()
}
