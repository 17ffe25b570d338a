package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/domain"
)

func (s *Server) handleGeocode(c *gin.Context) {
	addr := strings.TrimSpace(c.Query("address"))
	if addr == "" {
		s.fail(c, badRequest("address required"))
		return
	}
	p, ok := s.deps.Planner.Geocode(c.Request.Context(), addr)
	if !ok {
		s.fail(c, badRequest("could not geocode address"))
		return
	}
	c.JSON(http.StatusOK, p)
}

func (s *Server) handleDistance(c *gin.Context) {
	o, d, err := originDest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	est, ok := s.deps.Planner.DistanceAndDuration(c.Request.Context(), o, d)
	if !ok {
		s.fail(c, badRequest("could not calculate distance"))
		return
	}
	c.JSON(http.StatusOK, est)
}

func (s *Server) handleRoute(c *gin.Context) {
	o, d, err := originDest(c)
	if err != nil {
		s.fail(c, err)
		return
	}
	plan, ok := s.deps.Planner.Route(c.Request.Context(), o, d)
	if !ok {
		s.fail(c, badRequest("could not get route"))
		return
	}
	c.JSON(http.StatusOK, plan)
}

func originDest(c *gin.Context) (domain.Coordinates, domain.Coordinates, error) {
	var v [4]float64
	for i, k := range []string{"originLat", "originLng", "destLat", "destLng"} {
		f, err := strconv.ParseFloat(c.Query(k), 64)
		if err != nil {
			return domain.Coordinates{}, domain.Coordinates{}, badRequest(k + " must be a number")
		}
		v[i] = f
	}
	return domain.Coordinates{Lat: v[0], Lng: v[1]}, domain.Coordinates{Lat: v[2], Lng: v[3]}, nil
}
