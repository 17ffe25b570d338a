// Package server exposes the HTTP API on gin.
package server

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"harvesthub-backend/internal/config"
	"harvesthub-backend/internal/metrics"
	"harvesthub-backend/internal/usecase"
)

// Deps are the services a Server dispatches to, built once at startup.
type Deps struct {
	Auth       *usecase.AuthService
	Tokens     *usecase.TokenService
	Listings   *usecase.ListingService
	Checkout   *usecase.CheckoutService
	Payments   *usecase.PaymentService
	Deliveries *usecase.DeliveryService
	Planner    usecase.RoutePlanner
	Metrics    *metrics.Metrics
	Logger     *slog.Logger
	// Ready backs /healthz; nil means always ready.
	Ready func(ctx context.Context) error
}

type Server struct {
	cfg    config.Config
	deps   Deps
	log    *slog.Logger
	engine *gin.Engine
}

func New(cfg config.Config, deps Deps) *Server {
	useJSONFieldNames()
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		cfg:    cfg,
		deps:   deps,
		log:    log,
		engine: gin.New(),
	}
	s.engine.Use(gin.Recovery(), requestLogger(log), cors(cfg.CORSOrigins))
	s.routes()
	return s
}

func (s *Server) Handler() http.Handler {
	return s.engine
}

func (s *Server) routes() {
	r := s.engine
	r.GET("/healthz", s.handleHealth)
	if s.cfg.Metrics && s.deps.Metrics != nil {
		r.GET("/metrics", gin.WrapH(s.deps.Metrics.Handler()))
	}

	r.POST("/auth/signup", s.handleSignUp)
	r.POST("/auth/signin", s.handleSignIn)

	r.GET("/listings", s.handleListListings)
	r.GET("/listings/:id", s.handleGetListing)

	authed := r.Group("/", s.requireAuth)
	authed.GET("/auth/me", s.handleMe)
	authed.POST("/checkout", s.handleCheckout)
	authed.GET("/orders/:id", s.handleGetOrder)

	farmer := authed.Group("/farmer/listings")
	farmer.GET("", s.handleMyListings)
	farmer.POST("", s.handleCreateListing)
	farmer.PUT("/:id", s.handleUpdateListing)
	farmer.DELETE("/:id", s.handleDeleteListing)

	pay := authed.Group("/payments/gateway")
	pay.POST("/create-order", s.handleCreateRemoteOrder)
	pay.POST("/verify", s.handleVerifyPayment)
	pay.POST("/capture", s.handleCapturePayment)

	maps := authed.Group("/maps")
	maps.GET("/geocode", s.handleGeocode)
	maps.GET("/distance", s.handleDistance)
	maps.GET("/route", s.handleRoute)

	authed.POST("/deliveries/:id/status", s.handleDeliveryStatus)
}

func (s *Server) handleHealth(c *gin.Context) {
	if s.deps.Ready != nil {
		if err := s.deps.Ready(c.Request.Context()); err != nil {
			s.log.WarnContext(c.Request.Context(), "health check failed", "err", err)
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
