package usecase

import (
	"context"
	"errors"
	"strings"
	"time"

	"harvesthub-backend/internal/domain"
)

type ListingRepo interface {
	CreateListing(ctx context.Context, l *domain.Listing) error
	GetListing(ctx context.Context, id int64) (*domain.Listing, error)
	ListListings(ctx context.Context) ([]domain.Listing, error)
	ListListingsByOwner(ctx context.Context, ownerID int64) ([]domain.Listing, error)
	UpdateListing(ctx context.Context, l *domain.Listing) error
	DeleteListing(ctx context.Context, id int64) error
}

type ListingInput struct {
	Name        string
	Category    string
	Price       float64
	Quantity    int
	Freshness   float64
	HarvestDate *time.Time
	Image       string
}

func (in ListingInput) validate() error {
	if strings.TrimSpace(in.Name) == "" {
		return ErrValidation("name required")
	}
	if in.Price < 0 {
		return ErrValidation("price must not be negative")
	}
	if in.Quantity < 0 {
		return ErrValidation("quantity must not be negative")
	}
	return nil
}

type ListingService struct {
	Listings   ListingRepo
	Identities IdentityRepo
}

// ResolveFarmer checks the token role and then the stored role of its subject.
func (s *ListingService) ResolveFarmer(ctx context.Context, c *Claims) (*domain.Identity, error) {
	if err := RequireRole(c, domain.RoleFarmer); err != nil {
		return nil, err
	}
	u, err := s.Identities.GetIdentity(ctx, c.IdentityID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrAuth("user not found")
	}
	if err != nil {
		return nil, err
	}
	if u.Role != domain.RoleFarmer {
		return nil, ErrForbidden("only farmers can manage listings")
	}
	return u, nil
}

func (s *ListingService) List(ctx context.Context) ([]domain.Listing, error) {
	return s.Listings.ListListings(ctx)
}

func (s *ListingService) Get(ctx context.Context, id int64) (*domain.Listing, error) {
	l, err := s.Listings.GetListing(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound("listing")
	}
	return l, err
}

func (s *ListingService) Mine(ctx context.Context, c *Claims) ([]domain.Listing, error) {
	farmer, err := s.ResolveFarmer(ctx, c)
	if err != nil {
		return nil, err
	}
	return s.Listings.ListListingsByOwner(ctx, farmer.ID)
}

func (s *ListingService) Create(ctx context.Context, c *Claims, in ListingInput) (*domain.Listing, error) {
	farmer, err := s.ResolveFarmer(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	l := &domain.Listing{OwnerID: farmer.ID}
	apply(l, in)
	if err := s.Listings.CreateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingService) Update(ctx context.Context, c *Claims, id int64, in ListingInput) (*domain.Listing, error) {
	farmer, err := s.ResolveFarmer(ctx, c)
	if err != nil {
		return nil, err
	}
	if err := in.validate(); err != nil {
		return nil, err
	}
	l, err := s.owned(ctx, farmer.ID, id)
	if err != nil {
		return nil, err
	}
	apply(l, in)
	if err := s.Listings.UpdateListing(ctx, l); err != nil {
		return nil, err
	}
	return l, nil
}

func (s *ListingService) Delete(ctx context.Context, c *Claims, id int64) error {
	farmer, err := s.ResolveFarmer(ctx, c)
	if err != nil {
		return err
	}
	if _, err := s.owned(ctx, farmer.ID, id); err != nil {
		return err
	}
	return s.Listings.DeleteListing(ctx, id)
}

// owned hides listings of other farmers behind the same error as missing ones.
func (s *ListingService) owned(ctx context.Context, farmerID, id int64) (*domain.Listing, error) {
	l, err := s.Listings.GetListing(ctx, id)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, ErrNotFound("listing")
	}
	if err != nil {
		return nil, err
	}
	if l.OwnerID != farmerID {
		return nil, ErrNotFound("listing")
	}
	return l, nil
}

func apply(l *domain.Listing, in ListingInput) {
	l.Name = strings.TrimSpace(in.Name)
	l.Category = in.Category
	l.Price = in.Price
	l.Quantity = in.Quantity
	l.Freshness = in.Freshness
	l.HarvestDate = in.HarvestDate
	l.Image = in.Image
}
