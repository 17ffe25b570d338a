package usecase_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"harvesthub-backend/internal/domain"
	"harvesthub-backend/internal/infrastructure/repo"
	"harvesthub-backend/internal/usecase"
)

func TestResolveFarmerChecksStoredRole(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := &usecase.ListingService{Listings: store, Identities: store}
	u := &domain.Identity{Name: "C", Email: "c@x.io", Role: domain.RoleCustomer}
	require.NoError(t, store.CreateIdentity(context.Background(), u))

	_, err := svc.ResolveFarmer(context.Background(), &usecase.Claims{IdentityID: u.ID, Role: domain.RoleFarmer})
	assert.Equal(t, usecase.KindForbidden, usecase.KindOf(err), "forged role claim")
	_, err = svc.ResolveFarmer(context.Background(), &usecase.Claims{IdentityID: 77, Role: domain.RoleFarmer})
	assert.Equal(t, usecase.KindAuth, usecase.KindOf(err))
	_, err = svc.ResolveFarmer(context.Background(), &usecase.Claims{IdentityID: u.ID, Role: domain.RoleCustomer})
	assert.Equal(t, usecase.KindForbidden, usecase.KindOf(err))
}

func TestListingOwnership(t *testing.T) {
	store := repo.NewMemoryStore()
	svc := &usecase.ListingService{Listings: store, Identities: store}
	ctx := context.Background()
	claimsFor := func(email string) *usecase.Claims {
		u := &domain.Identity{Name: email, Email: email, Role: domain.RoleFarmer}
		require.NoError(t, store.CreateIdentity(ctx, u))
		return &usecase.Claims{IdentityID: u.ID, Role: domain.RoleFarmer}
	}
	a, b := claimsFor("a@x.io"), claimsFor("b@x.io")

	_, err := svc.Create(ctx, a, usecase.ListingInput{Name: " ", Price: 1})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))
	_, err = svc.Create(ctx, a, usecase.ListingInput{Name: "Okra", Price: -1})
	assert.Equal(t, usecase.KindValidation, usecase.KindOf(err))

	l, err := svc.Create(ctx, a, usecase.ListingInput{Name: " Okra ", Category: "veg", Price: 40, Quantity: 10})
	require.NoError(t, err)
	assert.Equal(t, "Okra", l.Name)
	assert.Equal(t, a.IdentityID, l.OwnerID)

	_, err = svc.Update(ctx, b, l.ID, usecase.ListingInput{Name: "Mine now", Price: 1})
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(err))
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(svc.Delete(ctx, b, l.ID)))

	mine, err := svc.Mine(ctx, b)
	require.NoError(t, err)
	assert.Empty(t, mine)

	up, err := svc.Update(ctx, a, l.ID, usecase.ListingInput{Name: "Okra", Price: 35, Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 35.0, up.Price)
	assert.Equal(t, a.IdentityID, up.OwnerID)

	require.NoError(t, svc.Delete(ctx, a, l.ID))
	_, err = svc.Get(ctx, l.ID)
	assert.Equal(t, usecase.KindNotFound, usecase.KindOf(err))
	all, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}
