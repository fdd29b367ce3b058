package cart_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironmonger/hardware-backend/internal/cart"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/db/dbtest"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

func setup(t *testing.T) (cart.Service, *db.Client, pkgAuth.Identity, pkgAuth.Identity) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := cart.NewService(cart.NewRepository(client.DB()), client)
	require.NoError(t, err)

	var ids []pkgAuth.Identity
	for _, name := range []string{"Asha", "Ravi"} {
		u := &models.User{Name: name, PasswordHash: "x", Role: enums.UserRoleCustomer}
		require.NoError(t, client.DB().Create(u).Error)
		ids = append(ids, pkgAuth.Identity{UserID: u.ID, Role: u.Role})
	}
	return svc, client, ids[0], ids[1]
}

func product(t *testing.T, client *db.Client, price string, active bool) *models.Product {
	t.Helper()
	p := &models.Product{Name: "Pliers", Price: decimal.RequireFromString(price), Stock: 5, IsActive: active}
	require.NoError(t, client.DB().Create(p).Error)
	return p
}

func TestGetCreatesCartLazily(t *testing.T) {
	svc, client, owner, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, first.Items)
	assert.True(t, first.Subtotal.IsZero())

	second, err := svc.Get(ctx, owner)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, client.DB().Model(&models.Cart{}).Count(&count).Error)
	assert.EqualValues(t, 1, count)
}

func TestAddItemIncrementsExistingLine(t *testing.T) {
	svc, client, owner, _ := setup(t)
	ctx := context.Background()
	pliers := product(t, client, "12.50", true)

	_, err := svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: pliers.ID, Quantity: 2})
	require.NoError(t, err)
	got, err := svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: pliers.ID, Quantity: 3})
	require.NoError(t, err)

	require.Len(t, got.Items, 1)
	assert.Equal(t, 5, got.Items[0].Quantity)
	assert.Equal(t, "62.50", got.Subtotal.StringFixed(2))
	require.NotNil(t, got.Items[0].Product)
	assert.Equal(t, pliers.ID, got.Items[0].Product.ID)
}

func TestAddItemRejectsInactiveOrUnknownProduct(t *testing.T) {
	svc, client, owner, _ := setup(t)
	ctx := context.Background()
	retired := product(t, client, "5", false)

	_, err := svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: retired.ID, Quantity: 1})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: uuid.New(), Quantity: 1})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	_, err = svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: retired.ID, Quantity: 0})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestItemsAreScopedToOwner(t *testing.T) {
	svc, client, owner, other := setup(t)
	ctx := context.Background()
	pliers := product(t, client, "10", true)

	got, err := svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: pliers.ID, Quantity: 1})
	require.NoError(t, err)
	itemID := got.Items[0].ID

	_, err = svc.UpdateItem(ctx, other, itemID, cart.UpdateItemInput{Quantity: 4})
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
	_, err = svc.RemoveItem(ctx, other, itemID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	updated, err := svc.UpdateItem(ctx, owner, itemID, cart.UpdateItemInput{Quantity: 4})
	require.NoError(t, err)
	assert.Equal(t, 4, updated.Items[0].Quantity)

	_, err = svc.UpdateItem(ctx, owner, itemID, cart.UpdateItemInput{Quantity: 0})
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	removed, err := svc.RemoveItem(ctx, owner, itemID)
	require.NoError(t, err)
	assert.Empty(t, removed.Items)
}

func TestClearEmptiesCart(t *testing.T) {
	svc, client, owner, _ := setup(t)
	ctx := context.Background()

	for _, price := range []string{"1", "2"} {
		p := product(t, client, price, true)
		_, err := svc.AddItem(ctx, owner, cart.AddItemInput{ProductID: p.ID, Quantity: 1})
		require.NoError(t, err)
	}

	cleared, err := svc.Clear(ctx, owner)
	require.NoError(t, err)
	assert.Empty(t, cleared.Items)
	assert.True(t, cleared.Subtotal.IsZero())
}
