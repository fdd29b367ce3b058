package address_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ironmonger/hardware-backend/internal/address"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db/dbtest"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

func setup(t *testing.T) (address.Service, pkgAuth.Identity, pkgAuth.Identity) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := address.NewService(address.NewRepository(client.DB()), client)
	require.NoError(t, err)

	var ids []pkgAuth.Identity
	for _, name := range []string{"Asha", "Ravi"} {
		user := &models.User{Name: name, PasswordHash: "x", Role: enums.UserRoleCustomer}
		require.NoError(t, client.DB().Create(user).Error)
		ids = append(ids, pkgAuth.Identity{UserID: user.ID, Role: user.Role})
	}
	return svc, ids[0], ids[1]
}

func input(line string) address.CreateAddressInput {
	return address.CreateAddressInput{AddressLine: line, City: "Pune", Pincode: "411001", State: "MH"}
}

func TestCreateFirstAddressBecomesDefault(t *testing.T) {
	svc, owner, _ := setup(t)
	ctx := context.Background()

	first, err := svc.Create(ctx, owner, input("12 MG Road"))
	require.NoError(t, err)
	assert.True(t, first.IsDefault)

	second, err := svc.Create(ctx, owner, input("4 FC Road"))
	require.NoError(t, err)
	assert.False(t, second.IsDefault)

	third := input("9 JM Road")
	third.IsDefault = true
	created, err := svc.Create(ctx, owner, third)
	require.NoError(t, err)
	assert.True(t, created.IsDefault)

	list, err := svc.List(ctx, owner)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, created.ID, list[0].ID)
	defaults := 0
	for _, a := range list {
		if a.IsDefault {
			defaults++
		}
	}
	assert.Equal(t, 1, defaults)
}

func TestCreateRejectsBlankFields(t *testing.T) {
	svc, owner, _ := setup(t)

	_, err := svc.Create(context.Background(), owner, input("   "))
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))
}

func TestUpdateAndDeleteAreScopedToOwner(t *testing.T) {
	svc, owner, other := setup(t)
	ctx := context.Background()

	addr, err := svc.Create(ctx, owner, input("12 MG Road"))
	require.NoError(t, err)

	city := "Mumbai"
	_, err = svc.Update(ctx, other, addr.ID, address.UpdateAddressInput{City: &city})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	updated, err := svc.Update(ctx, owner, addr.ID, address.UpdateAddressInput{City: &city})
	require.NoError(t, err)
	assert.Equal(t, "Mumbai", updated.City)
	assert.Equal(t, "12 MG Road", updated.AddressLine)

	err = svc.Delete(ctx, other, addr.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))

	require.NoError(t, svc.Delete(ctx, owner, addr.ID))
	err = svc.Delete(ctx, owner, addr.ID)
	assert.Equal(t, pkgerrors.CodeNotFound, pkgerrors.CodeOf(err))
}

func TestListRequiresIdentity(t *testing.T) {
	svc, _, _ := setup(t)

	_, err := svc.List(context.Background(), pkgAuth.Identity{UserID: uuid.Nil})
	assert.Equal(t, pkgerrors.CodeUnauthorized, pkgerrors.CodeOf(err))
}
