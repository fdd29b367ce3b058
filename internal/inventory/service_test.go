package inventory_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/ironmonger/hardware-backend/internal/inventory"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/db"
	"github.com/ironmonger/hardware-backend/pkg/db/dbtest"
	"github.com/ironmonger/hardware-backend/pkg/db/models"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
	"github.com/ironmonger/hardware-backend/pkg/outbox"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

var (
	admin    = pkgAuth.Identity{UserID: uuid.New(), Role: enums.UserRoleAdmin}
	customer = pkgAuth.Identity{UserID: uuid.New(), Role: enums.UserRoleCustomer}
)

func newService(t *testing.T) (*inventory.Service, *db.Client) {
	t.Helper()
	client := dbtest.Client(t)
	svc, err := inventory.NewService(inventory.ServiceParams{
		Repo:   inventory.NewRepository(client.DB()),
		Tx:     client,
		Outbox: outbox.NewService(outbox.NewRepository(client.DB()), logger.Nop()),
		Logger: logger.Nop(),
	})
	require.NoError(t, err)
	return svc, client
}

func seedProduct(t *testing.T, svc *inventory.Service, client *db.Client, stock int) *models.Product {
	t.Helper()
	product := &models.Product{Name: "Claw Hammer", Price: decimal.NewFromInt(100), IsActive: true}
	require.NoError(t, client.DB().Create(product).Error)
	if stock > 0 {
		err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
			_, err := svc.Apply(context.Background(), tx, product.ID, stock, "initial stock")
			return err
		})
		require.NoError(t, err)
	}
	return product
}

func stockOf(t *testing.T, client *db.Client, id uuid.UUID) int {
	t.Helper()
	var product models.Product
	require.NoError(t, client.DB().First(&product, "id = ?", id).Error)
	return product.Stock
}

func assertLedgerBalanced(t *testing.T, client *db.Client, id uuid.UUID) {
	t.Helper()
	var sum int
	require.NoError(t, client.DB().Model(&models.InventoryLog{}).
		Where("product_id = ?", id).
		Select("COALESCE(SUM(change), 0)").
		Scan(&sum).Error)
	assert.Equal(t, stockOf(t, client, id), sum, "stock must equal the sum of ledger changes")
}

func TestAdjustStockAddsAndLogs(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 7)

	reason := "restock"
	result, err := svc.AdjustStock(context.Background(), admin, inventory.AdjustRequest{
		ProductID: product.ID,
		Change:    5,
		Reason:    &reason,
	})
	require.NoError(t, err)
	assert.Equal(t, 12, result.Product.Stock)
	require.NotNil(t, result.Log)
	assert.Equal(t, 5, result.Log.Change)
	require.NotNil(t, result.Log.Reason)
	assert.Equal(t, "restock", *result.Log.Reason)

	assert.Equal(t, 12, stockOf(t, client, product.ID))
	assertLedgerBalanced(t, client, product.ID)

	var events []models.OutboxEvent
	require.NoError(t, client.DB().Where("event_type = ?", enums.EventInventoryAdjusted).Find(&events).Error)
	assert.Len(t, events, 2)
}

func TestAdjustStockRejectsNegativeResult(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 3)

	_, err := svc.AdjustStock(context.Background(), admin, inventory.AdjustRequest{ProductID: product.ID, Change: -4})
	require.Error(t, err)
	assert.Equal(t, pkgerrors.CodeValidation, pkgerrors.CodeOf(err))

	assert.Equal(t, 3, stockOf(t, client, product.ID))
	var logs int64
	require.NoError(t, client.DB().Model(&models.InventoryLog{}).Where("product_id = ?", product.ID).Count(&logs).Error)
	assert.Equal(t, int64(1), logs)
	assertLedgerBalanced(t, client, product.ID)
}

func TestAdjustStockValidation(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 1)

	tests := []struct {
		name     string
		identity pkgAuth.Identity
		req      inventory.AdjustRequest
		code     pkgerrors.Code
	}{
		{"customer", customer, inventory.AdjustRequest{ProductID: product.ID, Change: 1}, pkgerrors.CodeForbidden},
		{"anonymous", pkgAuth.Identity{}, inventory.AdjustRequest{ProductID: product.ID, Change: 1}, pkgerrors.CodeUnauthorized},
		{"missing product id", admin, inventory.AdjustRequest{Change: 1}, pkgerrors.CodeValidation},
		{"zero change", admin, inventory.AdjustRequest{ProductID: product.ID}, pkgerrors.CodeValidation},
		{"unknown product", admin, inventory.AdjustRequest{ProductID: uuid.New(), Change: 1}, pkgerrors.CodeNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.AdjustStock(context.Background(), tt.identity, tt.req)
			assert.Equal(t, tt.code, pkgerrors.CodeOf(err))
		})
	}
}

func TestApplyGuardsStock(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 2)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.Apply(context.Background(), tx, product.ID, -3, "order")
		return err
	})
	assert.ErrorIs(t, err, inventory.ErrInsufficientStock)

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.Apply(context.Background(), tx, uuid.New(), -1, "order")
		return err
	})
	assert.ErrorIs(t, err, gorm.ErrRecordNotFound)

	err = client.WithTx(context.Background(), func(tx *gorm.DB) error {
		_, err := svc.Apply(context.Background(), tx, product.ID, 0, "noop")
		return err
	})
	assert.ErrorIs(t, err, inventory.ErrZeroChange)

	assert.Equal(t, 2, stockOf(t, client, product.ID))
	assertLedgerBalanced(t, client, product.ID)
}

func TestApplyRollsBackWithCallerTx(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 5)

	err := client.WithTx(context.Background(), func(tx *gorm.DB) error {
		if _, err := svc.Apply(context.Background(), tx, product.ID, -2, "order"); err != nil {
			return err
		}
		_, err := svc.Apply(context.Background(), tx, product.ID, -10, "order")
		return err
	})
	require.ErrorIs(t, err, inventory.ErrInsufficientStock)

	assert.Equal(t, 5, stockOf(t, client, product.ID))
	assertLedgerBalanced(t, client, product.ID)
}

func TestListLogsPagesNewestFirst(t *testing.T) {
	svc, client := newService(t)
	product := seedProduct(t, svc, client, 10)
	other := seedProduct(t, svc, client, 4)

	for i := 0; i < 3; i++ {
		_, err := svc.AdjustStock(context.Background(), admin, inventory.AdjustRequest{ProductID: product.ID, Change: -1})
		require.NoError(t, err)
	}

	page, err := svc.ListLogs(context.Background(), admin, inventory.LogFilter{
		ProductID:  &product.ID,
		Pagination: pagination.Params{Page: 1, PageSize: 2},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	require.Len(t, page.Data, 2)
	for _, row := range page.Data {
		assert.Equal(t, product.ID, row.ProductID)
		require.NotNil(t, row.Product)
	}

	all, err := svc.ListLogs(context.Background(), admin, inventory.LogFilter{Pagination: pagination.Params{Page: 0, PageSize: 500}})
	require.NoError(t, err)
	assert.Equal(t, 1, all.Page)
	assert.Equal(t, pagination.MaxPageSize, all.PageSize)
	assert.Equal(t, int64(5), all.Total)
	assert.Equal(t, -1, all.Data[0].Change)
	assert.Equal(t, 4, stockOf(t, client, other.ID))

	_, err = svc.ListLogs(context.Background(), customer, inventory.LogFilter{})
	assert.Equal(t, pkgerrors.CodeForbidden, pkgerrors.CodeOf(err))
}

func TestFindStockDriftReportsOnlyUnbalancedProducts(t *testing.T) {
	svc, client := newService(t)
	balanced := seedProduct(t, svc, client, 6)
	drifted := seedProduct(t, svc, client, 3)

	require.NoError(t, client.DB().Model(&models.Product{}).Where("id = ?", drifted.ID).UpdateColumn("stock", 9).Error)

	rows, err := inventory.NewRepository(client.DB()).FindStockDrift(context.Background())
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, drifted.ID, rows[0].ProductID)
	assert.Equal(t, 9, rows[0].Stock)
	assert.Equal(t, 3, rows[0].LedgerSum)
	assertLedgerBalanced(t, client, balanced.ID)
}
