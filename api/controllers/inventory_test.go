package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/ironmonger/hardware-backend/internal/inventory"
	"github.com/ironmonger/hardware-backend/internal/products"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type stubInventory struct {
	adjust func(req inventory.AdjustRequest) (*inventory.AdjustResult, error)
	logs   func(filter inventory.LogFilter) (pagination.Page[inventory.LogDTO], error)
}

func (s stubInventory) AdjustStock(ctx context.Context, identity pkgAuth.Identity, req inventory.AdjustRequest) (*inventory.AdjustResult, error) {
	return s.adjust(req)
}

func (s stubInventory) ListLogs(ctx context.Context, identity pkgAuth.Identity, filter inventory.LogFilter) (pagination.Page[inventory.LogDTO], error) {
	return s.logs(filter)
}

func TestInventoryUpdateWritesProductAndLog(t *testing.T) {
	productID := uuid.New()
	svc := stubInventory{adjust: func(req inventory.AdjustRequest) (*inventory.AdjustResult, error) {
		if req.ProductID != productID || req.Change != -2 {
			t.Fatalf("unexpected request %+v", req)
		}
		return &inventory.AdjustResult{
			Product: &products.ProductDTO{ID: productID, Stock: 8},
			Log:     &inventory.LogDTO{ID: uuid.New(), ProductID: productID, Change: -2},
		}, nil
	}}

	body := `{"productId":"` + productID.String() + `","change":-2}`
	req, _ := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/inventory/update", strings.NewReader(body)), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	InventoryUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	var result inventory.AdjustResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if result.Product == nil || result.Product.Stock != 8 || result.Log == nil || result.Log.Change != -2 {
		t.Fatalf("unexpected result %+v", result)
	}
}

func TestInventoryUpdateRejectsFractionalChange(t *testing.T) {
	svc := stubInventory{adjust: func(inventory.AdjustRequest) (*inventory.AdjustResult, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	body := `{"productId":"` + uuid.NewString() + `","change":1.5}`
	req, _ := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/inventory/update", strings.NewReader(body)), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	InventoryUpdate(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestInventoryLogsParsesFilters(t *testing.T) {
	productID := uuid.New()
	svc := stubInventory{logs: func(filter inventory.LogFilter) (pagination.Page[inventory.LogDTO], error) {
		if filter.ProductID == nil || *filter.ProductID != productID {
			t.Fatalf("missing product filter: %+v", filter)
		}
		if filter.From == nil || filter.To != nil {
			t.Fatalf("unexpected time filters: %+v", filter)
		}
		return pagination.NewPage[inventory.LogDTO](nil, filter.Pagination, 0), nil
	}}
	url := "/api/v1/inventory/logs?productId=" + productID.String() + "&from=2026-01-01T00:00:00Z"
	req, _ := withIdentity(httptest.NewRequest(http.MethodGet, url, nil), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	InventoryLogs(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}
