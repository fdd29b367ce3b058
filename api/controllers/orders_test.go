package controllers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/ironmonger/hardware-backend/api/middleware"
	"github.com/ironmonger/hardware-backend/internal/orders"
	pkgAuth "github.com/ironmonger/hardware-backend/pkg/auth"
	"github.com/ironmonger/hardware-backend/pkg/enums"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/pagination"
)

type stubOrders struct {
	orders.Service
	place   func(identity pkgAuth.Identity, req orders.PlaceOrderRequest) (*orders.OrderDTO, error)
	payment func(identity pkgAuth.Identity, id uuid.UUID, req orders.SetPaymentRequest) (*orders.OrderDTO, error)
	list    func(identity pkgAuth.Identity, params orders.ListParams) (pagination.Page[orders.OrderDTO], error)
}

func (s stubOrders) PlaceOrder(ctx context.Context, identity pkgAuth.Identity, req orders.PlaceOrderRequest) (*orders.OrderDTO, error) {
	return s.place(identity, req)
}

func (s stubOrders) SetPaymentStatus(ctx context.Context, identity pkgAuth.Identity, id uuid.UUID, req orders.SetPaymentRequest) (*orders.OrderDTO, error) {
	return s.payment(identity, id, req)
}

func (s stubOrders) List(ctx context.Context, identity pkgAuth.Identity, params orders.ListParams) (pagination.Page[orders.OrderDTO], error) {
	return s.list(identity, params)
}

func withIdentity(req *http.Request, role enums.UserRole) (*http.Request, pkgAuth.Identity) {
	identity := pkgAuth.Identity{UserID: uuid.New(), Role: role}
	return req.WithContext(middleware.WithIdentity(req.Context(), identity)), identity
}

func withURLParam(req *http.Request, key, value string) *http.Request {
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add(key, value)
	return req.WithContext(context.WithValue(req.Context(), chi.RouteCtxKey, rctx))
}

func decodeError(t *testing.T, resp *httptest.ResponseRecorder) string {
	t.Helper()
	var envelope struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode error envelope: %v", err)
	}
	return envelope.Error.Code
}

func TestOrderPlaceCreated(t *testing.T) {
	var seen orders.PlaceOrderRequest
	svc := stubOrders{place: func(identity pkgAuth.Identity, req orders.PlaceOrderRequest) (*orders.OrderDTO, error) {
		seen = req
		return &orders.OrderDTO{ID: uuid.New(), UserID: identity.UserID, TotalAmount: decimal.RequireFromString("30.00")}, nil
	}}

	productID := uuid.New()
	body := `{"paymentMethod":"COD","items":[{"productId":"` + productID.String() + `","quantity":3}]}`
	req, identity := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(body)), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusCreated {
		t.Fatalf("expected 201 got %d: %s", resp.Code, resp.Body.String())
	}
	if len(seen.Items) != 1 || seen.Items[0].ProductID != productID || seen.Items[0].Quantity != 3 {
		t.Fatalf("unexpected request forwarded: %+v", seen)
	}

	var envelope struct {
		Data orders.OrderDTO `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if envelope.Data.UserID != identity.UserID || !envelope.Data.TotalAmount.Equal(decimal.RequireFromString("30")) {
		t.Fatalf("unexpected order: %+v", envelope.Data)
	}
}

func TestOrderPlaceRequiresIdentity(t *testing.T) {
	svc := stubOrders{place: func(pkgAuth.Identity, orders.PlaceOrderRequest) (*orders.OrderDTO, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	req := httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`))
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401 got %d", resp.Code)
	}
}

func TestOrderPlaceInsufficientStockIsConflict(t *testing.T) {
	productID := uuid.New()
	svc := stubOrders{place: func(pkgAuth.Identity, orders.PlaceOrderRequest) (*orders.OrderDTO, error) {
		return nil, pkgerrors.New(pkgerrors.CodeConflict, "insufficient stock").WithDetails(map[string]any{"productId": productID.String()})
	}}
	req, _ := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{}`)), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusConflict {
		t.Fatalf("expected 409 got %d", resp.Code)
	}
	if code := decodeError(t, resp); code != string(pkgerrors.CodeConflict) {
		t.Fatalf("unexpected error code %q", code)
	}
}

func TestOrderPlaceRejectsUnknownFields(t *testing.T) {
	svc := stubOrders{place: func(pkgAuth.Identity, orders.PlaceOrderRequest) (*orders.OrderDTO, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	req, _ := withIdentity(httptest.NewRequest(http.MethodPost, "/api/v1/orders", strings.NewReader(`{"total":1}`)), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	OrderPlace(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderSetPaymentForwardsPathID(t *testing.T) {
	orderID := uuid.New()
	svc := stubOrders{payment: func(_ pkgAuth.Identity, id uuid.UUID, req orders.SetPaymentRequest) (*orders.OrderDTO, error) {
		if id != orderID {
			t.Fatalf("unexpected order id %s", id)
		}
		if req.Status != string(enums.PaymentStatusPaid) {
			t.Fatalf("unexpected status %q", req.Status)
		}
		return &orders.OrderDTO{ID: id, PaymentStatus: enums.PaymentStatusPaid}, nil
	}}

	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/"+orderID.String()+"/payment", strings.NewReader(`{"paymentStatus":"paid"}`))
	req, _ = withIdentity(withURLParam(req, "id", orderID.String()), enums.UserRoleCustomer)
	resp := httptest.NewRecorder()
	OrderSetPayment(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d: %s", resp.Code, resp.Body.String())
	}
}

func TestOrderSetPaymentInvalidPathID(t *testing.T) {
	req := httptest.NewRequest(http.MethodPut, "/api/v1/orders/nope/payment", strings.NewReader(`{"paymentStatus":"paid"}`))
	req, _ = withIdentity(withURLParam(req, "id", "nope"), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	OrderSetPayment(stubOrders{}, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 got %d", resp.Code)
	}
}

func TestOrderListWritesPage(t *testing.T) {
	svc := stubOrders{list: func(_ pkgAuth.Identity, params orders.ListParams) (pagination.Page[orders.OrderDTO], error) {
		if params.Pagination.Page != 2 || params.Pagination.PageSize != 5 {
			t.Fatalf("unexpected paging %+v", params.Pagination)
		}
		return pagination.NewPage([]orders.OrderDTO{{ID: uuid.New()}}, params.Pagination, 6), nil
	}}
	req, _ := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/orders?page=2&pageSize=5", nil), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	OrderList(svc, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
	var page pagination.Page[orders.OrderDTO]
	if err := json.NewDecoder(resp.Body).Decode(&page); err != nil {
		t.Fatalf("decode page: %v", err)
	}
	if page.Total != 6 || page.TotalPages != 2 || len(page.Data) != 1 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestOrderHandlersNilService(t *testing.T) {
	req, _ := withIdentity(httptest.NewRequest(http.MethodGet, "/api/v1/orders", nil), enums.UserRoleAdmin)
	resp := httptest.NewRecorder()
	OrderList(nil, nil).ServeHTTP(resp, req)

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
}
