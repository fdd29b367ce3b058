package validators

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
)

type adjustBody struct {
	ProductID string `json:"productId" validate:"required,uuid"`
	Change    int    `json:"change" validate:"ne=0"`
}

type priceBody struct {
	Price   decimal.Decimal `json:"price" validate:"gt=0"`
	Phone   string          `json:"phone" validate:"omitempty,phone"`
	Pincode string          `json:"pincode" validate:"omitempty,pincode"`
}

func newJSONRequest(body string) *http.Request {
	return httptest.NewRequest(http.MethodPost, "/", strings.NewReader(body))
}

func TestDecodeJSONBody(t *testing.T) {
	id := uuid.NewString()
	var ok adjustBody
	if err := DecodeJSONBody(newJSONRequest(`{"productId":"`+id+`","change":-2}`), &ok); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if ok.Change != -2 {
		t.Fatalf("expected change -2, got %d", ok.Change)
	}

	cases := map[string]string{
		"fractional change": `{"productId":"` + id + `","change":2.5}`,
		"zero change":       `{"productId":"` + id + `","change":0}`,
		"unknown field":     `{"productId":"` + id + `","change":1,"stock":5}`,
		"bad uuid":          `{"productId":"nope","change":1}`,
		"empty body":        ``,
		"two objects":       `{"productId":"` + id + `","change":1}{}`,
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			var dest adjustBody
			err := DecodeJSONBody(newJSONRequest(body), &dest)
			if !pkgerrors.IsCode(err, pkgerrors.CodeValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
		})
	}
}

func TestCustomValidators(t *testing.T) {
	good := priceBody{Price: decimal.RequireFromString("10.50"), Phone: "+919876543210", Pincode: "560001"}
	if err := ValidateStruct(good); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	bad := priceBody{Price: decimal.Zero, Phone: "12", Pincode: "56"}
	err := ValidateStruct(bad)
	typed := pkgerrors.As(err)
	if typed == nil {
		t.Fatalf("expected typed error, got %v", err)
	}
	details, ok := typed.Details().(map[string]string)
	if !ok {
		t.Fatalf("unexpected details %T", typed.Details())
	}
	for _, field := range []string{"price", "phone", "pincode"} {
		if _, ok := details[field]; !ok {
			t.Fatalf("expected %s in details %v", field, details)
		}
	}
}

func TestParseQueryHelpers(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/?page=abc&size=500&active=true&from=2024-05-01&id="+uuid.NewString(), nil)

	if got := ParseQueryLenientInt(r, "page", 1); got != 1 {
		t.Fatalf("expected fallback 1, got %d", got)
	}
	if _, err := ParseQueryInt(r, "size", 20, 1, 100); err == nil {
		t.Fatal("expected out of range error")
	}
	active, err := ParseQueryBool(r, "active")
	if err != nil || active == nil || !*active {
		t.Fatalf("expected active=true, got %v %v", active, err)
	}
	from, err := ParseQueryTime(r, "from")
	if err != nil || from == nil || from.Day() != 1 {
		t.Fatalf("unexpected from %v %v", from, err)
	}
	if id, err := ParseQueryUUID(r, "id"); err != nil || id == nil {
		t.Fatalf("expected id, got %v %v", id, err)
	}
	if missing, err := ParseQueryUUID(r, "other"); err != nil || missing != nil {
		t.Fatalf("expected nil for missing param, got %v %v", missing, err)
	}
}

func TestParseUUIDParam(t *testing.T) {
	id := uuid.New()
	rctx := chi.NewRouteContext()
	rctx.URLParams.Add("id", id.String())
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r = r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))

	got, err := ParseUUIDParam(r, "id")
	if err != nil || got != id {
		t.Fatalf("expected %s, got %s (%v)", id, got, err)
	}
	if _, err := ParseUUIDParam(r, "missing"); err == nil {
		t.Fatal("expected error for missing param")
	}
}

func TestSanitizeOptional(t *testing.T) {
	blank := "   "
	if SanitizeOptional(&blank, 10) != nil {
		t.Fatal("expected blank to map to nil")
	}
	long := "  abcdefghijkl "
	if got := SanitizeOptional(&long, 5); got == nil || *got != "abcde" {
		t.Fatalf("unexpected sanitize result %v", got)
	}
	if NormalizeEmail(" Bob@Example.COM ") != "bob@example.com" {
		t.Fatal("expected lowercased email")
	}
}
