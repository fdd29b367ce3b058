package middleware

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/ironmonger/hardware-backend/pkg/logger"
)

func TestRequestIDEchoesOrMints(t *testing.T) {
	handler := RequestID(logger.Nop())(okHandler())

	cases := []struct {
		name    string
		inbound string
		echoed  bool
	}{
		{"echoes caller id", "order-retry-42", true},
		{"mints when missing", "", false},
		{"mints when too long", strings.Repeat("a", maxRequestIDLen+1), false},
		{"mints when it has spaces", "bad id", false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tc.inbound != "" {
				req.Header.Set(requestIDHeader, tc.inbound)
			}
			resp := httptest.NewRecorder()
			handler.ServeHTTP(resp, req)

			got := resp.Header().Get(requestIDHeader)
			if got == "" {
				t.Fatal("expected a request id header")
			}
			if (got == tc.inbound) != tc.echoed {
				t.Fatalf("echoed=%v, got %q for inbound %q", tc.echoed, got, tc.inbound)
			}
		})
	}
}

func TestRecovererWritesInternalError(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("nil map write")
	}))
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/api/v1/orders", nil))

	if resp.Code != http.StatusInternalServerError {
		t.Fatalf("expected 500 got %d", resp.Code)
	}
	if strings.Contains(resp.Body.String(), "nil map write") {
		t.Fatalf("panic value leaked to client: %s", resp.Body.String())
	}
}

func TestRecovererRethrowsAbort(t *testing.T) {
	handler := Recoverer(logger.Nop())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic(http.ErrAbortHandler)
	}))
	defer func() {
		if rec := recover(); rec != http.ErrAbortHandler {
			t.Fatalf("expected ErrAbortHandler to propagate, got %v", rec)
		}
	}()
	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
}
