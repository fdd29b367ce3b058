package controllers

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/ironmonger/hardware-backend/pkg/config"
)

type pingerFunc func(ctx context.Context) error

func (f pingerFunc) Ping(ctx context.Context) error { return f(ctx) }

func TestHealthReady(t *testing.T) {
	cfg := &config.Config{App: config.AppConfig{Env: "dev"}}
	ok := pingerFunc(func(context.Context) error { return nil })
	down := pingerFunc(func(context.Context) error { return errors.New("connection refused") })

	cases := []struct {
		name  string
		db    Pinger
		redis Pinger
		want  int
	}{
		{"all up", ok, ok, http.StatusOK},
		{"db down", down, ok, http.StatusServiceUnavailable},
		{"redis down", ok, down, http.StatusServiceUnavailable},
		{"redis not configured", ok, nil, http.StatusOK},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			resp := httptest.NewRecorder()
			HealthReady(cfg, nil, tc.db, tc.redis).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
			if resp.Code != tc.want {
				t.Fatalf("expected %d got %d", tc.want, resp.Code)
			}
			if resp.Header().Get(envHeader) != "dev" {
				t.Fatalf("missing env header")
			}
		})
	}
}

func TestHealthLive(t *testing.T) {
	resp := httptest.NewRecorder()
	HealthLive(&config.Config{App: config.AppConfig{Env: "prod"}}).ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/health/live", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d", resp.Code)
	}
}
