package router

import (
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/otakuogeek/clinic-callcenter/internal/calls"
	"github.com/otakuogeek/clinic-callcenter/internal/dialer"
	"github.com/otakuogeek/clinic-callcenter/internal/http/handlers"
)

type stubDialer struct{}

func (stubDialer) PlaceCall(_ context.Context, _ dialer.Options) dialer.Result {
	return dialer.Result{Success: true, Status: calls.StatusRealCallInitiated, ConversationID: "conv-1"}
}

func (stubDialer) PlacePhysicalCall(_ context.Context, _ dialer.Options) dialer.Result {
	return dialer.Result{Success: true, Status: calls.StatusCallInitiated, ConversationID: "conv-1"}
}

func (stubDialer) EndCall(_ context.Context, _ string) error { return nil }

type stubReader struct{}

func (stubReader) GetAttempt(_ context.Context, _ string) (*calls.Attempt, error) {
	return nil, nil
}

func (stubReader) RecentErrors(_ context.Context, _ string, _ int) ([]calls.ErrorRecord, error) {
	return nil, nil
}

const testSecret = "router-test-secret"

func signToken(t *testing.T) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   "admin",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString([]byte(testSecret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func newRouter() http.Handler {
	return New(&Config{
		CallHandler:    handlers.NewCallHandler(stubDialer{}, stubReader{}, nil),
		AdminJWTSecret: testSecret,
	})
}

func TestHealthIsPublic(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
}

func TestAPIRequiresToken(t *testing.T) {
	router := newRouter()

	body := bytes.NewBufferString(`{"phoneNumber":"3001234567"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/calls/", body)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

func TestAPIAcceptsValidToken(t *testing.T) {
	router := newRouter()

	body := bytes.NewBufferString(`{"phoneNumber":"3001234567"}`)
	req := httptest.NewRequest(http.MethodPost, "/api/calls/", body)
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: body %s", rec.Code, rec.Body.String())
	}
}

func TestRelayRoutesAbsentWhenUnconfigured(t *testing.T) {
	router := newRouter()

	req := httptest.NewRequest(http.MethodGet, "/api/relay/balance", nil)
	req.Header.Set("Authorization", "Bearer "+signToken(t))
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", rec.Code)
	}
}
