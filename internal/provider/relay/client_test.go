package relay

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/otakuogeek/clinic-callcenter/internal/provider"
)

func newTestClient(t *testing.T, server *httptest.Server) *Client {
	t.Helper()
	client, err := New(Config{
		BaseURL:   server.URL,
		APIKey:    "test-key",
		SecretKey: "test-secret",
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	return client
}

func TestRequestCallbackSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/request-callback/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		wantSig := Sign(http.MethodGet, "/v1/request-callback/", map[string]string{
			"from": "100",
			"to":   "573001234567",
		}, "test-secret")
		if got := r.Header.Get("Authorization"); got != "test-key:"+wantSig {
			t.Fatalf("unexpected authorization header %q", got)
		}
		if r.URL.Query().Get("to") != "573001234567" {
			t.Fatalf("unexpected to param %q", r.URL.Query().Get("to"))
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"status":"success","from":"100","to":"573001234567","time":"1717171717","call_id":"abc123"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.RequestCallback(context.Background(), "100", "573001234567")
	if err != nil {
		t.Fatalf("request callback: %v", err)
	}
	if !result.Accepted {
		t.Fatal("expected call to be accepted")
	}
	if result.CallID != "abc123" || result.ProviderTime != "1717171717" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestRequestCallbackDeclined(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"error","message":"number blocked"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.RequestCallback(context.Background(), "100", "573001234567")
	if err != nil {
		t.Fatalf("request callback: %v", err)
	}
	if result.Accepted {
		t.Fatal("expected declined call")
	}
	if len(result.Raw) == 0 {
		t.Fatal("expected raw payload retained for diagnostics")
	}
}

func TestRequestCallbackValidation(t *testing.T) {
	client := newTestClient(t, httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("no network call expected")
	})))
	if _, err := client.RequestCallback(context.Background(), "", "573001234567"); !provider.IsValidation(err) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestBalance(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/info/balance/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		wantSig := Sign(http.MethodGet, "/v1/info/balance/", nil, "test-secret")
		if got := r.Header.Get("Authorization"); got != "test-key:"+wantSig {
			t.Fatalf("unexpected authorization header %q", got)
		}
		w.Write([]byte(`{"status":"success","balance":42.5,"currency":"USD"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.Balance(context.Background())
	if err != nil {
		t.Fatalf("balance: %v", err)
	}
	if !result.OK || result.Balance != 42.5 || result.Currency != "USD" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestSIPNumbers(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/sip-list/" {
			t.Fatalf("unexpected path %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"success","sips":[{"id":"100","display_name":"front desk","lines":2}]}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.SIPNumbers(context.Background())
	if err != nil {
		t.Fatalf("sip numbers: %v", err)
	}
	if !result.OK || len(result.Extensions) != 1 || result.Extensions[0].ID != "100" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestCallInfo(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("call_id") != "abc123" {
			t.Fatalf("unexpected call_id %q", r.URL.Query().Get("call_id"))
		}
		w.Write([]byte(`{"status":"success","call_id":"abc123","duration":35,"disposition":"answered"}`))
	}))
	defer server.Close()

	client := newTestClient(t, server)
	result, err := client.CallInfo(context.Background(), "abc123")
	if err != nil {
		t.Fatalf("call info: %v", err)
	}
	if !result.OK || result.Duration != 35 || result.Disposition != "answered" {
		t.Fatalf("unexpected result: %#v", result)
	}
}

func TestServerErrorIsProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, `{"status":"error"}`, http.StatusBadGateway)
	}))
	defer server.Close()

	client := newTestClient(t, server)
	_, err := client.Balance(context.Background())
	var pe *provider.Error
	if !errors.As(err, &pe) {
		t.Fatalf("expected provider error, got %v", err)
	}
	if pe.Kind != provider.KindProvider || pe.StatusCode != http.StatusBadGateway {
		t.Fatalf("unexpected error: %#v", pe)
	}
}

func TestNewClientValidation(t *testing.T) {
	if _, err := New(Config{BaseURL: "https://relay.example"}); err == nil {
		t.Fatal("expected key validation error")
	}
	if _, err := New(Config{APIKey: "k", SecretKey: "s"}); err == nil {
		t.Fatal("expected base URL validation error")
	}
}
