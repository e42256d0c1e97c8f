package wallet

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"reward-system/internal/status"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testHMACKey = "test-hmac-key"

func newProviderServer(t *testing.T, grantStatus string, delay time.Duration) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()

	mux.HandleFunc("/api/partner/authenticate", func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)

		if !VerifySignedBody([]byte(testHMACKey), body, r.Header.Get("SignedHash")) {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"message": "authenticated",
			"data": map[string]string{
				"accessToken": "test-token",
				"tokenType":   "Bearer",
			},
		})
	})

	mux.HandleFunc("/api/partner/grant", func(w http.ResponseWriter, r *http.Request) {
		if delay > 0 {
			time.Sleep(delay)
		}

		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}

		body, err := io.ReadAll(r.Body)
		require.NoError(t, err)
		require.True(t, VerifySignedBody([]byte(testHMACKey), body, r.Header.Get("SignedHash")))

		var payload struct {
			Reference string `json:"referenceNo"`
		}
		require.NoError(t, json.Unmarshal(body, &payload))

		json.NewEncoder(w).Encode(map[string]any{
			"status":  "ok",
			"message": "processed",
			"data": map[string]string{
				"refNo":       payload.Reference,
				"grantStatus": grantStatus,
			},
		})
	})

	return httptest.NewServer(mux)
}

func newTestProvider(t *testing.T, server *httptest.Server) *Provider {
	t.Helper()

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	provider, err := New(ctx, &Config{
		BaseURL:   server.URL,
		PartnerID: "partner-1",
		ClientID:  "client-1",
		ClientKey: "secret",
		HMACKey:   testHMACKey,
	})
	require.NoError(t, err)

	return provider
}

func TestNew_Authenticates(t *testing.T) {
	server := newProviderServer(t, "granted", 0)
	defer server.Close()

	provider := newTestProvider(t, server)
	assert.Equal(t, "test-token", provider.client.getAccessToken())
}

func TestDeliver_Granted(t *testing.T) {
	server := newProviderServer(t, "granted", 0)
	defer server.Close()

	provider := newTestProvider(t, server)

	err := provider.Deliver(context.Background(), &GrantRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		Reference: "req-1-ABCD-1700000000",
		Amount:    decimal.NewFromInt(100),
		Memo:      "reward Launch Bonus",
	})
	assert.NoError(t, err)
}

func TestDeliver_Declined(t *testing.T) {
	server := newProviderServer(t, "declined", 0)
	defer server.Close()

	provider := newTestProvider(t, server)

	err := provider.Deliver(context.Background(), &GrantRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		Reference: "req-1-ABCD-1700000000",
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, status.ErrDeliveryFailed)
}

func TestDeliver_Timeout(t *testing.T) {
	server := newProviderServer(t, "granted", 300*time.Millisecond)
	defer server.Close()

	provider := newTestProvider(t, server)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	err := provider.Deliver(ctx, &GrantRequest{
		RequestID: "req-1",
		UserID:    "user-1",
		Reference: "req-1-ABCD-1700000000",
		Amount:    decimal.NewFromInt(100),
	})
	assert.ErrorIs(t, err, status.ErrDeliveryFailed)
}

func TestNew_BadCredentials(t *testing.T) {
	server := newProviderServer(t, "granted", 0)
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	_, err := New(ctx, &Config{
		BaseURL:   server.URL,
		PartnerID: "partner-1",
		ClientID:  "client-1",
		ClientKey: "secret",
		HMACKey:   "wrong-hmac-key",
	})
	assert.Error(t, err)
}

func TestHmac256_Deterministic(t *testing.T) {
	a := Hmac256([]byte("payload"), []byte("key"))
	b := Hmac256([]byte("payload"), []byte("key"))
	assert.Equal(t, a, b)

	c := Hmac256([]byte("payload"), []byte("other-key"))
	assert.NotEqual(t, a, c)
}

func TestVerifySignedBody(t *testing.T) {
	body := []byte(`{"referenceNo":"ref-1"}`)
	signature := Hmac256(body, []byte(testHMACKey))

	assert.True(t, VerifySignedBody([]byte(testHMACKey), body, signature))
	assert.False(t, VerifySignedBody([]byte(testHMACKey), body, "tampered"))
	assert.False(t, VerifySignedBody([]byte("wrong"), body, signature))
}

func TestKeyHash_RoundTrip(t *testing.T) {
	hash, err := GenerateKeyHash([]byte("client-secret"))
	require.NoError(t, err)

	assert.True(t, CompareKeyHash([]byte(hash), []byte("client-secret")))
	assert.False(t, CompareKeyHash([]byte(hash), []byte("other-secret")))
}
