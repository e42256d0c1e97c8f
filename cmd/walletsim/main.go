// walletsim is a standalone stand-in for the wallet provider backend, used in
// development instead of the real partner environment. It implements the
// authenticate and grant endpoints with the same HMAC signing rules and keeps
// balances in memory.
package main

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"io"
	"log"
	"net/http"
	"os"
	"sync"

	"github.com/labstack/echo/v5"
	"github.com/shopspring/decimal"

	"reward-system/internal/services/wallet"
)

type simulator struct {
	hmacKey   string
	clientID  string
	clientKey string

	mu       sync.Mutex
	tokens   map[string]bool
	balances map[string]decimal.Decimal
	granted  map[string]string
}

func main() {
	sim := &simulator{
		hmacKey:   getenv("WALLETSIM_HMAC_KEY", "dev-hmac-key"),
		clientID:  getenv("WALLETSIM_CLIENT_ID", "dev-client"),
		clientKey: getenv("WALLETSIM_CLIENT_KEY", "dev-secret"),
		tokens:    map[string]bool{},
		balances:  map[string]decimal.Decimal{},
		granted:   map[string]string{},
	}

	e := echo.New()

	e.POST("/api/partner/authenticate", sim.authenticate)
	e.POST("/api/partner/grant", sim.grant)
	e.GET("/api/partner/balance/:userId", sim.balance)

	addr := ":" + getenv("WALLETSIM_PORT", "8091")
	log.Printf("wallet simulator listening on %s", addr)

	server := &http.Server{Addr: addr, Handler: e}
	log.Fatal(server.ListenAndServe())
}

func (s *simulator) authenticate(c echo.Context) error {
	body, signed, err := s.readSigned(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
	}
	if !signed {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "error", "message": "bad signature"})
	}

	var req struct {
		RequestID    string `json:"requestId"`
		PartnerID    string `json:"partnerId"`
		ClientID     string `json:"clientId"`
		ClientSecret string `json:"clientSecret"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
	}

	if req.ClientID != s.clientID || req.ClientSecret != s.clientKey {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "error", "message": "invalid credentials"})
	}

	token := newToken()
	s.mu.Lock()
	s.tokens[token] = true
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"message": "authenticated",
		"data": map[string]string{
			"accessToken": token,
			"tokenType":   "Bearer",
		},
	})
}

func (s *simulator) grant(c echo.Context) error {
	if !s.authorized(c) {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "error", "message": "invalid token"})
	}

	body, signed, err := s.readSigned(c)
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": err.Error()})
	}
	if !signed {
		return c.JSON(http.StatusUnauthorized, map[string]string{"status": "error", "message": "bad signature"})
	}

	var req struct {
		RequestID string          `json:"requestId"`
		UserID    string          `json:"userId"`
		Reference string          `json:"referenceNo"`
		Amount    decimal.Decimal `json:"txnAmount"`
		Memo      string          `json:"memo"`
	}
	if err := json.Unmarshal(body, &req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": "invalid body"})
	}
	if req.UserID == "" || req.Reference == "" {
		return c.JSON(http.StatusBadRequest, map[string]string{"status": "error", "message": "userId and referenceNo are required"})
	}
	if req.Amount.IsNegative() {
		return grantReply(c, req.Reference, "declined", "negative amount")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// Same reference credits only once; a retried grant is acknowledged
	// without a second credit.
	if prior, ok := s.granted[req.Reference]; ok {
		return grantReply(c, prior, "granted", "already granted")
	}

	s.balances[req.UserID] = s.balances[req.UserID].Add(req.Amount)
	s.granted[req.Reference] = req.Reference

	log.Printf("granted %s to %s (ref %s)", req.Amount, req.UserID, req.Reference)

	return grantReply(c, req.Reference, "granted", "grant accepted")
}

func (s *simulator) balance(c echo.Context) error {
	s.mu.Lock()
	balance := s.balances[c.PathParam("userId")]
	s.mu.Unlock()

	return c.JSON(http.StatusOK, map[string]any{
		"userId":  c.PathParam("userId"),
		"balance": balance,
	})
}

func (s *simulator) authorized(c echo.Context) bool {
	auth := c.Request().Header.Get("Authorization")
	if len(auth) <= len("Bearer ") {
		return false
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokens[auth[len("Bearer "):]]
}

func (s *simulator) readSigned(c echo.Context) ([]byte, bool, error) {
	body, err := io.ReadAll(c.Request().Body)
	if err != nil {
		return nil, false, err
	}

	received := c.Request().Header.Get("SignedHash")
	return body, wallet.VerifySignedBody([]byte(s.hmacKey), body, received), nil
}

func grantReply(c echo.Context, ref, grantStatus, message string) error {
	return c.JSON(http.StatusOK, map[string]any{
		"status":  "ok",
		"message": message,
		"data": map[string]string{
			"refNo":       ref,
			"grantStatus": grantStatus,
		},
	})
}

func newToken() string {
	buf := make([]byte, 16)
	if _, err := rand.Read(buf); err != nil {
		return "fallback-token"
	}
	return hex.EncodeToString(buf)
}

func getenv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
