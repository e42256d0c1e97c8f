package wallet

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type ClientConfig struct {
	BaseURL   string `json:"baseUrl" mapstructure:"base_url"`
	PartnerID string `json:"partnerId" mapstructure:"partner_id"`
	ClientID  string `json:"clientId" mapstructure:"client_id"`
	ClientKey string `json:"clientKey" mapstructure:"client_key"`
	HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`
}

type Client struct {
	// baseURL is the base url of the wallet provider backend.
	baseURL string

	// partnerID identifies this platform to the wallet provider.
	partnerID string

	// clientID is the api client id.
	clientID string

	// clientKey is the api client secret.
	clientKey string

	// hmacKey signs request bodies.
	hmacKey string

	// accessToken authenticates grant calls.
	accessToken string

	// mu guards accessToken.
	mu sync.Mutex

	// toggleTokenRefresher notifies the refresher to fetch a new token.
	toggleTokenRefresher chan struct{}

	// hc is the http client.
	hc *http.Client
}

// newClient creates a new wallet provider api client.
func newClient(_ context.Context, c *ClientConfig) *Client {
	return &Client{
		baseURL:   c.BaseURL,
		partnerID: c.PartnerID,
		clientID:  c.ClientID,
		clientKey: c.ClientKey,
		hmacKey:   c.HMACKey,

		// make a buffered channel to avoid blocking.
		toggleTokenRefresher: make(chan struct{}, 1),

		// set http client with timeout. A grant that exceeds this is treated
		// as a delivery failure by the caller.
		hc: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// notifyAccessTokenExpired loops forever renewing the provider token with an
// exponential backOff strategy.
func (c *Client) notifyAccessTokenExpired(ctx context.Context) {
	ticker := time.NewTicker(10 * time.Minute)
	for {
		select {
		case <-ctx.Done():
			ticker.Stop()
			return

		case <-ticker.C:

		case <-c.toggleTokenRefresher:
			log.Println("notifyAccessTokenExpired: toggleTokenRefresher => token refreshed")
		}

		backOff := time.Second

	Retry:
		for {
			token, err := c.connect(ctx)
			switch err {
			case nil:
				c.setAccessToken(token)

				break Retry

			default:
				log.Printf("notifyAccessTokenExpired: %v", err)
				select {
				case <-ctx.Done():
					return

				case <-time.After(backOff):
					backOff *= 2
				}
			}
		}
	}
}

// setAccessToken set access token to client.
func (c *Client) setAccessToken(accessToken string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken = accessToken
}

// getAccessToken get access token from client.
func (c *Client) getAccessToken() string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken
}

// connect makes http call to perform authentication with the wallet provider.
func (c *Client) connect(ctx context.Context) (string, error) {
	number, err := randomNumber()
	if err != nil {
		return "", fmt.Errorf("wallet connect: randomNumber: %v", err)
	}

	body := fmt.Sprintf(`{"requestId":%q,"partnerId":%q,"clientId":%q,"clientSecret":%q}`, number, c.partnerID, c.clientID, c.clientKey)
	bodyReader := bytes.NewReader([]byte(body))

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), `/api/partner/authenticate`), bodyReader)
	if err != nil {
		return "", fmt.Errorf("wallet connect: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("SignedHash", Hmac256([]byte(body), []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return "", fmt.Errorf("wallet connect: http.Do: %v", err)
	}
	defer resp.Body.Close()

	// toggle token refresher if unauthorized
	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return "", errors.New("wallet connect: resp.StatusCode: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("wallet connect: unexpected status: %d", resp.StatusCode)
	}

	var reply struct {
		Status  string `json:"status"`
		Message string `json:"message"`
		Data    struct {
			AccessToken string `json:"accessToken"`
			TokenType   string `json:"tokenType"`
		} `json:"data"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return "", fmt.Errorf("wallet connect: decode: %v", err)
	}
	if reply.Data.AccessToken == "" {
		return "", fmt.Errorf("wallet connect: empty token: %s", reply.Message)
	}

	return reply.Data.AccessToken, nil
}

type grantPayload struct {
	RequestID string          `json:"requestId"`
	UserID    string          `json:"userId"`
	Reference string          `json:"referenceNo"`
	Amount    decimal.Decimal `json:"txnAmount"`
	Memo      string          `json:"memo,omitempty"`
}

type grantReply struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Data    struct {
		RefID  string `json:"refNo"`
		Status string `json:"grantStatus"`
	} `json:"data"`
}

// grant makes the http call that credits the user's wallet. The caller owns
// compensation when this fails.
func (c *Client) grant(ctx context.Context, p *grantPayload) (*grantReply, error) {
	body, err := json.Marshal(p)
	if err != nil {
		return nil, fmt.Errorf("wallet grant: marshal: %v", err)
	}

	_baseURL, _ := url.Parse(c.baseURL)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, fmt.Sprintf("%s%s", _baseURL.String(), `/api/partner/grant`), bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("wallet grant: http.NewReq: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.getAccessToken())
	req.Header.Set("SignedHash", Hmac256(body, []byte(c.hmacKey)))

	resp, err := c.hc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("wallet grant: http.Do: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		c.toggleTokenRefresher <- struct{}{}
		return nil, errors.New("wallet grant: 401 => Unauthorized")
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("wallet grant: unexpected status: %d", resp.StatusCode)
	}

	var reply grantReply
	if err := json.NewDecoder(resp.Body).Decode(&reply); err != nil {
		return nil, fmt.Errorf("wallet grant: decode: %v", err)
	}

	return &reply, nil
}
