package wallet

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"reward-system/internal/status"

	pubnub "github.com/pubnub/go/v7"
	"github.com/shopspring/decimal"
)

type (
	Config struct {
		BaseURL string `json:"baseUrl" mapstructure:"base_url"`

		PartnerID string `json:"partnerId" mapstructure:"partner_id"`
		ClientID  string `json:"clientId" mapstructure:"client_id"`
		ClientKey string `json:"clientKey" mapstructure:"client_key"`
		HMACKey   string `json:"hmacKey" mapstructure:"hmac_key"`

		PNSubKey    string `json:"pn_subkey" mapstructure:"pn_subkey"`
		PNSubSecret string `json:"pn_subsecret" mapstructure:"pn_subsecret"`
		PNUUID      string `json:"pn_uuid" mapstructure:"pn_uuid"`
		PNChannel   string `json:"pn_channel" mapstructure:"pn_channel"`
		PNCipherKey string `json:"pn_cipherKey" mapstructure:"pn_cipherkey"`
	}

	// Provider is the reward delivery channel: a points wallet operated by an
	// external partner. Grants are synchronous http calls; the provider also
	// pushes asynchronous settlement confirmations over PubNub.
	Provider struct {
		pnSubKey    string
		pnSubSecret string
		pnUUID      string
		pnChannels  []string
		pnCipherKey string

		pn       *pubnub.PubNub
		listener *pubnub.Listener

		confirmCh chan *Confirmation

		client *Client
	}
)

// GrantRequest describes one wallet credit for an approved claim.
type GrantRequest struct {
	RequestID string
	UserID    string
	Reference string
	Amount    decimal.Decimal
	Memo      string
}

// Confirmation is the provider's asynchronous settlement notice.
type Confirmation struct {
	Reference string          `json:"referenceNo"`
	RefID     string          `json:"refNo"`
	Status    string          `json:"grantStatus"`
	Amount    decimal.Decimal `json:"txnAmount"`
	CreatedAt string          `json:"txnDateTime"`
}

// New returns a connected wallet provider.
func New(ctx context.Context, cfg *Config) (*Provider, error) {
	client := newClient(ctx, &ClientConfig{
		BaseURL:   cfg.BaseURL,
		PartnerID: cfg.PartnerID,
		ClientID:  cfg.ClientID,
		ClientKey: cfg.ClientKey,
		HMACKey:   cfg.HMACKey,
	})

	// Connect to the provider backend. Get access token.
	token, err := client.connect(ctx)
	if err != nil {
		return nil, err
	}
	client.setAccessToken(token)

	// Notify access token expired.
	go client.notifyAccessTokenExpired(ctx)

	p := &Provider{
		pnSubKey:    cfg.PNSubKey,
		pnSubSecret: cfg.PNSubSecret,
		pnUUID:      cfg.PNUUID,
		pnChannels:  []string{cfg.PNChannel},
		pnCipherKey: cfg.PNCipherKey,
		listener:    pubnub.NewListener(),

		client: client,
	}

	if cfg.PNSubKey != "" {
		pnCfg := pubnub.NewConfigWithUserId(pubnub.UserId(p.pnUUID))
		pnCfg.SubscribeKey = p.pnSubKey
		pnCfg.CipherKey = p.pnCipherKey
		pnCfg.SecretKey = p.pnSubSecret

		p.pn = pubnub.NewPubNub(pnCfg)
		p.pn.AddListener(p.listener)
		p.pn.Subscribe().
			Channels(p.pnChannels).
			Execute()

		go p.listenConfirmations(ctx)
	}

	return p, nil
}

// SetConfirmationChannel sets the channel settlement confirmations are
// forwarded to.
func (p *Provider) SetConfirmationChannel(ch chan *Confirmation) {
	p.confirmCh = ch
}

func (p *Provider) listenConfirmations(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return

		case <-p.listener.Status:

		case <-p.listener.Presence:

		case message := <-p.listener.Message:
			p.handleConfirmation(message)
		}
	}
}

func (p *Provider) handleConfirmation(message *pubnub.PNMessage) {
	data, ok := message.Message.(map[string]any)
	if !ok {
		return
	}

	raw, err := json.Marshal(data)
	if err != nil {
		return
	}

	var confirmation Confirmation
	if err := json.Unmarshal(raw, &confirmation); err != nil {
		slog.Error("wallet: parse confirmation", "error", err)
		return
	}

	if p.confirmCh != nil {
		p.confirmCh <- &confirmation
	}
}

// Deliver credits the user's wallet for one approved claim. Any declined,
// errored, or timed-out grant is reported as a delivery failure so the caller
// can release its quota reservation.
func (p *Provider) Deliver(ctx context.Context, g *GrantRequest) error {
	reply, err := p.client.grant(ctx, &grantPayload{
		RequestID: g.RequestID,
		UserID:    g.UserID,
		Reference: g.Reference,
		Amount:    g.Amount,
		Memo:      g.Memo,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", status.ErrDeliveryFailed, err)
	}

	if reply.Data.Status != "granted" {
		return fmt.Errorf("%w: provider returned %q: %s", status.ErrDeliveryFailed, reply.Data.Status, reply.Message)
	}

	return nil
}

// Close unsubscribes from the confirmation channel.
func (p *Provider) Close(_ context.Context) error {
	if p.pn != nil {
		p.pn.Unsubscribe().
			Channels(p.pnChannels).
			Execute()
		p.pn.RemoveListener(p.listener)
	}
	return nil
}
