package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

const (
	KhaltiSessionTTL  = 900 * time.Second
	khaltiCompleted   = "Completed"
	DefaultKhaltiPay  = "https://test-pay.khalti.com/"
	khaltiTestKeyHint = "test_"
)

type KhaltiConfig struct {
	PublicKey string
	SecretKey string
	// PaymentURL is the hosted checkout page; the session id is appended as ?pidx=.
	PaymentURL string
	// WebhookSecret signs webhook bodies. SecretKey is used when empty.
	WebhookSecret string
}

// Khalti issues payment sessions and trusts webhooks only when their
// X-Signature header is the hex HMAC-SHA256 of the body.
type Khalti struct {
	cfg KhaltiConfig
	ids application.IDGenerator
	now func() time.Time
}

func NewKhalti(cfg KhaltiConfig, ids application.IDGenerator) *Khalti {
	if cfg.PaymentURL == "" {
		cfg.PaymentURL = DefaultKhaltiPay
	}
	return &Khalti{cfg: cfg, ids: ids, now: time.Now}
}

func (*Khalti) Method() dompay.Method { return dompay.MethodKhalti }

// Sandbox reports whether the secret key is a Khalti test key. An unset key
// is not a sandbox.
func (k *Khalti) Sandbox() bool {
	return strings.HasPrefix(k.cfg.SecretKey, khaltiTestKeyHint)
}

func (k *Khalti) Initiate(_ context.Context, o *order.Order, _ apppay.Payer) (*apppay.InitiationPayload, error) {
	pidx := k.ids.NewID()
	u, err := url.Parse(k.cfg.PaymentURL)
	if err != nil {
		return nil, fmt.Errorf("khalti: payment url: %w", err)
	}
	q := u.Query()
	q.Set("pidx", pidx)
	u.RawQuery = q.Encode()

	return &apppay.InitiationPayload{
		Method:     dompay.MethodKhalti,
		OrderID:    o.ID,
		Amount:     o.TotalPrice,
		SessionID:  pidx,
		PaymentURL: u.String(),
		ExpiresIn:  int(KhaltiSessionTTL.Seconds()),
	}, nil
}

type khaltiWebhook struct {
	Pidx            string `json:"pidx"`
	Status          string `json:"status"`
	TransactionID   string `json:"transaction_id"`
	PurchaseOrderID string `json:"purchase_order_id"`
	TotalAmount     int64  `json:"total_amount"`
}

func (k *Khalti) VerifyCallback(_ context.Context, cb apppay.Callback) (*apppay.VerifiedResult, error) {
	if len(cb.Body) == 0 {
		return nil, fmt.Errorf("khalti: empty notification: %w", dompay.ErrVerificationFailed)
	}
	if !validHexMAC(k.webhookSecret(), cb.Body, cb.Signature) {
		return nil, dompay.ErrInvalidSignature
	}

	var n khaltiWebhook
	if err := json.Unmarshal(cb.Body, &n); err != nil {
		return nil, fmt.Errorf("khalti: decode notification: %w", dompay.ErrVerificationFailed)
	}
	if n.PurchaseOrderID == "" {
		return nil, fmt.Errorf("khalti: notification without purchase_order_id: %w", dompay.ErrVerificationFailed)
	}

	ref := n.TransactionID
	if ref == "" {
		ref = n.Pidx
	}
	at := k.now()
	if n.Status == khaltiCompleted {
		return &apppay.VerifiedResult{
			OrderID: n.PurchaseOrderID,
			Paid:    true,
			Result:  dompay.Completed(dompay.MethodKhalti, ref, at),
		}, nil
	}
	return &apppay.VerifiedResult{
		OrderID: n.PurchaseOrderID,
		Result:  dompay.Failed(dompay.MethodKhalti, ref, "khalti status "+n.Status, at),
	}, nil
}

func (k *Khalti) webhookSecret() string {
	if k.cfg.WebhookSecret != "" {
		return k.cfg.WebhookSecret
	}
	return k.cfg.SecretKey
}

// SignHex returns the hex HMAC-SHA256 of body, the format Khalti webhooks carry.
func SignHex(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}

func validHexMAC(secret string, body []byte, signature string) bool {
	if secret == "" || signature == "" {
		return false
	}
	got, err := hex.DecodeString(strings.TrimSpace(signature))
	if err != nil {
		return false
	}
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return hmac.Equal(got, mac.Sum(nil))
}
