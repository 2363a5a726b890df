package payment

import (
	"context"
	"sort"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

// Provider is one payment method: it builds what the client needs to pay and
// turns an inbound provider notification into a verified outcome.
type Provider interface {
	Method() dompay.Method
	Initiate(ctx context.Context, o *order.Order, payer Payer) (*InitiationPayload, error)
	// VerifyCallback returns an error only when the notification cannot be
	// trusted at all. A trusted "not paid" answer is a result with Paid=false.
	VerifyCallback(ctx context.Context, cb Callback) (*VerifiedResult, error)
}

// Sandboxed is implemented by providers that can run against a test merchant.
type Sandboxed interface {
	Sandbox() bool
}

type Payer struct {
	Name  string `json:"name,omitempty"`
	Email string `json:"email,omitempty"`
	Phone string `json:"phone,omitempty"`
}

type BankDetails struct {
	BankName      string `json:"bankName" yaml:"bank_name"`
	AccountName   string `json:"accountName" yaml:"account_name"`
	AccountNumber string `json:"accountNumber" yaml:"account_number"`
	Branch        string `json:"branch,omitempty" yaml:"branch"`
	SwiftCode     string `json:"swiftCode,omitempty" yaml:"swift_code"`
}

// InitiationPayload is the union of what the providers hand back to the
// client. Only the fields of the selected method are set.
type InitiationPayload struct {
	Method  dompay.Method `json:"method"`
	OrderID string        `json:"orderId"`
	Amount  money.Money   `json:"amount"`

	// khalti
	SessionID  string `json:"pidx,omitempty"`
	PaymentURL string `json:"paymentUrl,omitempty"`
	ExpiresIn  int    `json:"expiresIn,omitempty"`

	// esewa
	FormURL  string            `json:"formUrl,omitempty"`
	FormData map[string]string `json:"formData,omitempty"`

	// bank_transfer
	QRData      string       `json:"qrData,omitempty"`
	QRImage     string       `json:"qrImage,omitempty"`
	BankDetails *BankDetails `json:"bankDetails,omitempty"`

	// cod
	Surcharge money.Money `json:"charges,omitempty"`
	MaxAmount money.Money `json:"maxAmount,omitempty"`

	Instructions []string `json:"instructions,omitempty"`
}

// Callback is an inbound provider notification. Browser redirects fill the
// query fields; webhooks fill Body and Signature.
type Callback struct {
	OrderID         string
	TransactionCode string
	// Data is the provider's encoded response (eSewa v2 "data" parameter).
	Data string
	// Amount is the order total, filled in by the gateway for status lookups.
	Amount    money.Money
	Body      []byte
	Signature string
}

type VerifiedResult struct {
	OrderID string
	Paid    bool
	Result  dompay.Result
}

// Registry selects a provider by payment method.
type Registry struct {
	providers map[dompay.Method]Provider
}

func NewRegistry(providers ...Provider) *Registry {
	r := &Registry{providers: make(map[dompay.Method]Provider, len(providers))}
	for _, p := range providers {
		r.providers[p.Method()] = p
	}
	return r
}

func (r *Registry) Lookup(m dompay.Method) (Provider, error) {
	p, ok := r.providers[m]
	if !ok {
		return nil, dompay.ErrUnknownMethod
	}
	return p, nil
}

// Methods lists the registered methods in a stable order.
func (r *Registry) Methods() []dompay.Method {
	out := make([]dompay.Method, 0, len(r.providers))
	for m := range r.providers {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (r *Registry) sandbox(m dompay.Method) bool {
	p, ok := r.providers[m]
	if !ok {
		return false
	}
	s, ok := p.(Sandboxed)
	return ok && s.Sandbox()
}
