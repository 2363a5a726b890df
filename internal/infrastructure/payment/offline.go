package payment

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"

	qrcode "github.com/skip2/go-qrcode"
)

// COD has nothing to initiate; the payload only repeats the policy data.
type COD struct {
	Surcharge money.Money
	MaxAmount money.Money
}

func (COD) Method() dompay.Method { return dompay.MethodCOD }

func (c COD) Initiate(_ context.Context, o *order.Order, _ apppay.Payer) (*apppay.InitiationPayload, error) {
	return &apppay.InitiationPayload{
		Method:    dompay.MethodCOD,
		OrderID:   o.ID,
		Amount:    o.TotalPrice,
		Surcharge: c.Surcharge,
		MaxAmount: c.MaxAmount,
		Instructions: []string{
			"Pay the exact amount in cash to the courier on delivery",
		},
	}, nil
}

func (COD) VerifyCallback(context.Context, apppay.Callback) (*apppay.VerifiedResult, error) {
	return nil, dompay.ErrUnsupported
}

const qrSize = 256

// BankTransfer hands out static account details plus a scannable payload.
// The order stays unpaid until an operator confirms the transfer.
type BankTransfer struct {
	Details      apppay.BankDetails
	Instructions []string
	now          func() time.Time
}

func NewBankTransfer(details apppay.BankDetails, instructions []string) *BankTransfer {
	return &BankTransfer{Details: details, Instructions: instructions, now: time.Now}
}

func (*BankTransfer) Method() dompay.Method { return dompay.MethodBankTransfer }

type bankQR struct {
	Type          string      `json:"type"`
	OrderID       string      `json:"orderId"`
	Amount        money.Money `json:"amount"`
	AccountNumber string      `json:"accountNumber"`
	BankName      string      `json:"bankName"`
	AccountName   string      `json:"accountName"`
	Payer         string      `json:"payer,omitempty"`
	Timestamp     string      `json:"timestamp"`
}

func (b *BankTransfer) Initiate(_ context.Context, o *order.Order, payer apppay.Payer) (*apppay.InitiationPayload, error) {
	raw, err := json.Marshal(bankQR{
		Type:          string(dompay.MethodBankTransfer),
		OrderID:       o.ID,
		Amount:        o.TotalPrice,
		AccountNumber: b.Details.AccountNumber,
		BankName:      b.Details.BankName,
		AccountName:   b.Details.AccountName,
		Payer:         payer.Name,
		Timestamp:     b.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return nil, fmt.Errorf("bank transfer: encode qr payload: %w", err)
	}
	png, err := qrcode.Encode(string(raw), qrcode.Medium, qrSize)
	if err != nil {
		return nil, fmt.Errorf("bank transfer: render qr: %w", err)
	}

	details := b.Details
	return &apppay.InitiationPayload{
		Method:       dompay.MethodBankTransfer,
		OrderID:      o.ID,
		Amount:       o.TotalPrice,
		QRData:       string(raw),
		QRImage:      "data:image/png;base64," + base64.StdEncoding.EncodeToString(png),
		BankDetails:  &details,
		Instructions: append([]string(nil), b.Instructions...),
	}, nil
}

func (*BankTransfer) VerifyCallback(context.Context, apppay.Callback) (*apppay.VerifiedResult, error) {
	return nil, dompay.ErrUnsupported
}

// DefaultBankInstructions are shown with the QR payload when none are configured.
var DefaultBankInstructions = []string{
	"Transfer the exact amount to the bank account above",
	"Use Order ID as payment reference",
	"Order will be processed after verification",
}
