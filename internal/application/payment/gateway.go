package payment

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/account"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"

	"go.opentelemetry.io/otel/attribute"
)

const (
	paymentService = "payment-gateway"

	useCaseInitiate     = "payment.initiate"
	useCaseVerify       = "payment.verify"
	useCaseEsewaSuccess = "payment.esewa_success"
	useCaseEsewaFailure = "payment.esewa_failure"
	useCaseWebhook      = "payment.webhook"
	useCaseMock         = "payment.mock"

	reasonVerifyFailed = "verification failed"
)

var (
	ErrAlreadyPaid     = apperr.New(apperr.ErrInvalidState, "order is already paid")
	ErrMethodMismatch  = apperr.Validation("payment method does not match the order")
	ErrOperatorOnly    = apperr.New(apperr.ErrForbidden, "only an admin can confirm offline payments")
	ErrProviderConfirm = fmt.Errorf("online payments are confirmed by the provider: %w", apperr.ErrPaymentVerification)
	ErrSandboxOnly     = apperr.New(apperr.ErrForbidden, "mock payments are only available in sandbox mode")
)

// Orders is the slice of the order lifecycle the gateway drives.
type Orders interface {
	Lookup(ctx context.Context, orderID string) (*order.Order, error)
	Get(ctx context.Context, orderID string, requester account.Identity) (*order.Order, error)
	MarkPaid(ctx context.Context, orderID string, result dompay.Result) (*order.Order, error)
	RecordPaymentFailure(ctx context.Context, orderID string, result dompay.Result) (*order.Order, error)
}

type PublicConfig struct {
	Khalti struct {
		PublicKey string `json:"publicKey"`
		Enabled   bool   `json:"enabled"`
	} `json:"khalti"`
	Esewa struct {
		MerchantID string `json:"merchantId"`
		Enabled    bool   `json:"enabled"`
	} `json:"esewa"`
	BankTransfer struct {
		Enabled bool        `json:"enabled"`
		Details BankDetails `json:"details"`
	} `json:"bankTransfer"`
	COD struct {
		Enabled   bool        `json:"enabled"`
		MaxAmount money.Money `json:"maxAmount"`
		Charges   money.Money `json:"charges"`
	} `json:"cod"`
}

// Gateway reconciles provider traffic with order state. Browser-facing
// callbacks never fail: they always answer with a redirect target.
type Gateway struct {
	orders      Orders
	providers   *Registry
	public      PublicConfig
	frontendURL string
	ids         application.IDGenerator
	tel         observability.Observability
	log         observability.Logger
	now         func() time.Time
}

func NewGateway(orders Orders, providers *Registry, public PublicConfig, frontendURL string, ids application.IDGenerator, tel observability.Observability) *Gateway {
	tel = observability.OrNop(tel)
	return &Gateway{
		orders:      orders,
		providers:   providers,
		public:      public,
		frontendURL: frontendURL,
		ids:         ids,
		tel:         tel,
		log:         tel.Logger().With(observability.F("service", paymentService)),
		now:         time.Now,
	}
}

func (g *Gateway) Config() PublicConfig { return g.public }

// Initiate builds the provider payload for an order the requester may see.
// Amounts always come from the stored order.
func (g *Gateway) Initiate(ctx context.Context, method dompay.Method, orderID string, requester account.Identity, payer Payer) (_ *InitiationPayload, err error) {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseInitiate, "InitiatePayment",
		attribute.String("payment.method", string(method)),
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	p, err := g.providers.Lookup(method)
	if err != nil {
		run.Fail("METHOD_UNKNOWN")
		return nil, err
	}
	o, err := g.orders.Get(ctx, orderID, requester)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, err
	}
	if o.PaymentMethod != method {
		run.Fail("METHOD_MISMATCH")
		return nil, ErrMethodMismatch
	}
	if o.IsPaid {
		run.Fail("ALREADY_PAID")
		return nil, ErrAlreadyPaid
	}

	out, err := p.Initiate(ctx, o, payer)
	if err != nil {
		run.Fail("PROVIDER_ERROR")
		return nil, fmt.Errorf("payment: initiate %s: %w", method, err)
	}
	run.Add(
		observability.F("order_id", o.ID),
		observability.F("amount", o.TotalPrice.String()),
	)
	return out, nil
}

type VerifyInput struct {
	OrderID   string
	PaymentID string
	Method    dompay.Method
}

// Verify is the manual confirmation path. Offline methods need an admin;
// online methods are only accepted here when the provider runs in sandbox.
func (g *Gateway) Verify(ctx context.Context, in VerifyInput, requester account.Identity) (_ *order.Order, err error) {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseVerify, "VerifyPayment",
		attribute.String("payment.method", string(in.Method)),
		attribute.String("order.id", in.OrderID),
	)
	defer func() { run.End(err) }()

	o, err := g.orders.Get(ctx, in.OrderID, requester)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, err
	}
	method := in.Method
	if method == "" {
		method = o.PaymentMethod
	}
	if method != o.PaymentMethod {
		run.Fail("METHOD_MISMATCH")
		return nil, ErrMethodMismatch
	}

	switch {
	case !method.Online() && !requester.IsAdmin:
		run.Fail("OPERATOR_ONLY")
		return nil, ErrOperatorOnly
	case method.Online() && !g.providers.sandbox(method):
		run.Fail("PROVIDER_CONFIRMS")
		return nil, ErrProviderConfirm
	}

	paymentID := in.PaymentID
	if paymentID == "" {
		paymentID = o.ID
	}
	paid, err := g.orders.MarkPaid(ctx, o.ID, dompay.Completed(method, paymentID, g.now()))
	if err != nil {
		run.Fail("MARK_PAID_FAILED")
		return nil, err
	}
	run.Add(observability.F("order_id", o.ID))
	return paid, nil
}

// EsewaSuccess handles the browser redirect from eSewa and returns where to
// send the browser next.
func (g *Gateway) EsewaSuccess(ctx context.Context, orderID, transactionCode, data string) string {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseEsewaSuccess, "EsewaSuccess",
		attribute.String("order.id", orderID),
	)
	var err error
	defer func() { run.End(err) }()

	cb := Callback{OrderID: orderID, TransactionCode: transactionCode, Data: data}
	var res *VerifiedResult
	res, err = g.verify(ctx, dompay.MethodEsewa, cb)
	if res != nil && res.OrderID != "" {
		orderID = res.OrderID
	}
	run.Add(observability.F("order_id", orderID))
	if orderID == "" {
		run.Fail("ORDER_ID_MISSING")
		return g.checkoutFailed()
	}
	if err != nil {
		run.Fail(verifyStatus(err))
		g.recordFailure(ctx, run, orderID, dompay.MethodEsewa, transactionCode, reasonVerifyFailed)
		return g.orderPage(orderID, false)
	}

	if !res.Paid {
		run.Fail("NOT_COMPLETE")
		g.recordFailure(ctx, run, orderID, dompay.MethodEsewa, transactionCode, res.Result.FailureReason)
		return g.orderPage(orderID, false)
	}
	if _, err = g.orders.MarkPaid(ctx, orderID, res.Result); err != nil {
		run.Fail("MARK_PAID_FAILED")
		return g.orderPage(orderID, false)
	}
	return g.orderPage(orderID, true)
}

// EsewaFailure records the cancelled attempt and sends the browser back to checkout.
func (g *Gateway) EsewaFailure(ctx context.Context, orderID, reason string) string {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseEsewaFailure, "EsewaFailure",
		attribute.String("order.id", orderID),
	)
	run.Add(observability.F("order_id", orderID))
	defer run.End(nil)

	if orderID != "" {
		g.recordFailure(ctx, run, orderID, dompay.MethodEsewa, "", reason)
	}
	return g.checkoutFailed()
}

type WebhookAck struct {
	Received bool `json:"received"`
}

// Webhook verifies a provider notification and applies it. Redelivery of an
// already applied notification is acknowledged without changing the order.
func (g *Gateway) Webhook(ctx context.Context, provider string, body []byte, signature string) (_ *WebhookAck, err error) {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseWebhook, "PaymentWebhook",
		attribute.String("payment.provider", provider),
	)
	defer func() { run.End(err) }()

	method, err := dompay.ParseMethod(provider)
	if err != nil || !method.Online() {
		run.Fail("PROVIDER_UNKNOWN")
		return nil, apperr.Validationf("unknown payment provider %q", provider)
	}

	res, err := g.verify(ctx, method, Callback{Body: body, Signature: signature})
	if err != nil {
		run.Fail(verifyStatus(err))
		return nil, err
	}
	run.Add(
		observability.F("order_id", res.OrderID),
		observability.F("paid", res.Paid),
	)
	if res.Paid {
		_, err = g.orders.MarkPaid(ctx, res.OrderID, res.Result)
	} else {
		_, err = g.orders.RecordPaymentFailure(ctx, res.OrderID, res.Result)
	}
	if err != nil {
		run.Fail("ORDER_UPDATE_FAILED")
		return nil, err
	}
	return &WebhookAck{Received: true}, nil
}

// MockEsewa marks an eSewa order paid without a provider round trip. It only
// works while eSewa runs against the test merchant.
func (g *Gateway) MockEsewa(ctx context.Context, orderID string, requester account.Identity) (_ *order.Order, err error) {
	ctx, run := application.Start(ctx, g.tel, g.log, useCaseMock, "MockEsewa",
		attribute.String("order.id", orderID),
	)
	defer func() { run.End(err) }()

	if !g.providers.sandbox(dompay.MethodEsewa) {
		run.Fail("NOT_SANDBOX")
		return nil, ErrSandboxOnly
	}
	o, err := g.orders.Get(ctx, orderID, requester)
	if err != nil {
		run.Fail("ORDER_LOOKUP_FAILED")
		return nil, err
	}
	if o.PaymentMethod != dompay.MethodEsewa {
		run.Fail("METHOD_MISMATCH")
		return nil, ErrMethodMismatch
	}
	return g.orders.MarkPaid(ctx, o.ID, dompay.Completed(dompay.MethodEsewa, "MOCK-"+g.ids.NewID(), g.now()))
}

// verify fills the order amount in and asks the provider. Any failure to
// reach a trusted answer is returned as a payment verification error.
func (g *Gateway) verify(ctx context.Context, method dompay.Method, cb Callback) (*VerifiedResult, error) {
	p, err := g.providers.Lookup(method)
	if err != nil {
		return nil, err
	}
	if cb.OrderID != "" {
		if o, err := g.orders.Lookup(ctx, cb.OrderID); err == nil {
			cb.Amount = o.TotalPrice
		}
	}
	res, err := p.VerifyCallback(ctx, cb)
	if err != nil {
		if errors.Is(err, apperr.ErrPaymentVerification) || errors.Is(err, apperr.ErrValidation) {
			return res, err
		}
		return res, fmt.Errorf("%w: %v", dompay.ErrVerificationFailed, err)
	}
	return res, nil
}

func (g *Gateway) recordFailure(ctx context.Context, run *application.Run, orderID string, method dompay.Method, ref, reason string) {
	_, err := g.orders.RecordPaymentFailure(ctx, orderID, dompay.Failed(method, ref, reason, g.now()))
	if err != nil {
		run.Logger().Warn("payment_failure_not_recorded",
			observability.F("order_id", orderID),
			observability.F("error", err),
		)
	}
}

func (g *Gateway) orderPage(orderID string, ok bool) string {
	outcome := "failed"
	if ok {
		outcome = "success"
	}
	return fmt.Sprintf("%s/order-success/%s?payment=%s", g.frontendURL, url.PathEscape(orderID), outcome)
}

func (g *Gateway) checkoutFailed() string {
	return g.frontendURL + "/checkout?payment=failed"
}

func verifyStatus(err error) string {
	switch {
	case errors.Is(err, dompay.ErrInvalidSignature):
		return "INVALID_SIGNATURE"
	case errors.Is(err, apperr.ErrValidation):
		return "VALIDATION"
	}
	return "VERIFICATION_FAILED"
}
