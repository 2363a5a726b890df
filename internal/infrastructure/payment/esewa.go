package payment

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/money"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"
)

const (
	EsewaTestMerchant = "EPAYTEST"
	EsewaTestSecret   = "8gBm/:&EnhH.1/q"

	DefaultEsewaFormURL   = "https://rc-epay.esewa.com.np/api/epay/main/v2/form"
	DefaultEsewaStatusURL = "https://rc.esewa.com.np/api/epay/transaction/status/"

	esewaComplete     = "COMPLETE"
	esewaSignedFields = "total_amount,transaction_uuid,product_code"
	esewaPeer         = "esewa"
	esewaStatusOp     = "transaction_status"
)

type EsewaConfig struct {
	MerchantCode string
	SecretKey    string
	FormURL      string
	StatusURL    string
	// SuccessURL and FailureURL are the backend callback endpoints eSewa redirects the browser to.
	SuccessURL string
	FailureURL string
	// Timeout bounds one status call; Retries is the number of extra attempts.
	Timeout time.Duration
	Retries int
}

// Esewa builds signed form posts and verifies completions. With the test
// merchant code the success redirect is trusted without a status call.
type Esewa struct {
	cfg    EsewaConfig
	client *http.Client
	tel    observability.Observability
	now    func() time.Time
}

func NewEsewa(cfg EsewaConfig, client *http.Client, tel observability.Observability) *Esewa {
	if cfg.MerchantCode == "" {
		cfg.MerchantCode = EsewaTestMerchant
	}
	if cfg.SecretKey == "" && cfg.MerchantCode == EsewaTestMerchant {
		cfg.SecretKey = EsewaTestSecret
	}
	if cfg.FormURL == "" {
		cfg.FormURL = DefaultEsewaFormURL
	}
	if cfg.StatusURL == "" {
		cfg.StatusURL = DefaultEsewaStatusURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.Retries < 0 {
		cfg.Retries = 0
	}
	if client == nil {
		client = &http.Client{}
	}
	return &Esewa{cfg: cfg, client: client, tel: observability.OrNop(tel), now: time.Now}
}

func (*Esewa) Method() dompay.Method { return dompay.MethodEsewa }

func (e *Esewa) Sandbox() bool { return e.cfg.MerchantCode == EsewaTestMerchant }

func (e *Esewa) Initiate(_ context.Context, o *order.Order, _ apppay.Payer) (*apppay.InitiationPayload, error) {
	total := o.TotalPrice.String()
	form := map[string]string{
		"amount":                  o.ItemsPrice.String(),
		"tax_amount":              o.TaxPrice.String(),
		"product_service_charge":  money.Money(0).String(),
		"product_delivery_charge": o.ShippingPrice.String(),
		"total_amount":            total,
		"transaction_uuid":        o.ID,
		"product_code":            e.cfg.MerchantCode,
		"success_url":             e.cfg.SuccessURL,
		"failure_url":             e.cfg.FailureURL,
		"signed_field_names":      esewaSignedFields,
	}
	form["signature"] = SignEsewa(e.cfg.SecretKey, total, o.ID, e.cfg.MerchantCode)

	return &apppay.InitiationPayload{
		Method:   dompay.MethodEsewa,
		OrderID:  o.ID,
		Amount:   o.TotalPrice,
		FormURL:  e.cfg.FormURL,
		FormData: form,
	}, nil
}

// SignEsewa is the base64 HMAC-SHA256 over
// "total_amount=..,transaction_uuid=..,product_code=..".
func SignEsewa(secret, totalAmount, transactionUUID, productCode string) string {
	msg := fmt.Sprintf("total_amount=%s,transaction_uuid=%s,product_code=%s", totalAmount, transactionUUID, productCode)
	return signBase64(secret, msg)
}

func signBase64(secret, msg string) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte(msg))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// esewaResponse is the base64 JSON eSewa v2 appends to the success redirect.
type esewaResponse struct {
	TransactionCode  string          `json:"transaction_code"`
	Status           string          `json:"status"`
	TotalAmount      json.RawMessage `json:"total_amount"`
	TransactionUUID  string          `json:"transaction_uuid"`
	ProductCode      string          `json:"product_code"`
	SignedFieldNames string          `json:"signed_field_names"`
	Signature        string          `json:"signature"`
}

func (r esewaResponse) field(name string) string {
	switch name {
	case "transaction_code":
		return r.TransactionCode
	case "status":
		return r.Status
	case "total_amount":
		// signed as sent, number or string
		return strings.Trim(string(r.TotalAmount), `"`)
	case "transaction_uuid":
		return r.TransactionUUID
	case "product_code":
		return r.ProductCode
	case "signed_field_names":
		return r.SignedFieldNames
	}
	return ""
}

func (e *Esewa) VerifyCallback(ctx context.Context, cb apppay.Callback) (*apppay.VerifiedResult, error) {
	if cb.Data == "" && len(cb.Body) > 0 {
		cb.Data = extractData(cb.Body)
	}

	status := ""
	amount := cb.Amount.String()
	if cb.Data != "" {
		resp, err := e.decode(cb.Data)
		if err != nil {
			return nil, err
		}
		cb.OrderID = resp.TransactionUUID
		cb.TransactionCode = resp.TransactionCode
		status = resp.Status
		if a := resp.field("total_amount"); a != "" {
			amount = a
		}
	}
	if cb.OrderID == "" {
		return nil, fmt.Errorf("esewa: callback without transaction id: %w", dompay.ErrVerificationFailed)
	}

	if e.Sandbox() {
		if status == "" {
			status = esewaComplete
		}
		return e.result(cb.OrderID, cb.TransactionCode, status), nil
	}

	// the redirect alone is never trusted outside the test merchant
	status, ref, err := e.checkStatus(ctx, cb.OrderID, amount)
	if err != nil {
		return &apppay.VerifiedResult{OrderID: cb.OrderID}, err
	}
	if ref == "" {
		ref = cb.TransactionCode
	}
	return e.result(cb.OrderID, ref, status), nil
}

func (e *Esewa) result(orderID, ref, status string) *apppay.VerifiedResult {
	at := e.now()
	if status == esewaComplete {
		return &apppay.VerifiedResult{
			OrderID: orderID,
			Paid:    true,
			Result:  dompay.Completed(dompay.MethodEsewa, ref, at),
		}
	}
	reason := "esewa status " + status
	if status == "" {
		reason = "esewa status unknown"
	}
	return &apppay.VerifiedResult{
		OrderID: orderID,
		Result:  dompay.Failed(dompay.MethodEsewa, ref, reason, at),
	}
}

func (e *Esewa) decode(data string) (esewaResponse, error) {
	var resp esewaResponse
	raw, err := base64.StdEncoding.DecodeString(data)
	if err != nil {
		if raw, err = base64.URLEncoding.DecodeString(data); err != nil {
			return resp, fmt.Errorf("esewa: decode data: %w", dompay.ErrVerificationFailed)
		}
	}
	if err := json.Unmarshal(raw, &resp); err != nil {
		return resp, fmt.Errorf("esewa: decode data: %w", dompay.ErrVerificationFailed)
	}

	names := strings.Split(resp.SignedFieldNames, ",")
	if resp.SignedFieldNames == "" || resp.Signature == "" {
		return resp, dompay.ErrInvalidSignature
	}
	parts := make([]string, 0, len(names))
	for _, n := range names {
		n = strings.TrimSpace(n)
		parts = append(parts, n+"="+resp.field(n))
	}
	want := signBase64(e.cfg.SecretKey, strings.Join(parts, ","))
	if !hmac.Equal([]byte(want), []byte(resp.Signature)) {
		return resp, dompay.ErrInvalidSignature
	}
	if resp.ProductCode != "" && resp.ProductCode != e.cfg.MerchantCode {
		return resp, fmt.Errorf("esewa: product code %q: %w", resp.ProductCode, dompay.ErrVerificationFailed)
	}
	return resp, nil
}

type esewaStatus struct {
	ProductCode     string `json:"product_code"`
	TransactionUUID string `json:"transaction_uuid"`
	Status          string `json:"status"`
	RefID           string `json:"ref_id"`
}

var errRetryable = errors.New("esewa: retryable status response")

// checkStatus asks the status API, retrying transport errors and 5xx
// answers. Exhausting the attempts is a verification failure.
func (e *Esewa) checkStatus(ctx context.Context, orderID, amount string) (status, ref string, err error) {
	var last error
	for attempt := 0; attempt <= e.cfg.Retries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return "", "", fmt.Errorf("esewa: %v: %w", ctx.Err(), dompay.ErrVerificationFailed)
			case <-time.After(time.Duration(attempt) * 200 * time.Millisecond):
			}
		}
		st, err := e.statusOnce(ctx, orderID, amount)
		if err == nil {
			return st.Status, st.RefID, nil
		}
		last = err
		if !errors.Is(err, errRetryable) {
			break
		}
	}
	return "", "", fmt.Errorf("esewa: status check: %v: %w", last, dompay.ErrVerificationFailed)
}

func (e *Esewa) statusOnce(ctx context.Context, orderID, amount string) (st esewaStatus, err error) {
	ctx, cancel := context.WithTimeout(ctx, e.cfg.Timeout)
	defer cancel()

	start := time.Now()
	defer func() { application.External(e.tel, esewaPeer, esewaStatusOp, start, err) }()

	q := url.Values{}
	q.Set("product_code", e.cfg.MerchantCode)
	q.Set("total_amount", amount)
	q.Set("transaction_uuid", orderID)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, e.cfg.StatusURL+"?"+q.Encode(), nil)
	if err != nil {
		return st, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := e.client.Do(req)
	if err != nil {
		return st, fmt.Errorf("%w: %v", errRetryable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusInternalServerError {
		return st, fmt.Errorf("%w: http %d", errRetryable, resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return st, fmt.Errorf("esewa: status api returned %d: %s", resp.StatusCode, string(body))
	}
	if err := json.NewDecoder(resp.Body).Decode(&st); err != nil {
		return st, fmt.Errorf("esewa: decode status: %w", err)
	}
	return st, nil
}

// extractData accepts a JSON body {"data": "..."} or the raw encoded string.
func extractData(body []byte) string {
	var wrapped struct {
		Data string `json:"data"`
	}
	if json.Unmarshal(body, &wrapped) == nil && wrapped.Data != "" {
		return wrapped.Data
	}
	return strings.TrimSpace(string(body))
}
