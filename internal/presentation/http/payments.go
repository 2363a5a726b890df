package httppresentation

import (
	"io"
	"net/http"

	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
	dompay "github.com/Zhima-Mochi/sportsphere/internal/domain/payment"
)

type paymentConfigResponse struct {
	Success bool                `json:"success"`
	Config  apppay.PublicConfig `json:"config"`
}

func (h *Handler) handlePaymentConfig(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, paymentConfigResponse{Success: true, Config: h.svc.Payments.Config()})
}

type verifyPaymentRequest struct {
	OrderID       string `json:"orderId"`
	PaymentID     string `json:"paymentId"`
	PaymentMethod string `json:"paymentMethod"`
}

type paymentOrderResponse struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Order   *order.Order `json:"order"`
}

func (h *Handler) handleVerifyPayment(w http.ResponseWriter, r *http.Request) {
	var req verifyPaymentRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	in := apppay.VerifyInput{OrderID: req.OrderID, PaymentID: req.PaymentID}
	if req.PaymentMethod != "" {
		m, err := dompay.ParseMethod(req.PaymentMethod)
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		in.Method = m
	}

	o, err := h.svc.Payments.Verify(r.Context(), in, requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentOrderResponse{Success: true, Message: "Payment verified successfully", Order: o})
}

type initiateRequest struct {
	OrderID      string       `json:"orderId"`
	CustomerName string       `json:"customerName"`
	CustomerInfo apppay.Payer `json:"customerInfo"`
}

func (r initiateRequest) payer() apppay.Payer {
	p := r.CustomerInfo
	if p.Name == "" {
		p.Name = r.CustomerName
	}
	return p
}

type initiateResponse struct {
	Success bool                      `json:"success"`
	Payment *apppay.InitiationPayload `json:"payment"`
}

func (h *Handler) initiate(method dompay.Method) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req initiateRequest
		if err := decodeJSON(r, &req); err != nil {
			h.writeDomainError(w, r, err)
			return
		}

		out, err := h.svc.Payments.Initiate(r.Context(), method, req.OrderID, requester(r), req.payer())
		if err != nil {
			h.writeDomainError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, initiateResponse{Success: true, Payment: out})
	}
}

func (h *Handler) handleBankTransferQR(w http.ResponseWriter, r *http.Request) {
	h.initiate(dompay.MethodBankTransfer)(w, r)
}

func (h *Handler) handleKhaltiInitiate(w http.ResponseWriter, r *http.Request) {
	h.initiate(dompay.MethodKhalti)(w, r)
}

func (h *Handler) handleEsewaInitiate(w http.ResponseWriter, r *http.Request) {
	h.initiate(dompay.MethodEsewa)(w, r)
}

// handleEsewaSuccess accepts both the v1 (oid, refId) and the v2 (data)
// redirect shapes and always answers with a redirect.
func (h *Handler) handleEsewaSuccess(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID := firstOf(q.Get("oid"), q.Get("transaction_uuid"))
	ref := firstOf(q.Get("refId"), q.Get("transaction_code"))

	target := h.svc.Payments.EsewaSuccess(r.Context(), orderID, ref, q.Get("data"))
	http.Redirect(w, r, target, http.StatusFound)
}

func (h *Handler) handleEsewaFailure(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	orderID := firstOf(q.Get("oid"), q.Get("transaction_uuid"))

	target := h.svc.Payments.EsewaFailure(r.Context(), orderID, q.Get("reason"))
	http.Redirect(w, r, target, http.StatusFound)
}

type mockRequest struct {
	OrderID string `json:"orderId"`
}

func (h *Handler) handleEsewaMock(w http.ResponseWriter, r *http.Request) {
	var req mockRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	o, err := h.svc.Payments.MockEsewa(r.Context(), req.OrderID, requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, paymentOrderResponse{Success: true, Message: "Mock payment successful", Order: o})
}

// handleWebhook answers providers with a status code and a bare body; there
// is no API client to read a JSON error.
func (h *Handler) handleWebhook(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxBodyBytes))
	if err != nil {
		w.WriteHeader(http.StatusBadRequest)
		return
	}

	ack, err := h.svc.Payments.Webhook(r.Context(), r.PathValue("provider"), body, r.Header.Get(headerSignature))
	if err != nil {
		status := statusOf(err)
		w.WriteHeader(status)
		_, _ = w.Write([]byte(http.StatusText(status)))
		return
	}
	writeJSON(w, http.StatusOK, ack)
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
