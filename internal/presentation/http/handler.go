package httppresentation

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/Zhima-Mochi/sportsphere/internal/application"
	appaccount "github.com/Zhima-Mochi/sportsphere/internal/application/account"
	appcart "github.com/Zhima-Mochi/sportsphere/internal/application/cart"
	appcatalog "github.com/Zhima-Mochi/sportsphere/internal/application/catalog"
	apporder "github.com/Zhima-Mochi/sportsphere/internal/application/order"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/apperr"
	"github.com/Zhima-Mochi/sportsphere/internal/observability"
	"github.com/Zhima-Mochi/sportsphere/internal/observability/logctx"
)

const (
	componentHTTPHandler = "http_server"
	headerRequestID      = "X-Request-ID"
	headerCartID         = "X-Cart-ID"
	headerSignature      = "X-Signature"

	maxBodyBytes = 1 << 20
)

// Services are the use cases the REST API exposes.
type Services struct {
	Accounts *appaccount.Service
	Catalog  *appcatalog.Service
	Orders   *apporder.Service
	Payments *apppay.Gateway
	Carts    *appcart.Service
	// IDs issues cart ids for devices that do not send one yet.
	IDs application.IDGenerator
}

type Handler struct {
	svc Services
	log observability.Logger
	tel observability.Observability
}

func NewHandler(svc Services, tel observability.Observability) *Handler {
	tel = observability.OrNop(tel)
	return &Handler{
		svc: svc,
		log: tel.Logger().With(observability.F("component", componentHTTPHandler)),
		tel: tel,
	}
}

type middleware func(http.Handler) http.Handler

func (h *Handler) Router() http.Handler {
	mux := http.NewServeMux()
	authed := []middleware{h.withAuth}
	admin := []middleware{h.withAuth, h.withAdmin}

	h.muxHandle(mux, "GET /health", h.handleHealth)

	h.muxHandle(mux, "POST /api/auth/register", h.handleRegister)
	h.muxHandle(mux, "POST /api/auth/login", h.handleLogin)

	h.muxHandle(mux, "GET /api/users/profile", h.handleGetProfile, authed...)
	h.muxHandle(mux, "PUT /api/users/profile", h.handleUpdateProfile, authed...)
	h.muxHandle(mux, "GET /api/users", h.handleListUsers, admin...)
	h.muxHandle(mux, "GET /api/users/{id}", h.handleGetUser, admin...)
	h.muxHandle(mux, "PUT /api/users/{id}", h.handleUpdateUser, admin...)
	h.muxHandle(mux, "DELETE /api/users/{id}", h.handleDeleteUser, admin...)

	h.muxHandle(mux, "GET /api/products", h.handleListProducts)
	h.muxHandle(mux, "GET /api/products/{id}", h.handleGetProduct)
	h.muxHandle(mux, "POST /api/products", h.handleCreateProduct, admin...)
	h.muxHandle(mux, "PUT /api/products/{id}", h.handleUpdateProduct, admin...)
	h.muxHandle(mux, "DELETE /api/products/{id}", h.handleDeleteProduct, admin...)

	h.muxHandle(mux, "POST /api/orders", h.handleCreateOrder, authed...)
	h.muxHandle(mux, "GET /api/orders/myorders", h.handleMyOrders, authed...)
	h.muxHandle(mux, "GET /api/orders", h.handleListOrders, admin...)
	h.muxHandle(mux, "GET /api/orders/{id}", h.handleGetOrder, authed...)
	h.muxHandle(mux, "PUT /api/orders/{id}/pay", h.handlePayOrder, authed...)
	h.muxHandle(mux, "PUT /api/orders/{id}/cancel", h.handleCancelOrder, authed...)
	h.muxHandle(mux, "PUT /api/orders/{id}/deliver", h.handleDeliverOrder, admin...)
	h.muxHandle(mux, "PUT /api/orders/{id}/status", h.handleSetOrderStatus, admin...)

	h.muxHandle(mux, "GET /api/payment/config", h.handlePaymentConfig)
	h.muxHandle(mux, "POST /api/payment/webhook/{provider}", h.handleWebhook)
	h.muxHandle(mux, "GET /api/payment/esewa/success", h.handleEsewaSuccess)
	h.muxHandle(mux, "GET /api/payment/esewa/failure", h.handleEsewaFailure)
	h.muxHandle(mux, "POST /api/payment/esewa/mock", h.handleEsewaMock, authed...)
	h.muxHandle(mux, "POST /api/payment/verify", h.handleVerifyPayment, authed...)
	h.muxHandle(mux, "POST /api/payment/qr", h.handleBankTransferQR, authed...)
	h.muxHandle(mux, "POST /api/payment/khalti/initiate", h.handleKhaltiInitiate, authed...)
	h.muxHandle(mux, "POST /api/payment/esewa/initiate", h.handleEsewaInitiate, authed...)

	h.muxHandle(mux, "GET /api/cart", h.handleGetCart)
	h.muxHandle(mux, "DELETE /api/cart", h.handleClearCart)
	h.muxHandle(mux, "POST /api/cart/items", h.handleAddCartItem)
	h.muxHandle(mux, "PUT /api/cart/items/{productID}", h.handleSetCartQuantity)
	h.muxHandle(mux, "DELETE /api/cart/items/{productID}", h.handleRemoveCartItem)

	return mux
}

// muxHandle registers route (a "METHOD /path" pattern) wrapped as
// Trace → Request Logger → Access Log → Metrics → guards → Handler.
func (h *Handler) muxHandle(mux *http.ServeMux, route string, handler http.HandlerFunc, guards ...middleware) {
	var inner http.Handler = handler
	for i := len(guards) - 1; i >= 0; i-- {
		inner = guards[i](inner)
	}

	wrapped := h.withTrace(
		ObservabilityMiddleware(
			h.log,
			func(r *http.Request) string {
				return r.Header.Get(headerRequestID)
			},
		)(
			h.withAccessLog(
				h.withHTTPMetrics(inner),
			),
		),
	)

	mux.HandleFunc(route, func(w http.ResponseWriter, r *http.Request) {
		// Store stable route template for low-cardinality labels
		wrapped.ServeHTTP(w, r.WithContext(contextWithRoute(r.Context(), route)))
	})
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok"))
}

var errBadBody = apperr.Validation("invalid request body")

func decodeJSON(r *http.Request, dst any) error {
	decoder := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	if err := decoder.Decode(dst); err != nil {
		return errBadBody
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type messageResponse struct {
	Message string `json:"message"`
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, messageResponse{Message: msg})
}

func statusOf(err error) int {
	switch {
	case errors.Is(err, apperr.ErrValidation),
		errors.Is(err, apperr.ErrPaymentVerification):
		return http.StatusBadRequest
	case errors.Is(err, apperr.ErrUnauthenticated):
		return http.StatusUnauthorized
	case errors.Is(err, apperr.ErrForbidden):
		return http.StatusForbidden
	case errors.Is(err, apperr.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, apperr.ErrConflict),
		errors.Is(err, apperr.ErrInvalidState):
		return http.StatusConflict
	}
	return http.StatusInternalServerError
}

// writeDomainError answers {"message"} with the status of err's kind.
// Unkinded errors are logged and hidden behind a generic message.
func (h *Handler) writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusOf(err)
	if status == http.StatusInternalServerError {
		logctx.FromOr(r.Context(), h.log).Error("http_unexpected_error",
			observability.F("route", routeFromContext(r.Context())),
			observability.F("error", err),
		)
		writeMessage(w, status, "internal server error")
		return
	}
	writeMessage(w, status, apperr.Message(err))
}
