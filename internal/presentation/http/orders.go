package httppresentation

import (
	"net/http"

	apporder "github.com/Zhima-Mochi/sportsphere/internal/application/order"
	apppay "github.com/Zhima-Mochi/sportsphere/internal/application/payment"
	"github.com/Zhima-Mochi/sportsphere/internal/domain/order"
)

// createOrderRequest mirrors the cart checkout payload. Item names, images
// and prices the client sends are ignored in favour of the catalog.
type createOrderRequest struct {
	OrderItems []struct {
		Product string `json:"product"`
		Qty     int    `json:"qty"`
	} `json:"orderItems"`
	ShippingAddress order.ShippingAddress `json:"shippingAddress"`
	PaymentMethod   string                `json:"paymentMethod"`
	Notes           string                `json:"notes"`
	order.Pricing
}

func (h *Handler) handleCreateOrder(w http.ResponseWriter, r *http.Request) {
	var req createOrderRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	in := apporder.CreateInput{
		AccountID:       requester(r).AccountID,
		ShippingAddress: req.ShippingAddress,
		PaymentMethod:   req.PaymentMethod,
		Notes:           req.Notes,
	}
	for _, it := range req.OrderItems {
		in.Items = append(in.Items, apporder.ItemInput{ProductID: it.Product, Qty: it.Qty})
	}
	if req.TotalPrice != 0 {
		client := req.Pricing
		in.ClientPricing = &client
	}

	o, err := h.svc.Orders.Create(r.Context(), in)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, o)
}

func (h *Handler) handleMyOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListMine(r.Context(), requester(r).AccountID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleListOrders(w http.ResponseWriter, r *http.Request) {
	orders, err := h.svc.Orders.ListAll(r.Context(), requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, orders)
}

func (h *Handler) handleGetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Get(r.Context(), r.PathValue("id"), requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type payOrderRequest struct {
	ID           string `json:"id"`
	Status       string `json:"status"`
	UpdateTime   string `json:"update_time"`
	EmailAddress string `json:"email_address"`
}

// handlePayOrder is the manual confirmation path: admins confirm offline
// payments, owners may confirm online ones against a sandbox provider.
func (h *Handler) handlePayOrder(w http.ResponseWriter, r *http.Request) {
	var req payOrderRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(r, &req); err != nil {
			h.writeDomainError(w, r, err)
			return
		}
	}

	o, err := h.svc.Payments.Verify(r.Context(), apppay.VerifyInput{
		OrderID:   r.PathValue("id"),
		PaymentID: req.ID,
	}, requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (h *Handler) handleDeliverOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.MarkDelivered(r.Context(), r.PathValue("id"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type setStatusRequest struct {
	Status string `json:"status"`
}

func (h *Handler) handleSetOrderStatus(w http.ResponseWriter, r *http.Request) {
	var req setStatusRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	o, err := h.svc.Orders.SetStatus(r.Context(), r.PathValue("id"), req.Status)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

type cancelResponse struct {
	Message string       `json:"message"`
	Order   *order.Order `json:"order"`
}

func (h *Handler) handleCancelOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.svc.Orders.Cancel(r.Context(), r.PathValue("id"), requester(r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, cancelResponse{Message: "Order cancelled successfully", Order: o})
}
