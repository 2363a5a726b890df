package httppresentation

import (
	"net/http"
	"strings"

	"github.com/Zhima-Mochi/sportsphere/internal/domain/cart"
)

// cartID returns the device cart id, issuing a new one when the client has
// none yet. The id is always echoed back in X-Cart-ID.
func (h *Handler) cartID(w http.ResponseWriter, r *http.Request) string {
	id := strings.TrimSpace(r.Header.Get(headerCartID))
	if id == "" {
		id = h.svc.IDs.NewID()
	}
	w.Header().Set(headerCartID, id)
	return id
}

type cartResponse struct {
	*cart.Cart
	ItemsPrice float64 `json:"itemsPrice"`
	Count      int     `json:"count"`
}

func writeCart(w http.ResponseWriter, c *cart.Cart) {
	writeJSON(w, http.StatusOK, cartResponse{Cart: c, ItemsPrice: c.ItemsPrice().Float(), Count: c.Count()})
}

func (h *Handler) handleGetCart(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Carts.Load(r.Context(), h.cartID(w, r))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCart(w, c)
}

func (h *Handler) handleClearCart(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Carts.Clear(r.Context(), h.cartID(w, r)); err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type addCartItemRequest struct {
	ProductID string `json:"productId"`
}

func (h *Handler) handleAddCartItem(w http.ResponseWriter, r *http.Request) {
	id := h.cartID(w, r)
	var req addCartItemRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	c, err := h.svc.Carts.Add(r.Context(), id, req.ProductID)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCart(w, c)
}

type setCartQuantityRequest struct {
	Qty int `json:"qty"`
}

func (h *Handler) handleSetCartQuantity(w http.ResponseWriter, r *http.Request) {
	id := h.cartID(w, r)
	var req setCartQuantityRequest
	if err := decodeJSON(r, &req); err != nil {
		h.writeDomainError(w, r, err)
		return
	}

	c, err := h.svc.Carts.SetQuantity(r.Context(), id, r.PathValue("productID"), req.Qty)
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCart(w, c)
}

func (h *Handler) handleRemoveCartItem(w http.ResponseWriter, r *http.Request) {
	c, err := h.svc.Carts.Remove(r.Context(), h.cartID(w, r), r.PathValue("productID"))
	if err != nil {
		h.writeDomainError(w, r, err)
		return
	}
	writeCart(w, c)
}
