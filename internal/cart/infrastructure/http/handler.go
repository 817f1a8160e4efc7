package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/cart/application"
	"github.com/dmehra2102/order-fulfillment/internal/cart/domain"
	inventory "github.com/dmehra2102/order-fulfillment/internal/inventory/domain"
)

// CustomerHeader carries the authenticated customer id, set by the gateway
// in front of this service.
const CustomerHeader = "X-Customer-ID"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("cart-http"),
	}
}

// Mount registers the cart routes on r.
func (h *Handler) Mount(r chi.Router) {
	r.Route("/cart", func(r chi.Router) {
		r.Get("/", h.getCart)
		r.Delete("/", h.clearCart)
		r.Post("/items", h.addItem)
		r.Post("/items/{productID}/decrease", h.decreaseItem)
		r.Delete("/items/{productID}", h.removeItem)
	})
}

type quantityReq struct {
	ProductID string `json:"product_id"`
	Quantity  int    `json:"quantity"`
}

type lineResp struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
	Subtotal  decimal.Decimal `json:"subtotal"`
}

type cartResp struct {
	ID         string          `json:"id,omitempty"`
	CustomerID string          `json:"customer_id"`
	Lines      []lineResp      `json:"lines"`
	Total      decimal.Decimal `json:"total"`
}

func (h *Handler) getCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetCart")
	defer span.End()

	customerID, ok := customer(w, r)
	if !ok {
		return
	}
	c, err := h.service.Get(ctx, customerID)
	if errors.Is(err, domain.ErrCartNotFound) {
		c = &domain.Cart{CustomerID: customerID}
	} else if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(c))
}

func (h *Handler) addItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "AddCartItem")
	defer span.End()

	customerID, ok := customer(w, r)
	if !ok {
		return
	}
	var req quantityReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.ProductID == "" {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}
	c, err := h.service.AddItem(ctx, customerID, req.ProductID, req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(c))
}

func (h *Handler) decreaseItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "DecreaseCartItem")
	defer span.End()

	customerID, ok := customer(w, r)
	if !ok {
		return
	}
	req := quantityReq{Quantity: 1}
	if r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid body", http.StatusBadRequest)
			return
		}
	}
	c, err := h.service.DecreaseItem(ctx, customerID, chi.URLParam(r, "productID"), req.Quantity)
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(c))
}

func (h *Handler) clearCart(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "ClearCart")
	defer span.End()

	customerID, ok := customer(w, r)
	if !ok {
		return
	}
	if err := h.service.Clear(ctx, customerID); err != nil {
		h.fail(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) removeItem(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "RemoveCartItem")
	defer span.End()

	customerID, ok := customer(w, r)
	if !ok {
		return
	}
	c, err := h.service.RemoveItem(ctx, customerID, chi.URLParam(r, "productID"))
	if err != nil {
		h.fail(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toResp(c))
}

func (h *Handler) fail(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, domain.ErrCartNotFound), errors.Is(err, domain.ErrLineNotFound), errors.Is(err, inventory.ErrProductNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		h.log.Error("cart request failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
	}
}

func customer(w http.ResponseWriter, r *http.Request) (string, bool) {
	id := r.Header.Get(CustomerHeader)
	if id == "" {
		http.Error(w, "missing "+CustomerHeader, http.StatusUnauthorized)
		return "", false
	}
	return id, true
}

func toResp(c *domain.Cart) cartResp {
	resp := cartResp{ID: c.ID, CustomerID: c.CustomerID, Lines: []lineResp{}, Total: c.Total()}
	for _, l := range c.Lines {
		resp.Lines = append(resp.Lines, lineResp{
			ProductID: l.ProductID,
			Quantity:  l.Quantity,
			UnitPrice: l.UnitPrice,
			Subtotal:  l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity))),
		})
	}
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
