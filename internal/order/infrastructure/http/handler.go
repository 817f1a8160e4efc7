package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"

	"github.com/dmehra2102/order-fulfillment/internal/order/application"
	"github.com/dmehra2102/order-fulfillment/internal/order/domain"
)

const customerHeader = "X-Customer-ID"

type Handler struct {
	log     *slog.Logger
	service *application.Service
	tracer  trace.Tracer
}

func NewHandler(log *slog.Logger, service *application.Service) *Handler {
	return &Handler{
		log:     log,
		service: service,
		tracer:  otel.Tracer("order-http"),
	}
}

func (h *Handler) Mount(r chi.Router) {
	r.Post("/checkout", h.checkout)
	r.Get("/orders/{id}", h.getOrder)
}

type checkoutReq struct {
	Address       domain.Address `json:"address"`
	PaymentMethod string         `json:"payment_method"`
}

func (h *Handler) checkout(w http.ResponseWriter, r *http.Request) {
	ctx := otel.GetTextMapPropagator().Extract(r.Context(), propagation.HeaderCarrier(r.Header))
	ctx, span := h.tracer.Start(ctx, "Checkout")
	defer span.End()

	customerID := r.Header.Get(customerHeader)
	if customerID == "" {
		http.Error(w, "missing "+customerHeader, http.StatusUnauthorized)
		return
	}
	var req checkoutReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid body", http.StatusBadRequest)
		return
	}

	orderID, err := h.service.InitiateCheckout(ctx, customerID, req.Address, req.PaymentMethod)
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		http.Error(w, err.Error(), http.StatusUnprocessableEntity)
		return
	case errors.Is(err, domain.ErrInvalidCheckout):
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	case err != nil:
		h.log.Error("checkout failed", "customer_id", customerID, "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Location", "/orders/"+orderID)
	writeJSON(w, http.StatusAccepted, map[string]string{"status": "accepted", "order_id": orderID})
}

type itemResp struct {
	ProductID string          `json:"product_id"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unit_price"`
}

type orderResp struct {
	ID              string          `json:"id"`
	CustomerID      string          `json:"customer_id"`
	Status          string          `json:"status"`
	TotalAmount     decimal.Decimal `json:"total_amount"`
	Items           []itemResp      `json:"items"`
	ShippingAddress domain.Address  `json:"shipping_address"`
	Payment         struct {
		Amount         decimal.Decimal `json:"amount"`
		Currency       string          `json:"currency"`
		Method         string          `json:"method"`
		Status         string          `json:"status"`
		TransactionRef string          `json:"transaction_ref"`
	} `json:"payment"`
	Shipping struct {
		Cost              decimal.Decimal `json:"cost"`
		EstimatedDelivery time.Time       `json:"estimated_delivery"`
		LiveQuote         bool            `json:"live_quote"`
		Carrier           string          `json:"carrier,omitempty"`
		TrackingCode      string          `json:"tracking_code,omitempty"`
	} `json:"shipping"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) getOrder(w http.ResponseWriter, r *http.Request) {
	ctx, span := h.tracer.Start(r.Context(), "GetOrder")
	defer span.End()

	o, err := h.service.GetOrder(ctx, chi.URLParam(r, "id"))
	if errors.Is(err, domain.ErrOrderNotFound) {
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	}
	if err != nil {
		h.log.Error("get order failed", "err", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
	writeJSON(w, http.StatusOK, toResp(o))
}

func toResp(o domain.Order) orderResp {
	resp := orderResp{
		ID:              o.ID,
		CustomerID:      o.CustomerID,
		Status:          string(o.Status),
		TotalAmount:     o.TotalAmount,
		ShippingAddress: o.ShippingAddress,
		CreatedAt:       o.CreatedAt,
	}
	for _, item := range o.Items {
		resp.Items = append(resp.Items, itemResp{ProductID: item.ProductID, Quantity: item.Quantity, UnitPrice: item.UnitPrice})
	}
	resp.Payment.Amount = o.Payment.Amount
	resp.Payment.Currency = o.Payment.Currency
	resp.Payment.Method = o.Payment.Method
	resp.Payment.Status = string(o.Payment.Status)
	resp.Payment.TransactionRef = o.Payment.TransactionRef
	resp.Shipping.Cost = o.Shipping.Cost
	resp.Shipping.EstimatedDelivery = o.Shipping.EstimatedDelivery
	resp.Shipping.LiveQuote = o.Shipping.LiveQuote
	resp.Shipping.Carrier = o.Shipping.Carrier
	resp.Shipping.TrackingCode = o.Shipping.TrackingCode
	return resp
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
