package handler

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-faster/errors"

	"github.com/xenking/orderflow/internal/domain/apperr"
	"github.com/xenking/orderflow/internal/domain/order"
)

type placeOrderBody struct {
	AddressID  string `json:"addressId" validate:"required,max=64"`
	CouponCode string `json:"couponCode" validate:"max=64"`
}

type updateStatusBody struct {
	Status         string  `json:"status" validate:"required,max=32"`
	TrackingNumber *string `json:"trackingNumber" validate:"omitempty,max=128"`
}

// decode reads a JSON body into dst and validates it.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return apperr.WithCause(apperr.KindBadRequest, err, "malformed request body")
	}
	return h.validate.Struct(dst)
}

// PlaceOrder handles POST /api/orders.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var body placeOrderBody
	if err := h.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.orders.PlaceOrder(r.Context(), actor.UserID, order.PlaceOrderRequest{
		AddressID:  body.AddressID,
		CouponCode: body.CouponCode,
	})
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// UpdateStatus handles PUT /api/orders/{id}/status.
func (h *Handler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	var body updateStatusBody
	if err := h.decode(w, r, &body); err != nil {
		writeError(w, r, err)
		return
	}
	v, err := h.orders.UpdateStatus(r.Context(), r.PathValue("id"), order.UpdateStatusRequest{
		Status:         body.Status,
		TrackingNumber: body.TrackingNumber,
	}, actor)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// GetOrder handles GET /api/orders/{id}.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())

	v, err := h.orders.GetOrder(r.Context(), actor, r.PathValue("id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, v)
}

// ListOrders handles GET /api/orders?status=&limit=&offset=.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	actor, _ := ActorFrom(r.Context())
	q := r.URL.Query()

	var req order.ListRequest
	if s := q.Get("status"); s != "" {
		st, ok := order.ParseStatus(s)
		if !ok {
			writeError(w, r, apperr.BadRequest("unknown status %q", s))
			return
		}
		req.Status = st
	}
	var err error
	if req.Limit, err = intParam(q.Get("limit")); err != nil {
		writeError(w, r, apperr.WithCause(apperr.KindBadRequest, err, "limit must be a non-negative integer"))
		return
	}
	if req.Offset, err = intParam(q.Get("offset")); err != nil {
		writeError(w, r, apperr.WithCause(apperr.KindBadRequest, err, "offset must be a non-negative integer"))
		return
	}

	views, err := h.orders.ListOrders(r.Context(), actor, req)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if views == nil {
		views = []order.View{}
	}
	writeJSON(w, http.StatusOK, views)
}

func intParam(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, err
	}
	if n < 0 {
		return 0, errors.Errorf("negative value %d", n)
	}
	return n, nil
}
