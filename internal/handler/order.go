package handler

import (
	"context"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/zap"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/order"
)

// PlaceOrder creates an order from the request body and pays it in the same
// step. With ?pay=false the order is stored unpaid.
func (h *Handler) PlaceOrder(w http.ResponseWriter, r *http.Request) {
	raw, err := readObject(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}

	place := h.orders.Place
	if v := r.URL.Query().Get("pay"); v != "" {
		pay, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, r, errs.Validation("pay", "must be a boolean"))
			return
		}
		if !pay {
			place = h.orders.Create
		}
	}

	o, err := place(r.Context(), raw)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Order placed",
		zap.String("order_id", o.ID()),
		zap.String("customer", o.Customer()),
		zap.String("status", o.Status().String()),
		zap.Stringer("total", o.Total()),
	)
	w.Header().Set("Location", "/api/orders/"+url.PathEscape(o.ID()))
	writeJSON(w, http.StatusCreated, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// GetOrder returns a single order by ID.
func (h *Handler) GetOrder(w http.ResponseWriter, r *http.Request) {
	o, err := h.orders.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// ListOrders returns the orders matching the query filters: shipmentDate,
// startDate and endDate, customer, paid and withCanceled. At least one of
// the first three is required. Canceled and rejected orders are listed
// unless withCanceled=false.
func (h *Handler) ListOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	f, err := flagFilter(q, false)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Customer = strings.TrimSpace(q.Get("customer"))

	if v := q.Get("shipmentDate"); v != "" {
		d, err := daterange.ParseDate(v)
		if err != nil {
			writeError(w, r, errs.Validation("shipmentDate", err.Error()))
			return
		}
		f.ShipmentDate = &d
	}

	f.Range, err = daterange.Parse(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, err)
		return
	}

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// CustomerOrders lists the orders of one customer. Missing range bounds
// default to Monday of last week and Friday of next week. Closed orders are
// hidden unless withCanceled=true.
func (h *Handler) CustomerOrders(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	customer := chi.URLParam(r, "customer")

	f, err := flagFilter(q, true)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Customer = customer

	window, err := customerWindow(q.Get("startDate"), q.Get("endDate"), h.clock.Now(), h.loc)
	if err != nil {
		writeError(w, r, err)
		return
	}
	f.Range = &window

	orders, err := h.orders.List(r.Context(), f)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if len(orders) == 0 {
		writeError(w, r, errs.NotFound("orders of customer", customer))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrders(e, orders) })
}

// ChangeAddress replaces the delivery address from the body {"address": ...}.
func (h *Handler) ChangeAddress(w http.ResponseWriter, r *http.Request) {
	raw, err := readObject(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	address, ok := raw["address"].(string)
	if !ok {
		writeError(w, r, errs.Validation("address", "address is required"))
		return
	}

	o, err := h.orders.ChangeAddress(r.Context(), chi.URLParam(r, "id"), address)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// PayOrder pays an order created with ?pay=false.
func (h *Handler) PayOrder(w http.ResponseWriter, r *http.Request) {
	o, _, err := h.orders.Pay(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// CancelOrder cancels an order. The reason is read from the body
// {"reason": ...} or the reason query parameter.
func (h *Handler) CancelOrder(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.orders.Cancel)
}

// RejectOrder is the operator override; see SecurityHandler.RequireScope.
func (h *Handler) RejectOrder(w http.ResponseWriter, r *http.Request) {
	h.close(w, r, h.orders.Reject)
}

func (h *Handler) close(
	w http.ResponseWriter,
	r *http.Request,
	fn func(ctx context.Context, id, reason string) (*order.Order, order.Transaction, error),
) {
	raw, err := readObject(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	reason, _ := raw["reason"].(string)
	if reason == "" {
		reason = r.URL.Query().Get("reason")
	}

	id := chi.URLParam(r, "id")
	o, tx, err := fn(r.Context(), id, reason)
	if err != nil {
		writeError(w, r, err)
		return
	}

	zctx.From(r.Context()).Info("Order closed",
		zap.String("order_id", id),
		zap.String("status", o.Status().String()),
		zap.Stringer("refund", tx.Amount),
	)
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeOrder(e, o) })
}

// flagFilter reads the paid and withCanceled query flags. Without
// withCanceled, closed orders are excluded when excludeClosed is set.
func flagFilter(q url.Values, excludeClosed bool) (order.Filter, error) {
	f := order.Filter{ExcludeClosed: excludeClosed}
	if v := q.Get("paid"); v != "" {
		paid, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.Validation("paid", "must be a boolean")
		}
		f.Paid = &paid
	}
	if v := q.Get("withCanceled"); v != "" {
		withCanceled, err := strconv.ParseBool(v)
		if err != nil {
			return f, errs.Validation("withCanceled", "must be a boolean")
		}
		f.ExcludeClosed = !withCanceled
	}
	return f, nil
}
