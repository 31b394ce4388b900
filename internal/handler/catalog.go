package handler

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"

	"github.com/xenking/lunch-orders/internal/domain/daterange"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

// maxPriceRangeDays bounds the price list of a single range request.
const maxPriceRangeDays = 92

// ListProducts returns every product in the catalog.
func (h *Handler) ListProducts(w http.ResponseWriter, r *http.Request) {
	products, err := h.products.List(r.Context())
	if err != nil {
		writeError(w, r, errors.Wrap(err, "list products"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProducts(e, products) })
}

// GetProduct returns a single product by ID.
func (h *Handler) GetProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	p, err := h.products.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, product.ErrNotFound) {
			writeError(w, r, errs.NotFound("product", id))
			return
		}
		writeError(w, r, errors.Wrap(err, "get product"))
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodeProduct(e, *p) })
}

// ListPrices returns the price list of one day (?date=) or of an inclusive
// range (?startDate=&endDate=), ordered by date.
func (h *Handler) ListPrices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if v := q.Get("date"); v != "" {
		d, err := daterange.ParseDate(v)
		if err != nil {
			writeError(w, r, errs.Validation("date", err.Error()))
			return
		}
		set, err := h.catalog.FindByDate(r.Context(), d)
		if err != nil {
			writeError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePrices(e, set) })
		return
	}

	rng, err := daterange.Parse(q.Get("startDate"), q.Get("endDate"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	if rng == nil {
		writeError(w, r, errs.Validation("date", "date or startDate and endDate are required"))
		return
	}
	if rng.Days() > maxPriceRangeDays {
		writeError(w, r, errs.Validation("endDate", fmt.Sprintf("range must not exceed %d days", maxPriceRangeDays)))
		return
	}

	set, err := h.catalog.FindByRange(r.Context(), *rng)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, func(e *jx.Encoder) { encodePrices(e, set) })
}
