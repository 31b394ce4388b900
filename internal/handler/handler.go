// Package handler exposes the lunch ordering use cases over HTTP.
package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/jonboulle/clockwork"

	"github.com/xenking/lunch-orders/internal/domain/auth"
	"github.com/xenking/lunch-orders/internal/domain/errs"
	"github.com/xenking/lunch-orders/internal/domain/order"
	"github.com/xenking/lunch-orders/internal/domain/price"
	"github.com/xenking/lunch-orders/internal/domain/product"
)

const maxBodyBytes = 1 << 20

// HandlerConfig holds non-dependency configuration for the Handler.
type HandlerConfig struct {
	// Location is the business time zone used for "today" and the default
	// customer order window. Defaults to UTC.
	Location *time.Location
	// APIKeyPepper is the HMAC key used to hash operator API keys.
	APIKeyPepper []byte
}

// Handler serves the /api routes, delegating business logic to the order
// service and the catalog.
type Handler struct {
	orders   *order.Service
	catalog  *price.Catalog
	products product.Repository
	security *SecurityHandler
	clock    clockwork.Clock
	loc      *time.Location
}

// NewHandler constructs a Handler with the required domain dependencies.
func NewHandler(
	cfg HandlerConfig,
	orders *order.Service,
	catalog *price.Catalog,
	products product.Repository,
	apikeys auth.Repository,
	clock clockwork.Clock,
) *Handler {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	return &Handler{
		orders:   orders,
		catalog:  catalog,
		products: products,
		security: NewSecurityHandler(apikeys, cfg.APIKeyPepper),
		clock:    clock,
		loc:      loc,
	}
}

// Routes returns the router for every /api endpoint.
func (h *Handler) Routes() http.Handler {
	r := chi.NewRouter()
	r.Route("/api", func(r chi.Router) {
		r.Get("/products", h.ListProducts)
		r.Get("/products/{id}", h.GetProduct)
		r.Get("/prices", h.ListPrices)

		r.Route("/orders", func(r chi.Router) {
			r.Get("/", h.ListOrders)
			r.Post("/", h.PlaceOrder)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetOrder)
				r.Patch("/", h.ChangeAddress)
				r.Post("/pay", h.PayOrder)
				r.Post("/cancel", h.CancelOrder)
				r.With(h.security.RequireScope(auth.ScopeRejectOrder)).Post("/reject", h.RejectOrder)
			})
		})

		r.Get("/customers/{customer}/orders", h.CustomerOrders)
	})
	return r
}

func writeJSON(w http.ResponseWriter, status int, encode func(e *jx.Encoder)) {
	var e jx.Encoder
	encode(&e)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(e.Bytes())
}

// readObject decodes the request body as a JSON object. An empty body
// yields an empty map.
func readObject(w http.ResponseWriter, r *http.Request) (map[string]any, error) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return nil, errs.Validation("body", "cannot read request body")
	}
	if len(data) == 0 {
		return map[string]any{}, nil
	}
	m, err := decodeObject(data)
	if err != nil {
		return nil, errs.Validation("body", errors.Wrap(err, "invalid json").Error())
	}
	return m, nil
}
