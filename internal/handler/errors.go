package handler

import (
	"net/http"

	"github.com/go-faster/errors"
	"github.com/go-faster/jx"
	"github.com/go-faster/sdk/zctx"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/xenking/lunch-orders/internal/domain/errs"
)

// writeError maps domain errors to HTTP responses. Combined line-item
// failures are listed individually under "errors".
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	all := multierr.Errors(err)
	if len(all) > 1 {
		status := http.StatusBadRequest
		for _, e := range all {
			var liErr *errs.LineItemError
			if errors.As(e, &liErr) {
				status = http.StatusUnprocessableEntity
			}
		}
		writeJSON(w, status, func(e *jx.Encoder) {
			e.Obj(func(e *jx.Encoder) {
				e.Field("code", func(e *jx.Encoder) { e.Int(status) })
				e.Field("message", func(e *jx.Encoder) { e.Str("invalid order") })
				e.Field("errors", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) {
						for _, member := range all {
							encodeErrorDetail(e, member)
						}
					})
				})
			})
		})
		return
	}

	status := statusOf(err)
	if status == http.StatusInternalServerError {
		zctx.From(r.Context()).Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Error(err),
		)
	}

	message := err.Error()
	if status == http.StatusInternalServerError {
		message = "internal error"
	}
	writeJSON(w, status, func(e *jx.Encoder) {
		e.Obj(func(e *jx.Encoder) {
			e.Field("code", func(e *jx.Encoder) { e.Int(status) })
			e.Field("message", func(e *jx.Encoder) { e.Str(message) })
			if status == http.StatusBadRequest || status == http.StatusUnprocessableEntity {
				e.Field("errors", func(e *jx.Encoder) {
					e.Arr(func(e *jx.Encoder) { encodeErrorDetail(e, err) })
				})
			}
		})
	})
}

func statusOf(err error) int {
	var (
		vErr  *errs.ValidationError
		liErr *errs.LineItemError
		nfErr *errs.NotFoundError
		stErr *errs.StateTransitionError
		cErr  *errs.ConflictError
	)
	switch {
	case errors.As(err, &vErr):
		return http.StatusBadRequest
	case errors.As(err, &liErr):
		return http.StatusUnprocessableEntity
	case errors.As(err, &nfErr):
		return http.StatusNotFound
	case errors.As(err, &stErr), errors.As(err, &cErr):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func encodeErrorDetail(e *jx.Encoder, err error) {
	var (
		vErr  *errs.ValidationError
		liErr *errs.LineItemError
	)
	e.Obj(func(e *jx.Encoder) {
		switch {
		case errors.As(err, &vErr):
			if vErr.Field != "" {
				e.Field("field", func(e *jx.Encoder) { e.Str(vErr.Field) })
			}
			e.Field("message", func(e *jx.Encoder) { e.Str(vErr.Message) })
		case errors.As(err, &liErr):
			e.Field("productId", func(e *jx.Encoder) { e.Str(liErr.ProductID) })
			e.Field("message", func(e *jx.Encoder) { e.Str(liErr.Message) })
		default:
			e.Field("message", func(e *jx.Encoder) { e.Str(err.Error()) })
		}
	})
}
