package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/ironmonger/hardware-backend/api/responses"
	pkgerrors "github.com/ironmonger/hardware-backend/pkg/errors"
	"github.com/ironmonger/hardware-backend/pkg/logger"
)

// Recoverer turns a handler panic into a 500 envelope. http.ErrAbortHandler
// is re-raised so net/http can drop the connection as intended.
func Recoverer(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := pkgerrors.Wrap(pkgerrors.CodeInternal, fmt.Errorf("panic: %v", rec), "handler panicked")
				ctx := r.Context()
				if logg != nil {
					ctx = logg.WithField(ctx, "stack", string(debug.Stack()))
				}
				responses.WriteError(ctx, logg, w, err)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
