package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/jjtg/htmx-demo/logger"
	"github.com/jjtg/htmx-demo/notifier"
)

// Recover turns a panic in next into a bare 500 and reports it to alerter,
// which may be nil.
func Recover(alerter notifier.Alerter) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				v := recover()
				if v == nil {
					return
				}
				if v == http.ErrAbortHandler {
					panic(v)
				}

				logger.Error("Panic while serving request",
					"method", r.Method,
					"path", r.URL.Path,
					"panic", v,
					"stack", string(debug.Stack()),
				)
				if alerter != nil {
					alerter.Alert(r.Context(), fmt.Sprintf("panic in %s %s: %v", r.Method, r.URL.Path, v), "critical")
				}
				http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
