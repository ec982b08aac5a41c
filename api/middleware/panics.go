package middleware

import (
	"context"
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/vuonxanh/plantstore/api/web"
)

// Panics converts panics in the handler chain into ordinary errors so the
// Errors middleware can render them.
func Panics() web.Middleware {
	m := func(handler web.Handler) web.Handler {
		h := func(ctx context.Context, w http.ResponseWriter, r *http.Request) (err error) {

			defer func() {
				if rec := recover(); rec != nil {
					trace := debug.Stack()
					err = fmt.Errorf("PANIC [%v] TRACE[%s]", rec, string(trace))
				}
			}()

			return handler(ctx, w, r)
		}
		return h
	}
	return m
}
