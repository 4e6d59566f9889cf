package transport

import (
	"context"
	"net/http"
)

type ctxKey string

const verboseErrorsKey ctxKey = "verboseErrors"

// WithVerboseErrors controls whether internal error causes are rendered to
// clients. Only enabled outside production.
func WithVerboseErrors(ctx context.Context, on bool) context.Context {
	return context.WithValue(ctx, verboseErrorsKey, on)
}

func VerboseErrors(ctx context.Context) bool {
	on, _ := ctx.Value(verboseErrorsKey).(bool)
	return on
}

// ErrorDetail is middleware that sets the verbose flag for every request.
func ErrorDetail(on bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			next.ServeHTTP(w, r.WithContext(WithVerboseErrors(r.Context(), on)))
		})
	}
}
