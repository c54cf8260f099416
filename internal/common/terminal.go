package common

import (
	"context"
	"net/http"
	"strings"
)

type ctxKey string

const terminalIDKey ctxKey = "pos/terminal-id"

// WithTerminal stores the calling register identifier on the context.
func WithTerminal(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, terminalIDKey, id)
}

// Terminal extracts the register identifier from the context if present.
func Terminal(ctx context.Context) (string, bool) {
	v := ctx.Value(terminalIDKey)
	if v == nil {
		return "", false
	}
	id, ok := v.(string)
	return id, ok
}

// TerminalMiddleware lifts the X-Terminal-ID header onto the request context
// so logs, locks and idempotency keys can attribute work to a register.
func TerminalMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if id := strings.TrimSpace(r.Header.Get("X-Terminal-ID")); id != "" {
			r = r.WithContext(WithTerminal(r.Context(), id))
		}
		next.ServeHTTP(w, r)
	})
}
