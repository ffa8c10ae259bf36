package middleware

import "context"

type ctxKey string

const ctxTerminalID ctxKey = "terminal_id"

// TerminalIDFromContext returns the authenticated terminal id, if any.
func TerminalIDFromContext(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(ctxTerminalID).(string)
	return id, ok && id != ""
}
