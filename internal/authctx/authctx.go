// Package authctx carries the authenticated session through request contexts.
package authctx

import (
	"context"

	"github.com/and161185/vazadinhas/internal/model"
)

type ctxKey string

const sessionKey ctxKey = "vz.session"

// WithSession stores the authenticated session in context.
func WithSession(ctx context.Context, s *model.Session) context.Context {
	return context.WithValue(ctx, sessionKey, s)
}

// SessionFromCtx fetches the session from context.
func SessionFromCtx(ctx context.Context) (*model.Session, bool) {
	s, ok := ctx.Value(sessionKey).(*model.Session)
	return s, ok && s != nil
}
