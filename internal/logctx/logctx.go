// Package logctx carries request and token details in a context so that log
// records emitted further down the call chain are annotated with them.
package logctx

import (
	"context"
	"log/slog"
)

// Handler decorates records with the req and token groups found in the
// record's context.
type Handler struct {
	slog.Handler
}

// NewLogger wraps h so every record it handles is decorated.
func NewLogger(h slog.Handler) *slog.Logger {
	return slog.New(Handler{Handler: h})
}

func (h Handler) Handle(ctx context.Context, r slog.Record) error {
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		r.AddAttrs(slog.Group("req",
			slog.String("id", rd.RequestID),
			slog.String("method", rd.Method),
			slog.String("path", rd.Path),
			slog.String("remote_addr", rd.RemoteAddr),
			slog.String("user_agent", rd.UserAgent),
		))
	}

	if td, ok := ctx.Value(tokenDataKey{}).(*TokenData); ok {
		r.AddAttrs(slog.Group("token",
			slog.String("sub", td.Subject),
			slog.String("token_use", td.TokenUse),
		))
	}

	return h.Handler.Handle(ctx, r)
}

func (h Handler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return Handler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h Handler) WithGroup(name string) slog.Handler {
	return Handler{Handler: h.Handler.WithGroup(name)}
}

type requestDataKey struct{}

// RequestData identifies the HTTP request being served.
type RequestData struct {
	RequestID  string
	Method     string
	Path       string
	RemoteAddr string
	UserAgent  string
}

func WithRequestData(ctx context.Context, data *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, data)
}

// RequestDataFrom returns the request data stored in ctx, if any.
func RequestDataFrom(ctx context.Context) (*RequestData, bool) {
	rd, ok := ctx.Value(requestDataKey{}).(*RequestData)
	return rd, ok
}

type tokenDataKey struct{}

// TokenData identifies the principal of an authenticated request.
type TokenData struct {
	Subject  string
	TokenUse string
}

func WithTokenData(ctx context.Context, data *TokenData) context.Context {
	return context.WithValue(ctx, tokenDataKey{}, data)
}
