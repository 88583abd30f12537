package logger

import (
	"context"
	"log/slog"
	"storefront/pkg/ctxutil"
)

type RequestIDHandler struct {
	slog.Handler
}

func (h *RequestIDHandler) Handle(ctx context.Context, r slog.Record) error {
	requestID := ctxutil.GetRequestID(ctx)
	if requestID != "" {
		r.AddAttrs(slog.String("request_id", requestID))
	}
	if subject, seq, ok := ctxutil.GetDelivery(ctx); ok {
		r.AddAttrs(slog.String("subject", subject), slog.Uint64("stream_seq", seq))
	}
	return h.Handler.Handle(ctx, r)
}

func (h *RequestIDHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &RequestIDHandler{Handler: h.Handler.WithAttrs(attrs)}
}

func (h *RequestIDHandler) WithGroup(name string) slog.Handler {
	return &RequestIDHandler{Handler: h.Handler.WithGroup(name)}
}
