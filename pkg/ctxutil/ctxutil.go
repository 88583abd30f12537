package ctxutil

import "context"

type ctxKey string

const (
	RequestIDKey ctxKey = "request_id"
	SubjectKey   ctxKey = "subject"
	StreamSeqKey ctxKey = "stream_seq"
)

func WithRequestID(ctx context.Context, reqID string) context.Context {
	return context.WithValue(ctx, RequestIDKey, reqID)
}

func GetRequestID(ctx context.Context) string {
	if v := ctx.Value(RequestIDKey); v != nil {
		if id, ok := v.(string); ok {
			return id
		}
	}
	return ""
}

// WithDelivery tags ctx with the broker subject and stream sequence of the
// message being handled.
func WithDelivery(ctx context.Context, subject string, streamSeq uint64) context.Context {
	ctx = context.WithValue(ctx, SubjectKey, subject)
	return context.WithValue(ctx, StreamSeqKey, streamSeq)
}

func GetDelivery(ctx context.Context) (string, uint64, bool) {
	subject, ok := ctx.Value(SubjectKey).(string)
	if !ok {
		return "", 0, false
	}
	seq, _ := ctx.Value(StreamSeqKey).(uint64)
	return subject, seq, true
}
