package log

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors"
)

// ErrorKindAttrKey は根本原因のエラー型（例: *errors.SchemaError）
const ErrorKindAttrKey = "error.kind"

// ErrFmtHandler decorates records that carry an ErrAttr with the error's
// stack trace and the type of its root cause, so a failed CLI run can be
// traced back to a schema, data or model error from the log line alone.
type ErrFmtHandler struct {
	next slog.Handler
}

// WrapByErrFmtHandler wraps next with ErrFmtHandler.
func WrapByErrFmtHandler(next slog.Handler) slog.Handler {
	return &ErrFmtHandler{next: next}
}

func (h *ErrFmtHandler) Enabled(ctx context.Context, l slog.Level) bool {
	return h.next.Enabled(ctx, l)
}

func (h *ErrFmtHandler) Handle(ctx context.Context, r slog.Record) error {
	if err := recordError(r); err != nil {
		if st := stacktraceOf(err); st != "" {
			r.AddAttrs(slog.String(StacktraceAttrKey, st))
		}
		r.AddAttrs(slog.String(ErrorKindAttrKey, fmt.Sprintf("%T", errors.UnwrapAll(err))))
	}
	return h.next.Handle(ctx, r)
}

func (h *ErrFmtHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithAttrs(attrs)}
}

func (h *ErrFmtHandler) WithGroup(g string) slog.Handler {
	return &ErrFmtHandler{next: h.next.WithGroup(g)}
}

// recordError returns the first ErrAttr value of r, or nil.
func recordError(r slog.Record) error {
	var found error
	r.Attrs(func(attr slog.Attr) bool {
		if attr.Key != ErrAttrKey {
			return true
		}
		found, _ = attr.Value.Any().(error)
		return false
	})
	return found
}

// stacktraceOf は最初のsafe detail（cockroachdb/errorsが記録したスタック）を返す
func stacktraceOf(err error) string {
	if d := errors.GetSafeDetails(err).SafeDetails; len(d) > 0 {
		return d[0]
	}
	return ""
}
