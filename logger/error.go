package logger

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// AnnotateError wraps an error with slog key-value pairs. When the error is
// logged through a handler installed by ConfigureLoggingWithOptions, the
// pairs are added to the record next to it.
//
//	out, err := m.Dispatch(ctx, input)
//	if err != nil {
//	    return logger.AnnotateError(err, "input", input)
//	}
//
// Returns nil if err is nil.
func AnnotateError(err error, args ...any) error {
	if err == nil {
		return nil
	}

	r := slog.NewRecord(time.Now(), slog.LevelDebug, "", 0)
	r.Add(args...)

	var errAttrs []slog.Attr

	r.Attrs(func(attr slog.Attr) bool {
		errAttrs = append(errAttrs, attr)

		return true
	})

	return &annotatedError{
		err:   err,
		attrs: errAttrs,
	}
}

// annotatedError is compatible with errors.Is and errors.As.
type annotatedError struct {
	err   error
	attrs []slog.Attr
}

var _ error = (*annotatedError)(nil)

func (a *annotatedError) Error() string {
	return a.err.Error()
}

func (a *annotatedError) Unwrap() error {
	return a.err
}

// collectAttrs gathers the annotations of every annotatedError in err's
// chain, outermost first, following joined errors too.
func collectAttrs(err error) []slog.Attr {
	var attrs []slog.Attr

	for err != nil {
		if ae, ok := err.(*annotatedError); ok { //nolint:errorlint // walking the chain by hand
			attrs = append(attrs, ae.attrs...)
		}

		if joined, ok := err.(interface{ Unwrap() []error }); ok { //nolint:errorlint // walking the chain by hand
			for _, inner := range joined.Unwrap() {
				attrs = append(attrs, collectAttrs(inner)...)
			}

			return attrs
		}

		err = errors.Unwrap(err)
	}

	return attrs
}

// annotatedErrorHandler decorates a slog.Handler so that annotations carried
// by logged errors become attributes of the record.
type annotatedErrorHandler struct {
	inner slog.Handler
}

var _ slog.Handler = (*annotatedErrorHandler)(nil)

func (h *annotatedErrorHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.inner.Enabled(ctx, level)
}

func (h *annotatedErrorHandler) Handle(ctx context.Context, record slog.Record) error {
	var extra []slog.Attr

	record.Attrs(func(attr slog.Attr) bool {
		if err, ok := attr.Value.Any().(error); ok {
			extra = append(extra, collectAttrs(err)...)
		}

		return true
	})

	if len(extra) == 0 {
		return h.inner.Handle(ctx, record)
	}

	r := record.Clone()
	r.AddAttrs(extra...)

	return h.inner.Handle(ctx, r)
}

func (h *annotatedErrorHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	return &annotatedErrorHandler{inner: h.inner.WithAttrs(attrs)}
}

func (h *annotatedErrorHandler) WithGroup(name string) slog.Handler {
	return &annotatedErrorHandler{inner: h.inner.WithGroup(name)}
}
