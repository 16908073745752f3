package logger

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cockroachdb/errors/errbase"
	"github.com/gaze-network/holders-snapshot/pkg/logger/slogx"
	"github.com/gaze-network/holders-snapshot/pkg/logger/stacktrace"
)

// middlewareErrorStackTrace adds the verbose error message and the stack trace
// of cockroachdb errors to the log record.
func middlewareErrorStackTrace() middleware {
	return func(next handleFunc) handleFunc {
		return func(ctx context.Context, rec slog.Record) error {
			var attrs []slog.Attr
			rec.Attrs(func(attr slog.Attr) bool {
				if attr.Key == slogx.ErrorKey || attr.Key == "err" {
					err := attr.Value.Any()
					if err, ok := err.(error); ok && err != nil {
						attrs = append(attrs, slog.String(ErrorVerboseKey, fmt.Sprintf("%+v", err)))
						if x, ok := err.(errbase.StackTraceProvider); ok {
							attrs = append(attrs, slog.Any(ErrorStackTraceKey, stacktrace.StackTrace(x.StackTrace()).TraceFramesStrings()))
						}
					}
				}
				return true
			})
			rec.AddAttrs(attrs...)

			return next(ctx, rec)
		}
	}
}
