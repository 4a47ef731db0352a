package dcontext

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
)

// WithTrace extends ctx with identifying information about the call site —
// a trace id, the calling function/file/line, and a start time — and
// returns a done function that logs the elapsed time when the traced
// operation finishes. Nested calls chain trace.parent.id so a log
// aggregator can reconstruct the call tree.
func WithTrace(ctx context.Context) (context.Context, func(format string, a ...interface{})) {
	if ctx == nil {
		ctx = Background()
	}

	parentID := GetStringValue(ctx, "trace.id")

	pc, file, line, _ := runtime.Caller(1)
	f := runtime.FuncForPC(pc)

	ctx = context.WithValue(ctx, "trace.id", uuid.Must(uuid.NewV7()).String())
	ctx = context.WithValue(ctx, "trace.file", file)
	ctx = context.WithValue(ctx, "trace.line", line)
	ctx = context.WithValue(ctx, "trace.func", f.Name())
	ctx = context.WithValue(ctx, "trace.start", time.Now())

	if parentID != "" {
		ctx = context.WithValue(ctx, "trace.parent.id", parentID)
	}

	return ctx, func(format string, a ...interface{}) {
		doTrace(ctx, format, a...)
	}
}

func doTrace(ctx context.Context, format string, a ...interface{}) {
	start, _ := ctx.Value("trace.start").(time.Time)

	logger := GetLoggerWithFields(ctx, map[interface{}]interface{}{
		"trace.duration": time.Since(start),
	}, "trace.id", "trace.parent.id", "trace.func", "trace.file", "trace.line")

	logger.Printf(format, a...)
}
