package shared

import "context"

type logAttrsKey struct{}

// WithLogAttrs returns a context carrying slog key-value pairs to be added by
// whoever logs on behalf of the request.
func WithLogAttrs(ctx context.Context, args ...any) context.Context {
	prev := LogAttrs(ctx)
	merged := make([]any, 0, len(prev)+len(args))
	merged = append(merged, prev...)
	merged = append(merged, args...)
	return context.WithValue(ctx, logAttrsKey{}, merged)
}

// LogAttrs returns the slog key-value pairs stored by WithLogAttrs.
func LogAttrs(ctx context.Context) []any {
	args, _ := ctx.Value(logAttrsKey{}).([]any)
	return args
}
