package services

import "context"

type contextKey string

const (
	scanIDKey    contextKey = "scan_id"
	libraryIDKey contextKey = "library_id"
	nodeKey      contextKey = "node"
	requestIDKey contextKey = "request_id"
)

// WithScanID annotates context with the scan identifier.
func WithScanID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, scanIDKey, id)
}

// ScanIDFromContext extracts the scan identifier if present.
func ScanIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(scanIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}

// WithLibraryID annotates context with the library identifier.
func WithLibraryID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, libraryIDKey, id)
}

// LibraryIDFromContext extracts the library identifier if present.
func LibraryIDFromContext(ctx context.Context) (int64, bool) {
	v := ctx.Value(libraryIDKey)
	if v == nil {
		return 0, false
	}
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	default:
		return 0, false
	}
}

// WithNode annotates context with the pipeline node name.
func WithNode(ctx context.Context, node string) context.Context {
	if node == "" {
		return ctx
	}
	return context.WithValue(ctx, nodeKey, node)
}

// NodeFromContext returns the pipeline node name if present.
func NodeFromContext(ctx context.Context) (string, bool) {
	if str, ok := ctx.Value(nodeKey).(string); ok && str != "" {
		return str, true
	}
	return "", false
}

// WithRequestID annotates context with a correlation identifier.
func WithRequestID(ctx context.Context, id string) context.Context {
	if id == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey, id)
}

// RequestIDFromContext extracts the correlation identifier if present.
func RequestIDFromContext(ctx context.Context) (string, bool) {
	if v, ok := ctx.Value(requestIDKey).(string); ok && v != "" {
		return v, true
	}
	return "", false
}
