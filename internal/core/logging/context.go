package logging

import "context"

type contextKey string

const (
	invocationIDKey contextKey = "invocation_id"
	toolKey         contextKey = "tool"
)

// WithInvocationID adds a tool invocation ID to the context.
func WithInvocationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, invocationIDKey, id)
}

// WithTool adds the name of the tool being invoked to the context.
func WithTool(ctx context.Context, tool string) context.Context {
	return context.WithValue(ctx, toolKey, tool)
}

// GetInvocationID retrieves the invocation ID from the context.
// Returns empty string if not present.
func GetInvocationID(ctx context.Context) string {
	if id, ok := ctx.Value(invocationIDKey).(string); ok {
		return id
	}
	return ""
}

// GetTool retrieves the tool name from the context.
// Returns empty string if not present.
func GetTool(ctx context.Context) string {
	if tool, ok := ctx.Value(toolKey).(string); ok {
		return tool
	}
	return ""
}
