package logging

import (
	"context"

	"github.com/rs/zerolog"
)

// ContextHook extracts invocation_id and tool from context and adds them to log events.
type ContextHook struct{}

// Run adds contextual fields to the zerolog event.
func (h ContextHook) Run(e *zerolog.Event, level zerolog.Level, msg string) {
	ctx := e.GetCtx()
	if ctx == context.Background() || ctx == nil {
		return
	}

	if id := GetInvocationID(ctx); id != "" {
		e.Str("invocation_id", id)
	}

	if tool := GetTool(ctx); tool != "" {
		e.Str("tool", tool)
	}
}
