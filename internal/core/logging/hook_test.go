package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestContextHook_Run(t *testing.T) {
	tests := []struct {
		name   string
		ctx    context.Context
		want   map[string]string
		absent []string
	}{
		{
			name: "invocation and tool",
			ctx:  WithTool(WithInvocationID(context.Background(), "inv-123"), "complete"),
			want: map[string]string{"invocation_id": "inv-123", "tool": "complete"},
		},
		{
			name:   "only invocation id",
			ctx:    WithInvocationID(context.Background(), "inv-456"),
			want:   map[string]string{"invocation_id": "inv-456"},
			absent: []string{"tool"},
		},
		{
			name:   "no context values",
			ctx:    context.Background(),
			absent: []string{"invocation_id", "tool"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer

			logger := zerolog.New(&buf).Hook(ContextHook{})
			logger.Info().Ctx(tt.ctx).Msg("invoked")

			var entry map[string]any
			require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))

			for key, value := range tt.want {
				assert.Equal(t, value, entry[key], key)
			}
			for _, key := range tt.absent {
				assert.NotContains(t, entry, key)
			}
		})
	}
}
