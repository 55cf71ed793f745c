package tools

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func echoTool() Tool {
	return Tool{
		Name:        "echo",
		Description: "Echo the text back",
		Fields: []Field{
			{Name: "text", Type: FieldString, Required: true},
			{Name: "ref", Type: FieldIdentifier},
		},
		Handler: func(_ context.Context, args Args) (Result, error) {
			text, _ := args.String("text")
			return Success(text + "|" + args.Token("ref")), nil
		},
	}
}

func TestDispatcher_Register(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())

	require.NoError(t, d.Register(echoTool()))
	assert.Error(t, d.Register(echoTool()), "duplicate names are rejected")
	assert.Error(t, d.Register(Tool{Name: "nohandler"}))
	assert.Error(t, d.Register(Tool{Handler: echoTool().Handler}))
}

func TestDispatcher_Tools(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	require.NoError(t, d.Register(echoTool()))

	infos := d.Tools()
	require.Len(t, infos, 1)
	assert.Equal(t, "echo", infos[0].Name)

	var schema map[string]any
	require.NoError(t, json.Unmarshal(infos[0].InputSchema, &schema))
	assert.Equal(t, "object", schema["type"])
	assert.Equal(t, false, schema["additionalProperties"])
	assert.Equal(t, []any{"text"}, schema["required"])

	props := schema["properties"].(map[string]any)
	ref := props["ref"].(map[string]any)
	assert.Equal(t, []any{"integer", "string"}, ref["type"])
}

func TestDispatcher_Invoke(t *testing.T) {
	ctx := context.Background()
	d := NewDispatcher(zerolog.Nop())
	require.NoError(t, d.Register(echoTool()))

	tests := []struct {
		name     string
		tool     string
		args     map[string]any
		wantOK   bool
		wantKind Kind
		wantMsg  string
	}{
		{name: "success", tool: "echo", args: map[string]any{"text": "hi", "ref": 7}, wantOK: true, wantMsg: "hi|7"},
		{name: "identifier as string", tool: "echo", args: map[string]any{"text": "hi", "ref": " Write report "}, wantOK: true, wantMsg: "hi|Write report"},
		{name: "unknown tool", tool: "nope", args: nil, wantKind: KindUnknownTool},
		{name: "missing required", tool: "echo", args: map[string]any{}, wantKind: KindInvalidArgument},
		{name: "nil args missing required", tool: "echo", args: nil, wantKind: KindInvalidArgument},
		{name: "unknown field", tool: "echo", args: map[string]any{"text": "hi", "extra": 1}, wantKind: KindInvalidArgument},
		{name: "type mismatch", tool: "echo", args: map[string]any{"text": 42}, wantKind: KindInvalidArgument},
		{name: "identifier rejects fraction", tool: "echo", args: map[string]any{"text": "x", "ref": 1.5}, wantKind: KindInvalidArgument},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := d.Invoke(ctx, tt.tool, tt.args)
			assert.Equal(t, tt.wantOK, res.OK, res.Message)
			if tt.wantOK {
				assert.Nil(t, res.Error)
				assert.Equal(t, tt.wantMsg, res.Message)
				return
			}
			require.NotNil(t, res.Error)
			assert.Equal(t, tt.wantKind, res.Error.Kind)
			assert.NotEmpty(t, res.Message)
		})
	}
}

func TestDispatcher_RecoversPanics(t *testing.T) {
	d := NewDispatcher(zerolog.Nop())
	require.NoError(t, d.Register(Tool{
		Name:    "boom",
		Handler: func(context.Context, Args) (Result, error) { panic("kaboom") },
	}))

	res := d.Invoke(context.Background(), "boom", nil)
	assert.False(t, res.OK)
	require.NotNil(t, res.Error)
	assert.Equal(t, KindInternal, res.Error.Kind)

	// the dispatcher stays usable after a panic
	res = d.Invoke(context.Background(), "boom", nil)
	assert.Equal(t, KindInternal, res.Error.Kind)
}

func TestDispatcher_CancelledContext(t *testing.T) {
	called := false
	d := NewDispatcher(zerolog.Nop())
	require.NoError(t, d.Register(Tool{
		Name: "noop",
		Handler: func(context.Context, Args) (Result, error) {
			called = true
			return Success("ok"), nil
		},
	}))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res := d.Invoke(ctx, "noop", nil)
	assert.False(t, res.OK)
	assert.False(t, called)
}

func TestDispatcher_LogsInvocation(t *testing.T) {
	var buf bytes.Buffer
	d := NewDispatcher(zerolog.New(&buf))
	require.NoError(t, d.Register(echoTool()))

	d.Invoke(context.Background(), "echo", map[string]any{"text": "hi"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "echo", entry["tool"])
	assert.NotEmpty(t, entry["invocation_id"])
	assert.Equal(t, "tool invoked", entry["message"])
}

func TestArgs_Token(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{in: float64(3), want: "3"},
		{in: "  12 ", want: "12"},
		{in: json.Number("5"), want: "5"},
		{in: 2.5, want: "2.5"},
	}

	for _, tt := range tests {
		t.Run(tt.want, func(t *testing.T) {
			assert.Equal(t, tt.want, Args{"k": tt.in}.Token("k"))
		})
	}

	assert.Empty(t, Args{}.Token("k"))
}
