package logging

import (
	"context"
	"testing"
)

func TestWithInvocationID(t *testing.T) {
	ctx := WithInvocationID(context.Background(), "inv-123")

	if got := GetInvocationID(ctx); got != "inv-123" {
		t.Errorf("GetInvocationID() = %q, want %q", got, "inv-123")
	}
}

func TestWithTool(t *testing.T) {
	ctx := WithTool(context.Background(), "add")

	if got := GetTool(ctx); got != "add" {
		t.Errorf("GetTool() = %q, want %q", got, "add")
	}
}

func TestGetters_NotPresent(t *testing.T) {
	ctx := context.Background()

	if got := GetInvocationID(ctx); got != "" {
		t.Errorf("GetInvocationID() = %q, want empty string", got)
	}

	if got := GetTool(ctx); got != "" {
		t.Errorf("GetTool() = %q, want empty string", got)
	}
}
