package commands

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTokenize(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []string
		wantErr bool
	}{
		{name: "plain", line: "list", want: []string{"list"}},
		{name: "collapses whitespace", line: "  add \t name=x  ", want: []string{"add", "name=x"}},
		{name: "quoted value", line: `add name="Write report" priority=High`, want: []string{"add", "name=Write report", "priority=High"}},
		{name: "quoted token", line: `complete "task_identifier=Review PR"`, want: []string{"complete", "task_identifier=Review PR"}},
		{name: "escaped quote", line: `add name="say \"hi\""`, want: []string{"add", `name=say "hi"`}},
		{name: "empty quoted value", line: `update status=""`, want: []string{"update", "status="}},
		{name: "unicode", line: `add name="レポート作成 ✍️"`, want: []string{"add", "name=レポート作成 ✍️"}},
		{name: "empty", line: "   ", want: nil},
		{name: "unterminated", line: `add name="oops`, wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Tokenize(tt.line)
			if tt.wantErr {
				assert.ErrorIs(t, err, errUnterminatedQuote)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseInvocation(t *testing.T) {
	tests := []struct {
		name     string
		line     string
		wantTool string
		wantArgs map[string]any
		wantErr  string
	}{
		{
			name:     "no args",
			line:     "LIST",
			wantTool: "list",
			wantArgs: map[string]any{},
		},
		{
			name:     "string args",
			line:     `update task_identifier=3 status="in progress"`,
			wantTool: "update",
			wantArgs: map[string]any{"task_identifier": "3", "status": "in progress"},
		},
		{
			name:     "value containing equals",
			line:     `add name=a=b`,
			wantTool: "add",
			wantArgs: map[string]any{"name": "a=b"},
		},
		{
			name:     "numeric id stays a string",
			line:     "change_status task_id=5 status=done",
			wantTool: "change_status",
			wantArgs: map[string]any{"task_id": "5", "status": "done"},
		},
		{name: "missing equals", line: "complete 3", wantErr: "expected key=value"},
		{name: "empty key", line: "add =x", wantErr: "expected key=value"},
		{name: "duplicate key", line: "add name=a name=b", wantErr: "given twice"},
		{name: "empty", line: "", wantErr: "empty command"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tool, args, err := ParseInvocation(tt.line)
			if tt.wantErr != "" {
				assert.ErrorContains(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantTool, tool)
			assert.Equal(t, tt.wantArgs, args)
		})
	}
}
