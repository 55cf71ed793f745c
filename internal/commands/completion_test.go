package commands

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/colonyops/taskman/internal/core/config"
)

func TestTaskCompleter(t *testing.T) {
	flags, a := newTestApp(t, config.BackendCSV)

	for _, name := range []string{"Write report", "Review PR"} {
		_, err := runCLI(t, flags, a, "", "add", name)
		require.NoError(t, err)
	}
	_, err := runCLI(t, flags, a, "", "complete", "Write report")
	require.NoError(t, err)

	tests := []struct {
		name string
		cmd  string
		want []string
	}{
		{name: "complete skips done tasks", cmd: "complete", want: []string{"Review PR"}},
		{name: "delete offers every task", cmd: "delete", want: []string{"Write report", "Review PR"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := runCLI(t, flags, a, "", tt.cmd, "--generate-shell-completion")
			require.NoError(t, err)
			assert.Equal(t, tt.want, strings.Split(strings.TrimSpace(out), "\n"))
		})
	}
}
